package models

import (
	"time"

	"github.com/twpayne/go-geom"
)

// RawOccurrence is one row of an uploaded Darwin Core file before cleaning.
type RawOccurrence struct {
	Row          int
	GBIFID       string
	Family       string
	Species      string
	EventDate    string
	Locality     string
	OccurrenceID string
	Latitude     *float64
	Longitude    *float64
}

// Occurrence is a cleaned occurrence record.
type Occurrence struct {
	GBIFID       string    `json:"gbif_id"`
	Family       string    `json:"family"`
	Species      string    `json:"species"`
	EventDate    time.Time `json:"event_date"` // zero when missing
	Locality     string    `json:"locality"`
	OccurrenceID string    `json:"occurrence_id"`
	Latitude     *float64  `json:"latitude,omitempty"`
	Longitude    *float64  `json:"longitude,omitempty"`
}

// HasLocation reports whether both coordinates are present.
func (o Occurrence) HasLocation() bool {
	return o.Latitude != nil && o.Longitude != nil
}

// HasDate reports whether eventDate was present in the upload.
func (o Occurrence) HasDate() bool {
	return !o.EventDate.IsZero()
}

// ProtectedArea is a protected-area boundary loaded from the remote GeoJSON.
// Geometry is either *geom.Polygon or *geom.MultiPolygon.
type ProtectedArea struct {
	ID       string
	Name     string
	Geometry geom.T
}

// AreaCount maps a protected area to the number of occurrences strictly inside it.
type AreaCount struct {
	AreaID string `json:"area_id" yaml:"area_id"`
	Name   string `json:"name" yaml:"name"`
	Count  int    `json:"count" yaml:"count"`
}
