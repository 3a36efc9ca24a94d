package report

import (
	"encoding/json"
	"time"

	"github.com/02loveslollipop/Shizuku-biodiversity-viewer/services/dashboard/internal/models"
)

// Model is everything a page or API response needs to render one run.
type Model struct {
	Species     []string           `json:"species" yaml:"species"`
	Selected    string             `json:"selected" yaml:"selected"`
	Empty       bool               `json:"empty" yaml:"empty"`
	Totals      Totals             `json:"totals" yaml:"totals"`
	Table       TableData          `json:"table" yaml:"table"`
	Yearly      []ChartPoint       `json:"yearly" yaml:"yearly"`
	Monthly     []ChartPoint       `json:"monthly" yaml:"monthly"`
	AreaCounts  []models.AreaCount `json:"area_counts" yaml:"area_counts"`
	TopAreas    []models.AreaCount `json:"top_areas" yaml:"top_areas"`
	Charts      []ChartConfig      `json:"charts" yaml:"charts"`
	Map         MapLayer           `json:"map" yaml:"map"`
	GeneratedAt time.Time          `json:"generated_at" yaml:"generated_at"`
}

// Totals summarises the run.
type Totals struct {
	Uploaded         int `json:"uploaded" yaml:"uploaded"`
	DroppedNoSpecies int `json:"dropped_no_species" yaml:"dropped_no_species"`
	SkippedDates     int `json:"skipped_dates" yaml:"skipped_dates"`
	Filtered         int `json:"filtered" yaml:"filtered"`
	Undated          int `json:"undated" yaml:"undated"`
	InsideAreas      int `json:"inside_areas" yaml:"inside_areas"`
	Areas            int `json:"areas" yaml:"areas"`
}

// TableData is a rendered table.
type TableData struct {
	Title   string     `json:"title" yaml:"title"`
	Columns []Column   `json:"columns" yaml:"columns"`
	Rows    [][]string `json:"rows" yaml:"rows"`
}

// Column defines a table column.
type Column struct {
	Key   string `json:"key" yaml:"key"`
	Label string `json:"label" yaml:"label"`
}

// ChartConfig defines how to render a chart.
type ChartConfig struct {
	ID        string        `json:"id" yaml:"id"`
	ChartType string        `json:"chartType" yaml:"chart_type"` // "bar", "area", "pie"
	Title     string        `json:"title" yaml:"title"`
	XAxis     string        `json:"xAxis,omitempty" yaml:"x_axis,omitempty"`
	YAxis     string        `json:"yAxis,omitempty" yaml:"y_axis,omitempty"`
	Series    []ChartSeries `json:"series" yaml:"series"`
	Colors    []string      `json:"colors,omitempty" yaml:"colors,omitempty"`
}

// ChartSeries represents a data series in a chart.
type ChartSeries struct {
	Name string       `json:"name" yaml:"name"`
	Data []ChartPoint `json:"data" yaml:"data"`
}

// ChartPoint represents a single data point.
type ChartPoint struct {
	Label string `json:"label" yaml:"label"`
	Value int    `json:"value" yaml:"value"`
}

// MapLayer carries the occurrence points and the area polygons with their counts.
type MapLayer struct {
	Points []MapPoint      `json:"points" yaml:"points"`
	Areas  json.RawMessage `json:"areas,omitempty" yaml:"-"`
}

// MapPoint is one located occurrence.
type MapPoint struct {
	Lat          float64 `json:"lat" yaml:"lat"`
	Lon          float64 `json:"lon" yaml:"lon"`
	Locality     string  `json:"locality,omitempty" yaml:"locality,omitempty"`
	Date         string  `json:"date" yaml:"date"`
	OccurrenceID string  `json:"occurrence_id,omitempty" yaml:"occurrence_id,omitempty"`
}
