package areas

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/02loveslollipop/Shizuku-biodiversity-viewer/services/dashboard/internal/models"
)

var (
	// ErrUnsupportedGeometry is returned for features that are not (multi)polygons.
	ErrUnsupportedGeometry = errors.New("unsupported geometry")
	// ErrDuplicateID is returned when two features resolve to the same area id.
	ErrDuplicateID = errors.New("duplicate area id")
)

// Properties names the feature properties holding the area id and display name.
type Properties struct {
	ID   string
	Name string
}

// feature ids may be strings or numbers, so the collection envelope is decoded by hand
// and only geometries go through go-geom.
type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	ID         json.RawMessage `json:"id,omitempty"`
	Properties map[string]any  `json:"properties"`
	Geometry   json.RawMessage `json:"geometry"`
}

// Decode parses a GeoJSON FeatureCollection into protected areas.
func Decode(data []byte, props Properties) ([]models.ProtectedArea, error) {
	var fc featureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("decode feature collection: %w", err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("decode feature collection: unexpected type %q", fc.Type)
	}

	out := make([]models.ProtectedArea, 0, len(fc.Features))
	seen := make(map[string]int, len(fc.Features))
	for i, f := range fc.Features {
		var g geom.T
		if err := geojson.Unmarshal(f.Geometry, &g); err != nil {
			return nil, fmt.Errorf("feature %d: decode geometry: %w", i, err)
		}
		switch g.(type) {
		case *geom.Polygon, *geom.MultiPolygon:
		default:
			return nil, fmt.Errorf("feature %d: %w %T", i, ErrUnsupportedGeometry, g)
		}

		id := propertyString(f.Properties, props.ID)
		if id == "" {
			id = rawID(f.ID)
		}
		if id == "" {
			id = strconv.Itoa(i)
		}

		if j, ok := seen[id]; ok {
			return nil, fmt.Errorf("feature %d: %w %q (also feature %d)", i, ErrDuplicateID, id, j)
		}
		seen[id] = i

		out = append(out, models.ProtectedArea{
			ID:       id,
			Name:     propertyString(f.Properties, props.Name),
			Geometry: g,
		})
	}
	return out, nil
}

func propertyString(props map[string]any, key string) string {
	if key == "" || props == nil {
		return ""
	}
	switch v := props[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func rawID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return ""
}
