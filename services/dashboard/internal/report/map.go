package report

import (
	"encoding/json"
	"fmt"

	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/02loveslollipop/Shizuku-biodiversity-viewer/services/dashboard/internal/models"
)

// BuildMapLayer collects the located records and encodes the areas, with their
// counts as properties, as a GeoJSON FeatureCollection.
func BuildMapLayer(recs []models.Occurrence, areas []models.ProtectedArea, counts []models.AreaCount) (MapLayer, error) {
	layer := MapLayer{Points: make([]MapPoint, 0, len(recs))}
	for _, r := range recs {
		if !r.HasLocation() {
			continue
		}
		layer.Points = append(layer.Points, MapPoint{
			Lat:          *r.Latitude,
			Lon:          *r.Longitude,
			Locality:     r.Locality,
			Date:         formatDate(r),
			OccurrenceID: r.OccurrenceID,
		})
	}

	byID := make(map[string]int, len(counts))
	for _, c := range counts {
		byID[c.AreaID] = c.Count
	}

	fc := geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(areas))}
	for _, a := range areas {
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       a.ID,
			Geometry: a.Geometry,
			Properties: map[string]interface{}{
				"name":  a.Name,
				"count": byID[a.ID],
			},
		})
	}
	data, err := json.Marshal(&fc)
	if err != nil {
		return MapLayer{}, fmt.Errorf("encode area layer: %w", err)
	}
	layer.Areas = data
	return layer, nil
}
