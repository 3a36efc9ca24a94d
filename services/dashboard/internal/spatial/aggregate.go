package spatial

import (
	"sort"
	"strconv"

	"github.com/02loveslollipop/Shizuku-biodiversity-viewer/services/dashboard/internal/models"
)

// CountByArea counts, for every area, the records whose point lies strictly inside it.
// Every area gets a row, including areas with no records. Rows are ordered by area ID,
// numerically when both IDs are numbers.
func CountByArea(areas []models.ProtectedArea, recs []models.Occurrence) []models.AreaCount {
	out := make([]models.AreaCount, 0, len(areas))
	for _, area := range areas {
		row := models.AreaCount{AreaID: area.ID, Name: area.Name}
		for _, r := range recs {
			if !r.HasLocation() {
				continue
			}
			if Contains(area.Geometry, *r.Longitude, *r.Latitude) {
				row.Count++
			}
		}
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return lessID(out[i].AreaID, out[j].AreaID)
	})
	return out
}

// Total sums the counts.
func Total(counts []models.AreaCount) int {
	n := 0
	for _, c := range counts {
		n += c.Count
	}
	return n
}

func lessID(a, b string) bool {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		return fa < fb
	}
	return a < b
}
