package occurrence

import (
	"sort"

	"github.com/02loveslollipop/Shizuku-biodiversity-viewer/services/dashboard/internal/models"
)

// SpeciesList returns the distinct species names, sorted.
func SpeciesList(recs []models.Occurrence) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, r := range recs {
		if isNA(r.Species) {
			continue
		}
		if _, ok := seen[r.Species]; ok {
			continue
		}
		seen[r.Species] = struct{}{}
		out = append(out, r.Species)
	}
	sort.Strings(out)
	return out
}

// FilterSpecies keeps the records whose species equals the selection.
func FilterSpecies(recs []models.Occurrence, species string) []models.Occurrence {
	out := make([]models.Occurrence, 0)
	for _, r := range recs {
		if r.Species == species {
			out = append(out, r)
		}
	}
	return out
}
