package report

import (
	"sort"
	"strconv"
	"time"

	"github.com/02loveslollipop/Shizuku-biodiversity-viewer/services/dashboard/internal/models"
)

// DefaultTopAreas is the size of the ranked area list.
const DefaultTopAreas = 15

// Default color palette for chart series.
var defaultColors = []string{
	"#2E7D32", "#1565C0", "#F9A825", "#C62828", "#6A1B9A",
	"#00838F", "#AD1457", "#9E9D24", "#EF6C00", "#4527A0",
	"#558B2F", "#0277BD", "#FF8F00", "#D84315", "#4E342E",
}

var monthLabels = [12]string{
	"Ene", "Feb", "Mar", "Abr", "May", "Jun",
	"Jul", "Ago", "Sep", "Oct", "Nov", "Dic",
}

// Input is what the pipeline hands to Build.
type Input struct {
	Species  []string
	Selected string
	Records  []models.Occurrence
	Areas    []models.ProtectedArea
	Counts   []models.AreaCount
	Totals   Totals
}

// Options tunes the report.
type Options struct {
	TopAreas int
	Now      func() time.Time
}

// Build assembles the render model for one run.
func Build(in Input, opts Options) (*Model, error) {
	if opts.TopAreas <= 0 {
		opts.TopAreas = DefaultTopAreas
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	totals := in.Totals
	totals.Filtered = len(in.Records)
	totals.Areas = len(in.Counts)
	for _, r := range in.Records {
		if !r.HasDate() {
			totals.Undated++
		}
	}
	for _, c := range in.Counts {
		totals.InsideAreas += c.Count
	}

	m := &Model{
		Species:     in.Species,
		Selected:    in.Selected,
		Empty:       len(in.Species) == 0,
		Totals:      totals,
		Table:       BuildTable(in.Selected, in.Records),
		Yearly:      YearlySeries(in.Records),
		Monthly:     MonthlySeries(in.Records),
		AreaCounts:  in.Counts,
		TopAreas:    TopAreas(in.Counts, opts.TopAreas),
		GeneratedAt: now().UTC(),
	}
	if m.Species == nil {
		m.Species = []string{}
	}
	if m.AreaCounts == nil {
		m.AreaCounts = []models.AreaCount{}
	}
	m.Charts = buildCharts(m)

	layer, err := BuildMapLayer(in.Records, in.Areas, in.Counts)
	if err != nil {
		return nil, err
	}
	m.Map = layer
	return m, nil
}

// BuildTable renders the records with the dashboard's column names.
func BuildTable(species string, recs []models.Occurrence) TableData {
	table := TableData{
		Title: "Registros de presencia de " + species,
		Columns: []Column{
			{Key: "family", Label: "Familia"},
			{Key: "species", Label: "Especie"},
			{Key: "eventDate", Label: "Fecha"},
			{Key: "locality", Label: "Localidad"},
			{Key: "occurrenceID", Label: "Origen del dato"},
		},
		Rows: make([][]string, 0, len(recs)),
	}
	for _, r := range recs {
		table.Rows = append(table.Rows, []string{
			r.Family,
			r.Species,
			formatDate(r),
			r.Locality,
			r.OccurrenceID,
		})
	}
	return table
}

// YearlySeries counts records per year of eventDate, ascending. Records without a
// date are left out.
func YearlySeries(recs []models.Occurrence) []ChartPoint {
	counts := make(map[int]int)
	for _, r := range recs {
		if !r.HasDate() {
			continue
		}
		counts[r.EventDate.Year()]++
	}
	years := make([]int, 0, len(counts))
	for y := range counts {
		years = append(years, y)
	}
	sort.Ints(years)

	out := make([]ChartPoint, 0, len(years))
	for _, y := range years {
		out = append(out, ChartPoint{Label: strconv.Itoa(y), Value: counts[y]})
	}
	return out
}

// MonthlySeries counts records per calendar month, pooling every year together.
func MonthlySeries(recs []models.Occurrence) []ChartPoint {
	var counts [12]int
	for _, r := range recs {
		if !r.HasDate() {
			continue
		}
		counts[r.EventDate.Month()-1]++
	}
	out := make([]ChartPoint, 0, 12)
	for i, n := range counts {
		if n == 0 {
			continue
		}
		out = append(out, ChartPoint{Label: monthLabels[i], Value: n})
	}
	return out
}

func formatDate(r models.Occurrence) string {
	if !r.HasDate() {
		return ""
	}
	return r.EventDate.Format("2006-01-02")
}

// TopAreas ranks areas by count, dropping zero counts. Ties are broken by name.
func TopAreas(counts []models.AreaCount, limit int) []models.AreaCount {
	out := make([]models.AreaCount, 0, len(counts))
	for _, c := range counts {
		if c.Count > 0 {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func buildCharts(m *Model) []ChartConfig {
	areaPoints := make([]ChartPoint, 0, len(m.TopAreas))
	for _, a := range m.TopAreas {
		label := a.Name
		if label == "" {
			label = a.AreaID
		}
		areaPoints = append(areaPoints, ChartPoint{Label: label, Value: a.Count})
	}

	return []ChartConfig{
		{
			ID:        "yearly",
			ChartType: "bar",
			Title:     "Cantidad de registros por año",
			XAxis:     "Año",
			YAxis:     "Registros",
			Series:    []ChartSeries{{Name: "Registros", Data: m.Yearly}},
			Colors:    defaultColors[:1],
		},
		{
			ID:        "monthly",
			ChartType: "area",
			Title:     "Cantidad de registros por mes",
			XAxis:     "Mes",
			YAxis:     "Registros",
			Series:    []ChartSeries{{Name: "Registros", Data: m.Monthly}},
			Colors:    defaultColors[1:2],
		},
		{
			ID:        "areas",
			ChartType: "bar",
			Title:     "Áreas protegidas con más registros",
			XAxis:     "Área protegida",
			YAxis:     "Registros",
			Series:    []ChartSeries{{Name: "Registros", Data: areaPoints}},
			Colors:    defaultColors[2:3],
		},
		{
			ID:        "areas_share",
			ChartType: "pie",
			Title:     "Proporción de registros por área protegida",
			Series:    []ChartSeries{{Name: "Registros", Data: areaPoints}},
			Colors:    assignColors(len(areaPoints)),
		},
	}
}

func assignColors(n int) []string {
	colors := make([]string, n)
	for i := range colors {
		colors[i] = defaultColors[i%len(defaultColors)]
	}
	return colors
}
