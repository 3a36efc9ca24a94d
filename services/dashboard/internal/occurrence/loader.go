package occurrence

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/02loveslollipop/Shizuku-biodiversity-viewer/services/dashboard/internal/models"
)

var (
	// ErrEmptyUpload is returned when the uploaded stream has no header row.
	ErrEmptyUpload = errors.New("upload is empty")
	// ErrMissingColumn is returned when a required Darwin Core column is absent.
	ErrMissingColumn = errors.New("missing required column")
	// ErrMalformed is returned for rows that cannot be read as tab-separated text.
	ErrMalformed = errors.New("malformed occurrence file")
)

// Darwin Core terms read from an upload.
const (
	ColSpecies      = "species"
	ColFamily       = "family"
	ColEventDate    = "eventDate"
	ColLocality     = "locality"
	ColOccurrenceID = "occurrenceID"
	ColGBIFID       = "gbifID"
	ColLatitude     = "decimalLatitude"
	ColLongitude    = "decimalLongitude"
)

// RequiredColumns lists the columns every upload must carry.
var RequiredColumns = []string{
	ColSpecies, ColFamily, ColEventDate, ColLocality,
	ColOccurrenceID, ColGBIFID, ColLatitude, ColLongitude,
}

// Parse reads a tab-separated Darwin Core file (GBIF "simple" download layout).
func Parse(r io.Reader) ([]models.RawOccurrence, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	reader.Comma = '\t'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyUpload
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrMalformed, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	col := map[string]int{}
	for i, h := range header {
		col[strings.TrimSpace(h)] = i
	}
	for _, k := range RequiredColumns {
		if _, ok := col[k]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, k)
		}
	}

	out := make([]models.RawOccurrence, 0)
	row := 1
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		row++
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrMalformed, row, err)
		}
		get := func(name string) string {
			i := col[name]
			if i >= len(rec) {
				return ""
			}
			v := strings.TrimSpace(rec[i])
			if isNA(v) {
				return ""
			}
			return v
		}

		lat, err := parseCoordinate(get(ColLatitude))
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %s: %v", ErrMalformed, row, ColLatitude, err)
		}
		lon, err := parseCoordinate(get(ColLongitude))
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %s: %v", ErrMalformed, row, ColLongitude, err)
		}

		out = append(out, models.RawOccurrence{
			Row:          row,
			GBIFID:       get(ColGBIFID),
			Family:       get(ColFamily),
			Species:      get(ColSpecies),
			EventDate:    get(ColEventDate),
			Locality:     get(ColLocality),
			OccurrenceID: get(ColOccurrenceID),
			Latitude:     lat,
			Longitude:    lon,
		})
	}
	return out, nil
}

// naValues are the cell values read as missing, matching pandas' read_csv defaults.
var naValues = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

func isNA(s string) bool {
	_, ok := naValues[s]
	return ok
}

// parseCoordinate returns nil for an empty cell.
func parseCoordinate(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(v) {
		return nil, nil
	}
	return &v, nil
}
