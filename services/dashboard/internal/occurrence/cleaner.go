package occurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/02loveslollipop/Shizuku-biodiversity-viewer/services/dashboard/internal/models"
)

// ErrInvalidDate is returned when an eventDate cannot be parsed under DatePolicyAbort.
var ErrInvalidDate = errors.New("invalid eventDate")

// DatePolicy decides what happens to rows whose eventDate is present but unparsable.
type DatePolicy string

const (
	// DatePolicyAbort fails the whole run on the first bad date.
	DatePolicyAbort DatePolicy = "abort"
	// DatePolicySkip drops rows with bad dates and counts them.
	DatePolicySkip DatePolicy = "skip"
)

// ParseDatePolicy validates a policy name; empty means abort.
func ParseDatePolicy(s string) (DatePolicy, error) {
	switch DatePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", DatePolicyAbort:
		return DatePolicyAbort, nil
	case DatePolicySkip:
		return DatePolicySkip, nil
	default:
		return "", fmt.Errorf("unknown date policy %q", s)
	}
}

// Cleaned is the output of Clean.
type Cleaned struct {
	Records          []models.Occurrence
	DroppedNoSpecies int
	SkippedDates     int
}

// Clean removes rows without species and converts eventDate to time.Time.
// A missing eventDate is kept as the zero time; only a present but unparsable
// value is subject to policy.
func Clean(raw []models.RawOccurrence, policy DatePolicy) (Cleaned, error) {
	out := Cleaned{Records: make([]models.Occurrence, 0, len(raw))}
	for _, r := range raw {
		if isNA(strings.TrimSpace(r.Species)) {
			out.DroppedNoSpecies++
			continue
		}
		var ts time.Time
		if !isNA(strings.TrimSpace(r.EventDate)) {
			var err error
			ts, err = ParseEventDate(r.EventDate)
			if err != nil {
				if policy == DatePolicySkip {
					out.SkippedDates++
					continue
				}
				return Cleaned{}, fmt.Errorf("row %d: %w", r.Row, err)
			}
		}
		out.Records = append(out.Records, models.Occurrence{
			GBIFID:       r.GBIFID,
			Family:       r.Family,
			Species:      r.Species,
			EventDate:    ts,
			Locality:     r.Locality,
			OccurrenceID: r.OccurrenceID,
			Latitude:     r.Latitude,
			Longitude:    r.Longitude,
		})
	}
	return out, nil
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"2006-01",
	"2006",
}

// ParseEventDate parses the eventDate forms found in GBIF exports. For an ISO 8601
// interval ("2019-05-01/2019-05-03") the start is returned.
func ParseEventDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidDate)
	}
	if ts, ok := parseLayouts(s); ok {
		return ts, nil
	}
	if start, end, found := strings.Cut(s, "/"); found {
		if ts, ok := parseLayouts(start); ok {
			if _, ok := parseLayouts(end); ok || isPartialEnd(end) {
				return ts, nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

func parseLayouts(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

// isPartialEnd accepts abbreviated interval ends such as "2019-05-01/03".
func isPartialEnd(s string) bool {
	if s == "" || len(s) > 5 {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '-' {
			return false
		}
	}
	return true
}
