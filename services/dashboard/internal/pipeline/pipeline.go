package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/02loveslollipop/Shizuku-biodiversity-viewer/services/dashboard/internal/areas"
	"github.com/02loveslollipop/Shizuku-biodiversity-viewer/services/dashboard/internal/occurrence"
	"github.com/02loveslollipop/Shizuku-biodiversity-viewer/services/dashboard/internal/report"
	"github.com/02loveslollipop/Shizuku-biodiversity-viewer/services/dashboard/internal/spatial"
)

var (
	// ErrNoUpload means there is nothing to process yet.
	ErrNoUpload = errors.New("no occurrence file uploaded")
	// ErrUnknownSpecies means the selection is not among the uploaded species.
	ErrUnknownSpecies = errors.New("species not present in upload")
)

// Runner executes load -> clean -> filter -> aggregate -> report from scratch on every
// call. It holds no state between runs.
type Runner struct {
	areas      areas.Source
	datePolicy occurrence.DatePolicy
	topAreas   int
	logger     *zap.Logger
}

// Options configures a Runner.
type Options struct {
	DatePolicy occurrence.DatePolicy
	TopAreas   int
	Logger     *zap.Logger
}

// New creates a Runner reading protected areas from src.
func New(src areas.Source, opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	policy := opts.DatePolicy
	if policy == "" {
		policy = occurrence.DatePolicyAbort
	}
	return &Runner{
		areas:      src,
		datePolicy: policy,
		topAreas:   opts.TopAreas,
		logger:     logger,
	}
}

// Run processes one upload for one species selection. An empty selection picks the
// first species in sorted order.
func (r *Runner) Run(ctx context.Context, upload []byte, species string) (*report.Model, error) {
	if len(bytes.TrimSpace(upload)) == 0 {
		return nil, ErrNoUpload
	}

	raw, err := occurrence.Parse(bytes.NewReader(upload))
	if err != nil {
		return nil, fmt.Errorf("load occurrences: %w", err)
	}

	protected, err := r.areas.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	cleaned, err := occurrence.Clean(raw, r.datePolicy)
	if err != nil {
		return nil, fmt.Errorf("clean occurrences: %w", err)
	}

	speciesList := occurrence.SpeciesList(cleaned.Records)
	totals := report.Totals{
		Uploaded:         len(raw),
		DroppedNoSpecies: cleaned.DroppedNoSpecies,
		SkippedDates:     cleaned.SkippedDates,
	}
	r.logger.Debug("occurrences cleaned",
		zap.Int("rows", len(raw)),
		zap.Int("kept", len(cleaned.Records)),
		zap.Int("dropped_no_species", cleaned.DroppedNoSpecies),
		zap.Int("skipped_dates", cleaned.SkippedDates),
		zap.Int("species", len(speciesList)),
		zap.Int("areas", len(protected)))

	if len(speciesList) == 0 {
		return report.Build(report.Input{Totals: totals}, report.Options{TopAreas: r.topAreas})
	}

	selected := species
	if selected == "" {
		selected = speciesList[0]
	} else if !slices.Contains(speciesList, selected) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSpecies, selected)
	}

	filtered := occurrence.FilterSpecies(cleaned.Records, selected)
	counts := spatial.CountByArea(protected, filtered)
	r.logger.Debug("species aggregated",
		zap.String("species", selected),
		zap.Int("records", len(filtered)),
		zap.Int("inside_areas", spatial.Total(counts)))

	return report.Build(report.Input{
		Species:  speciesList,
		Selected: selected,
		Records:  filtered,
		Areas:    protected,
		Counts:   counts,
		Totals:   totals,
	}, report.Options{TopAreas: r.topAreas})
}
