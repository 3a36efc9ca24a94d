package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/02loveslollipop/Shizuku-biodiversity-viewer/services/dashboard/db"
	"github.com/02loveslollipop/Shizuku-biodiversity-viewer/services/dashboard/internal/areas"
	"github.com/02loveslollipop/Shizuku-biodiversity-viewer/services/dashboard/internal/occurrence"
	"github.com/02loveslollipop/Shizuku-biodiversity-viewer/services/dashboard/internal/pipeline"
	"github.com/02loveslollipop/Shizuku-biodiversity-viewer/services/dashboard/internal/report"
	"github.com/02loveslollipop/Shizuku-biodiversity-viewer/services/dashboard/internal/session"
)

const (
	uploadField = "file"
	runTimeout  = 60 * time.Second
)

var errUploadTooLarge = errors.New("upload exceeds size limit")

// readUpload returns the bytes of the multipart file field, or nil when absent.
func (s *Server) readUpload(c *gin.Context) (string, []byte, error) {
	fh, err := c.FormFile(uploadField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return "", nil, nil
		}
		return "", nil, fmt.Errorf("%w: %v", occurrence.ErrMalformed, err)
	}

	f, err := fh.Open()
	if err != nil {
		return "", nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.cfg.UploadMaxBytes+1))
	if err != nil {
		return "", nil, err
	}
	if int64(len(data)) > s.cfg.UploadMaxBytes {
		return "", nil, errUploadTooLarge
	}
	return fh.Filename, data, nil
}

// runReport executes the pipeline and records the run when history is enabled.
func (s *Server) runReport(ctx context.Context, filename string, data []byte, species string) (*report.Model, error) {
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	model, err := s.runner.Run(ctx, data, species)
	if err != nil {
		return nil, err
	}
	if s.history != nil && !model.Empty {
		run := db.Run{
			ID:          uuid.New(),
			Species:     model.Selected,
			Filename:    filename,
			RecordCount: model.Totals.Filtered,
			InsideCount: model.Totals.InsideAreas,
			CreatedAt:   model.GeneratedAt,
		}
		if err := s.history.RecordRun(ctx, run, model.AreaCounts); err != nil {
			s.logger.Warn("record run failed", zap.Error(err), zap.String("species", run.Species))
		}
	}
	return model, nil
}

// statusFor maps pipeline errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrNoUpload),
		errors.Is(err, pipeline.ErrUnknownSpecies):
		return http.StatusBadRequest
	case errors.Is(err, errUploadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, occurrence.ErrEmptyUpload),
		errors.Is(err, occurrence.ErrMissingColumn),
		errors.Is(err, occurrence.ErrMalformed),
		errors.Is(err, occurrence.ErrInvalidDate):
		return http.StatusUnprocessableEntity
	case errors.Is(err, areas.ErrFetch):
		return http.StatusBadGateway
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
