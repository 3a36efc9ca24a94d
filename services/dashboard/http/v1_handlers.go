package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// handleV1Report runs the pipeline on a multipart upload.
// POST /api/v1/report (file=<tsv>, species=<name>)
func (s *Server) handleV1Report(c *gin.Context) {
	filename, data, err := s.readUpload(c)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	model, err := s.runReport(c.Request.Context(), filename, data, c.PostForm("species"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": model,
		"meta": gin.H{
			"filename":     filename,
			"generated_at": model.GeneratedAt.Format(time.RFC3339),
		},
	})
}

// handleV1ListAreas returns the protected areas currently served by the remote source.
// GET /api/v1/areas
func (s *Server) handleV1ListAreas(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), runTimeout)
	defer cancel()

	protected, err := s.areas.Fetch(ctx)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	data := make([]gin.H, 0, len(protected))
	for _, a := range protected {
		data = append(data, gin.H{"id": a.ID, "name": a.Name})
	}
	c.JSON(http.StatusOK, gin.H{
		"data": data,
		"meta": gin.H{"count": len(data)},
	})
}

// handleV1ListRuns returns recent report runs.
// GET /api/v1/runs?limit=20
func (s *Server) handleV1ListRuns(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run history disabled"})
		return
	}

	limit := 20
	if l := c.Query("limit"); l != "" {
		val, err := strconv.Atoi(l)
		if err != nil || val <= 0 || val > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = val
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	runs, err := s.history.ListRuns(ctx, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": runs,
		"meta": gin.H{"count": len(runs)},
	})
}
