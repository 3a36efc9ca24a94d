package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// registerV1Routes sets up the JSON API.
// Groups: /api/v1/report, /api/v1/areas, /api/v1/runs
func (s *Server) registerV1Routes() {
	v1 := s.engine.Group("/api/v1")
	v1.Use(corsMiddleware())
	v1.Use(apiVersionMiddleware())
	v1.OPTIONS("/*path", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	if s.cfg.BearerToken != "" {
		v1.Use(bearerAuthMiddleware(s.cfg.BearerToken))
	}

	v1.POST("/report", s.handleV1Report)
	v1.GET("/areas", s.handleV1ListAreas)
	v1.GET("/runs", s.handleV1ListRuns)
}
