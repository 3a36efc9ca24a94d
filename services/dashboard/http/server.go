package http

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/02loveslollipop/Shizuku-biodiversity-viewer/services/dashboard/config"
	"github.com/02loveslollipop/Shizuku-biodiversity-viewer/services/dashboard/db"
	"github.com/02loveslollipop/Shizuku-biodiversity-viewer/services/dashboard/internal/areas"
	"github.com/02loveslollipop/Shizuku-biodiversity-viewer/services/dashboard/internal/models"
	"github.com/02loveslollipop/Shizuku-biodiversity-viewer/services/dashboard/internal/pipeline"
	"github.com/02loveslollipop/Shizuku-biodiversity-viewer/services/dashboard/internal/session"
)

// RunHistory persists rendered reports. It is optional.
type RunHistory interface {
	RecordRun(ctx context.Context, run db.Run, counts []models.AreaCount) error
	ListRuns(ctx context.Context, limit int) ([]db.Run, error)
}

// Deps are the collaborators a Server needs.
type Deps struct {
	Runner   *pipeline.Runner
	Areas    areas.Source
	Sessions *session.Store
	History  RunHistory
	Logger   *zap.Logger
}

// Server bundles router and dependencies for the dashboard.
type Server struct {
	cfg      config.Config
	runner   *pipeline.Runner
	areas    areas.Source
	sessions *session.Store
	history  RunHistory
	logger   *zap.Logger
	engine   *gin.Engine
}

// New constructs a server with routes and middleware.
func New(cfg config.Config, deps Deps) *Server {
	gin.SetMode(gin.ReleaseMode)
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(logger))
	engine.MaxMultipartMemory = cfg.UploadMaxBytes
	engine.SetHTMLTemplate(template.Must(template.ParseFS(templateFS, "templates/*.html")))

	server := &Server{
		cfg:      cfg,
		runner:   deps.Runner,
		areas:    deps.Areas,
		sessions: deps.Sessions,
		history:  deps.History,
		logger:   logger,
		engine:   engine,
	}
	server.registerRoutes()
	server.registerV1Routes()
	return server
}

// Engine exposes the underlying gin engine (for tests).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run starts the HTTP server and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.ListenAddr(),
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	s.engine.GET("/", s.handleIndex)
	s.engine.POST("/upload", s.handleUpload)
	s.engine.GET("/report/:token", s.handleReport)
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}

func bearerAuthMiddleware(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		if token != expected {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func apiVersionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-API-Version", "v1")
		c.Next()
	}
}
