package http

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/02loveslollipop/Shizuku-biodiversity-viewer/services/dashboard/internal/report"
)

//go:embed templates/*.html
var templateFS embed.FS

// page is the view model of index.html.
type page struct {
	Token    string
	Filename string
	Error    string
	Report   *report.Model
	AreasJS  template.JS
}

// handleIndex shows the upload prompt only.
func (s *Server) handleIndex(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", page{})
}

// handleUpload stores the file and redirects to its report.
// POST /upload
func (s *Server) handleUpload(c *gin.Context) {
	filename, data, err := s.readUpload(c)
	if err != nil {
		c.HTML(statusFor(err), "index.html", page{Error: err.Error()})
		return
	}
	if len(data) == 0 {
		c.HTML(http.StatusBadRequest, "index.html", page{Error: "Seleccione un archivo separado por tabuladores."})
		return
	}

	token := s.sessions.Put(filename, data)
	s.logger.Info("upload stored", zap.String("token", token), zap.String("filename", filename), zap.Int("bytes", len(data)))
	c.Redirect(http.StatusSeeOther, "/report/"+token)
}

// handleReport re-runs the whole pipeline on the stored upload for the chosen species.
// GET /report/:token?species=
func (s *Server) handleReport(c *gin.Context) {
	token := c.Param("token")
	up, err := s.sessions.Get(token)
	if err != nil {
		c.HTML(statusFor(err), "index.html", page{Error: "La carga expiró o no existe. Seleccione el archivo de nuevo."})
		return
	}

	view := page{Token: token, Filename: up.Filename}
	model, err := s.runReport(c.Request.Context(), up.Filename, up.Data, c.Query("species"))
	if err != nil {
		s.logger.Warn("report failed", zap.String("token", token), zap.Error(err))
		view.Error = err.Error()
		c.HTML(statusFor(err), "index.html", view)
		return
	}

	view.Report = model
	view.AreasJS = template.JS(model.Map.Areas)
	c.HTML(http.StatusOK, "index.html", view)
}
