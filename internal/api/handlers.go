// Package api contains the HTTP handlers for the research reports service
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"research-reports/backend/internal/logging"
	"research-reports/backend/internal/render"
	"research-reports/backend/internal/services"
	"research-reports/backend/pkg/models"
)

// ResearchService is the research behaviour the handlers depend on.
type ResearchService interface {
	List(ctx context.Context) ([]*models.Research, error)
	Get(ctx context.Context, id string) (*models.Research, error)
	Create(ctx context.Context, in models.NewResearch) (*models.Research, error)
	ReRun(ctx context.Context, id string) (*models.Research, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

// ReportRenderer turns a stored Markdown report into HTML for export.
type ReportRenderer interface {
	ReportContent(md string) (string, error)
}

// Server holds the dependencies for the HTTP handlers.
type Server struct {
	Research  ResearchService
	Questions services.QuestionGenerator
	Detail    *render.Renderer
	Reports   ReportRenderer
	PDF       render.PDFGenerator
	Logger    *logging.Logger
	Version   string
}

// RegisterRoutes mounts the page and export routes on g.
func RegisterRoutes(g *echo.Group, s *Server) {
	g.GET("/", s.ListResearches)
	g.GET("/create", s.NewResearchForm)
	g.POST("/create/questions", s.GenerateQuestions)
	g.POST("/create", s.CreateResearch)
	g.GET("/details/:id", s.ResearchDetails)
	g.POST("/re-run", s.ReRunResearch)
	g.POST("/delete", s.DeleteResearch)
	g.GET("/details/:id/download/pdf", s.DownloadPDF)
	g.GET("/details/:id/download/markdown", s.DownloadMarkdown)
}

// HandleHealth reports service and database health
// (GET /healthz)
func (s *Server) HandleHealth(c echo.Context) error {
	status := models.HealthStatus{
		Status:    "ok",
		Service:   "research-reports",
		Version:   s.Version,
		Timestamp: time.Now(),
		Checks:    map[string]string{"database": "ok"},
	}
	code := http.StatusOK
	if err := s.Research.Ping(c.Request().Context()); err != nil {
		status.Status = "degraded"
		status.Checks["database"] = err.Error()
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, status)
}

// researchError maps service errors onto HTTP errors.
func researchError(err error) error {
	if errors.Is(err, services.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "research not found")
	}
	return err
}

// NewErrorHandler logs server errors before handing them to echo's default
// error handler.
func NewErrorHandler(e *echo.Echo, logger *logging.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
		}
		if code >= http.StatusInternalServerError {
			logger.Error("request failed",
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"error", err,
			)
		}
		e.DefaultHTTPErrorHandler(err, c)
	}
}
