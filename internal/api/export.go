package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

const (
	pdfContentType      = "application/pdf"
	markdownContentType = "text/markdown; charset=utf-8"
)

// DownloadPDF renders the report to PDF
// (GET /details/:id/download/pdf)
func (s *Server) DownloadPDF(c echo.Context) error {
	ctx := c.Request().Context()

	research, err := s.Research.Get(ctx, c.Param("id"))
	if err != nil {
		return researchError(err)
	}

	html, err := s.Reports.ReportContent(research.ReportMarkdown())
	if err != nil {
		return err
	}
	pdf, err := s.PDF.Generate(ctx, html)
	if err != nil {
		return err
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="report.pdf"`)
	return c.Blob(http.StatusOK, pdfContentType, pdf)
}

// DownloadMarkdown returns the stored report verbatim
// (GET /details/:id/download/markdown)
func (s *Server) DownloadMarkdown(c echo.Context) error {
	research, err := s.Research.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return researchError(err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="report.md"`)
	return c.Blob(http.StatusOK, markdownContentType, []byte(research.ReportMarkdown()))
}
