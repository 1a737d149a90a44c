// Package render turns stored Markdown reports into HTML and PDF.
package render

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	"research-reports/backend/pkg/models"
)

const (
	markdownFence = "```markdown"
	bareFence     = "```"
)

// StripFences removes every Markdown code fence marker the workflow may wrap
// around a report. The language-tagged fence goes first so no "markdown"
// residue is left behind.
func StripFences(md string) string {
	md = strings.ReplaceAll(md, markdownFence, "")
	return strings.ReplaceAll(md, bareFence, "")
}

// Renderer converts Markdown to HTML.
type Renderer struct {
	md goldmark.Markdown
}

// NewRenderer returns a Renderer with GitHub flavoured Markdown enabled.
func NewRenderer() *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
	}
}

// ToHTML converts md to an HTML fragment without touching fences.
func (r *Renderer) ToHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// DetailHTML renders a stored result for the detail page. A nil result
// renders the running placeholder.
func (r *Renderer) DetailHTML(result *string) (string, error) {
	content := models.RunningReportPlaceholder
	if result != nil {
		content = *result
	}
	return r.ToHTML(StripFences(content))
}

// ReportContent renders a report body for export.
func (r *Renderer) ReportContent(md string) (string, error) {
	return r.ToHTML(StripFences(md))
}
