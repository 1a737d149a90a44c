package render

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// PDFGenerator turns an HTML fragment into PDF bytes.
type PDFGenerator interface {
	Generate(ctx context.Context, html string) ([]byte, error)
}

// BrowserConfig controls how the headless browser is reached.
type BrowserConfig struct {
	// ControlURL connects to an already running Chrome DevTools endpoint.
	ControlURL string
	// Bin is the Chrome binary to launch when ControlURL is empty.
	Bin string
	// Timeout bounds a single render.
	Timeout time.Duration
}

// RodPDFGenerator prints HTML to PDF with a shared headless Chrome.
type RodPDFGenerator struct {
	cfg     BrowserConfig
	mu      sync.Mutex
	browser *rod.Browser
}

// NewRodPDFGenerator creates a generator. The browser is started lazily on
// the first render.
func NewRodPDFGenerator(cfg BrowserConfig) *RodPDFGenerator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &RodPDFGenerator{cfg: cfg}
}

// Generate renders html inside a printable document and returns the PDF.
func (g *RodPDFGenerator) Generate(ctx context.Context, html string) ([]byte, error) {
	browser, err := g.ensureBrowser()
	if err != nil {
		return nil, err
	}

	page, err := browser.Context(ctx).Timeout(g.cfg.Timeout).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	defer page.Close()

	doc, err := Document(html)
	if err != nil {
		return nil, err
	}
	if err := page.SetDocumentContent(doc); err != nil {
		return nil, fmt.Errorf("set document: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load: %w", err)
	}

	stream, err := page.PDF(&proto.PagePrintToPDF{PrintBackground: true})
	if err != nil {
		return nil, fmt.Errorf("print to pdf: %w", err)
	}
	return io.ReadAll(stream)
}

// Close shuts the browser down if it was started.
func (g *RodPDFGenerator) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.browser == nil {
		return nil
	}
	err := g.browser.Close()
	g.browser = nil
	return err
}

func (g *RodPDFGenerator) ensureBrowser() (*rod.Browser, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.browser != nil {
		if _, err := g.browser.Version(); err == nil {
			return g.browser, nil
		}
		_ = g.browser.Close()
		g.browser = nil
	}

	controlURL := g.cfg.ControlURL
	if controlURL == "" {
		l := launcher.New().Headless(true)
		if g.cfg.Bin != "" {
			l = l.Bin(g.cfg.Bin)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		controlURL = u
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}
	g.browser = browser
	return browser, nil
}

var documentTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Research report</title>
<style>
body { font-family: -apple-system, "Segoe UI", Helvetica, Arial, sans-serif; font-size: 12pt; line-height: 1.5; margin: 2cm; color: #111; }
h1, h2, h3 { line-height: 1.25; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: 4px 8px; }
pre, code { font-family: Menlo, Consolas, monospace; font-size: 10pt; }
a { color: #1a56db; }
</style>
</head>
<body>
{{.}}
</body>
</html>
`))

// Document wraps a rendered report fragment in a standalone HTML page.
func Document(fragment string) (string, error) {
	var b strings.Builder
	if err := documentTemplate.Execute(&b, template.HTML(fragment)); err != nil {
		return "", err
	}
	return b.String(), nil
}
