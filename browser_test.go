package screencapture_test

import (
	"context"
	"errors"
	"image/color"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	screencapture "github.com/porticus-lab/go-screencapture"
	"github.com/porticus-lab/go-screencapture/artifact"
	"github.com/porticus-lab/go-screencapture/config"
	"github.com/porticus-lab/go-screencapture/dispatch"
	"github.com/porticus-lab/go-screencapture/document"
	cerrors "github.com/porticus-lab/go-screencapture/errors"
	"github.com/porticus-lab/go-screencapture/pipeline"
)

// chromeAvailable reports whether a Chrome/Chromium executable is in PATH.
func chromeAvailable() bool {
	for _, name := range []string{
		"chromium-browser", "chromium", "google-chrome",
		"google-chrome-stable", "chrome",
	} {
		if _, err := exec.LookPath(name); err == nil {
			return true
		}
	}
	return false
}

func skipIfNoChrome(t *testing.T) {
	t.Helper()
	if !chromeAvailable() {
		t.Skip("skipping: Chrome/Chromium not found in PATH")
	}
}

func newTestBrowser(t *testing.T) *screencapture.Browser {
	t.Helper()
	skipIfNoChrome(t)
	b, err := screencapture.NewBrowser(screencapture.WithNoSandbox(), screencapture.WithViewport(800, 600))
	if err != nil {
		t.Fatalf("NewBrowser: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

func openTestPage(t *testing.T, b *screencapture.Browser, html string) *screencapture.Page {
	t.Helper()
	p, err := b.OpenHTML(context.Background(), html)
	if err != nil {
		t.Fatalf("OpenHTML: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

// isPDF checks whether data starts with the PDF magic number.
func isPDF(data []byte) bool {
	return len(data) > 4 && string(data[:5]) == "%PDF-"
}

const fixture = `<!DOCTYPE html>
<html>
<head><style>
  body { margin: 0; }
  #box { width: 300px; height: 120px; background: rgb(255, 0, 0); }
  #clear { width: 50px; height: 50px; }
</style>
<link rel="stylesheet" href="theme.css?v=3">
</head>
<body>
  <div id="box"></div>
  <div id="clear"></div>
  <div id="chart"><svg xmlns="http://www.w3.org/2000/svg" width="40" height="40" viewBox="0 0 40 40"><rect width="40" height="40" fill="blue"/></svg></div>
  <div id="panel">kept<span data-html2canvas-ignore>dropped</span></div>
</body>
</html>`

func TestPage_Bounds(t *testing.T) {
	p := openTestPage(t, newTestBrowser(t), fixture)

	got, err := p.Bounds(context.Background(), "#box")
	if err != nil {
		t.Fatalf("Bounds: %v", err)
	}
	if got != (pipeline.Bounds{Width: 300, Height: 120}) {
		t.Errorf("Bounds(#box) = %+v, want 300x120", got)
	}

	viewport, err := p.Bounds(context.Background(), "body")
	if err != nil {
		t.Fatalf("Bounds(body): %v", err)
	}
	if viewport != (pipeline.Bounds{Width: 800, Height: 600}) {
		t.Errorf("Bounds(body) = %+v, want the 800x600 viewport", viewport)
	}

	if _, err := p.Bounds(context.Background(), "#missing"); !errors.Is(err, screencapture.ErrNoElement) {
		t.Errorf("Bounds(#missing) error = %v, want ErrNoElement", err)
	}
}

func red(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	return r>>8 > 200 && g>>8 < 60 && b>>8 < 60
}

func TestPage_Rasterize(t *testing.T) {
	p := openTestPage(t, newTestBrowser(t), fixture)
	ctx := context.Background()

	bm, err := p.Rasterize(ctx, "#box", pipeline.RasterOptions{})
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	if bm.Width() != 300 || bm.Height() != 120 {
		t.Errorf("size = %dx%d, want 300x120", bm.Width(), bm.Height())
	}
	if c := bm.Image().At(150, 60); !red(c) {
		t.Errorf("center pixel = %v, want red", c)
	}

	bm, err = p.Rasterize(ctx, "#box", pipeline.RasterOptions{Width: 100, Height: 40, LetterRendering: true})
	if err != nil {
		t.Fatalf("Rasterize with override: %v", err)
	}
	if bm.Width() != 100 || bm.Height() != 40 {
		t.Errorf("override size = %dx%d, want 100x40", bm.Width(), bm.Height())
	}
}

func TestPage_RasterizeBackground(t *testing.T) {
	p := openTestPage(t, newTestBrowser(t), fixture)

	bm, err := p.Rasterize(context.Background(), "#clear", pipeline.RasterOptions{Background: "#ff0000"})
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	if c := bm.Image().At(25, 25); !red(c) {
		t.Errorf("transparent area = %v, want the red background", c)
	}

	if _, err := p.Rasterize(context.Background(), "#clear", pipeline.RasterOptions{Background: "not-a-color"}); err == nil {
		t.Error("invalid background accepted")
	}
}

func TestPage_Normalize(t *testing.T) {
	p := openTestPage(t, newTestBrowser(t), fixture)
	ctx := context.Background()

	restore, err := p.Normalize(ctx, "#chart")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	html, _ := p.OuterHTML(ctx, "#chart")
	if !strings.Contains(html, "<img") || !strings.Contains(html, "display: none") {
		t.Errorf("normalized markup = %s", html)
	}

	restore()
	html, _ = p.OuterHTML(ctx, "#chart")
	if strings.Contains(html, "<img") || strings.Contains(html, "data-screencapture") {
		t.Errorf("restored markup = %s", html)
	}

	noop, err := p.Normalize(ctx, "#box")
	if err != nil || noop == nil {
		t.Errorf("Normalize without diagrams = %v", err)
	}
}

func TestPage_MarkupAndStylesheets(t *testing.T) {
	p := openTestPage(t, newTestBrowser(t), fixture)
	ctx := context.Background()

	html, err := p.OuterHTML(ctx, "#panel")
	if err != nil {
		t.Fatalf("OuterHTML: %v", err)
	}
	if !strings.HasPrefix(html, `<div id="panel">`) {
		t.Errorf("OuterHTML = %s", html)
	}

	links, css, err := p.Stylesheets(ctx)
	if err != nil {
		t.Fatalf("Stylesheets: %v", err)
	}
	if len(links) != 1 || !strings.Contains(links[0], "theme.css") {
		t.Errorf("links = %v", links)
	}
	if !strings.Contains(css, "#box") {
		t.Errorf("inline css = %q", css)
	}
}

func TestBrowser_PrintHTML(t *testing.T) {
	b := newTestBrowser(t)

	data, err := b.ConvertHTML(context.Background(), "<h1>Hello World</h1>")
	if err != nil {
		t.Fatalf("ConvertHTML: %v", err)
	}
	if !isPDF(data) {
		t.Fatal("output is not a valid PDF")
	}

	data, err = b.PrintHTML(context.Background(), "<p>landscape</p>", &screencapture.PrintConfig{
		Size:        screencapture.A4,
		Orientation: screencapture.Landscape,
	})
	if err != nil {
		t.Fatalf("PrintHTML: %v", err)
	}
	pages, err := document.Inspect(data)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if len(pages) != 1 || pages[0].Width < pages[0].Height {
		t.Errorf("pages = %+v, want one landscape page", pages)
	}
}

func TestBrowser_OpenErrors(t *testing.T) {
	b := newTestBrowser(t)
	ctx := context.Background()

	if _, err := b.OpenFile(ctx, "/nonexistent/file.html"); err == nil {
		t.Error("expected error for nonexistent file")
	}
	if _, err := b.OpenURL(ctx, "not a url"); err == nil {
		t.Error("expected error for invalid URL")
	}
}

func TestBrowser_CloseIdempotent(t *testing.T) {
	skipIfNoChrome(t)

	b, err := screencapture.NewBrowser(screencapture.WithNoSandbox())
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestBrowser_UsedAfterClose(t *testing.T) {
	skipIfNoChrome(t)

	b, err := screencapture.NewBrowser(screencapture.WithNoSandbox())
	if err != nil {
		t.Fatal(err)
	}
	p, err := b.OpenHTML(context.Background(), "<p>test</p>")
	if err != nil {
		t.Fatal(err)
	}
	b.Close()

	if _, err := b.OpenHTML(context.Background(), "<p>test</p>"); err != screencapture.ErrClosed {
		t.Fatalf("OpenHTML after Close = %v, want ErrClosed", err)
	}
	if _, err := p.Bounds(context.Background(), "p"); !errors.Is(err, screencapture.ErrClosed) {
		t.Fatalf("Bounds after Close = %v, want ErrClosed", err)
	}
	if _, err := b.ConvertHTML(context.Background(), "<p>test</p>"); !cerrors.Is(err, cerrors.ErrCodeConversion) {
		t.Fatalf("ConvertHTML after Close = %v, want CONVERSION_FAILED", err)
	}
}

func TestCapture_EndToEnd(t *testing.T) {
	b := newTestBrowser(t)

	dir := t.TempDir()
	page := filepath.Join(dir, "report.html")
	if err := os.WriteFile(page, []byte(fixture), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Request.URL = "file://" + page
	cfg.Request.Selector = "#box"
	cfg.Request.ImageType = "PDF"
	cfg.Request.FileName = "quarterly report"
	cfg.Settings.OutputDir = filepath.Join(dir, "out")

	var outcome pipeline.Outcome
	calls := 0
	res, err := screencapture.Capture(context.Background(), b, cfg, screencapture.Setup{}, func(o pipeline.Outcome) {
		calls++
		outcome = o
	})
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if calls != 1 || outcome.State != pipeline.Done {
		t.Errorf("completion calls = %d, state = %v", calls, outcome.State)
	}
	if res.Outcome.Mode != dispatch.DirectDownload || res.FileName != "quarterly report.pdf" {
		t.Errorf("result = %+v", res)
	}
	if res.Artifact.Kind() != artifact.Document {
		t.Errorf("artifact kind = %v, want document", res.Artifact.Kind())
	}

	pages, err := document.InspectFile(res.Outcome.Location)
	if err != nil {
		t.Fatalf("InspectFile: %v", err)
	}
	if len(pages) != 1 {
		t.Errorf("pages = %d, want 1 page", len(pages))
	}
}
