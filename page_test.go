package screencapture

import (
	"math"
	"strings"
	"testing"

	"github.com/chromedp/cdproto/cdp"

	"github.com/porticus-lab/go-screencapture/artifact"
	"github.com/porticus-lab/go-screencapture/config"
	"github.com/porticus-lab/go-screencapture/dispatch"
	"github.com/porticus-lab/go-screencapture/remote"
)

func almostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestMMToInches(t *testing.T) {
	tests := []struct {
		mm   float64
		want float64
	}{
		{25.4, 1.0},
		{0, 0},
		{210, 8.2677},
		{297, 11.6929},
	}
	for _, tt := range tests {
		got := mmToInches(tt.mm)
		if !almostEqual(got, tt.want, 0.001) {
			t.Errorf("mmToInches(%v) = %v, want ~%v", tt.mm, got, tt.want)
		}
	}
}

func TestDefaultPrintConfig(t *testing.T) {
	d := DefaultPrintConfig()
	if d.Size != A4 {
		t.Errorf("default size = %v, want A4", d.Size)
	}
	if d.Orientation != Portrait {
		t.Errorf("default orientation = %v, want Portrait", d.Orientation)
	}
	if d.Scale != 1.0 {
		t.Errorf("default scale = %v, want 1.0", d.Scale)
	}
	if !d.PrintBackground {
		t.Error("default PrintBackground = false, want true")
	}
	if d.Margin != UniformMargin(10) {
		t.Errorf("default margin = %v, want uniform 10", d.Margin)
	}
}

func TestPrintConfigResolved(t *testing.T) {
	var nilConfig *PrintConfig
	if r := nilConfig.resolved(); r != DefaultPrintConfig() {
		t.Errorf("nil resolved = %+v, want defaults", r)
	}

	zero := (&PrintConfig{}).resolved()
	if zero.Size != A4 || zero.Scale != 1.0 || zero.Margin != UniformMargin(10) {
		t.Errorf("zero resolved = %+v", zero)
	}

	explicit := (&PrintConfig{
		Size:        Letter,
		Orientation: Landscape,
		Scale:       0.5,
		Margin:      Margin{Top: 20, Right: 30, Bottom: 20, Left: 30},
	}).resolved()
	if explicit.Size != Letter || explicit.Orientation != Landscape || explicit.Scale != 0.5 || explicit.Margin.Right != 30 {
		t.Errorf("explicit resolved = %+v", explicit)
	}
}

func TestPaperDimensions(t *testing.T) {
	w, h := (&PrintConfig{Size: A4}).paperDimensions()
	if !almostEqual(w, 8.267, 0.01) || !almostEqual(h, 11.693, 0.01) {
		t.Errorf("portrait = %v x %v, want ~8.267 x 11.693", w, h)
	}
	w, h = (&PrintConfig{Size: A4, Orientation: Landscape}).paperDimensions()
	if !almostEqual(w, 11.693, 0.01) || !almostEqual(h, 8.267, 0.01) {
		t.Errorf("landscape = %v x %v, want ~11.693 x 8.267", w, h)
	}
}

func TestMarginInches(t *testing.T) {
	pc := &PrintConfig{Margin: Margin{Top: 25.4, Right: 50.8, Bottom: 25.4, Left: 50.8}}
	top, right, bottom, left := pc.marginInches()
	if !almostEqual(top, 1, 0.001) || !almostEqual(right, 2, 0.001) ||
		!almostEqual(bottom, 1, 0.001) || !almostEqual(left, 2, 0.001) {
		t.Errorf("marginInches = %v %v %v %v, want 1 2 1 2", top, right, bottom, left)
	}
}

func TestParseRGBA(t *testing.T) {
	tests := []struct {
		in   string
		want cdp.RGBA
	}{
		{"rgb(255, 0, 0)", cdp.RGBA{R: 255, G: 0, B: 0, A: 1}},
		{"rgba(0, 128, 255, 0.5)", cdp.RGBA{R: 0, G: 128, B: 255, A: 0.5}},
		{"rgba(0, 0, 0, 0)", cdp.RGBA{A: 0}},
		{"rgb(10 20 30 / 0.25)", cdp.RGBA{R: 10, G: 20, B: 30, A: 0.25}},
	}
	for _, tt := range tests {
		got, err := parseRGBA(tt.in)
		if err != nil {
			t.Errorf("parseRGBA(%q): %v", tt.in, err)
			continue
		}
		if *got != tt.want {
			t.Errorf("parseRGBA(%q) = %+v, want %+v", tt.in, *got, tt.want)
		}
	}

	for _, bad := range []string{"", "red", "rgb(1, 2)", "rgb(300, 0, 0)", "rgba(0, 0, 0, 2)", "rgb(a, b, c)"} {
		if _, err := parseRGBA(bad); err == nil {
			t.Errorf("parseRGBA(%q) returned nil error", bad)
		}
	}
}

func TestJSString(t *testing.T) {
	got := jsString(`div[data-x="a"] > p`)
	if got != `"div[data-x=\"a\"] > p"` {
		t.Errorf("jsString = %s", got)
	}
}

func TestConvertDiagrams(t *testing.T) {
	good := `<svg xmlns="http://www.w3.org/2000/svg" width="20" height="10" viewBox="0 0 20 10"><rect width="20" height="10" fill="red"/></svg>`
	items, errs := convertDiagrams([]diagram{
		{Index: 0, Markup: good, Width: 40, Height: 20},
		{Index: 1, Markup: `<svg xmlns="http://www.w3.org/2000/svg"></svg>`},
	})
	if len(items) != 1 || items[0].Index != 0 {
		t.Fatalf("items = %+v, want one replacement for diagram 0", items)
	}
	if !strings.HasPrefix(items[0].Src, "data:image/png;base64,") {
		t.Errorf("Src = %.30s..., want a PNG data URI", items[0].Src)
	}
	if items[0].Width != 40 || items[0].Height != 20 {
		t.Errorf("size = %dx%d, want 40x20", items[0].Width, items[0].Height)
	}
	if len(errs) != 1 {
		t.Errorf("errs = %v, want one failure", errs)
	}
}

func TestNewRequest(t *testing.T) {
	cfg := config.Default()
	cfg.Request.Selector = "#chart"
	cfg.Request.Mode = "NEW_TAB"
	cfg.Request.ImageType = "JPEG"
	cfg.Request.Layout = "SINGLE_A4"
	cfg.Settings.Layout.JPEGQuality = 75
	cfg.Settings.PDFShift.BaseURL = "https://example.com/app/"

	req, err := NewRequest(cfg.Request, cfg.Settings)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if req.Selector != "#chart" || req.Mode != dispatch.NewTabDisplay || req.Type != artifact.JPEG {
		t.Errorf("request = %+v", req)
	}
	if req.LayoutHint != "SINGLE_A4" || req.JPEGQuality != 75 || req.Shell.BaseURL != "https://example.com/app/" {
		t.Errorf("request = %+v", req)
	}

	cfg.Request.Mode = "PDFSHIFT"
	req, err = NewRequest(cfg.Request, cfg.Settings)
	if err != nil || !req.RenderHTML || req.Mode != dispatch.DirectDownload {
		t.Errorf("PDFSHIFT request = %+v, %v", req, err)
	}

	cfg.Request.Mode = "CARRIER_PIGEON"
	if _, err := NewRequest(cfg.Request, cfg.Settings); err == nil {
		t.Error("unknown mode accepted")
	}
}

func TestSetupConverter(t *testing.T) {
	s := Setup{Settings: config.Default().Settings}
	if c := s.converter(); c != nil {
		t.Errorf("converter = %T, want nil without key or browser", c)
	}

	s.Browser = &Browser{}
	if _, ok := s.converter().(*Browser); !ok {
		t.Errorf("converter = %T, want the local browser", s.converter())
	}

	s.Settings.PDFShift.Key = "sk_test"
	if _, ok := s.converter().(*remote.PDFShift); !ok {
		t.Errorf("converter = %T, want PDFShift when a key is set", s.converter())
	}
}

func TestBrowserOptions(t *testing.T) {
	b := config.Default().Settings.Browser
	b.Path = "/opt/chrome"
	b.NoSandbox = true
	b.ViewportWidth = 1024

	cfg := defaultConfig()
	for _, o := range BrowserOptions(b) {
		o(&cfg)
	}
	if cfg.chromePath != "/opt/chrome" || !cfg.noSandbox || cfg.autoDownload {
		t.Errorf("config = %+v", cfg)
	}
	if cfg.viewportWidth != 1024 || cfg.viewportHeight != 800 {
		t.Errorf("viewport = %dx%d, want 1024x800", cfg.viewportWidth, cfg.viewportHeight)
	}
	if cfg.timeout != b.Timeout.Duration {
		t.Errorf("timeout = %v, want %v", cfg.timeout, b.Timeout.Duration)
	}
}
