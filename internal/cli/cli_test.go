package cli

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/porticus-lab/go-screencapture/bitmap"
	"github.com/porticus-lab/go-screencapture/config"
	"github.com/porticus-lab/go-screencapture/document"
	"github.com/porticus-lab/go-screencapture/layout"
)

func TestSetVersion(t *testing.T) {
	defer SetVersion(version, commit, date)

	SetVersion("1.0.0", "abc123", "2026-01-01")
	if version != "1.0.0" {
		t.Errorf("version = %q, want %q", version, "1.0.0")
	}
	if commit != "abc123" {
		t.Errorf("commit = %q, want %q", commit, "abc123")
	}
	if date != "2026-01-01" {
		t.Errorf("date = %q, want %q", date, "2026-01-01")
	}
}

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"capture", "serve", "inspect"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("Find(%q) = %v, %v", name, cmd, err)
		}
	}
	for _, name := range []string{"verbose", "config"} {
		if root.PersistentFlags().Lookup(name) == nil {
			t.Errorf("missing persistent flag --%s", name)
		}
	}
}

func TestLogLevel(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		want    log.Level
	}{
		{"info", false, log.InfoLevel},
		{"warn", false, log.WarnLevel},
		{"error", true, log.DebugLevel},
		{"", false, log.InfoLevel},
		{"loud", false, log.InfoLevel},
	}
	for _, tt := range tests {
		if got := logLevel(tt.name, tt.verbose); got != tt.want {
			t.Errorf("logLevel(%q, %v) = %v, want %v", tt.name, tt.verbose, got, tt.want)
		}
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, log.WarnLevel)

	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info logged at warn level: %q", buf.String())
	}
	logger.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("output = %q, want warning", buf.String())
	}
}

func TestContextDefaults(t *testing.T) {
	ctx := context.Background()
	if loggerFromContext(ctx) != log.Default() {
		t.Error("loggerFromContext without logger should return log.Default()")
	}
	if got := configFromContext(ctx); got.Request.Selector != config.Default().Request.Selector {
		t.Errorf("configFromContext selector = %q", got.Request.Selector)
	}

	l := log.New(&bytes.Buffer{})
	cfg := config.Default()
	cfg.Request.URL = "https://example.com"
	ctx = withConfig(withLogger(ctx, l), cfg)
	if loggerFromContext(ctx) != l {
		t.Error("loggerFromContext did not return the attached logger")
	}
	if got := configFromContext(ctx).Request.URL; got != cfg.Request.URL {
		t.Errorf("URL = %q, want %q", got, cfg.Request.URL)
	}
}

func TestSpinnerStop(t *testing.T) {
	var buf bytes.Buffer
	s := newSpinner(context.Background(), &buf, "Capturing...")
	s.Start()
	time.Sleep(100 * time.Millisecond)
	s.Stop()
	s.Stop()

	if s.Cancelled() {
		t.Error("stopped spinner reported cancelled")
	}
	if !strings.Contains(buf.String(), "Capturing...") {
		t.Errorf("spinner output = %q, want message", buf.String())
	}
}

func TestSpinnerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var buf bytes.Buffer
	s := newSpinner(ctx, &buf, "Capturing...")
	s.Start()
	cancel()
	time.Sleep(50 * time.Millisecond)

	if !s.Cancelled() {
		t.Error("spinner should be cancelled after context cancellation")
	}
	s.Stop()
}

func TestSpinnerBusy(t *testing.T) {
	var buf bytes.Buffer
	release := spinnerBusy(context.Background(), &buf).Acquire("Rendering")
	time.Sleep(100 * time.Millisecond)
	release()
	if !strings.Contains(buf.String(), "Rendering") {
		t.Errorf("busy output = %q", buf.String())
	}
}

func TestApplyCaptureFlags(t *testing.T) {
	cmd := newCaptureCmd()
	if err := cmd.ParseFlags([]string{
		"-s", "#chart", "-t", "PDF", "--layout", "MULTI_PAGE_A4",
		"--width", "640", "--letter-rendering", "--timeout", "5s",
		"--upload-url", "http://localhost:8095/captures",
	}); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}

	cfg := config.Default()
	cfg.Request.Height = 480
	if err := applyCaptureFlags(cmd.Flags(), &cfg); err != nil {
		t.Fatalf("applyCaptureFlags: %v", err)
	}

	r := cfg.Request
	if r.Selector != "#chart" || r.ImageType != "PDF" || r.Layout != "MULTI_PAGE_A4" {
		t.Errorf("request = %+v", r)
	}
	if r.Width != 640 {
		t.Errorf("Width = %d, want 640", r.Width)
	}
	if r.Height != 480 {
		t.Errorf("Height = %d, unset flag must keep 480", r.Height)
	}
	if !r.LetterRendering || r.AllowTaint {
		t.Errorf("LetterRendering = %v, AllowTaint = %v", r.LetterRendering, r.AllowTaint)
	}
	if got := cfg.Settings.Browser.Timeout.Duration; got != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", got)
	}
	if cfg.Settings.Upload.URL != "http://localhost:8095/captures" {
		t.Errorf("Upload.URL = %q", cfg.Settings.Upload.URL)
	}
	if cfg.Request.Mode != config.Default().Request.Mode {
		t.Errorf("Mode = %q, want default", cfg.Request.Mode)
	}
}

func TestApplyCaptureFlags_Empty(t *testing.T) {
	fs := pflag.NewFlagSet("empty", pflag.ContinueOnError)
	cfg := config.Default()
	if err := applyCaptureFlags(fs, &cfg); err != nil {
		t.Fatalf("applyCaptureFlags: %v", err)
	}
	if !reflect.DeepEqual(cfg, config.Default()) {
		t.Errorf("config changed without flags: %+v", cfg)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&out)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCaptureArgErrors(t *testing.T) {
	if _, err := execute(t, "capture"); err == nil || !strings.Contains(err.Error(), "no URL") {
		t.Errorf("capture without URL: err = %v", err)
	}
	if _, err := execute(t, "capture", "https://example.com", "--mode", "FAX"); err == nil {
		t.Error("capture with unknown mode should fail")
	}
}

func TestInspectCommand(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 200, 1200))
	for y := 0; y < 1200; y++ {
		for x := 0; x < 200; x++ {
			img.Set(x, y, color.NRGBA{0, 0, uint8(y), 255})
		}
	}
	bm, err := bitmap.FromImage(img)
	if err != nil {
		t.Fatalf("FromImage: %v", err)
	}
	eng, err := layout.NewEngine(layout.DefaultConfig())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	g, err := eng.MultiPage(200, 1200)
	if err != nil {
		t.Fatalf("MultiPage: %v", err)
	}
	doc, err := document.NewBuilder().Build(bm, g)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	path := filepath.Join(t.TempDir(), "slices.pdf")
	if err := os.WriteFile(path, doc.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	if doc.PageCount() < 2 {
		t.Fatalf("PageCount() = %d, want at least 2", doc.PageCount())
	}

	out, err := execute(t, "inspect", path, "-p", "2")
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if !strings.Contains(out, "page 2") || strings.Contains(out, "page 1 ") {
		t.Errorf("output does not list only page 2:\n%s", out)
	}
	if !strings.Contains(out, "210.0 × 297.0 mm") {
		t.Errorf("output missing A4 size:\n%s", out)
	}

	if _, err := execute(t, "inspect", path, "-p", "9"); err == nil {
		t.Error("out of range page should fail")
	}
	if _, err := execute(t, "inspect", filepath.Join(t.TempDir(), "missing.pdf")); err == nil {
		t.Error("missing file should fail")
	}
}

func TestParsePageRange(t *testing.T) {
	tests := []struct {
		rng    string
		total   int
		want    []int
		wantErr bool
	}{
		{"", 3, []int{0, 1, 2}, false},
		{"2", 3, []int{1}, false},
		{"1-3", 5, []int{0, 1, 2}, false},
		{"1,3,1", 3, []int{0, 2}, false},
		{"2-3, 1", 3, []int{1, 2, 0}, false},
		{"0", 3, nil, true},
		{"3-2", 3, nil, true},
		{"1-9", 3, nil, true},
		{"x", 3, nil, true},
	}
	for _, tt := range tests {
		got, err := parsePageRange(tt.rng, tt.total)
		if (err != nil) != tt.wantErr {
			t.Errorf("parsePageRange(%q) error = %v, wantErr %v", tt.rng, err, tt.wantErr)
			continue
		}
		if tt.wantErr {
			continue
		}
		if len(got) != len(tt.want) {
			t.Errorf("parsePageRange(%q) = %v, want %v", tt.rng, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("parsePageRange(%q) = %v, want %v", tt.rng, got, tt.want)
				break
			}
		}
	}
}

func TestDescribeHelpers(t *testing.T) {
	if got := extOf("report.final.pdf"); got != ".pdf" {
		t.Errorf("extOf = %q", got)
	}
	if got := extOf("noext"); got != "" {
		t.Errorf("extOf = %q", got)
	}
	for n, want := range map[int]string{12: "12 B", 4096: "4 KB", 3 << 20: "3.0 MB"} {
		if got := humanBytes(n); got != want {
			t.Errorf("humanBytes(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestOpenStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "captures")
	store, err := openStore(context.Background(), config.Sink{Dir: dir})
	if err != nil {
		t.Fatalf("openStore: %v", err)
	}
	defer store.Close()
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("store dir not created: %v", err)
	}

	if _, err := openStore(context.Background(), config.Sink{RedisURL: "not a url"}); err == nil {
		t.Error("bad redis url should fail")
	}
}
