// Package config loads capture requests and service settings.
//
// A configuration file may be YAML (.yaml, .yml), TOML (.toml) or JSON with
// comments (.json, .jsonc). Values from SCREENCAPTURE_* environment
// variables override the file, and command-line flags override both.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/porticus-lab/go-screencapture/artifact"
	"github.com/porticus-lab/go-screencapture/chunk"
	"github.com/porticus-lab/go-screencapture/dispatch"
	"github.com/porticus-lab/go-screencapture/layout"
)

// Request configures a single capture.
type Request struct {
	// URL of the page to capture.
	URL string `yaml:"url" toml:"url" json:"url"`
	// Selector of the element to capture; "body" is the viewport.
	Selector string `yaml:"selector" toml:"selector" json:"selector"`
	// Mode is DIRECT_DOWNLOAD, NEW_TAB, DB_DOWNLOAD or PDFSHIFT.
	Mode            string `yaml:"mode" toml:"mode" json:"mode"`
	Background      string `yaml:"background" toml:"background" json:"background"`
	Width           int    `yaml:"width" toml:"width" json:"width"`
	Height          int    `yaml:"height" toml:"height" json:"height"`
	LetterRendering bool   `yaml:"letter_rendering" toml:"letter_rendering" json:"letter_rendering"`
	AllowTaint      bool   `yaml:"allow_taint" toml:"allow_taint" json:"allow_taint"`
	Logging         bool   `yaml:"logging" toml:"logging" json:"logging"`
	// Layout is CONT_PAGE, MULTI_PAGE_A4 or SINGLE_A4.
	Layout   string `yaml:"layout" toml:"layout" json:"layout"`
	FileName string `yaml:"file_name" toml:"file_name" json:"file_name"`
	// ImageType is PNG, JPEG or PDF.
	ImageType string `yaml:"image_type" toml:"image_type" json:"image_type"`
}

// RenderHTMLMode selects remote HTML conversion instead of rasterization.
const RenderHTMLMode = "PDFSHIFT"

// RenderHTML reports whether the request uses remote HTML conversion.
func (r Request) RenderHTML() bool {
	return strings.EqualFold(strings.TrimSpace(r.Mode), RenderHTMLMode)
}

// DeliveryMode parses Mode. The HTML conversion mode always downloads.
func (r Request) DeliveryMode() (dispatch.Mode, error) {
	if r.RenderHTML() {
		return dispatch.DirectDownload, nil
	}
	return dispatch.ParseMode(r.Mode)
}

// Type parses ImageType.
func (r Request) Type() artifact.Type {
	return artifact.ParseType(r.ImageType)
}

// Browser configures the headless browser.
type Browser struct {
	Path         string   `yaml:"path" toml:"path" json:"path"`
	Timeout      Duration `yaml:"timeout" toml:"timeout" json:"timeout"`
	NoSandbox    bool     `yaml:"no_sandbox" toml:"no_sandbox" json:"no_sandbox"`
	AutoDownload bool     `yaml:"auto_download" toml:"auto_download" json:"auto_download"`
	// ViewportWidth and ViewportHeight size new tabs in CSS pixels.
	ViewportWidth  int `yaml:"viewport_width" toml:"viewport_width" json:"viewport_width"`
	ViewportHeight int `yaml:"viewport_height" toml:"viewport_height" json:"viewport_height"`
}

// Layout configures PDF pages, in millimetres.
type Layout struct {
	PageWidth   float64 `yaml:"page_width" toml:"page_width" json:"page_width"`
	PageHeight  float64 `yaml:"page_height" toml:"page_height" json:"page_height"`
	Margin      float64 `yaml:"margin" toml:"margin" json:"margin"`
	MaxHeight   float64 `yaml:"max_height" toml:"max_height" json:"max_height"`
	JPEGQuality int     `yaml:"jpeg_quality" toml:"jpeg_quality" json:"jpeg_quality"`
}

// Engine returns the layout engine configuration.
func (l Layout) Engine() layout.Config {
	cfg := layout.DefaultConfig()
	cfg.PageWidth = l.PageWidth
	cfg.PageHeight = l.PageHeight
	cfg.Margin = l.Margin
	cfg.MaxContinuousHeight = l.MaxHeight
	return cfg
}

// Upload configures chunked remote delivery.
type Upload struct {
	URL       string `yaml:"url" toml:"url" json:"url"`
	Token     string `yaml:"token" toml:"token" json:"token"`
	ChunkSize int    `yaml:"chunk_size" toml:"chunk_size" json:"chunk_size"`
}

// PDFShift configures the remote HTML conversion service.
type PDFShift struct {
	Key      string `yaml:"key" toml:"key" json:"key"`
	Endpoint string `yaml:"endpoint" toml:"endpoint" json:"endpoint"`
	Sandbox  bool   `yaml:"sandbox" toml:"sandbox" json:"sandbox"`
	// Margin is a CSS length applied by the converter.
	Margin string `yaml:"margin" toml:"margin" json:"margin"`
	// BaseURL resolves relative URLs in converted markup.
	BaseURL string `yaml:"base_url" toml:"base_url" json:"base_url"`
	// Stylesheets are linked before the page's own.
	Stylesheets []string `yaml:"stylesheets" toml:"stylesheets" json:"stylesheets"`
}

// Sink configures the upload receiver.
type Sink struct {
	Addr     string `yaml:"addr" toml:"addr" json:"addr"`
	Dir      string `yaml:"dir" toml:"dir" json:"dir"`
	RedisURL string `yaml:"redis_url" toml:"redis_url" json:"redis_url"`
	Token    string `yaml:"token" toml:"token" json:"token"`
	// MaxBodyBytes limits the compressed upload size.
	MaxBodyBytes int64 `yaml:"max_body_bytes" toml:"max_body_bytes" json:"max_body_bytes"`
}

// Settings configures the service around captures.
type Settings struct {
	OutputDir string   `yaml:"output_dir" toml:"output_dir" json:"output_dir"`
	LogLevel  string   `yaml:"log_level" toml:"log_level" json:"log_level"`
	Browser   Browser  `yaml:"browser" toml:"browser" json:"browser"`
	Layout    Layout   `yaml:"layout" toml:"layout" json:"layout"`
	Upload    Upload   `yaml:"upload" toml:"upload" json:"upload"`
	PDFShift  PDFShift `yaml:"pdfshift" toml:"pdfshift" json:"pdfshift"`
	Sink      Sink     `yaml:"sink" toml:"sink" json:"sink"`
}

// Config is the full configuration.
type Config struct {
	Request  Request  `yaml:"request" toml:"request" json:"request"`
	Settings Settings `yaml:"settings" toml:"settings" json:"settings"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Request: Request{
			Selector:  "body",
			Mode:      dispatch.DirectDownload.String(),
			ImageType: artifact.PNG.String(),
			FileName:  artifact.DefaultBaseName,
		},
		Settings: Settings{
			OutputDir: ".",
			LogLevel:  "info",
			Browser: Browser{
				Timeout:        Duration{60 * time.Second},
				ViewportWidth:  1280,
				ViewportHeight: 800,
			},
			Layout: Layout{
				PageWidth:   layout.A4Width,
				PageHeight:  layout.A4Height,
				Margin:      layout.DefaultMargin,
				MaxHeight:   layout.MaxContinuousLength,
				JPEGQuality: 90,
			},
			Upload: Upload{ChunkSize: chunk.DefaultSize},
			PDFShift: PDFShift{
				Sandbox: true,
				Margin:  "10mm",
			},
			Sink: Sink{
				Addr:         ":8095",
				Dir:          "captures",
				MaxBodyBytes: 64 << 20,
			},
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path loads only defaults and environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := Decode(&cfg, data, filepath.Ext(path)); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Decode unmarshals data into cfg according to the file extension.
func Decode(cfg *Config, data []byte, ext string) error {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	case ".toml":
		return toml.Unmarshal(data, cfg)
	case ".json", ".jsonc":
		return json.Unmarshal(jsonc.ToJSON(data), cfg)
	default:
		return fmt.Errorf("unsupported config format %q", ext)
	}
}

// Validate checks values that would otherwise fail deep inside a capture.
func (c Config) Validate() error {
	if _, err := c.Request.DeliveryMode(); err != nil {
		return err
	}
	if c.Request.Width < 0 || c.Request.Height < 0 {
		return fmt.Errorf("request size must not be negative, got %dx%d", c.Request.Width, c.Request.Height)
	}
	if err := c.Settings.Layout.Engine().Validate(); err != nil {
		return err
	}
	if q := c.Settings.Layout.JPEGQuality; q < 1 || q > 100 {
		return fmt.Errorf("jpeg_quality must be within 1..100, got %d", q)
	}
	if c.Settings.Upload.ChunkSize <= 0 {
		return fmt.Errorf("upload chunk_size must be positive, got %d", c.Settings.Upload.ChunkSize)
	}
	if c.Settings.Browser.Timeout.Duration < 0 {
		return fmt.Errorf("browser timeout must not be negative")
	}
	return nil
}

// Duration is a time.Duration written as a string such as "30s".
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// ParseBool parses a boolean-ish string. Only "true" and "false" are
// recognized, ignoring case and surrounding space; anything else reports
// ok=false so the caller can keep its default.
func ParseBool(s string) (value, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true":
		return true, true
	case "false":
		return false, true
	default:
		return false, false
	}
}
