package screencapture

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/porticus-lab/go-screencapture/config"
	"github.com/porticus-lab/go-screencapture/dispatch"
	"github.com/porticus-lab/go-screencapture/document"
	"github.com/porticus-lab/go-screencapture/layout"
	"github.com/porticus-lab/go-screencapture/pipeline"
	"github.com/porticus-lab/go-screencapture/remote"
)

// BrowserOptions translates browser settings into [Option] values.
func BrowserOptions(s config.Browser) []Option {
	opts := []Option{
		WithTimeout(s.Timeout.Duration),
		WithViewport(s.ViewportWidth, s.ViewportHeight),
	}
	if s.Path != "" {
		opts = append(opts, WithChromePath(s.Path))
	}
	if s.NoSandbox {
		opts = append(opts, WithNoSandbox())
	}
	if s.AutoDownload {
		opts = append(opts, WithAutoDownload())
	}
	return opts
}

// Setup holds what a capture needs besides the page itself.
type Setup struct {
	Settings config.Settings
	// Browser prints HTML locally when no conversion service key is set.
	Browser  *Browser
	Busy     pipeline.Busy
	Observer pipeline.Observer
	// Notifier receives saved and error events in addition to the log.
	Notifier dispatch.Notifier
	Logger   *log.Logger
}

// Runner builds a pipeline that captures from p.
func (s Setup) Runner(p *Page) (*pipeline.Runner, error) {
	logger := s.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	notifier := dispatch.Multi(dispatch.LogNotifier{Logger: logger}, s.Notifier)

	engine, err := layout.NewEngine(s.Settings.Layout.Engine())
	if err != nil {
		return nil, err
	}

	opts := dispatch.Options{
		Saver:     dispatch.FileSaver{Dir: s.Settings.OutputDir},
		Viewer:    dispatch.SystemViewer{},
		Notifier:  notifier,
		ChunkSize: s.Settings.Upload.ChunkSize,
		Logger:    logger,
	}
	if u := s.Settings.Upload; u.URL != "" {
		opts.Uploader = dispatch.NewHTTPUploader(u.URL, u.Token)
	}

	deps := pipeline.Deps{
		Layout:     engine,
		Builder:    document.NewBuilder(document.WithJPEGQuality(s.Settings.Layout.JPEGQuality)),
		Dispatcher: dispatch.New(opts),
		Busy:       s.Busy,
		Observer:   s.Observer,
		Notifier:   notifier,
		Logger:     logger,
	}
	if p != nil {
		deps.Source = p
		deps.Normalizer = p
	}
	if conv := s.converter(); conv != nil {
		deps.Converter = conv
	}
	return pipeline.New(deps), nil
}

func (s Setup) converter() remote.Converter {
	ps := s.Settings.PDFShift
	if ps.Key != "" {
		opts := []remote.PDFShiftOption{remote.WithSandbox(ps.Sandbox)}
		if ps.Endpoint != "" {
			opts = append(opts, remote.WithEndpoint(ps.Endpoint))
		}
		if ps.Margin != "" {
			opts = append(opts, remote.WithMargin(ps.Margin))
		}
		return remote.NewPDFShift(ps.Key, opts...)
	}
	if s.Browser != nil {
		return s.Browser
	}
	return nil
}

// NewRequest resolves a configured request into a pipeline request.
func NewRequest(r config.Request, s config.Settings) (pipeline.Request, error) {
	mode, err := r.DeliveryMode()
	if err != nil {
		return pipeline.Request{}, err
	}
	return pipeline.Request{
		Selector:        r.Selector,
		Mode:            mode,
		Type:            r.Type(),
		Background:      r.Background,
		Width:           r.Width,
		Height:          r.Height,
		LetterRendering: r.LetterRendering,
		AllowTaint:      r.AllowTaint,
		LayoutHint:      r.Layout,
		JPEGQuality:     s.Layout.JPEGQuality,
		FileName:        r.FileName,
		RenderHTML:      r.RenderHTML(),
		Shell: remote.Shell{
			Title:       r.FileName,
			BaseURL:     s.PDFShift.BaseURL,
			Stylesheets: s.PDFShift.Stylesheets,
		},
		Logging: r.Logging,
	}, nil
}

// Capture opens cfg.Request.URL in b, runs one capture and closes the page.
// done is handed to the run; it is not called when the page fails to open.
func Capture(ctx context.Context, b *Browser, cfg config.Config, setup Setup, done pipeline.Completion) (*pipeline.Result, error) {
	req, err := NewRequest(cfg.Request, cfg.Settings)
	if err != nil {
		return nil, err
	}
	if cfg.Request.URL == "" {
		return nil, fmt.Errorf("screencapture: no URL to capture")
	}

	p, err := b.OpenURL(ctx, cfg.Request.URL)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	setup.Settings = cfg.Settings
	if setup.Browser == nil {
		setup.Browser = b
	}
	runner, err := setup.Runner(p)
	if err != nil {
		return nil, err
	}
	return runner.Run(ctx, req, done)
}
