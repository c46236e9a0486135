package screencapture

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	cerrors "github.com/porticus-lab/go-screencapture/errors"
)

// Browser manages a headless Chrome instance that is shared by every page
// it opens. It is safe for concurrent use; each [Page] is its own tab.
//
// Call [Browser.Close] when the Browser is no longer needed to release
// browser resources.
type Browser struct {
	cfg           browserConfig
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// NewBrowser starts a headless browser with the given options. The caller
// must call [Browser.Close] when finished.
func NewBrowser(opts ...Option) (*Browser, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}

	if cfg.chromePath == "" && cfg.autoDownload && lookupBrowser() == "" {
		path, err := resolveBrowser()
		if err != nil {
			return nil, err
		}
		cfg.chromePath = path
	}

	allocOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("headless", cfg.headless),
		chromedp.WindowSize(cfg.viewportWidth, cfg.viewportHeight),
	)
	if cfg.chromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(cfg.chromePath))
	}
	if cfg.noSandbox {
		allocOpts = append(allocOpts, chromedp.Flag("no-sandbox", true))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Start the browser eagerly so errors surface at creation time.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("screencapture: starting browser: %w", err)
	}
	cfg.logger.Debug("browser started", "path", cfg.chromePath, "viewport", fmt.Sprintf("%dx%d", cfg.viewportWidth, cfg.viewportHeight))

	return &Browser{
		cfg:           cfg,
		allocCtx:      allocCtx,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

// Close releases all resources held by the Browser, including the
// browser process and every open page. Close is idempotent.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	b.browserCancel()
	b.allocCancel()
	return nil
}

// OpenURL opens rawURL in a new tab and waits for its body to be ready.
func (b *Browser) OpenURL(ctx context.Context, rawURL string) (*Page, error) {
	if err := b.checkClosed(); err != nil {
		return nil, err
	}
	if _, err := url.ParseRequestURI(rawURL); err != nil {
		return nil, fmt.Errorf("screencapture: invalid URL %q: %w", rawURL, err)
	}
	return b.open(ctx, rawURL, "")
}

// OpenFile opens a local HTML file in a new tab.
func (b *Browser) OpenFile(ctx context.Context, path string) (*Page, error) {
	if err := b.checkClosed(); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("screencapture: resolving path: %w", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, fmt.Errorf("screencapture: %w", err)
	}
	return b.open(ctx, "file://"+abs, "")
}

// OpenHTML opens markup in a new tab. The markup is served from a temporary
// file that is removed when the page is closed.
func (b *Browser) OpenHTML(ctx context.Context, html string) (*Page, error) {
	if err := b.checkClosed(); err != nil {
		return nil, err
	}
	name, err := writeTemp(html)
	if err != nil {
		return nil, err
	}
	p, err := b.open(ctx, "file://"+name, name)
	if err != nil {
		os.Remove(name)
		return nil, err
	}
	return p, nil
}

func (b *Browser) open(ctx context.Context, target, tempFile string) (*Page, error) {
	tabCtx, tabCancel := chromedp.NewContext(b.browserCtx)
	p := &Page{
		browser:  b,
		ctx:      tabCtx,
		cancel:   tabCancel,
		url:      target,
		tempFile: tempFile,
		logger:   b.cfg.logger.With("url", target),
	}

	err := p.run(ctx,
		chromedp.EmulateViewport(int64(b.cfg.viewportWidth), int64(b.cfg.viewportHeight)),
		chromedp.Navigate(target),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		tabCancel()
		return nil, fmt.Errorf("screencapture: loading %s: %w", target, err)
	}
	p.logger.Debug("page loaded")
	return p, nil
}

// ConvertHTML prints a standalone HTML document to PDF with the default
// [PrintConfig]. It lets a local browser stand in for a remote conversion
// service.
func (b *Browser) ConvertHTML(ctx context.Context, html string) ([]byte, error) {
	return b.PrintHTML(ctx, html, nil)
}

// PrintHTML prints a standalone HTML document to PDF. If pc is nil,
// [DefaultPrintConfig] values are used. Failures are CONVERSION_FAILED
// errors.
func (b *Browser) PrintHTML(ctx context.Context, html string, pc *PrintConfig) ([]byte, error) {
	p, err := b.OpenHTML(ctx, html)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeConversion, err, "opening document")
	}
	defer p.Close()

	buf, err := p.Print(ctx, pc)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeConversion, err, "printing document")
	}
	return buf, nil
}

// Print renders the whole page to PDF. If pc is nil, [DefaultPrintConfig]
// values are used.
func (p *Page) Print(ctx context.Context, pc *PrintConfig) ([]byte, error) {
	resolved := pc.resolved()
	width, height := resolved.paperDimensions()
	marginTop, marginRight, marginBottom, marginLeft := resolved.marginInches()

	var buf []byte
	if err := p.run(ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			buf, _, err = page.PrintToPDF().
				WithPaperWidth(width).
				WithPaperHeight(height).
				WithMarginTop(marginTop).
				WithMarginRight(marginRight).
				WithMarginBottom(marginBottom).
				WithMarginLeft(marginLeft).
				WithScale(resolved.Scale).
				WithPrintBackground(resolved.PrintBackground).
				WithLandscape(resolved.Orientation == Landscape).
				WithPreferCSSPageSize(resolved.PreferCSSPageSize).
				Do(ctx)
			return err
		}),
	); err != nil {
		return nil, fmt.Errorf("screencapture: printing failed: %w", err)
	}
	return buf, nil
}

func (b *Browser) checkClosed() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	return nil
}

func writeTemp(html string) (string, error) {
	f, err := os.CreateTemp("", "screencapture-*.html")
	if err != nil {
		return "", fmt.Errorf("screencapture: creating temp file: %w", err)
	}
	name := f.Name()
	if _, err := f.WriteString(html); err != nil {
		f.Close()
		os.Remove(name)
		return "", fmt.Errorf("screencapture: writing temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("screencapture: closing temp file: %w", err)
	}
	abs, err := filepath.Abs(name)
	if err != nil {
		os.Remove(name)
		return "", fmt.Errorf("screencapture: resolving path: %w", err)
	}
	return abs, nil
}
