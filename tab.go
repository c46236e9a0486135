package screencapture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/porticus-lab/go-screencapture/bitmap"
	"github.com/porticus-lab/go-screencapture/pipeline"
	"github.com/porticus-lab/go-screencapture/svgraster"
)

var (
	_ pipeline.Source     = (*Page)(nil)
	_ pipeline.Normalizer = (*Page)(nil)
)

// Page is a browser tab holding a loaded document. It measures, rasterizes
// and serializes elements for a capture pipeline.
//
// Calls on one Page are serialized by Chrome; use separate pages for
// concurrent captures.
type Page struct {
	browser  *Browser
	ctx      context.Context
	cancel   context.CancelFunc
	url      string
	tempFile string
	logger   *log.Logger

	mu     sync.Mutex
	closed bool
}

// URL returns the address the page was loaded from.
func (p *Page) URL() string { return p.url }

// Close closes the tab. Close is idempotent.
func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.cancel()
	if p.tempFile != "" {
		os.Remove(p.tempFile)
	}
	return nil
}

// run executes actions on the tab, bounded by the browser timeout and by
// ctx.
func (p *Page) run(ctx context.Context, actions ...chromedp.Action) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if err := p.browser.checkClosed(); err != nil {
		return err
	}

	// The first Run allocates the tab and ties it to the context it gets,
	// so it must see the long-lived tab context.
	if chromedp.FromContext(p.ctx).Target == nil {
		if err := chromedp.Run(p.ctx); err != nil {
			return err
		}
	}

	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if t := p.browser.cfg.timeout; t > 0 {
		runCtx, cancel = context.WithTimeout(p.ctx, t)
	} else {
		runCtx, cancel = context.WithCancel(p.ctx)
	}
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// eval evaluates a JavaScript expression and decodes its result into res.
func (p *Page) eval(ctx context.Context, expr string, res any) error {
	return p.run(ctx, chromedp.Evaluate(expr, res))
}

// evalAwait is eval for expressions that return a promise.
func (p *Page) evalAwait(ctx context.Context, expr string, res any) error {
	return p.run(ctx, chromedp.Evaluate(expr, res, func(ep *runtime.EvaluateParams) *runtime.EvaluateParams {
		return ep.WithAwaitPromise(true)
	}))
}

type rect struct {
	Found  bool    `json:"found"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

const rectJS = `(() => {
  const sel = %s;
  if (sel === "body") {
    const d = document.documentElement;
    return {found: true, x: window.scrollX, y: window.scrollY, width: d.clientWidth, height: d.clientHeight};
  }
  const el = document.querySelector(sel);
  if (!el) return {found: false};
  const r = el.getBoundingClientRect();
  return {found: true, x: r.left + window.scrollX, y: r.top + window.scrollY, width: r.width, height: r.height};
})()`

func (p *Page) rect(ctx context.Context, selector string) (rect, error) {
	var r rect
	if err := p.eval(ctx, fmt.Sprintf(rectJS, jsString(selector)), &r); err != nil {
		return r, fmt.Errorf("screencapture: measuring %q: %w", selector, err)
	}
	if !r.Found {
		return r, fmt.Errorf("%w: %q", ErrNoElement, selector)
	}
	return r, nil
}

// Bounds returns the rendered size of the element matching selector in CSS
// pixels. The selector "body" measures the viewport instead of the whole
// document.
func (p *Page) Bounds(ctx context.Context, selector string) (pipeline.Bounds, error) {
	r, err := p.rect(ctx, selector)
	if err != nil {
		return pipeline.Bounds{}, err
	}
	return pipeline.Bounds{
		Width:  int(math.Ceil(r.Width)),
		Height: int(math.Ceil(r.Height)),
	}, nil
}

const letterStyleID = "screencapture-letter-rendering"

const letterCSS = `* { text-rendering: geometricPrecision !important; font-kerning: none !important; font-variant-ligatures: none !important; }`

const colorJS = `(() => {
  const probe = document.createElement("div");
  probe.style.color = %s;
  if (!probe.style.color) return "";
  document.body.appendChild(probe);
  const c = getComputedStyle(probe).color;
  probe.remove();
  return c;
})()`

// Rasterize screenshots the element matching selector. Width and Height in
// opts override the element's size; the clip starts at the element's
// top-left corner either way.
func (p *Page) Rasterize(ctx context.Context, selector string, opts pipeline.RasterOptions) (*bitmap.Bitmap, error) {
	r, err := p.rect(ctx, selector)
	if err != nil {
		return nil, err
	}
	if opts.Width > 0 {
		r.Width = float64(opts.Width)
	}
	if opts.Height > 0 {
		r.Height = float64(opts.Height)
	}
	if r.Width < 1 || r.Height < 1 {
		return nil, fmt.Errorf("screencapture: %q has no visible area", selector)
	}
	if opts.AllowTaint {
		// Screenshots are taken by the browser itself, so cross-origin
		// content never taints them.
		p.logger.Debug("allow-taint has no effect on browser screenshots")
	}

	var actions []chromedp.Action
	if opts.Background != "" {
		bg, err := p.resolveColor(ctx, opts.Background)
		if err != nil {
			return nil, err
		}
		actions = append(actions, emulation.SetDefaultBackgroundColorOverride().WithColor(bg))
		defer p.run(context.WithoutCancel(ctx), emulation.SetDefaultBackgroundColorOverride())
	}
	if opts.LetterRendering {
		var ok bool
		inject := fmt.Sprintf(`(() => { const s = document.createElement("style"); s.id = %s; s.textContent = %s; document.head.appendChild(s); return true; })()`,
			jsString(letterStyleID), jsString(letterCSS))
		if err := p.eval(ctx, inject, &ok); err != nil {
			return nil, fmt.Errorf("screencapture: enabling letter rendering: %w", err)
		}
		defer func() {
			var ok bool
			p.eval(context.WithoutCancel(ctx), fmt.Sprintf(`(() => { const s = document.getElementById(%s); if (s) s.remove(); return true; })()`, jsString(letterStyleID)), &ok)
		}()
	}

	var buf []byte
	actions = append(actions, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, err = page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormatPng).
			WithClip(&page.Viewport{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height, Scale: 1}).
			WithCaptureBeyondViewport(true).
			Do(ctx)
		return err
	}))
	if err := p.run(ctx, actions...); err != nil {
		return nil, fmt.Errorf("screencapture: screenshot of %q: %w", selector, err)
	}

	bm, err := bitmap.DecodeBytes(buf)
	if err != nil {
		return nil, fmt.Errorf("screencapture: decoding screenshot: %w", err)
	}
	p.logger.Debug("rasterized", "selector", selector, "width", bm.Width(), "height", bm.Height())
	return bm, nil
}

func (p *Page) resolveColor(ctx context.Context, css string) (*cdp.RGBA, error) {
	var computed string
	if err := p.eval(ctx, fmt.Sprintf(colorJS, jsString(css)), &computed); err != nil {
		return nil, fmt.Errorf("screencapture: resolving background %q: %w", css, err)
	}
	if computed == "" {
		return nil, fmt.Errorf("screencapture: invalid background color %q", css)
	}
	return parseRGBA(computed)
}

// parseRGBA parses a computed CSS color such as "rgb(255, 0, 0)" or
// "rgba(0, 0, 0, 0.5)".
func parseRGBA(s string) (*cdp.RGBA, error) {
	open, end := strings.IndexByte(s, '('), strings.LastIndexByte(s, ')')
	if open < 0 || end < open {
		return nil, fmt.Errorf("screencapture: unrecognized color %q", s)
	}
	fields := strings.Fields(strings.NewReplacer(",", " ", "/", " ").Replace(s[open+1 : end]))
	if len(fields) != 3 && len(fields) != 4 {
		return nil, fmt.Errorf("screencapture: unrecognized color %q", s)
	}
	var ch [3]int64
	for i := range ch {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil || v < 0 || v > 255 {
			return nil, fmt.Errorf("screencapture: unrecognized color %q", s)
		}
		ch[i] = int64(math.Round(v))
	}
	c := &cdp.RGBA{R: ch[0], G: ch[1], B: ch[2], A: 1}
	if len(fields) == 4 {
		a, err := strconv.ParseFloat(fields[3], 64)
		if err != nil || a < 0 || a > 1 {
			return nil, fmt.Errorf("screencapture: unrecognized color %q", s)
		}
		c.A = a
	}
	return c, nil
}

const outerHTMLJS = `(() => {
  const el = document.querySelector(%s);
  return el ? {found: true, html: el.outerHTML} : {found: false};
})()`

// OuterHTML returns the serialized markup of the element matching selector.
func (p *Page) OuterHTML(ctx context.Context, selector string) (string, error) {
	var res struct {
		Found bool   `json:"found"`
		HTML  string `json:"html"`
	}
	if err := p.eval(ctx, fmt.Sprintf(outerHTMLJS, jsString(selector)), &res); err != nil {
		return "", fmt.Errorf("screencapture: reading markup of %q: %w", selector, err)
	}
	if !res.Found {
		return "", fmt.Errorf("%w: %q", ErrNoElement, selector)
	}
	return res.HTML, nil
}

const stylesheetsJS = `(() => {
  const links = Array.from(document.querySelectorAll('link[rel~="stylesheet"][href]')).map((l) => l.href);
  const css = [];
  for (const sheet of Array.from(document.styleSheets)) {
    if (sheet.href) continue;
    try {
      for (const rule of Array.from(sheet.cssRules)) css.push(rule.cssText);
    } catch (e) {}
  }
  return {links: links, css: css.join("\n")};
})()`

// Stylesheets returns the URLs of linked stylesheets and the rules of the
// document's inline style sheets. Sheets the page cannot read are skipped.
func (p *Page) Stylesheets(ctx context.Context) ([]string, string, error) {
	var res struct {
		Links []string `json:"links"`
		CSS   string   `json:"css"`
	}
	if err := p.eval(ctx, stylesheetsJS, &res); err != nil {
		return nil, "", fmt.Errorf("screencapture: collecting stylesheets: %w", err)
	}
	return res.Links, res.CSS, nil
}

const (
	svgMarkAttr = "data-screencapture-svg"
	imgMarkAttr = "data-screencapture-img"
)

// diagram is an inline SVG found under a capture target.
type diagram struct {
	Index  int    `json:"index"`
	Markup string `json:"markup"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// replacement is the raster stand-in for a diagram.
type replacement struct {
	Index  int    `json:"index"`
	Src    string `json:"src"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

const collectSVGJS = `(() => {
  const root = document.querySelector(%s);
  if (!root) return {found: false, svgs: []};
  const all = root.tagName.toLowerCase() === "svg" ? [root] : Array.from(root.querySelectorAll("svg"));
  const out = [];
  for (const svg of all) {
    if (svg.parentElement && svg.parentElement.closest("svg")) continue;
    const r = svg.getBoundingClientRect();
    if (r.width === 0 || r.height === 0) continue;
    const i = out.length;
    svg.setAttribute(%s, String(i));
    out.push({index: i, markup: new XMLSerializer().serializeToString(svg), width: Math.round(r.width), height: Math.round(r.height)});
  }
  return {found: true, svgs: out};
})()`

const replaceSVGJS = `((items) => {
  const loads = [];
  for (const it of items) {
    const svg = document.querySelector("[" + %[1]s + '="' + it.index + '"]');
    if (!svg) continue;
    const img = document.createElement("img");
    img.src = it.src;
    img.width = it.width;
    img.height = it.height;
    img.setAttribute(%[2]s, "");
    svg.insertAdjacentElement("afterend", img);
    svg.setAttribute("data-screencapture-display", svg.style.display);
    svg.style.display = "none";
    loads.push(img.decode().catch(() => {}));
  }
  return Promise.all(loads).then(() => loads.length);
})(%[3]s)`

const restoreSVGJS = `(() => {
  document.querySelectorAll("[" + %[1]s + "]").forEach((img) => img.remove());
  document.querySelectorAll("[" + %[2]s + "]").forEach((svg) => {
    if (svg.hasAttribute("data-screencapture-display")) {
      svg.style.display = svg.getAttribute("data-screencapture-display");
      svg.removeAttribute("data-screencapture-display");
    }
    svg.removeAttribute(%[2]s);
  });
  return true;
})()`

// Normalize replaces every inline SVG under selector with a PNG image of the
// same size and hides the original. The returned restore removes the images
// and shows the SVGs again.
//
// Diagrams that fail to convert are left in place and reported in the
// returned error; restore is still valid in that case.
func (p *Page) Normalize(ctx context.Context, selector string) (func(), error) {
	var found struct {
		Found bool      `json:"found"`
		SVGs  []diagram `json:"svgs"`
	}
	if err := p.eval(ctx, fmt.Sprintf(collectSVGJS, jsString(selector), jsString(svgMarkAttr)), &found); err != nil {
		return nil, fmt.Errorf("screencapture: collecting diagrams: %w", err)
	}
	if !found.Found {
		return nil, fmt.Errorf("%w: %q", ErrNoElement, selector)
	}
	if len(found.SVGs) == 0 {
		return func() {}, nil
	}

	restore := func() {
		var ok bool
		js := fmt.Sprintf(restoreSVGJS, jsString(imgMarkAttr), jsString(svgMarkAttr))
		if err := p.eval(context.WithoutCancel(ctx), js, &ok); err != nil {
			p.logger.Warn("restoring diagrams", "err", err)
		}
	}

	items, errs := convertDiagrams(found.SVGs)
	if len(items) > 0 {
		payload, err := json.Marshal(items)
		if err != nil {
			return restore, err
		}
		var n int
		if err := p.evalAwait(ctx, fmt.Sprintf(replaceSVGJS, jsString(svgMarkAttr), jsString(imgMarkAttr), payload), &n); err != nil {
			return restore, fmt.Errorf("screencapture: inserting diagram images: %w", err)
		}
		p.logger.Debug("diagrams converted", "selector", selector, "count", n, "failed", len(errs))
	}
	return restore, errors.Join(errs...)
}

// convertDiagrams rasterizes each diagram at its rendered size.
func convertDiagrams(svgs []diagram) ([]replacement, []error) {
	var (
		items []replacement
		errs  []error
	)
	for _, d := range svgs {
		src, err := svgraster.PNGDataURI([]byte(d.Markup), svgraster.Options{Width: d.Width, Height: d.Height})
		if err != nil {
			errs = append(errs, fmt.Errorf("diagram %d: %w", d.Index, err))
			continue
		}
		items = append(items, replacement{Index: d.Index, Src: src, Width: d.Width, Height: d.Height})
	}
	return items, errs
}

// jsString quotes s as a JavaScript string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
