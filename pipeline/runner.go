package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/porticus-lab/go-screencapture/artifact"
	"github.com/porticus-lab/go-screencapture/bitmap"
	"github.com/porticus-lab/go-screencapture/dispatch"
	cerrors "github.com/porticus-lab/go-screencapture/errors"
	"github.com/porticus-lab/go-screencapture/remote"
)

// DefaultSelector captures the visible viewport.
const DefaultSelector = "body"

// Runner executes capture requests. It holds only its collaborators, so a
// single Runner may serve concurrent runs as long as they are safe for
// concurrent use.
type Runner struct {
	deps Deps
}

// New returns a Runner. Nil optional collaborators are replaced by no-ops.
func New(deps Deps) *Runner {
	if deps.Logger == nil {
		deps.Logger = log.New(io.Discard)
	}
	if deps.Busy == nil {
		deps.Busy = BusyFunc(func(string) Release { return func() {} })
	}
	if deps.Observer == nil {
		deps.Observer = ObserverFunc(func(context.Context, State, State) {})
	}
	return &Runner{deps: deps}
}

// run is the mutable state of one Run call.
type run struct {
	req    Request
	res    *Result
	logger *log.Logger
	// notified is set once the dispatcher has announced the outcome.
	notified bool
}

// Run executes req and returns the result. done, when non-nil, is called
// exactly once before Run returns, with the final state and error.
func (r *Runner) Run(ctx context.Context, req Request, done Completion) (res *Result, err error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Selector == "" {
		req.Selector = DefaultSelector
	}
	if req.RenderHTML {
		req.Type = artifact.PDF
		req.Mode = dispatch.DirectDownload
	}

	start := time.Now()
	rn := &run{
		req: req,
		res: &Result{
			ID:       req.ID,
			State:    Idle,
			FileName: artifact.FileName(req.FileName, req.Type, req.RenderHTML),
		},
		logger: r.deps.Logger.With("capture", req.ID),
	}
	res = rn.res

	var once sync.Once
	defer func() {
		if p := recover(); p != nil {
			err = cerrors.New(cerrors.ErrCodeInternal, "capture panicked: %v", p)
			r.transition(ctx, rn, Failed)
		}
		res.Duration = time.Since(start)
		if err != nil {
			r.failed(ctx, rn, err)
		}
		once.Do(func() {
			if done != nil {
				done(Outcome{ID: res.ID, State: res.State, Err: err, Result: res})
			}
		})
	}()

	if err := r.check(req); err != nil {
		r.transition(ctx, rn, Failed)
		return res, err
	}

	release := r.deps.Busy.Acquire(fmt.Sprintf("Capturing %s", req.Selector))
	defer release()

	if err := r.execute(ctx, rn); err != nil {
		r.transition(ctx, rn, Failed)
		return res, err
	}
	return res, nil
}

func (r *Runner) check(req Request) error {
	switch {
	case r.deps.Source == nil:
		return cerrors.New(cerrors.ErrCodeInvalidInput, "no capture source")
	case r.deps.Dispatcher == nil:
		return cerrors.New(cerrors.ErrCodeInvalidInput, "no dispatcher")
	case req.RenderHTML && r.deps.Converter == nil:
		return cerrors.New(cerrors.ErrCodeInvalidInput, "html rendering requested without a converter")
	case !req.RenderHTML && req.Type.Kind() == artifact.Document && (r.deps.Layout == nil || r.deps.Builder == nil):
		return cerrors.New(cerrors.ErrCodeInvalidInput, "document output requires a layout engine and builder")
	case req.Width < 0 || req.Height < 0:
		return cerrors.New(cerrors.ErrCodeInvalidInput, "negative size override %dx%d", req.Width, req.Height)
	}
	return nil
}

func (r *Runner) execute(ctx context.Context, rn *run) error {
	req, res := rn.req, rn.res

	r.transition(ctx, rn, Preparing)
	bounds, err := r.deps.Source.Bounds(ctx, req.Selector)
	if err != nil {
		return coded(err, cerrors.ErrCodeRasterization, "measuring %s", req.Selector)
	}
	if req.Width > 0 {
		bounds.Width = req.Width
	}
	if req.Height > 0 {
		bounds.Height = req.Height
	}
	res.Bounds = bounds

	if req.Logging {
		rn.logger.Info("capture request",
			"selector", req.Selector,
			"mode", req.Mode,
			"background", req.Background,
			"width", bounds.Width,
			"height", bounds.Height,
			"letter_rendering", req.LetterRendering,
			"allow_taint", req.AllowTaint,
			"type", req.Type,
			"content_type", req.Type.ContentType(),
			"file", res.FileName,
			"layout", req.LayoutHint,
			"render_html", req.RenderHTML)
	}

	if req.RenderHTML {
		return r.renderHTML(ctx, rn)
	}

	restore := r.normalize(ctx, rn)
	if err := ctx.Err(); err != nil {
		restore()
		return err
	}

	r.transition(ctx, rn, Rasterizing)
	bm, err := func() (*bitmap.Bitmap, error) {
		defer restore()
		return r.deps.Source.Rasterize(ctx, req.Selector, RasterOptions{
			Background:      req.Background,
			Width:           bounds.Width,
			Height:          bounds.Height,
			LetterRendering: req.LetterRendering,
			AllowTaint:      req.AllowTaint,
		})
	}()
	if err != nil {
		return coded(err, cerrors.ErrCodeRasterization, "rasterizing %s", req.Selector)
	}
	rn.logger.Debug("rasterized", "width", bm.Width(), "height", bm.Height())

	r.transition(ctx, rn, Encoding)
	a, err := r.encode(rn, bm)
	if err != nil {
		return err
	}
	res.Artifact = a

	return r.deliver(ctx, rn, req.Mode)
}

// normalize runs the Normalizer. Its failure is soft: it is recorded as a
// warning and whatever restore the Normalizer returned is still used. The
// returned restore runs at most once.
func (r *Runner) normalize(ctx context.Context, rn *run) func() {
	noop := func() {}
	if r.deps.Normalizer == nil {
		return noop
	}
	restore, err := r.deps.Normalizer.Normalize(ctx, rn.req.Selector)
	if err != nil {
		soft := cerrors.Soft(coded(err, cerrors.ErrCodeNormalization, "normalizing %s", rn.req.Selector))
		rn.res.Warnings = append(rn.res.Warnings, soft)
		rn.logger.Warn("continuing without diagram conversion", "err", err)
	}
	if restore == nil {
		return noop
	}
	var once sync.Once
	return func() { once.Do(restore) }
}

func (r *Runner) encode(rn *run, bm *bitmap.Bitmap) (*artifact.Artifact, error) {
	req := rn.req
	quality := req.JPEGQuality
	if quality <= 0 {
		quality = bitmap.DefaultJPEGQuality
	}

	if req.Type.Kind() == artifact.Image {
		return artifact.FromBitmap(bm, req.Type.Format(), quality)
	}

	g, err := r.deps.Layout.Compute(bm.Width(), bm.Height(), req.LayoutHint)
	if err != nil {
		return nil, err
	}
	rn.res.Geometry = &g
	if g.FellBack {
		rn.logger.Info("continuous page too long, using multiple pages", "pages", len(g.Pages))
	}

	doc, err := r.deps.Builder.Build(bm, g)
	if err != nil {
		return nil, coded(err, cerrors.ErrCodeEncoding, "building document")
	}
	rn.logger.Debug("built document", "strategy", g.Strategy, "pages", doc.PageCount(), "bytes", doc.Len())
	return artifact.FromDocument(doc), nil
}

// renderHTML converts the element's markup remotely and downloads the PDF.
func (r *Runner) renderHTML(ctx context.Context, rn *run) error {
	req, res := rn.req, rn.res

	fragment, err := r.deps.Source.OuterHTML(ctx, req.Selector)
	if err != nil {
		return coded(err, cerrors.ErrCodeConversion, "reading markup of %s", req.Selector)
	}

	shell := req.Shell
	links, css, err := r.deps.Source.Stylesheets(ctx)
	if err != nil {
		res.Warnings = append(res.Warnings, cerrors.Soft(err))
		rn.logger.Warn("continuing without page stylesheets", "err", err)
	} else {
		for _, l := range links {
			shell.Stylesheets = append(shell.Stylesheets, remote.CleanStylesheetURL(l))
		}
		if css != "" {
			shell.InlineCSS = joinCSS(shell.InlineCSS, css)
		}
	}

	doc, err := remote.BuildShell(fragment, shell)
	if err != nil {
		return cerrors.Wrap(cerrors.ErrCodeConversion, err, "building html shell")
	}

	r.transition(ctx, rn, Encoding)
	pdf, err := r.deps.Converter.ConvertHTML(ctx, doc)
	if err != nil {
		return coded(err, cerrors.ErrCodeConversion, "converting html")
	}
	a, err := artifact.FromPDF(pdf)
	if err != nil {
		return err
	}
	res.Artifact = a

	return r.deliver(ctx, rn, dispatch.DirectDownload)
}

func (r *Runner) deliver(ctx context.Context, rn *run, mode dispatch.Mode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.transition(ctx, rn, Dispatching)
	rn.notified = true
	out, err := r.deps.Dispatcher.Dispatch(ctx, rn.res.Artifact, mode, dispatch.Metadata{
		FileName:    rn.res.FileName,
		ContentType: rn.res.Artifact.ContentType(),
	})
	rn.res.Outcome = out
	if err != nil {
		return err
	}
	r.transition(ctx, rn, Done)
	rn.logger.Info("capture complete", "mode", mode, "location", out.Location, "bytes", rn.res.Artifact.Len())
	return nil
}

func (r *Runner) transition(ctx context.Context, rn *run, to State) {
	from := rn.res.State
	if from == to {
		return
	}
	if !validTransition(from, to) {
		rn.logger.Error("invalid state transition", "from", from, "to", to)
		return
	}
	rn.res.State = to
	rn.logger.Debug("state", "from", from, "to", to)
	r.deps.Observer.OnTransition(ctx, from, to)
}

// failed logs a terminal error and announces it unless the dispatcher
// already did.
func (r *Runner) failed(ctx context.Context, rn *run, err error) {
	rn.logger.Error("capture failed", "state", rn.res.State, "err", err)
	if rn.notified || r.deps.Notifier == nil {
		return
	}
	r.deps.Notifier.Notify(ctx, dispatch.Event{
		Kind:     dispatch.EventError,
		Mode:     rn.req.Mode,
		FileName: rn.res.FileName,
		Err:      err,
	})
}

// coded keeps err's code when it has one and wraps it with code otherwise.
// Context errors pass through unchanged.
func coded(err error, code cerrors.Code, format string, args ...any) error {
	if cerrors.GetCode(err) != "" || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return cerrors.Wrap(code, err, format, args...)
}

func joinCSS(a, b string) string {
	if a == "" {
		return b
	}
	return a + "\n" + b
}
