package layout

import (
	"math"

	cerrors "github.com/porticus-lab/go-screencapture/errors"
)

// Decision is the outcome of strategy selection.
type Decision struct {
	Strategy Strategy
	// FellBack reports that ContinuousPage was requested but rejected.
	FellBack bool
	// ContinuousHeight is the page length ContinuousPage would need.
	ContinuousHeight float64
}

// Engine computes page geometry. It holds only read-only configuration and
// is safe for concurrent use.
type Engine struct {
	cfg Config
}

// NewEngine returns an engine for cfg.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// Decide picks the strategy for a bitmap of the given size:
//
//   - ContinuousPage when requested and its page fits the maximum length;
//   - MultiPageFixed when requested, or when ContinuousPage was requested
//     but overflows (FellBack is set);
//   - SingleFit otherwise, including empty and unknown hints.
func (e *Engine) Decide(widthPx, heightPx int, hint string) (Decision, error) {
	if err := checkSize(widthPx, heightPx); err != nil {
		return Decision{}, err
	}

	requested, _ := ParseHint(hint)
	d := Decision{ContinuousHeight: e.continuousHeight(widthPx, heightPx)}
	fits := d.ContinuousHeight <= e.cfg.MaxContinuousHeight

	switch {
	case requested == ContinuousPage && fits:
		d.Strategy = ContinuousPage
	case requested == MultiPageFixed:
		d.Strategy = MultiPageFixed
	case requested == ContinuousPage:
		d.Strategy = MultiPageFixed
		d.FellBack = true
	default:
		d.Strategy = SingleFit
	}
	return d, nil
}

// Compute returns the page geometry for a bitmap of the given size.
func (e *Engine) Compute(widthPx, heightPx int, hint string) (Geometry, error) {
	d, err := e.Decide(widthPx, heightPx, hint)
	if err != nil {
		return Geometry{}, err
	}

	var g Geometry
	switch d.Strategy {
	case ContinuousPage:
		g, err = e.Continuous(widthPx, heightPx)
		if cerrors.Is(err, cerrors.ErrCodeLayoutOverflow) {
			g, err = e.MultiPage(widthPx, heightPx)
			d.FellBack = true
		}
	case MultiPageFixed:
		g, err = e.MultiPage(widthPx, heightPx)
	default:
		g, err = e.SingleFit(widthPx, heightPx)
	}
	if err != nil {
		return Geometry{}, err
	}
	g.FellBack = d.FellBack
	return g, nil
}

// Continuous lays the bitmap out on one page of reference width whose height
// follows the image. It fails with LAYOUT_OVERFLOW when that page would be
// longer than the configured maximum.
func (e *Engine) Continuous(widthPx, heightPx int) (Geometry, error) {
	if err := checkSize(widthPx, heightPx); err != nil {
		return Geometry{}, err
	}

	pageH := e.continuousHeight(widthPx, heightPx)
	if pageH > e.cfg.MaxContinuousHeight {
		return Geometry{}, cerrors.New(cerrors.ErrCodeLayoutOverflow,
			"continuous page of %.1f exceeds maximum %.1f", pageH, e.cfg.MaxContinuousHeight)
	}

	m := e.cfg.Margin
	return Geometry{
		Strategy: ContinuousPage,
		Scale:    e.cfg.ContentWidth() / float64(widthPx),
		Pages: []Page{{
			Width:     e.cfg.PageWidth,
			Height:    pageH,
			Placement: Rect{X: m, Y: m, Width: e.cfg.ContentWidth(), Height: pageH - 2*m},
			Slice:     Slice{Offset: 0, Height: heightPx},
		}},
	}, nil
}

// continuousHeight converts the bitmap to its natural size in page units and
// scales that to the content width.
func (e *Engine) continuousHeight(widthPx, heightPx int) float64 {
	naturalW := float64(widthPx) / e.cfg.PxPerUnit
	naturalH := float64(heightPx) / e.cfg.PxPerUnit
	scale := e.cfg.ContentWidth() / naturalW
	return naturalH*scale + 2*e.cfg.Margin
}

// MultiPage cuts the bitmap into bands that each fill the content height of
// a reference page. The last band holds the remainder.
func (e *Engine) MultiPage(widthPx, heightPx int) (Geometry, error) {
	if err := checkSize(widthPx, heightPx); err != nil {
		return Geometry{}, err
	}

	m := e.cfg.Margin
	scale := e.cfg.ContentWidth() / float64(widthPx)
	slicePx := int(math.Floor(e.cfg.ContentHeight() / scale))
	// Only reachable with a content area wider than it is tall and a
	// bitmap narrower than the ratio between them.
	if slicePx < 1 {
		slicePx = 1
	}
	count := (heightPx + slicePx - 1) / slicePx

	pages := make([]Page, 0, count)
	for offset := 0; offset < heightPx; offset += slicePx {
		h := min(slicePx, heightPx-offset)
		pages = append(pages, Page{
			Width:     e.cfg.PageWidth,
			Height:    e.cfg.PageHeight,
			Placement: Rect{X: m, Y: m, Width: e.cfg.ContentWidth(), Height: float64(h) * scale},
			Slice:     Slice{Offset: offset, Height: h},
		})
	}

	return Geometry{Strategy: MultiPageFixed, Scale: scale, Pages: pages}, nil
}

// SingleFit scales the bitmap uniformly into the content area of one
// reference page and centres it.
func (e *Engine) SingleFit(widthPx, heightPx int) (Geometry, error) {
	if err := checkSize(widthPx, heightPx); err != nil {
		return Geometry{}, err
	}

	m := e.cfg.Margin
	boxW, boxH := e.cfg.ContentWidth(), e.cfg.ContentHeight()
	ratio := float64(widthPx) / float64(heightPx)

	imgW := boxH * ratio
	if ratio > boxW/boxH {
		imgW = boxW
	}
	imgH := imgW / ratio

	return Geometry{
		Strategy: SingleFit,
		Scale:    imgW / float64(widthPx),
		Pages: []Page{{
			Width:  e.cfg.PageWidth,
			Height: e.cfg.PageHeight,
			Placement: Rect{
				X:      (boxW-imgW)/2 + m,
				Y:      (boxH-imgH)/2 + m,
				Width:  imgW,
				Height: imgH,
			},
			Slice: Slice{Offset: 0, Height: heightPx},
		}},
	}, nil
}

func checkSize(widthPx, heightPx int) error {
	if widthPx <= 0 || heightPx <= 0 {
		return cerrors.New(cerrors.ErrCodeInvalidBitmap, "bitmap has zero area (%dx%d)", widthPx, heightPx)
	}
	return nil
}
