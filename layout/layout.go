// Package layout maps a pixel-sized bitmap onto one or more fixed-size
// document pages.
//
// All page measurements are in page units (millimetres with the default
// configuration); bitmap measurements are in source pixels. Three strategies
// are available:
//
//   - ContinuousPage: a single page as wide as the reference page and as tall
//     as the scaled image plus margins, bounded by a maximum length.
//   - MultiPageFixed: reference-size pages, each showing the next horizontal
//     band of the bitmap.
//   - SingleFit: one reference-size page with the whole bitmap scaled to fit
//     and centred.
//
// The choice between them is made by [Engine.Decide] and is a pure function
// of the bitmap size, the strategy hint and the engine configuration. A
// continuous request whose page would exceed the maximum length falls back to
// MultiPageFixed, so no output page is ever longer than that ceiling.
package layout

import (
	"fmt"
	"strings"

	cerrors "github.com/porticus-lab/go-screencapture/errors"
)

// Strategy selects the rule that generates page geometry.
type Strategy int

const (
	// SingleFit is the default when no usable hint is given.
	SingleFit Strategy = iota
	ContinuousPage
	MultiPageFixed
)

// String returns the Go name of the strategy.
func (s Strategy) String() string {
	switch s {
	case SingleFit:
		return "SingleFit"
	case ContinuousPage:
		return "ContinuousPage"
	case MultiPageFixed:
		return "MultiPageFixed"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// Hint returns the configuration token that requests the strategy.
func (s Strategy) Hint() string {
	switch s {
	case ContinuousPage:
		return "CONT_PAGE"
	case MultiPageFixed:
		return "MULTI_PAGE_A4"
	default:
		return "SINGLE_A4"
	}
}

// ParseHint maps a configuration token to a strategy. Both the configuration
// tokens (CONT_PAGE, MULTI_PAGE_A4, SINGLE_A4) and the Go names are accepted,
// case-insensitively. Empty or unknown hints yield SingleFit and ok=false.
func ParseHint(hint string) (s Strategy, ok bool) {
	switch strings.ToUpper(strings.TrimSpace(hint)) {
	case "CONT_PAGE", "CONTINUOUSPAGE", "CONTINUOUS":
		return ContinuousPage, true
	case "MULTI_PAGE_A4", "MULTIPAGEFIXED", "MULTI_PAGE", "MULTIPAGE":
		return MultiPageFixed, true
	case "SINGLE_A4", "SINGLEFIT", "SINGLE":
		return SingleFit, true
	default:
		return SingleFit, false
	}
}

// Config holds the page constants. Lengths are in page units.
type Config struct {
	// PageWidth and PageHeight are the reference (portrait) page size.
	PageWidth  float64
	PageHeight float64

	// Margin is applied on all four sides of every page.
	Margin float64

	// MaxContinuousHeight bounds the length of a ContinuousPage page.
	MaxContinuousHeight float64

	// PxPerUnit is the device-pixel density assumed for page units.
	PxPerUnit float64
}

// Page constants of the default configuration, in millimetres.
const (
	A4Width             = 210.0
	A4Height            = 297.0
	DefaultMargin       = 10.0
	MaxContinuousLength = 5080.0
	PxPerMM             = 96 / 25.4
)

// DefaultConfig returns A4 portrait pages with 10 mm margins and a 5080 mm
// continuous-page ceiling.
func DefaultConfig() Config {
	return Config{
		PageWidth:           A4Width,
		PageHeight:          A4Height,
		Margin:              DefaultMargin,
		MaxContinuousHeight: MaxContinuousLength,
		PxPerUnit:           PxPerMM,
	}
}

// ContentWidth is the page width inside the margins.
func (c Config) ContentWidth() float64 { return c.PageWidth - 2*c.Margin }

// ContentHeight is the page height inside the margins.
func (c Config) ContentHeight() float64 { return c.PageHeight - 2*c.Margin }

// Validate checks that the configuration leaves a usable content area.
func (c Config) Validate() error {
	switch {
	case c.PageWidth <= 0 || c.PageHeight <= 0:
		return cerrors.New(cerrors.ErrCodeInvalidInput, "page size must be positive, got %gx%g", c.PageWidth, c.PageHeight)
	case c.Margin < 0:
		return cerrors.New(cerrors.ErrCodeInvalidInput, "margin must not be negative, got %g", c.Margin)
	case c.ContentWidth() <= 0 || c.ContentHeight() <= 0:
		return cerrors.New(cerrors.ErrCodeInvalidInput, "margin %g leaves no content area on a %gx%g page", c.Margin, c.PageWidth, c.PageHeight)
	case c.MaxContinuousHeight <= 0:
		return cerrors.New(cerrors.ErrCodeInvalidInput, "max continuous height must be positive, got %g", c.MaxContinuousHeight)
	case c.PxPerUnit <= 0:
		return cerrors.New(cerrors.ErrCodeInvalidInput, "pixel density must be positive, got %g", c.PxPerUnit)
	}
	return nil
}

// Rect is a placement rectangle in page units, origin at the top-left corner.
type Rect struct {
	X, Y          float64
	Width, Height float64
}

// Slice is a band of source rows: [Offset, Offset+Height).
type Slice struct {
	Offset int
	Height int
}

// Page describes one output page.
type Page struct {
	Width     float64
	Height    float64
	Placement Rect
	Slice     Slice
}

// Geometry is the full page plan for one bitmap. Pages are in source order.
type Geometry struct {
	Strategy Strategy
	// FellBack is set when a ContinuousPage request overflowed the maximum
	// length and MultiPageFixed was used instead.
	FellBack bool
	// Scale is page units per source pixel.
	Scale float64
	Pages []Page
}

// SliceTotal returns the sum of all slice heights.
func (g Geometry) SliceTotal() int {
	n := 0
	for _, p := range g.Pages {
		n += p.Slice.Height
	}
	return n
}
