package screencapture

// PageSize represents paper dimensions in millimetres.
type PageSize struct {
	Width  float64 // Width in millimetres.
	Height float64 // Height in millimetres.
}

// Standard paper sizes.
var (
	A3     = PageSize{Width: 297, Height: 420}
	A4     = PageSize{Width: 210, Height: 297}
	A5     = PageSize{Width: 148, Height: 210}
	Letter = PageSize{Width: 215.9, Height: 279.4}
	Legal  = PageSize{Width: 215.9, Height: 355.6}
)

// Orientation represents the page orientation.
type Orientation int

const (
	// Portrait is the default vertical orientation.
	Portrait Orientation = iota
	// Landscape rotates the page to horizontal orientation.
	Landscape
)

// Margin represents page margins in millimetres.
type Margin struct {
	Top    float64
	Right  float64
	Bottom float64
	Left   float64
}

// UniformMargin returns a Margin with the same value on all sides.
func UniformMargin(mm float64) Margin {
	return Margin{Top: mm, Right: mm, Bottom: mm, Left: mm}
}

// PrintConfig controls how [Browser.ConvertHTML] prints markup to PDF.
//
// Zero-value fields use the defaults: A4 paper, portrait orientation,
// 10 mm margins, scale 1.0, with background graphics enabled.
type PrintConfig struct {
	Size        PageSize
	Orientation Orientation
	Margin      Margin

	// Scale of the webpage rendering, between 0.1 and 2.0.
	Scale float64

	// PrintBackground enables printing of background colors and images.
	PrintBackground bool

	// PreferCSSPageSize gives precedence to any CSS @page size declared
	// in the document over the Size field.
	PreferCSSPageSize bool
}

// DefaultPrintConfig returns a PrintConfig with the defaults.
func DefaultPrintConfig() PrintConfig {
	return PrintConfig{
		Size:            A4,
		Orientation:     Portrait,
		Margin:          UniformMargin(10),
		Scale:           1.0,
		PrintBackground: true,
	}
}

// resolved returns a PrintConfig with all zero values replaced by defaults.
func (p *PrintConfig) resolved() PrintConfig {
	d := DefaultPrintConfig()
	if p == nil {
		return d
	}
	r := *p
	if r.Size == (PageSize{}) {
		r.Size = d.Size
	}
	if r.Scale <= 0 {
		r.Scale = d.Scale
	}
	if r.Margin == (Margin{}) {
		r.Margin = d.Margin
	}
	return r
}

// mmToInches converts millimetres to inches.
func mmToInches(mm float64) float64 {
	return mm / 25.4
}

// paperDimensions returns the paper width and height in inches,
// accounting for orientation.
func (p *PrintConfig) paperDimensions() (width, height float64) {
	r := p.resolved()
	w := mmToInches(r.Size.Width)
	h := mmToInches(r.Size.Height)
	if r.Orientation == Landscape {
		return h, w
	}
	return w, h
}

// marginInches returns margins converted to inches.
func (p *PrintConfig) marginInches() (top, right, bottom, left float64) {
	r := p.resolved()
	return mmToInches(r.Margin.Top),
		mmToInches(r.Margin.Right),
		mmToInches(r.Margin.Bottom),
		mmToInches(r.Margin.Left)
}
