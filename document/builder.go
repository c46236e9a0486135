// Package document assembles paginated PDF documents from a bitmap and the
// page geometry computed by package layout.
//
// Every page embeds exactly one JPEG image: the full-width band of the bitmap
// named by the page's slice, drawn at the page's placement rectangle.
package document

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/go-pdf/fpdf"

	"github.com/porticus-lab/go-screencapture/bitmap"
	cerrors "github.com/porticus-lab/go-screencapture/errors"
	"github.com/porticus-lab/go-screencapture/layout"
)

// ContentType is the MIME type of built documents.
const ContentType = "application/pdf"

// Builder turns a bitmap and its geometry into a Document.
// A Builder has no mutable state and may be shared.
type Builder struct {
	quality int
	unit    string
	title   string
	creator string
}

// Option configures a [Builder].
type Option func(*Builder)

// WithJPEGQuality sets the compression quality (1-100) of the embedded
// page images. Defaults to 90.
func WithJPEGQuality(q int) Option {
	return func(b *Builder) {
		b.quality = q
	}
}

// WithUnit sets the page unit the geometry is expressed in: "mm", "pt",
// "cm" or "in". Defaults to "mm".
func WithUnit(unit string) Option {
	return func(b *Builder) {
		b.unit = unit
	}
}

// WithTitle sets the document title metadata.
func WithTitle(title string) Option {
	return func(b *Builder) {
		b.title = title
	}
}

// WithCreator sets the document creator metadata.
func WithCreator(creator string) Option {
	return func(b *Builder) {
		b.creator = creator
	}
}

// NewBuilder returns a Builder with the given options applied.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		quality: bitmap.DefaultJPEGQuality,
		unit:    "mm",
		creator: "go-screencapture",
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Build renders one page per geometry entry, in order. The first entry
// defines the document's default page; each following entry adds a page.
func (b *Builder) Build(bm *bitmap.Bitmap, g layout.Geometry) (*Document, error) {
	if bm == nil {
		return nil, cerrors.New(cerrors.ErrCodeInvalidBitmap, "nil bitmap")
	}
	if len(g.Pages) == 0 {
		return nil, cerrors.New(cerrors.ErrCodeInvalidInput, "geometry has no pages")
	}
	if total := g.SliceTotal(); total != bm.Height() {
		return nil, cerrors.New(cerrors.ErrCodeInvalidInput,
			"geometry covers %d rows, bitmap has %d", total, bm.Height())
	}

	first := g.Pages[0]
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        b.unit,
		Size:           fpdf.SizeType{Wd: first.Width, Ht: first.Height},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator(b.creator, true)
	if b.title != "" {
		pdf.SetTitle(b.title, true)
	}

	opt := fpdf.ImageOptions{ImageType: "JPG"}
	for i, p := range g.Pages {
		band, err := bm.Crop(p.Slice.Offset, p.Slice.Height)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		jpg, err := band.EncodeBytes(bitmap.JPEG, b.quality)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}

		name := fmt.Sprintf("slice-%d", i)
		pdf.AddPageFormat("P", fpdf.SizeType{Wd: p.Width, Ht: p.Height})
		pdf.RegisterImageOptionsReader(name, opt, bytes.NewReader(jpg))
		pdf.ImageOptions(name, p.Placement.X, p.Placement.Y, p.Placement.Width, p.Placement.Height, false, opt, 0, "")
		if pdf.Err() {
			return nil, cerrors.Wrap(cerrors.ErrCodeEncoding, pdf.Error(), "page %d", i+1)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeEncoding, err, "writing document")
	}

	return &Document{
		data:     buf.Bytes(),
		pages:    slices.Clone(g.Pages),
		strategy: g.Strategy,
	}, nil
}

// Document is a finished, read-only PDF.
type Document struct {
	data     []byte
	pages    []layout.Page
	strategy layout.Strategy
}

// Bytes returns a copy of the PDF content.
func (d *Document) Bytes() []byte {
	return bytes.Clone(d.data)
}

// Len returns the size of the PDF in bytes.
func (d *Document) Len() int {
	return len(d.data)
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	return len(d.pages)
}

// Pages returns the geometry of every page, in document order.
func (d *Document) Pages() []layout.Page {
	return slices.Clone(d.pages)
}

// Strategy returns the layout strategy the document was built with.
func (d *Document) Strategy() layout.Strategy {
	return d.strategy
}
