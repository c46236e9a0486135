// Package svgraster converts standalone SVG markup into raster images.
//
// It is used to replace inline diagrams before a page is rasterized, since
// some rasterization paths render inline SVG poorly or not at all.
package svgraster

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/porticus-lab/go-screencapture/bitmap"
	cerrors "github.com/porticus-lab/go-screencapture/errors"
)

// MaxDimension bounds either side of the output image.
const MaxDimension = 8192

// Options controls rasterization. Zero values select the SVG's own size.
type Options struct {
	// Width and Height of the output in pixels. When only one is given the
	// other follows the viewBox aspect ratio.
	Width, Height int
	// Background fills the canvas before drawing. Nil keeps it transparent.
	Background color.Color
	// Strict rejects SVGs containing unsupported elements instead of
	// skipping them.
	Strict bool
}

// Rasterize draws svg onto a new bitmap.
func Rasterize(svg []byte, opts Options) (*bitmap.Bitmap, error) {
	mode := oksvg.IgnoreErrorMode
	if opts.Strict {
		mode = oksvg.StrictErrorMode
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(svg), mode)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeNormalization, err, "parsing svg")
	}

	w, h := size(icon.ViewBox.W, icon.ViewBox.H, opts.Width, opts.Height)
	if w <= 0 || h <= 0 {
		return nil, cerrors.New(cerrors.ErrCodeNormalization, "svg has no drawable size")
	}
	if w > MaxDimension || h > MaxDimension {
		return nil, cerrors.New(cerrors.ErrCodeNormalization, "svg size %dx%d exceeds %d", w, h, MaxDimension)
	}

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	if opts.Background != nil {
		draw.Draw(img, img.Bounds(), image.NewUniform(opts.Background), image.Point{}, draw.Src)
	}

	icon.SetTarget(0, 0, float64(w), float64(h))
	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1)

	return bitmap.FromImage(img)
}

// PNGDataURI rasterizes svg and returns it as a PNG data URI.
func PNGDataURI(svg []byte, opts Options) (string, error) {
	bm, err := Rasterize(svg, opts)
	if err != nil {
		return "", err
	}
	data, err := bm.EncodeBytes(bitmap.PNG, 0)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data), nil
}

// size resolves the output size from the viewBox and requested dimensions.
func size(vbW, vbH float64, w, h int) (int, int) {
	switch {
	case w > 0 && h > 0:
		return w, h
	case w > 0 && vbW > 0:
		return w, int(math.Round(float64(w) * vbH / vbW))
	case h > 0 && vbH > 0:
		return int(math.Round(float64(h) * vbW / vbH)), h
	default:
		return int(math.Ceil(vbW)), int(math.Ceil(vbH))
	}
}
