// Package bitmap holds the rasterized pixel grid produced by a capture.
//
// A Bitmap is immutable. Cropping returns a new Bitmap backed by its own
// pixels, so the original can be shared freely between stages.
package bitmap

import (
	"bytes"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"

	cerrors "github.com/porticus-lab/go-screencapture/errors"
)

// Format is a raster encoding.
type Format int

const (
	// PNG is lossless and the default raster output.
	PNG Format = iota
	// JPEG is lossy; quality is taken from the Encode call.
	JPEG
)

// String returns the lowercase format name.
func (f Format) String() string {
	switch f {
	case PNG:
		return "png"
	case JPEG:
		return "jpeg"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == JPEG {
		return "image/jpeg"
	}
	return "image/png"
}

// DefaultJPEGQuality matches the compression level used for page slices.
const DefaultJPEGQuality = 90

// Bitmap is a read-only raster image.
type Bitmap struct {
	img image.Image
}

// FromImage wraps img. A zero-area image is rejected with INVALID_BITMAP.
// The caller must not modify img afterwards.
func FromImage(img image.Image) (*Bitmap, error) {
	if img == nil {
		return nil, cerrors.New(cerrors.ErrCodeInvalidBitmap, "nil image")
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, cerrors.New(cerrors.ErrCodeInvalidBitmap, "bitmap has zero area (%dx%d)", b.Dx(), b.Dy())
	}
	return &Bitmap{img: img}, nil
}

// Decode reads a PNG or JPEG stream into a Bitmap.
func Decode(r io.Reader) (*Bitmap, error) {
	img, err := imaging.Decode(r)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeInvalidBitmap, err, "decoding bitmap")
	}
	return FromImage(img)
}

// DecodeBytes is Decode over an in-memory buffer.
func DecodeBytes(data []byte) (*Bitmap, error) {
	return Decode(bytes.NewReader(data))
}

// Width returns the width in pixels.
func (b *Bitmap) Width() int { return b.img.Bounds().Dx() }

// Height returns the height in pixels.
func (b *Bitmap) Height() int { return b.img.Bounds().Dy() }

// Image returns the underlying image. Treat it as read-only.
func (b *Bitmap) Image() image.Image { return b.img }

// Crop returns the full-width horizontal band starting at row y with the
// given height. The band must lie inside the bitmap.
func (b *Bitmap) Crop(y, height int) (*Bitmap, error) {
	if y < 0 || height <= 0 || y+height > b.Height() {
		return nil, cerrors.New(cerrors.ErrCodeInvalidInput,
			"crop rows [%d,%d) outside bitmap of height %d", y, y+height, b.Height())
	}
	origin := b.img.Bounds().Min
	rect := image.Rect(origin.X, origin.Y+y, origin.X+b.Width(), origin.Y+y+height)
	return &Bitmap{img: imaging.Crop(b.img, rect)}, nil
}

// Encode writes the bitmap in the given format. quality only applies to JPEG
// and is clamped to 1..100 by the encoder.
func (b *Bitmap) Encode(w io.Writer, f Format, quality int) error {
	var err error
	switch f {
	case JPEG:
		err = imaging.Encode(w, b.img, imaging.JPEG, imaging.JPEGQuality(quality))
	case PNG:
		err = imaging.Encode(w, b.img, imaging.PNG)
	default:
		return cerrors.New(cerrors.ErrCodeEncoding, "unsupported format %v", f)
	}
	if err != nil {
		return cerrors.Wrap(cerrors.ErrCodeEncoding, err, "encoding %s", f)
	}
	return nil
}

// EncodeBytes is Encode into a fresh buffer.
func (b *Bitmap) EncodeBytes(f Format, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := b.Encode(&buf, f, quality); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
