package svgraster

import (
	"encoding/base64"
	"image/color"
	"strings"
	"testing"

	"github.com/porticus-lab/go-screencapture/bitmap"
	cerrors "github.com/porticus-lab/go-screencapture/errors"
)

const square = `<svg xmlns="http://www.w3.org/2000/svg" width="40" height="20" viewBox="0 0 40 20">
  <rect x="0" y="0" width="20" height="20" fill="#ff0000"/>
</svg>`

func TestRasterize_NaturalSize(t *testing.T) {
	bm, err := Rasterize([]byte(square), Options{})
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	if bm.Width() != 40 || bm.Height() != 20 {
		t.Errorf("size = %dx%d, want 40x20", bm.Width(), bm.Height())
	}

	r, _, _, a := bm.Image().At(5, 10).RGBA()
	if r>>8 < 200 || a>>8 < 200 {
		t.Errorf("pixel inside rect = r%d a%d, want opaque red", r>>8, a>>8)
	}
	_, _, _, a = bm.Image().At(35, 10).RGBA()
	if a != 0 {
		t.Errorf("pixel outside rect alpha = %d, want transparent", a>>8)
	}
}

func TestRasterize_ScaledKeepsAspect(t *testing.T) {
	bm, err := Rasterize([]byte(square), Options{Width: 200})
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	if bm.Width() != 200 || bm.Height() != 100 {
		t.Errorf("size = %dx%d, want 200x100", bm.Width(), bm.Height())
	}

	bm, err = Rasterize([]byte(square), Options{Height: 10})
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	if bm.Width() != 20 || bm.Height() != 10 {
		t.Errorf("size = %dx%d, want 20x10", bm.Width(), bm.Height())
	}
}

func TestRasterize_Background(t *testing.T) {
	bm, err := Rasterize([]byte(square), Options{Background: color.White})
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	r, g, b, a := bm.Image().At(35, 10).RGBA()
	if r>>8 != 255 || g>>8 != 255 || b>>8 != 255 || a>>8 != 255 {
		t.Errorf("background pixel = %d,%d,%d,%d, want white", r>>8, g>>8, b>>8, a>>8)
	}
}

func TestRasterize_Invalid(t *testing.T) {
	for _, in := range []string{"", "<svg", `<svg xmlns="http://www.w3.org/2000/svg"></svg>`} {
		if _, err := Rasterize([]byte(in), Options{}); !cerrors.Is(err, cerrors.ErrCodeNormalization) {
			t.Errorf("Rasterize(%q) error = %v, want NORMALIZATION_FAILED", in, err)
		}
	}
}

func TestPNGDataURI(t *testing.T) {
	uri, err := PNGDataURI([]byte(square), Options{})
	if err != nil {
		t.Fatalf("PNGDataURI: %v", err)
	}
	const prefix = "data:image/png;base64,"
	if !strings.HasPrefix(uri, prefix) {
		t.Fatalf("uri = %.40q", uri)
	}
	if _, err := bitmap.DecodeBytes(decode(t, uri[len(prefix):])); err != nil {
		t.Errorf("payload is not an image: %v", err)
	}
}

func decode(t *testing.T, s string) []byte {
	t.Helper()
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		t.Fatalf("base64: %v", err)
	}
	return b
}
