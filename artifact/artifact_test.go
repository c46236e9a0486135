package artifact

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/porticus-lab/go-screencapture/bitmap"
	cerrors "github.com/porticus-lab/go-screencapture/errors"
)

var samplePDF = []byte("%PDF-1.4 fake content for testing")

func newArtifact(t *testing.T) *Artifact {
	t.Helper()
	a, err := FromPDF(samplePDF)
	if err != nil {
		t.Fatalf("FromPDF: %v", err)
	}
	return a
}

func TestFromPDF(t *testing.T) {
	a := newArtifact(t)
	if a.Kind() != Document {
		t.Errorf("Kind() = %v, want document", a.Kind())
	}
	if a.ContentType() != "application/pdf" {
		t.Errorf("ContentType() = %q", a.ContentType())
	}
	if !bytes.Equal(a.Bytes(), samplePDF) {
		t.Error("Bytes() did not return original data")
	}

	_, err := FromPDF([]byte("<html>"))
	if !cerrors.Is(err, cerrors.ErrCodeConversion) {
		t.Errorf("FromPDF(html) error = %v, want CONVERSION_FAILED", err)
	}
}

func TestFromBitmap(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.NRGBA{255, 0, 0, 255})
	bm, err := bitmap.FromImage(img)
	if err != nil {
		t.Fatalf("FromImage: %v", err)
	}

	a, err := FromBitmap(bm, bitmap.PNG, bitmap.DefaultJPEGQuality)
	if err != nil {
		t.Fatalf("FromBitmap: %v", err)
	}
	if a.Kind() != Image || a.Pages() != 1 {
		t.Errorf("got kind %v pages %d, want image with 1 page", a.Kind(), a.Pages())
	}
	if a.ContentType() != "image/png" {
		t.Errorf("ContentType() = %q, want image/png", a.ContentType())
	}
	back, err := bitmap.DecodeBytes(a.Bytes())
	if err != nil {
		t.Fatalf("DecodeBytes: %v", err)
	}
	if back.Width() != 4 || back.Height() != 3 {
		t.Errorf("decoded size = %dx%d, want 4x3", back.Width(), back.Height())
	}
}

func TestArtifact_Base64AndDataURI(t *testing.T) {
	a := newArtifact(t)
	want := base64.StdEncoding.EncodeToString(samplePDF)
	if got := a.Base64(); got != want {
		t.Errorf("Base64() = %q, want %q", got, want)
	}
	uri := a.DataURI()
	if !strings.HasPrefix(uri, "data:application/pdf;base64,") || !strings.HasSuffix(uri, want) {
		t.Errorf("DataURI() = %q", uri)
	}
}

func TestArtifact_WriteTo(t *testing.T) {
	a := newArtifact(t)
	var buf bytes.Buffer
	n, err := a.WriteTo(&buf)
	if err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if n != int64(len(samplePDF)) || !bytes.Equal(buf.Bytes(), samplePDF) {
		t.Errorf("WriteTo wrote %d bytes, want %d", n, len(samplePDF))
	}
}

func TestArtifact_WriteToFile(t *testing.T) {
	a := newArtifact(t)
	path := filepath.Join(t.TempDir(), "capture.pdf")
	if err := a.WriteToFile(path, 0o644); err != nil {
		t.Fatalf("WriteToFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading written file: %v", err)
	}
	if !bytes.Equal(data, samplePDF) {
		t.Error("WriteToFile produced different content")
	}
}

func TestArtifact_Reader(t *testing.T) {
	a := newArtifact(t)
	if a.Reader().Len() != a.Len() {
		t.Errorf("Reader().Len() = %d, want %d", a.Reader().Len(), a.Len())
	}
}

func TestParseType(t *testing.T) {
	tests := []struct {
		in   string
		want Type
	}{
		{"PNG", PNG},
		{"jpeg", JPEG},
		{"JPG", JPEG},
		{"PDF", PDF},
		{"", PNG},
		{"TIFF", PNG},
	}
	for _, tt := range tests {
		if got := ParseType(tt.in); got != tt.want {
			t.Errorf("ParseType(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if PDF.Kind() != Document || JPEG.Kind() != Image {
		t.Error("Type.Kind mismatch")
	}
	if JPEG.Format() != bitmap.JPEG || PNG.Format() != bitmap.PNG {
		t.Error("Type.Format mismatch")
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		name       string
		base       string
		typ        Type
		renderHTML bool
		want       string
	}{
		{"default", "", PNG, false, "screencapture.png"},
		{"blank", "   ", JPEG, false, "screencapture.jpg"},
		{"trimmed", "  report ", PDF, false, "report.pdf"},
		{"reserved", `a\b/c:d*e?f"g<h>i|j`, PNG, false, "a_b_c_d_e_f_g_h_i_j.png"},
		{"html render", "page", PNG, true, "page.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FileName(tt.base, tt.typ, tt.renderHTML); got != tt.want {
				t.Errorf("FileName(%q) = %q, want %q", tt.base, got, tt.want)
			}
		})
	}
}
