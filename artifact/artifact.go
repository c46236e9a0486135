// Package artifact holds finished capture output: the encoded bytes, their
// content type and the helpers used to name, stream and embed them.
package artifact

import (
	"bytes"
	"encoding/base64"
	"io"
	"os"
	"strings"

	"github.com/porticus-lab/go-screencapture/bitmap"
	"github.com/porticus-lab/go-screencapture/document"
	cerrors "github.com/porticus-lab/go-screencapture/errors"
)

// Kind distinguishes raster images from paginated documents.
type Kind int

const (
	Image Kind = iota
	Document
)

func (k Kind) String() string {
	if k == Document {
		return "document"
	}
	return "image"
}

// Type is the requested output type.
type Type int

const (
	PNG Type = iota
	JPEG
	PDF
)

// ParseType maps an output type token (PNG, JPEG, PDF) to a Type.
// Anything else, including the empty string, is PNG.
func ParseType(s string) Type {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "JPEG", "JPG":
		return JPEG
	case "PDF":
		return PDF
	default:
		return PNG
	}
}

func (t Type) String() string {
	switch t {
	case JPEG:
		return "JPEG"
	case PDF:
		return "PDF"
	default:
		return "PNG"
	}
}

// Kind reports whether the type is an image or a document.
func (t Type) Kind() Kind {
	if t == PDF {
		return Document
	}
	return Image
}

// ContentType returns the MIME type of the output type.
func (t Type) ContentType() string {
	switch t {
	case JPEG:
		return "image/jpeg"
	case PDF:
		return document.ContentType
	default:
		return "image/png"
	}
}

// Extension returns the file extension including the leading dot.
func (t Type) Extension() string {
	switch t {
	case JPEG:
		return ".jpg"
	case PDF:
		return ".pdf"
	default:
		return ".png"
	}
}

// Format returns the bitmap encoding of an image type.
func (t Type) Format() bitmap.Format {
	if t == JPEG {
		return bitmap.JPEG
	}
	return bitmap.PNG
}

// Artifact is a finished, read-only capture result.
// Its methods may be called any number of times.
type Artifact struct {
	kind        Kind
	contentType string
	data        []byte
	pages       int
}

// FromDocument wraps a built PDF document.
func FromDocument(doc *document.Document) *Artifact {
	return &Artifact{
		kind:        Document,
		contentType: document.ContentType,
		data:        doc.Bytes(),
		pages:       doc.PageCount(),
	}
}

// FromPDF wraps PDF bytes produced elsewhere, such as by a remote converter.
// The page count is unknown and reported as zero.
func FromPDF(data []byte) (*Artifact, error) {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return nil, cerrors.New(cerrors.ErrCodeConversion, "converter returned %d bytes that are not a PDF", len(data))
	}
	return &Artifact{
		kind:        Document,
		contentType: document.ContentType,
		data:        bytes.Clone(data),
	}, nil
}

// FromBitmap encodes bm as a single image artifact.
func FromBitmap(bm *bitmap.Bitmap, f bitmap.Format, quality int) (*Artifact, error) {
	data, err := bm.EncodeBytes(f, quality)
	if err != nil {
		return nil, err
	}
	return &Artifact{
		kind:        Image,
		contentType: f.ContentType(),
		data:        data,
		pages:       1,
	}, nil
}

// Kind returns the artifact kind.
func (a *Artifact) Kind() Kind { return a.kind }

// ContentType returns the MIME type of the content.
func (a *Artifact) ContentType() string { return a.contentType }

// Pages returns the page count of a document, 1 for an image, or 0 when
// unknown.
func (a *Artifact) Pages() int { return a.pages }

// Bytes returns the raw content.
func (a *Artifact) Bytes() []byte {
	return a.data
}

// Base64 returns the content encoded as standard base64 (RFC 4648).
func (a *Artifact) Base64() string {
	return base64.StdEncoding.EncodeToString(a.data)
}

// DataURI returns the content as a base64 data URI.
func (a *Artifact) DataURI() string {
	return "data:" + a.contentType + ";base64," + a.Base64()
}

// Reader returns an [*bytes.Reader] over the content.
func (a *Artifact) Reader() *bytes.Reader {
	return bytes.NewReader(a.data)
}

// WriteTo writes the full content to w. It implements [io.WriterTo].
func (a *Artifact) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(a.data)
	return int64(n), err
}

// WriteToFile writes the content to the file at path, creating it if needed.
func (a *Artifact) WriteToFile(path string, perm os.FileMode) error {
	return os.WriteFile(path, a.data, perm)
}

// Len returns the size of the content in bytes.
func (a *Artifact) Len() int {
	return len(a.data)
}
