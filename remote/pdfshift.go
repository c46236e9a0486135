package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	cerrors "github.com/porticus-lab/go-screencapture/errors"
)

// Converter renders a complete HTML document to PDF.
type Converter interface {
	ConvertHTML(ctx context.Context, html string) ([]byte, error)
}

// ConverterFunc adapts a function to the Converter interface.
type ConverterFunc func(ctx context.Context, html string) ([]byte, error)

// ConvertHTML calls f(ctx, html).
func (f ConverterFunc) ConvertHTML(ctx context.Context, html string) ([]byte, error) {
	return f(ctx, html)
}

// DefaultPDFShiftEndpoint is the PDFShift conversion API.
const DefaultPDFShiftEndpoint = "https://api.pdfshift.io/v3/convert/pdf"

// PDFShift is a client for the PDFShift HTML to PDF API.
type PDFShift struct {
	endpoint   string
	apiKey     string
	sandbox    bool
	margin     string
	httpClient *http.Client
}

// PDFShiftOption configures a [PDFShift] client.
type PDFShiftOption func(*PDFShift)

// WithEndpoint overrides the API URL.
func WithEndpoint(url string) PDFShiftOption {
	return func(p *PDFShift) { p.endpoint = url }
}

// WithSandbox toggles sandbox conversions, which are watermarked and free.
func WithSandbox(on bool) PDFShiftOption {
	return func(p *PDFShift) { p.sandbox = on }
}

// WithMargin sets the page margin as a CSS length, e.g. "10mm".
func WithMargin(m string) PDFShiftOption {
	return func(p *PDFShift) { p.margin = m }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) PDFShiftOption {
	return func(p *PDFShift) { p.httpClient = c }
}

// NewPDFShift returns a client authenticating with apiKey. Sandbox mode is
// on and the margin is 10mm unless overridden.
func NewPDFShift(apiKey string, opts ...PDFShiftOption) *PDFShift {
	p := &PDFShift{
		endpoint: DefaultPDFShiftEndpoint,
		apiKey:   apiKey,
		sandbox:  true,
		margin:   "10mm",
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

type pdfShiftRequest struct {
	Source  string `json:"source"`
	Sandbox bool   `json:"sandbox"`
	Margin  string `json:"margin,omitempty"`
}

// ConvertHTML posts html to the API and returns the PDF. All failures are
// CONVERSION_FAILED errors.
func (p *PDFShift) ConvertHTML(ctx context.Context, html string) ([]byte, error) {
	body, err := json.Marshal(pdfShiftRequest{Source: html, Sandbox: p.sandbox, Margin: p.margin})
	if err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeConversion, err, "marshal request")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeConversion, err, "create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth("api", p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeConversion, err, "pdfshift request")
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, cerrors.New(cerrors.ErrCodeConversion, "pdfshift: status %d: %s", resp.StatusCode, bytes.TrimSpace(respBody))
	}

	pdf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeConversion, err, "reading pdfshift response")
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF-")) {
		return nil, cerrors.New(cerrors.ErrCodeConversion, "pdfshift returned %d bytes that are not a PDF", len(pdf))
	}
	return pdf, nil
}

func (p *PDFShift) String() string {
	return fmt.Sprintf("pdfshift(%s, sandbox=%t)", p.endpoint, p.sandbox)
}
