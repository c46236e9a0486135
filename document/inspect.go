package document

import (
	"bytes"
	"fmt"
	"os"

	pdflib "github.com/ledongthuc/pdf"
)

// PageInfo holds page-level metadata read from a PDF.
type PageInfo struct {
	Width    float64 // points
	Height   float64 // points
	Rotation int     // degrees
}

// PointsPerMM converts millimetres to PDF points.
const PointsPerMM = 72 / 25.4

// Inspect reads the page dimensions of a PDF held in memory.
func Inspect(data []byte) ([]PageInfo, error) {
	r, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("reading pdf: %w", err)
	}

	n := r.NumPage()
	pages := make([]PageInfo, 0, n)
	for i := 1; i <= n; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			return nil, fmt.Errorf("page %d: missing page object", i)
		}
		box := inherited(page.V, "MediaBox")
		if box.Len() != 4 {
			return nil, fmt.Errorf("page %d: invalid MediaBox", i)
		}
		pages = append(pages, PageInfo{
			Width:    box.Index(2).Float64() - box.Index(0).Float64(),
			Height:   box.Index(3).Float64() - box.Index(1).Float64(),
			Rotation: int(inherited(page.V, "Rotate").Int64()),
		})
	}
	return pages, nil
}

// InspectFile is Inspect for a file on disk.
func InspectFile(path string) ([]PageInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return Inspect(data)
}

// inherited looks key up on the page and then up the page-tree parents.
func inherited(v pdflib.Value, key string) pdflib.Value {
	for depth := 0; !v.IsNull() && depth < 32; depth++ {
		if val := v.Key(key); !val.IsNull() {
			return val
		}
		v = v.Key("Parent")
	}
	return pdflib.Value{}
}
