package pdf

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/gen2brain/go-fitz"
)

// PageImage renders the given zero-indexed page of the PDF to a PNG,
// for use as vision model input.
func PageImage(pdf []byte, page int) (img []byte, err error) {
	doc, err := fitz.NewFromMemory(pdf)
	if err != nil {
		return nil, fmt.Errorf("pdf: failed to open document: %w", err)
	}
	defer doc.Close()
	if page < 0 || page >= doc.NumPage() {
		return nil, fmt.Errorf("pdf: page %d out of range, document has %d pages", page, doc.NumPage())
	}
	rendered, err := doc.Image(page)
	if err != nil {
		return nil, fmt.Errorf("pdf: failed to render page %d: %w", page, err)
	}
	buf := new(bytes.Buffer)
	if err = png.Encode(buf, rendered); err != nil {
		return nil, fmt.Errorf("pdf: failed to encode page %d: %w", page, err)
	}
	return buf.Bytes(), nil
}
