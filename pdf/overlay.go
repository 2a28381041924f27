package pdf

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Text is a string to draw onto the first page of a PDF. X and Y are
// PDF points, origin bottom-left.
type Text struct {
	Value string
	X     float64
	Y     float64
}

const overlayFontPoints = 11

func configuration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// Validate checks that the bytes are a readable PDF and returns its
// page count.
func Validate(pdf []byte) (pageCount int, err error) {
	tempDir, err := os.MkdirTemp("", "formfill-validate-*")
	if err != nil {
		return 0, fmt.Errorf("pdf: failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)
	name := filepath.Join(tempDir, "input.pdf")
	if err = os.WriteFile(name, pdf, 0o600); err != nil {
		return 0, fmt.Errorf("pdf: failed to write temp file: %w", err)
	}
	if err = api.ValidateFile(name, configuration()); err != nil {
		return 0, fmt.Errorf("pdf: validation failed: %w", err)
	}
	pageCount, err = api.PageCountFile(name)
	if err != nil {
		return 0, fmt.Errorf("pdf: failed to count pages: %w", err)
	}
	return pageCount, nil
}

// Overlay draws each text at its position on the first page and
// returns the resulting PDF. The input bytes are not modified.
func Overlay(pdf []byte, texts []Text) (filled []byte, err error) {
	tempDir, err := os.MkdirTemp("", "formfill-overlay-*")
	if err != nil {
		return nil, fmt.Errorf("pdf: failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	current := filepath.Join(tempDir, "input.pdf")
	if err = os.WriteFile(current, pdf, 0o600); err != nil {
		return nil, fmt.Errorf("pdf: failed to write temp file: %w", err)
	}

	conf := configuration()
	for i, t := range texts {
		if t.Value == "" {
			continue
		}
		next := filepath.Join(tempDir, fmt.Sprintf("overlay_%03d.pdf", i))
		desc := fmt.Sprintf("fontname:Helvetica, points:%d, scalefactor:1 abs, position:bl, offset:%.2f %.2f, rotation:0, fillcolor:#000000, opacity:1", overlayFontPoints, t.X, t.Y)
		if err = api.AddTextWatermarksFile(current, next, []string{"1"}, true, t.Value, desc, conf); err != nil {
			return nil, fmt.Errorf("pdf: failed to draw %q: %w", t.Value, err)
		}
		current = next
	}

	filled, err = os.ReadFile(current)
	if err != nil {
		return nil, fmt.Errorf("pdf: failed to read result: %w", err)
	}
	return filled, nil
}
