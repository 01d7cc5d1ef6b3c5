//go:build !tesseract

package engine

import (
	"context"
	"image"
)

// Tesseract is unavailable in builds without the tesseract tag; it always
// fails to load, so the guarded engine returns empty results.
type Tesseract struct {
	config TesseractConfig
}

// NewTesseract returns a stub backend.
func NewTesseract(config TesseractConfig) *Tesseract {
	return &Tesseract{config: config}
}

func (t *Tesseract) Name() string { return NameTesseract }

func (t *Tesseract) Load(context.Context) error { return ErrEngineDisabled }

func (t *Tesseract) Recognize(context.Context, image.Image, []string) ([]Candidate, error) {
	return nil, ErrEngineDisabled
}

func (t *Tesseract) Close() error { return nil }
