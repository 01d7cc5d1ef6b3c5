//go:build tesseract

package engine

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/MeKo-Tech/bubbletrans/internal/utils"
	"github.com/otiai10/gosseract/v2"
)

// Tesseract is the fallback engine backed by a local Tesseract installation.
type Tesseract struct {
	config TesseractConfig
	client *gosseract.Client
}

// NewTesseract returns an unloaded Tesseract backend.
func NewTesseract(config TesseractConfig) *Tesseract {
	return &Tesseract{config: config}
}

func (t *Tesseract) Name() string { return NameTesseract }

// Load creates the Tesseract client and applies configured variables.
func (t *Tesseract) Load(context.Context) error {
	c := gosseract.NewClient()
	for k, v := range t.config.Variables {
		if err := c.SetVariable(gosseract.SettableVariable(k), v); err != nil {
			_ = c.Close()
			return fmt.Errorf("%w: set variable %s: %w", ErrModelUnavailable, k, err)
		}
	}
	if err := c.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		_ = c.Close()
		return fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}
	t.client = c
	return nil
}

// Recognize runs Tesseract on the crop. Confidence is the mean word confidence.
func (t *Tesseract) Recognize(ctx context.Context, img image.Image, langs []string) ([]Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := utils.EncodePNG(img)
	if err != nil {
		return nil, err
	}
	if err := t.client.SetLanguage(tesseractLanguages(t.config, langs)...); err != nil {
		return nil, fmt.Errorf("set languages: %w", err)
	}
	if err := t.client.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}
	text, err := t.client.Text()
	if err != nil {
		return nil, fmt.Errorf("recognize text: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	return []Candidate{{Text: text, Confidence: t.wordConfidence()}}, nil
}

func (t *Tesseract) wordConfidence() float64 {
	boxes, err := t.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence / 100
	}
	return sum / float64(len(boxes))
}

// Close releases the Tesseract client.
func (t *Tesseract) Close() error {
	if t.client == nil {
		return nil
	}
	return t.client.Close()
}
