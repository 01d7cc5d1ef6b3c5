package engine

import (
	"context"
	"fmt"
	"image"

	"github.com/MeKo-Tech/bubbletrans/internal/lang"
	"github.com/MeKo-Tech/bubbletrans/internal/recognizer"
)

type lineRecognizer interface {
	Recognize(img image.Image) (recognizer.Line, error)
	Close() error
}

// Paddle recognizes text with a local ONNX CTC model. It is tuned for CJK scripts.
type Paddle struct {
	config recognizer.Config
	open   func(recognizer.Config) (lineRecognizer, error)
	rec    lineRecognizer
}

// NewPaddle returns an unloaded Paddle backend.
func NewPaddle(config recognizer.Config) *Paddle {
	return &Paddle{
		config: config,
		open: func(c recognizer.Config) (lineRecognizer, error) {
			return recognizer.New(c)
		},
	}
}

func (p *Paddle) Name() string { return NamePaddle }

// Load opens the recognition model.
func (p *Paddle) Load(context.Context) error {
	rec, err := p.open(p.config)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}
	p.rec = rec
	return nil
}

// Recognize reads the crop as one line of text.
func (p *Paddle) Recognize(_ context.Context, img image.Image, langs []string) ([]Candidate, error) {
	line, err := p.rec.Recognize(img)
	if err != nil {
		return nil, err
	}
	if line.Text == "" {
		return nil, nil
	}
	language := lang.DetectScript(line.Text)
	if language == "" && len(langs) > 0 {
		language = lang.Normalize(langs[0])
	}
	return []Candidate{{Text: line.Text, Confidence: line.Confidence, Language: language}}, nil
}

// Close releases the model.
func (p *Paddle) Close() error {
	if p.rec == nil {
		return nil
	}
	return p.rec.Close()
}
