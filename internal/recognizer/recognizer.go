// Package recognizer runs a CTC text-line recognition model over prepared bubble crops.
package recognizer

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"strings"

	"github.com/MeKo-Tech/bubbletrans/internal/onnx"
	"github.com/disintegration/imaging"
)

// Config holds recognizer settings.
type Config struct {
	ModelPath  string
	DictPath   string
	Height     int
	MaxWidth   int
	NumThreads int
	// VerticalRatio rotates crops whose height/width exceeds it, so vertical
	// columns are read as lines. Zero disables rotation.
	VerticalRatio float64
}

// DefaultConfig returns settings for PaddleOCR-style recognition models.
func DefaultConfig() Config {
	return Config{
		Height:        48,
		MaxWidth:      1280,
		VerticalRatio: 1.5,
	}
}

// Line is the recognized text of one crop.
type Line struct {
	Text       string
	Confidence float64
}

type runner interface {
	Run(t onnx.Tensor) (onnx.Tensor, error)
	Close() error
}

// Recognizer wraps a loaded recognition model and its charset.
type Recognizer struct {
	config  Config
	model   runner
	charset *Charset
}

// New loads the model and dictionary described by config.
func New(config Config) (*Recognizer, error) {
	if config.Height <= 0 {
		return nil, fmt.Errorf("invalid recognition height: %d", config.Height)
	}
	charset, err := LoadCharset(config.DictPath, true)
	if err != nil {
		return nil, err
	}
	session, err := onnx.NewSession(config.ModelPath, config.NumThreads)
	if err != nil {
		return nil, err
	}
	slog.Debug("Recognizer loaded",
		"model_path", config.ModelPath,
		"classes", charset.Classes())
	return &Recognizer{config: config, model: session, charset: charset}, nil
}

// Recognize reads the text in img.
func (r *Recognizer) Recognize(img image.Image) (Line, error) {
	if img == nil || img.Bounds().Empty() {
		return Line{}, errors.New("empty image")
	}

	b := img.Bounds()
	if r.config.VerticalRatio > 0 && float64(b.Dy()) > r.config.VerticalRatio*float64(b.Dx()) {
		// Top of the column becomes the left of the line.
		img = imaging.Rotate90(img)
	}

	line := resizeForRecognition(img, r.config.Height, r.config.MaxWidth, 8)
	in, err := onnx.ImageToTensor(line, onnx.SymmetricNormalization)
	if err != nil {
		return Line{}, err
	}
	out, err := r.model.Run(in)
	in.Release()
	if err != nil {
		return Line{}, fmt.Errorf("recognition inference: %w", err)
	}
	return r.decode(out)
}

func (r *Recognizer) decode(out onnx.Tensor) (Line, error) {
	if len(out.Shape) != 3 || out.Shape[0] != 1 {
		return Line{}, fmt.Errorf("unexpected recognition output shape %v", out.Shape)
	}
	classes := r.charset.Classes()
	var steps int
	var classesFirst bool
	switch {
	case int(out.Shape[2]) >= classes:
		steps, classes = int(out.Shape[1]), int(out.Shape[2])
	case int(out.Shape[1]) >= classes:
		steps, classes, classesFirst = int(out.Shape[2]), int(out.Shape[1]), true
	default:
		return Line{}, fmt.Errorf("output shape %v does not fit %d classes", out.Shape, classes)
	}

	indices, probs := decodeGreedy(out.Data, steps, classes, classesFirst)
	var sb strings.Builder
	for _, idx := range indices {
		sb.WriteString(r.charset.Token(idx))
	}
	text := CleanText(sb.String())
	if text == "" {
		return Line{}, nil
	}
	return Line{Text: text, Confidence: meanConfidence(probs)}, nil
}

// Close releases the model session.
func (r *Recognizer) Close() error {
	if r == nil || r.model == nil {
		return nil
	}
	return r.model.Close()
}

// resizeForRecognition scales img to height, clamps the width to maxWidth and
// pads it on the right to a multiple of padTo.
func resizeForRecognition(img image.Image, height, maxWidth, padTo int) *image.NRGBA {
	b := img.Bounds()
	w := max(1, int(float64(b.Dx())*float64(height)/float64(b.Dy())+0.5))
	if maxWidth > 0 {
		w = min(w, maxWidth)
	}
	resized := imaging.Resize(img, w, height, imaging.Lanczos)

	outW := w
	if padTo > 0 && w%padTo != 0 {
		outW = w + padTo - w%padTo
	}
	if outW == w {
		return resized
	}
	canvas := imaging.New(outW, height, color.Black)
	return imaging.Paste(canvas, resized, image.Pt(0, 0))
}
