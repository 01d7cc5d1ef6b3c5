// Package detector locates speech-bubble regions on a comic page.
package detector

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/bubbletrans/internal/onnx"
	"github.com/MeKo-Tech/bubbletrans/internal/utils"
)

var (
	// ErrInvalidImage is returned when the page cannot be decoded or has no pixels.
	ErrInvalidImage = errors.New("invalid image")
	// ErrModelUnavailable is returned when the detection weights are missing or unusable.
	ErrModelUnavailable = errors.New("detection model unavailable")
)

// Config holds detector settings.
type Config struct {
	ModelPath           string
	ConfidenceThreshold float64
	IoUThreshold        float64
	InputSize           int
	NumThreads          int
}

// DefaultConfig returns the default detector configuration.
func DefaultConfig() Config {
	return Config{
		ConfidenceThreshold: 0.5,
		IoUThreshold:        0.5,
		InputSize:           640,
	}
}

// Validate checks that thresholds and sizes are usable.
func (c Config) Validate() error {
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence threshold must be in [0,1], got %f", c.ConfidenceThreshold)
	}
	if c.IoUThreshold < 0 || c.IoUThreshold > 1 {
		return fmt.Errorf("IoU threshold must be in [0,1], got %f", c.IoUThreshold)
	}
	if c.InputSize < 32 || c.InputSize%32 != 0 {
		return fmt.Errorf("input size must be a positive multiple of 32, got %d", c.InputSize)
	}
	return nil
}

// Region is one detected bubble. Index is its position in detection order.
type Region struct {
	Index      int       `json:"index"`
	Box        utils.Box `json:"box"`
	Confidence float64   `json:"confidence"`
}

// runner executes the detection network on a prepared tensor.
type runner interface {
	Run(t onnx.Tensor) (onnx.Tensor, error)
	Close() error
}

// Detector runs the bubble detection model. The model is loaded once by
// NewDetector and shared by all Detect calls.
type Detector struct {
	config Config
	model  runner
}

// NewDetector loads the detection model. A missing or unreadable model yields ErrModelUnavailable.
func NewDetector(config Config) (*Detector, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.ModelPath == "" {
		return nil, fmt.Errorf("%w: model path is empty", ErrModelUnavailable)
	}

	slog.Debug("Initializing bubble detector",
		"model_path", config.ModelPath,
		"input_size", config.InputSize,
		"threshold", config.ConfidenceThreshold)

	session, err := onnx.NewSession(config.ModelPath, config.NumThreads)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}
	return &Detector{config: config, model: session}, nil
}

func newDetectorWithRunner(config Config, r runner) *Detector {
	return &Detector{config: config, model: r}
}

// Config returns the detector configuration.
func (d *Detector) Config() Config { return d.config }

// Detect returns the bubble regions of img above the confidence threshold,
// clamped to the image and deduplicated by IoU.
func (d *Detector) Detect(ctx context.Context, img image.Image) ([]Region, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrInvalidImage
	}
	if d == nil || d.model == nil {
		return nil, ErrModelUnavailable
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	lb := letterbox(img, d.config.InputSize)
	in, err := onnx.ImageToTensor(lb.image, onnx.UnitNormalization)
	if err != nil {
		return nil, fmt.Errorf("prepare detection input: %w", err)
	}

	out, err := d.model.Run(in)
	in.Release()
	if err != nil {
		return nil, fmt.Errorf("detection inference: %w", err)
	}

	raw, err := decodeOutput(out)
	if err != nil {
		return nil, err
	}
	for i := range raw {
		raw[i].Box = lb.toPage(raw[i].Box)
	}

	regions := Postprocess(raw, img.Bounds(), d.config.ConfidenceThreshold, d.config.IoUThreshold)
	slog.Debug("Detection complete",
		"candidates", len(raw),
		"regions", len(regions),
		"duration_ms", time.Since(start).Milliseconds())
	return regions, nil
}

// Close releases the model session.
func (d *Detector) Close() error {
	if d == nil || d.model == nil {
		return nil
	}
	return d.model.Close()
}
