package engine

import (
	"fmt"

	"github.com/MeKo-Tech/bubbletrans/internal/recognizer"
)

// Config selects and configures the engines to build.
type Config struct {
	Enabled   []string
	Paddle    recognizer.Config
	Vision    VisionConfig
	Tesseract TesseractConfig
}

// Known reports whether name is a built-in engine.
func Known(name string) bool {
	switch name {
	case NamePaddle, NameVision, NameTesseract:
		return true
	}
	return false
}

// New builds the guarded engine called name.
func New(name string, cfg Config) (*Guarded, error) {
	switch name {
	case NamePaddle:
		return Guard(NewPaddle(cfg.Paddle), false), nil
	case NameVision:
		return Guard(NewVision(cfg.Vision), true), nil
	case NameTesseract:
		return Guard(NewTesseract(cfg.Tesseract), false), nil
	default:
		return nil, fmt.Errorf("unknown recognition engine %q", name)
	}
}

// Build creates every enabled engine in order. Models are not loaded until first use.
func Build(cfg Config) ([]*Guarded, error) {
	out := make([]*Guarded, 0, len(cfg.Enabled))
	seen := map[string]bool{}
	for _, name := range cfg.Enabled {
		if seen[name] {
			continue
		}
		seen[name] = true
		g, err := New(name, cfg)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}
