// Package engine defines the text recognition capability and its implementations.
package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"sync"

	"github.com/MeKo-Tech/bubbletrans/internal/lang"
	"github.com/MeKo-Tech/bubbletrans/internal/recognizer"
)

// Engine names.
const (
	NamePaddle    = "paddle"
	NameVision    = "vision"
	NameTesseract = "tesseract"
)

var (
	// ErrModelUnavailable marks an engine whose model or credentials could not be loaded.
	ErrModelUnavailable = errors.New("recognition model unavailable")
	// ErrEngineDisabled marks an engine compiled out of this binary.
	ErrEngineDisabled = errors.New("recognition engine not built into this binary")
)

// Candidate is one engine's reading of one region. Empty Text means the
// engine found nothing.
type Candidate struct {
	Engine     string  `json:"engine"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Language   string  `json:"language,omitempty"`
}

// Engine converts a prepared region image into text candidates. Implementations
// never fail: internal errors yield an empty result.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, img image.Image, langs []string) []Candidate
}

// Backend is a concrete recognizer that may fail. Wrap it with Guard to get an Engine.
type Backend interface {
	Name() string
	Load(ctx context.Context) error
	Recognize(ctx context.Context, img image.Image, langs []string) ([]Candidate, error)
	Close() error
}

// Guarded adapts a Backend into an Engine. The backend is loaded on first use
// and at most once; Recognize calls are serialized per instance unless the
// backend is marked concurrent.
type Guarded struct {
	backend    Backend
	concurrent bool

	loadOnce sync.Once
	loadErr  error
	mu       sync.Mutex
}

// Guard wraps b. concurrent allows overlapping Recognize calls on b.
func Guard(b Backend, concurrent bool) *Guarded {
	return &Guarded{backend: b, concurrent: concurrent}
}

// Name returns the backend name.
func (g *Guarded) Name() string { return g.backend.Name() }

// Ready loads the backend if needed and reports the load outcome.
func (g *Guarded) Ready(ctx context.Context) error {
	g.loadOnce.Do(func() {
		g.loadErr = safeLoad(ctx, g.backend)
		if g.loadErr != nil {
			slog.Warn("Recognition engine unavailable", "engine", g.Name(), "error", g.loadErr)
		} else {
			slog.Debug("Recognition engine loaded", "engine", g.Name())
		}
	})
	return g.loadErr
}

func safeLoad(ctx context.Context, b Backend) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: load panicked: %v", ErrModelUnavailable, r)
		}
	}()
	return b.Load(ctx)
}

// Recognize runs the backend and normalizes its candidates. Failures and
// panics are logged and produce an empty result.
func (g *Guarded) Recognize(ctx context.Context, img image.Image, langs []string) (out []Candidate) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("Recognition engine panicked", "engine", g.Name(), "panic", r)
			out = nil
		}
	}()

	if err := g.Ready(ctx); err != nil {
		slog.Debug("Skipping unavailable engine", "engine", g.Name())
		return nil
	}
	if img == nil || img.Bounds().Empty() {
		slog.Warn("Recognition skipped for empty image", "engine", g.Name())
		return nil
	}

	if !g.concurrent {
		g.mu.Lock()
		defer g.mu.Unlock()
	}

	cands, err := g.backend.Recognize(ctx, img, langs)
	if err != nil {
		slog.Warn("Recognition failed", "engine", g.Name(), "error", err)
		return nil
	}
	return normalize(g.Name(), cands)
}

// Close releases the backend.
func (g *Guarded) Close() error { return g.backend.Close() }

func normalize(name string, cands []Candidate) []Candidate {
	out := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		c.Engine = name
		c.Text = recognizer.CleanText(c.Text)
		switch {
		case math.IsNaN(c.Confidence) || c.Confidence < 0:
			c.Confidence = 0
		case c.Confidence > 1:
			c.Confidence = 1
		}
		if c.Language == "" {
			c.Language = lang.DetectScript(c.Text)
		}
		out = append(out, c)
	}
	return out
}

// RecognizeAll runs every engine on img concurrently and returns the
// candidates grouped in engine order.
func RecognizeAll(ctx context.Context, engines []Engine, img image.Image, langs []string) []Candidate {
	results := make([][]Candidate, len(engines))
	var wg sync.WaitGroup
	for i, e := range engines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = e.Recognize(ctx, img, langs)
		}()
	}
	wg.Wait()

	var all []Candidate
	for _, r := range results {
		all = append(all, r...)
	}
	return all
}
