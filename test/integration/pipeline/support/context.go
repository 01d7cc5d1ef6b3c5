package support

import (
	"context"
	"fmt"
	"image"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/MeKo-Tech/bubbletrans/internal/detector"
	"github.com/MeKo-Tech/bubbletrans/internal/engine"
	"github.com/MeKo-Tech/bubbletrans/internal/pipeline"
	"github.com/MeKo-Tech/bubbletrans/internal/testutil"
	"github.com/MeKo-Tech/bubbletrans/internal/translation"
)

// TestContext holds the state of one scenario.
type TestContext struct {
	Bubbles      int
	DetectionErr error
	SourceLang   string
	TargetLang   string

	Engines         []*ScriptedEngine
	FailingTexts    map[string]bool
	TranslatorCalls atomic.Int64

	Result  *pipeline.ProcessedPage
	LastErr error
}

// NewTestContext returns a context for a Japanese to English page.
func NewTestContext() *TestContext {
	return &TestContext{
		SourceLang:   "ja",
		TargetLang:   "en",
		FailingTexts: map[string]bool{},
	}
}

// ScriptedEngine answers each region with the next scripted candidate.
// Regions are processed one at a time, so answers follow reading order.
type ScriptedEngine struct {
	name    string
	mu      sync.Mutex
	answers []*engine.Candidate
}

func (e *ScriptedEngine) Name() string { return e.name }

func (e *ScriptedEngine) Recognize(context.Context, image.Image, []string) []engine.Candidate {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.answers) == 0 {
		return nil
	}
	next := e.answers[0]
	e.answers = e.answers[1:]
	if next == nil {
		return nil
	}
	return []engine.Candidate{*next}
}

func (c *TestContext) engineNamed(name string) *ScriptedEngine {
	for _, e := range c.Engines {
		if e.name == name {
			return e
		}
	}
	e := &ScriptedEngine{name: name}
	c.Engines = append(c.Engines, e)
	return e
}

type fakeDetector struct {
	regions []detector.Region
	err     error
}

func (d fakeDetector) Detect(context.Context, image.Image) ([]detector.Region, error) {
	return slices.Clone(d.regions), d.err
}

func (c *TestContext) page() (*pipeline.Page, fakeDetector) {
	img, boxes := testutil.BubblePage(c.Bubbles)
	det := fakeDetector{err: c.DetectionErr}
	for i, box := range boxes {
		det.regions = append(det.regions, detector.Region{Index: i, Box: box, Confidence: 0.9})
	}

	page, err := pipeline.NewPage(img, c.SourceLang, c.TargetLang)
	if err != nil {
		panic(fmt.Sprintf("building page: %v", err))
	}
	page.Source = "scenario.png"
	return page, det
}

func (c *TestContext) translator() translation.Translator {
	return translation.Func(func(_ context.Context, text, _, dst string) (string, error) {
		c.TranslatorCalls.Add(1)
		if c.FailingTexts[text] {
			return "", fmt.Errorf("provider rejected %q", text)
		}
		return dst + ":" + text, nil
	})
}

// Process builds a processor from the scenario's collaborators and runs the page.
func (c *TestContext) Process(ctx context.Context) error {
	page, det := c.page()

	engines := make([]engine.Engine, 0, len(c.Engines))
	for _, e := range c.Engines {
		engines = append(engines, e)
	}

	opts := pipeline.DefaultOptions()
	opts.Processing.Workers = 1
	opts.TranslationEnabled = false
	proc, err := pipeline.NewBuilderWithOptions(opts).
		WithDetector(det).
		WithRecognitionEngines(engines...).
		WithTranslator(c.translator()).
		Build(ctx)
	if err != nil {
		return fmt.Errorf("building processor: %w", err)
	}
	defer func() { _ = proc.Close() }()

	c.Result, c.LastErr = proc.Process(ctx, page)
	return nil
}
