// Package pipeline turns a page image into a ProcessedPage: detection, then
// per region preprocessing, recognition, arbitration and translation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MeKo-Tech/bubbletrans/internal/arbiter"
	"github.com/MeKo-Tech/bubbletrans/internal/detector"
	"github.com/MeKo-Tech/bubbletrans/internal/engine"
	"github.com/MeKo-Tech/bubbletrans/internal/preprocess"
	"github.com/MeKo-Tech/bubbletrans/internal/translation"
)

// RegionDetector finds bubble regions on a page.
type RegionDetector interface {
	Detect(ctx context.Context, img image.Image) ([]detector.Region, error)
}

// Config controls page processing.
type Config struct {
	// Workers bounds how many regions are processed at once (0 = NumCPU).
	Workers    int
	Preprocess preprocess.Options
	// RightToLeft ranks regions for right-to-left reading (manga).
	RightToLeft bool
	// KeepCandidates copies every engine candidate into the result.
	KeepCandidates bool
}

// DefaultConfig returns the default processing configuration.
func DefaultConfig() Config {
	return Config{
		Workers:     runtime.NumCPU(),
		Preprocess:  preprocess.DefaultOptions(),
		RightToLeft: true,
	}
}

// Processor runs pages through the cascade. Its collaborators are shared
// across pages and must be safe for concurrent use.
type Processor struct {
	config     Config
	detector   RegionDetector
	engines    []engine.Engine
	arbiter    *arbiter.Arbiter
	cache      *translation.Cache
	translator translation.Translator
	observer   Observer
	closers    []func() error
}

// NewProcessor wires a Processor. translator may be nil, in which case
// regions with text end as StatusSkipped.
func NewProcessor(
	config Config,
	det RegionDetector,
	engines []engine.Engine,
	arb *arbiter.Arbiter,
	cache *translation.Cache,
	translator translation.Translator,
) (*Processor, error) {
	if det == nil {
		return nil, errors.New("pipeline: detector is required")
	}
	if arb == nil {
		return nil, errors.New("pipeline: arbiter is required")
	}
	if config.Workers <= 0 {
		config.Workers = runtime.NumCPU()
	}
	if cache == nil {
		cache = translation.NewCache(nil, translation.CacheConfig{})
	}
	return &Processor{
		config:     config,
		detector:   det,
		engines:    engines,
		arbiter:    arb,
		cache:      cache,
		translator: translator,
		observer:   NopObserver{},
	}, nil
}

// SetObserver installs o for state transition events.
func (p *Processor) SetObserver(o Observer) {
	if o == nil {
		o = NopObserver{}
	}
	p.observer = o
}

// Engines returns the recognition engines.
func (p *Processor) Engines() []engine.Engine { return p.engines }

// Cache returns the translation cache.
func (p *Processor) Cache() *translation.Cache { return p.cache }

// Process runs one page. Detection errors fail the page and are returned
// with a Failed result. Region failures are recorded per region and never
// returned. When ctx is cancelled, regions not yet started are marked
// cancelled, started regions run to completion, and ctx.Err() is returned
// alongside the assembled page.
func (p *Processor) Process(ctx context.Context, page *Page) (*ProcessedPage, error) {
	if page == nil || page.Image == nil {
		return nil, detector.ErrInvalidImage
	}
	start := time.Now()
	b := page.Image.Bounds()
	out := &ProcessedPage{
		PageID:     page.ID,
		Source:     page.Source,
		Width:      b.Dx(),
		Height:     b.Dy(),
		SourceLang: page.SourceLang,
		TargetLang: page.TargetLang,
		Regions:    []RegionResult{},
	}

	p.setState(out, StateDetecting)
	regions, err := p.detector.Detect(ctx, page.Image)
	if err != nil {
		out.Error = err.Error()
		p.setState(out, StateFailed)
		slog.Warn("Page detection failed", "page_id", page.ID, "error", err)
		return out, fmt.Errorf("detect page %s: %w", page.ID, err)
	}
	ranks := detector.ReadingRanks(regions, p.config.RightToLeft)

	p.setState(out, StateRegions)
	results := make([]RegionResult, len(regions))
	for i, r := range regions {
		results[i] = RegionResult{
			Index:               r.Index,
			ReadingIndex:        ranks[i],
			Box:                 r.Box,
			DetectionConfidence: r.Confidence,
			Status:              StatusCancelled,
		}
	}
	cancelled := p.runRegions(ctx, page, results)

	p.setState(out, StateAssembling)
	out.Regions = results
	out.Summary = Summarize(results, time.Since(start))
	p.setState(out, StateDone)

	slog.Info("Page processed",
		"page_id", page.ID,
		"regions", out.Summary.TotalRegions,
		"translated", out.Summary.TranslatedRegions,
		"duration_ms", out.Summary.ProcessingTimeMs)

	if cancelled {
		return out, ctx.Err()
	}
	return out, nil
}

// runRegions processes regions with bounded parallelism. Each worker writes
// only its own slot. It reports whether scheduling stopped early.
func (p *Processor) runRegions(ctx context.Context, page *Page, results []RegionResult) bool {
	var g errgroup.Group
	g.SetLimit(p.config.Workers)
	// Work that has started is not interrupted by page cancellation.
	work := context.WithoutCancel(ctx)

	stopped := false
	for i := range results {
		if ctx.Err() != nil {
			stopped = true
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			p.processRegion(work, page, &results[i])
			return nil
		})
	}
	_ = g.Wait()
	if !stopped {
		for _, r := range results {
			if r.Status == StatusCancelled {
				stopped = true
				break
			}
		}
	}
	return stopped
}

func (p *Processor) processRegion(ctx context.Context, page *Page, res *RegionResult) {
	notify := func(s State) { p.observer.OnRegionState(page.ID, res.Index, s) }

	notify(StatePreprocessing)
	crop, err := preprocess.Prepare(page.Image, res.Box, p.config.Preprocess)
	if err != nil {
		res.Status = StatusPreprocessFailed
		res.Error = err.Error()
		slog.Debug("Region preprocessing failed", "page_id", page.ID, "region", res.Index, "error", err)
		return
	}

	notify(StateRecognizing)
	var langs []string
	if page.SourceLang != "" {
		langs = []string{page.SourceLang}
	}
	cands := engine.RecognizeAll(ctx, p.engines, crop, langs)
	if p.config.KeepCandidates {
		res.Candidates = cands
	}

	notify(StateArbitrating)
	best := p.arbiter.Arbitrate(cands, page.SourceLang)
	res.Text = best.Text
	res.Confidence = best.Confidence
	res.Engine = best.Engine
	res.Tier = best.Tier
	res.Language = page.SourceLang
	if res.Language == "" {
		res.Language = best.Language
	}
	if best.NoText {
		res.Status = StatusNoText
		return
	}
	if p.translator == nil || page.TargetLang == "" {
		res.Status = StatusSkipped
		return
	}

	notify(StateTranslating)
	translated, err := p.cache.GetOrTranslate(ctx, res.Text, res.Language, page.TargetLang, p.translator)
	if err != nil {
		res.Status = StatusTranslationFailed
		res.Error = err.Error()
		slog.Warn("Region translation failed", "page_id", page.ID, "region", res.Index, "error", err)
		return
	}
	res.Translation = translated
	res.Status = StatusTranslated
}

func (p *Processor) setState(out *ProcessedPage, s State) {
	out.State = s
	p.observer.OnPageState(out.PageID, s)
}

// Close releases engines, the detector and anything the builder opened.
func (p *Processor) Close() error {
	var errs []error
	for _, c := range p.closers {
		errs = append(errs, c())
	}
	for _, e := range p.engines {
		if c, ok := e.(interface{ Close() error }); ok {
			errs = append(errs, c.Close())
		}
	}
	if c, ok := p.detector.(interface{ Close() error }); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
