package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/bubbletrans/internal/arbiter"
	"github.com/MeKo-Tech/bubbletrans/internal/detector"
	"github.com/MeKo-Tech/bubbletrans/internal/engine"
	"github.com/MeKo-Tech/bubbletrans/internal/models"
	"github.com/MeKo-Tech/bubbletrans/internal/recognizer"
	"github.com/MeKo-Tech/bubbletrans/internal/translation"
)

// Options gathers the settings of every component a Processor is built from.
type Options struct {
	ModelsDir  string
	Detector   detector.Config
	Engines    engine.Config
	Arbiter    arbiter.Config
	Processing Config

	// TranslationEnabled turns on the OpenAI translator when no translator is injected.
	TranslationEnabled bool
	Translator         translation.OpenAIConfig
	Cache              translation.CacheConfig
	Store              translation.StoreConfig
	SweepSchedule      string

	// Warmup loads every engine while building instead of on first use.
	Warmup bool
}

// DefaultOptions returns defaults for all components.
func DefaultOptions() Options {
	paddle := recognizer.DefaultConfig()
	paddle.ModelPath = models.RecognitionCJK
	paddle.DictPath = models.DictionaryCJK

	det := detector.DefaultConfig()
	det.ModelPath = models.DetectionBubbles

	return Options{
		ModelsDir: models.GetModelsDir(""),
		Detector:  det,
		Engines: engine.Config{
			Enabled: []string{engine.NamePaddle, engine.NameVision, engine.NameTesseract},
			Paddle:  paddle,
			Vision:  engine.DefaultVisionConfig(),
		},
		Arbiter:            arbiter.DefaultConfig(),
		Processing:         DefaultConfig(),
		TranslationEnabled: true,
		Translator:         translation.DefaultOpenAIConfig(),
		Cache:              translation.CacheConfig{Timeout: translation.DefaultTimeout},
		Store:              translation.StoreConfig{Backend: translation.BackendMemory},
		SweepSchedule:      translation.DefaultSweepSchedule,
	}
}

// Builder constructs a Processor with fluent configuration.
type Builder struct {
	opts       Options
	detector   RegionDetector
	engines    []engine.Engine
	translator translation.Translator
	observer   Observer
}

// NewBuilder creates a builder with default options.
func NewBuilder() *Builder { return &Builder{opts: DefaultOptions()} }

// NewBuilderWithOptions creates a builder from prepared options.
func NewBuilderWithOptions(opts Options) *Builder { return &Builder{opts: opts} }

// WithModelsDir sets the directory relative model paths resolve against.
func (b *Builder) WithModelsDir(dir string) *Builder {
	if dir != "" {
		b.opts.ModelsDir = dir
	}
	return b
}

// WithDetectorThresholds sets the confidence and overlap cutoffs.
func (b *Builder) WithDetectorThresholds(confidence, iou float64) *Builder {
	if confidence > 0 {
		b.opts.Detector.ConfidenceThreshold = confidence
	}
	if iou > 0 {
		b.opts.Detector.IoUThreshold = iou
	}
	return b
}

// WithEngines selects the engines to build, in order.
func (b *Builder) WithEngines(names ...string) *Builder {
	if len(names) > 0 {
		b.opts.Engines.Enabled = names
	}
	return b
}

// WithPriority sets the default engine priority.
func (b *Builder) WithPriority(names ...string) *Builder {
	if len(names) > 0 {
		b.opts.Arbiter.Priority = names
	}
	return b
}

// WithAcceptanceFloor sets the minimum confidence that lets a lower-priority engine win.
func (b *Builder) WithAcceptanceFloor(floor float64) *Builder {
	b.opts.Arbiter.AcceptanceFloor = floor
	return b
}

// WithMinRegionSize sets the size below which crops are upscaled.
func (b *Builder) WithMinRegionSize(px int) *Builder {
	if px > 0 {
		b.opts.Processing.Preprocess.MinSize = px
	}
	return b
}

// WithWorkers sets region parallelism.
func (b *Builder) WithWorkers(n int) *Builder {
	if n > 0 {
		b.opts.Processing.Workers = n
	}
	return b
}

// WithThreads sets ONNX intra-op threads for the detector and recognizer.
func (b *Builder) WithThreads(n int) *Builder {
	if n > 0 {
		b.opts.Detector.NumThreads = n
		b.opts.Engines.Paddle.NumThreads = n
	}
	return b
}

// WithDetector injects a ready detector instead of loading the model.
func (b *Builder) WithDetector(d RegionDetector) *Builder {
	b.detector = d
	return b
}

// WithRecognitionEngines injects ready engines instead of building them from options.
func (b *Builder) WithRecognitionEngines(engines ...engine.Engine) *Builder {
	b.engines = engines
	return b
}

// WithTranslator injects the translation collaborator.
func (b *Builder) WithTranslator(t translation.Translator) *Builder {
	b.translator = t
	return b
}

// WithObserver installs a state observer on the built processor.
func (b *Builder) WithObserver(o Observer) *Builder {
	b.observer = o
	return b
}

// Options returns a copy of the current options.
func (b *Builder) Options() Options { return b.opts }

// Validate checks component settings.
func (b *Builder) Validate() error {
	if b.detector == nil {
		if err := b.opts.Detector.Validate(); err != nil {
			return fmt.Errorf("detector: %w", err)
		}
	}
	if err := b.opts.Processing.Preprocess.Validate(); err != nil {
		return fmt.Errorf("preprocess: %w", err)
	}
	if err := b.opts.Arbiter.Validate(); err != nil {
		return fmt.Errorf("arbiter: %w", err)
	}
	for _, name := range b.opts.Engines.Enabled {
		if !engine.Known(name) {
			return fmt.Errorf("unknown recognition engine %q", name)
		}
	}
	return nil
}

// openDetector loads the detection model. Tests replace it.
var openDetector = func(cfg detector.Config) (RegionDetector, error) {
	d, err := detector.NewDetector(cfg)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Build creates the Processor. A missing detection model fails the build;
// recognition engines load lazily unless Warmup is set.
func (b *Builder) Build(ctx context.Context) (*Processor, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	// closers move to the processor; owned is only released when Build fails.
	var closers, owned []func() error
	fail := func(err error) (*Processor, error) {
		for _, c := range append(closers, owned...) {
			_ = c()
		}
		return nil, err
	}

	det := b.detector
	if det == nil {
		cfg := b.opts.Detector
		cfg.ModelPath = models.Resolve(b.opts.ModelsDir, cfg.ModelPath)
		d, err := openDetector(cfg)
		if err != nil {
			return nil, err
		}
		det = d
		if c, ok := d.(interface{ Close() error }); ok {
			owned = append(owned, c.Close)
		}
	}

	engines := b.engines
	if engines == nil {
		cfg := b.opts.Engines
		cfg.Paddle.ModelPath = models.Resolve(b.opts.ModelsDir, cfg.Paddle.ModelPath)
		cfg.Paddle.DictPath = models.Resolve(b.opts.ModelsDir, cfg.Paddle.DictPath)
		built, err := engine.Build(cfg)
		if err != nil {
			return fail(err)
		}
		for _, g := range built {
			owned = append(owned, g.Close)
			if b.opts.Warmup {
				_ = g.Ready(ctx)
			}
			engines = append(engines, g)
		}
	}

	store, err := translation.OpenStore(ctx, b.opts.Store)
	if err != nil {
		return fail(fmt.Errorf("translation cache: %w", err))
	}
	cache := translation.NewCache(store, b.opts.Cache)
	closers = append(closers, cache.Close)

	if b.opts.Cache.TTL > 0 && b.opts.Store.Backend != translation.BackendRedis {
		sweeper, err := translation.NewSweeper(store, b.opts.SweepSchedule)
		if err != nil {
			return fail(err)
		}
		sweeper.Start()
		closers = append([]func() error{func() error { sweeper.Stop(); return nil }}, closers...)
	}

	tr := b.translator
	if tr == nil && b.opts.TranslationEnabled {
		client, err := translation.NewOpenAI(b.opts.Translator)
		if err != nil {
			slog.Warn("Translation disabled", "error", err)
		} else {
			tr = client
		}
	}

	p, err := NewProcessor(b.opts.Processing, det, engines, arbiter.New(b.opts.Arbiter), cache, tr)
	if err != nil {
		return fail(err)
	}
	p.closers = closers
	if b.observer != nil {
		p.SetObserver(b.observer)
	}
	return p, nil
}
