package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/MeKo-Tech/bubbletrans/internal/arbiter"
	"github.com/MeKo-Tech/bubbletrans/internal/detector"
	"github.com/MeKo-Tech/bubbletrans/internal/engine"
	"github.com/MeKo-Tech/bubbletrans/internal/lang"
	"github.com/MeKo-Tech/bubbletrans/internal/models"
	"github.com/MeKo-Tech/bubbletrans/internal/pipeline"
	"github.com/MeKo-Tech/bubbletrans/internal/preprocess"
	"github.com/MeKo-Tech/bubbletrans/internal/recognizer"
	"github.com/MeKo-Tech/bubbletrans/internal/translation"
)

// EnvOpenAIKey is consulted when neither the vision engine nor the translator
// has an API key configured.
const EnvOpenAIKey = "OPENAI_API_KEY"

const (
	debugLevel = "debug"
	infoLevel  = "info"
)

// DefaultConfig returns a configuration with the defaults of every component.
func DefaultConfig() Config {
	det := detector.DefaultConfig()
	pre := preprocess.DefaultOptions()
	rec := recognizer.DefaultConfig()
	vis := engine.DefaultVisionConfig()
	arb := arbiter.DefaultConfig()
	tr := translation.DefaultOpenAIConfig()
	proc := pipeline.DefaultConfig()

	return Config{
		ModelsDir: models.DefaultModelsDir,
		LogLevel:  infoLevel,
		Detection: DetectionConfig{
			ModelPath:           models.DetectionBubbles,
			ConfidenceThreshold: det.ConfidenceThreshold,
			IoUThreshold:        det.IoUThreshold,
			InputSize:           det.InputSize,
			NumThreads:          det.NumThreads,
		},
		Preprocess: PreprocessConfig{
			Margin:       pre.Margin,
			MinSize:      pre.MinSize,
			MinCrop:      pre.MinCrop,
			Contrast:     pre.Contrast,
			DenoiseSigma: pre.DenoiseSigma,
			SharpenSigma: pre.SharpenSigma,
		},
		Engines: EnginesConfig{
			Enabled:  []string{engine.NamePaddle, engine.NameVision, engine.NameTesseract},
			Priority: slices.Clone(arb.Priority),
			Paddle: PaddleConfig{
				ModelPath:     models.RecognitionCJK,
				DictPath:      models.DictionaryCJK,
				Height:        rec.Height,
				MaxWidth:      rec.MaxWidth,
				NumThreads:    rec.NumThreads,
				VerticalRatio: rec.VerticalRatio,
			},
			Vision: VisionConfig{
				Model:             vis.Model,
				Timeout:           vis.Timeout,
				DefaultConfidence: vis.DefaultConfidence,
			},
		},
		Arbiter: ArbiterConfig{
			AcceptanceFloor:  arb.AcceptanceFloor,
			LengthMargin:     arb.LengthMargin,
			LanguagePriority: arb.LanguagePriority,
		},
		Translation: TranslationConfig{
			Enabled:    true,
			SourceLang: lang.Japanese,
			TargetLang: lang.Russian,
			Model:      tr.Model,
			Timeout:    translation.DefaultTimeout,
			Retries:    tr.Retries,
		},
		Cache: CacheConfig{
			Backend:       translation.BackendMemory,
			SweepSchedule: translation.DefaultSweepSchedule,
		},
		Pipeline: PipelineConfig{
			Workers:     proc.Workers,
			RightToLeft: proc.RightToLeft,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     10,
			TimeoutSec:      60,
			ShutdownTimeout: 10,
			RateLimit: RateLimitConfig{
				RequestsPerMinute: 60,
			},
		},
	}
}

// Validate validates the configuration and returns the first problem found.
func (c *Config) Validate() error {
	validLogLevels := []string{debugLevel, infoLevel, "warn", "error"}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	if err := c.toDetectorConfig().Validate(); err != nil {
		return fmt.Errorf("detection: %w", err)
	}
	if err := c.toPreprocessOptions().Validate(); err != nil {
		return fmt.Errorf("preprocess: %w", err)
	}
	if err := c.toArbiterConfig().Validate(); err != nil {
		return fmt.Errorf("arbiter: %w", err)
	}

	if len(c.Engines.Enabled) == 0 {
		return fmt.Errorf("at least one recognition engine must be enabled")
	}
	for _, name := range slices.Concat(c.Engines.Enabled, c.Engines.Priority) {
		if !engine.Known(name) {
			return fmt.Errorf("unknown recognition engine: %s", name)
		}
	}
	if c.Engines.Paddle.Height <= 0 {
		return fmt.Errorf("engines.paddle.height must be positive, got %d", c.Engines.Paddle.Height)
	}
	if d := c.Engines.Vision.DefaultConfidence; d < 0 || d > 1 {
		return fmt.Errorf("engines.vision.default_confidence must be in [0,1], got %f", d)
	}

	if err := validateLanguage("translation.source_lang", c.Translation.SourceLang, true); err != nil {
		return err
	}
	if err := validateLanguage("translation.target_lang", c.Translation.TargetLang, false); err != nil {
		return err
	}
	if c.Translation.Retries < 0 {
		return fmt.Errorf("translation.retries must be >= 0, got %d", c.Translation.Retries)
	}
	if c.Translation.Timeout < 0 {
		return fmt.Errorf("translation.timeout must be >= 0, got %s", c.Translation.Timeout)
	}

	if !slices.Contains(translation.Backends, c.Cache.Backend) {
		return fmt.Errorf("invalid cache backend: %s (must be one of: %s)", c.Cache.Backend, strings.Join(translation.Backends, ", "))
	}
	if c.Cache.Backend == translation.BackendRedis && c.Cache.RedisURL == "" {
		return fmt.Errorf("cache.redis_url is required for the redis backend")
	}
	if c.Cache.Backend == translation.BackendPostgres && c.Cache.DSN == "" {
		return fmt.Errorf("cache.dsn is required for the postgres backend")
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must be >= 0, got %s", c.Cache.TTL)
	}

	if c.Pipeline.Workers < 0 {
		return fmt.Errorf("pipeline.workers must be >= 0, got %d", c.Pipeline.Workers)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1,65535], got %d", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("server.max_upload_mb must be positive, got %d", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("server.timeout_sec must be positive, got %d", c.Server.TimeoutSec)
	}

	return nil
}

// validateLanguage accepts supported codes; the source may be empty for auto-detection.
func validateLanguage(key, code string, allowEmpty bool) error {
	if code == "" && allowEmpty {
		return nil
	}
	if !lang.IsSupported(code) {
		return fmt.Errorf("invalid %s: %q (must be one of: %s)", key, code, strings.Join(lang.Supported, ", "))
	}
	return nil
}

// ToPipelineOptions converts the configuration to processor build options.
func (c *Config) ToPipelineOptions() pipeline.Options {
	opts := pipeline.DefaultOptions()
	opts.ModelsDir = models.GetModelsDir(c.ModelsDir)
	opts.Detector = c.toDetectorConfig()
	opts.Engines = c.toEngineConfig()
	opts.Arbiter = c.toArbiterConfig()
	opts.Processing = pipeline.Config{
		Workers:        c.Pipeline.Workers,
		Preprocess:     c.toPreprocessOptions(),
		RightToLeft:    c.Pipeline.RightToLeft,
		KeepCandidates: c.Pipeline.KeepCandidates,
	}
	opts.TranslationEnabled = c.Translation.Enabled
	opts.Translator = c.toTranslatorConfig()
	opts.Cache = translation.CacheConfig{TTL: c.Cache.TTL, Timeout: c.Translation.Timeout}
	opts.Store = translation.StoreConfig{
		Backend:  c.Cache.Backend,
		RedisURL: c.Cache.RedisURL,
		DSN:      c.Cache.DSN,
	}
	if c.Cache.SweepSchedule != "" {
		opts.SweepSchedule = c.Cache.SweepSchedule
	}
	opts.Warmup = c.Pipeline.Warmup
	return opts
}

func (c *Config) toDetectorConfig() detector.Config {
	return detector.Config{
		ModelPath:           c.Detection.ModelPath,
		ConfidenceThreshold: c.Detection.ConfidenceThreshold,
		IoUThreshold:        c.Detection.IoUThreshold,
		InputSize:           c.Detection.InputSize,
		NumThreads:          c.Detection.NumThreads,
	}
}

func (c *Config) toPreprocessOptions() preprocess.Options {
	return preprocess.Options{
		Margin:       c.Preprocess.Margin,
		MinSize:      c.Preprocess.MinSize,
		MinCrop:      c.Preprocess.MinCrop,
		Contrast:     c.Preprocess.Contrast,
		DenoiseSigma: c.Preprocess.DenoiseSigma,
		SharpenSigma: c.Preprocess.SharpenSigma,
	}
}

func (c *Config) toEngineConfig() engine.Config {
	vis := engine.DefaultVisionConfig()
	vis.APIKey = apiKey(c.Engines.Vision.APIKey)
	vis.BaseURL = c.Engines.Vision.BaseURL
	if c.Engines.Vision.Model != "" {
		vis.Model = c.Engines.Vision.Model
	}
	if c.Engines.Vision.Timeout > 0 {
		vis.Timeout = c.Engines.Vision.Timeout
	}
	vis.DefaultConfidence = c.Engines.Vision.DefaultConfidence

	return engine.Config{
		Enabled: slices.Clone(c.Engines.Enabled),
		Paddle: recognizer.Config{
			ModelPath:     c.Engines.Paddle.ModelPath,
			DictPath:      c.Engines.Paddle.DictPath,
			Height:        c.Engines.Paddle.Height,
			MaxWidth:      c.Engines.Paddle.MaxWidth,
			NumThreads:    c.Engines.Paddle.NumThreads,
			VerticalRatio: c.Engines.Paddle.VerticalRatio,
		},
		Vision:    vis,
		Tesseract: engine.TesseractConfig{Languages: slices.Clone(c.Engines.Tesseract.Languages)},
	}
}

func (c *Config) toArbiterConfig() arbiter.Config {
	cfg := arbiter.DefaultConfig()
	if len(c.Engines.Priority) > 0 {
		cfg.Priority = slices.Clone(c.Engines.Priority)
	}
	if c.Arbiter.LanguagePriority != nil {
		cfg.LanguagePriority = make(map[string][]string, len(c.Arbiter.LanguagePriority))
		for code, order := range c.Arbiter.LanguagePriority {
			cfg.LanguagePriority[lang.Normalize(code)] = slices.Clone(order)
		}
	}
	cfg.AcceptanceFloor = c.Arbiter.AcceptanceFloor
	cfg.LengthMargin = c.Arbiter.LengthMargin
	return cfg
}

func (c *Config) toTranslatorConfig() translation.OpenAIConfig {
	cfg := translation.DefaultOpenAIConfig()
	cfg.APIKey = apiKey(c.Translation.APIKey)
	cfg.BaseURL = c.Translation.BaseURL
	if c.Translation.Model != "" {
		cfg.Model = c.Translation.Model
	}
	cfg.Retries = c.Translation.Retries
	return cfg
}

// apiKey falls back to the conventional OpenAI environment variable.
func apiKey(configured string) string {
	if configured != "" {
		return configured
	}
	return os.Getenv(EnvOpenAIKey)
}

// ShutdownPeriod returns the server drain period.
func (s ServerConfig) ShutdownPeriod() time.Duration {
	if s.ShutdownTimeout <= 0 {
		return 10 * time.Second
	}
	return time.Duration(s.ShutdownTimeout) * time.Second
}

// Redacted returns a copy safe to print, with credentials masked.
func (c Config) Redacted() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "****"
	}
	c.Engines.Vision.APIKey = mask(c.Engines.Vision.APIKey)
	c.Translation.APIKey = mask(c.Translation.APIKey)
	c.Cache.DSN = mask(c.Cache.DSN)
	c.Cache.RedisURL = mask(c.Cache.RedisURL)
	return c
}
