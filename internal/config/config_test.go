package config

import (
	"testing"
	"time"

	"github.com/MeKo-Tech/bubbletrans/internal/engine"
	"github.com/MeKo-Tech/bubbletrans/internal/lang"
	"github.com/MeKo-Tech/bubbletrans/internal/models"
	"github.com/MeKo-Tech/bubbletrans/internal/translation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, models.DefaultModelsDir, cfg.ModelsDir)
	assert.Equal(t, infoLevel, cfg.LogLevel)
	assert.Equal(t, models.DetectionBubbles, cfg.Detection.ModelPath)
	assert.InDelta(t, 0.5, cfg.Detection.ConfidenceThreshold, 1e-9)
	assert.InDelta(t, 0.5, cfg.Detection.IoUThreshold, 1e-9)
	assert.Equal(t, 640, cfg.Detection.InputSize)
	assert.Equal(t, 32, cfg.Preprocess.MinSize)
	assert.Equal(t, []string{engine.NamePaddle, engine.NameVision, engine.NameTesseract}, cfg.Engines.Enabled)
	assert.Equal(t, []string{engine.NameVision, engine.NamePaddle, engine.NameTesseract}, cfg.Engines.Priority)
	assert.Equal(t, engine.NamePaddle, cfg.Arbiter.LanguagePriority[lang.Japanese][0])
	assert.InDelta(t, 0.5, cfg.Arbiter.AcceptanceFloor, 1e-9)
	assert.InDelta(t, 0.3, cfg.Arbiter.LengthMargin, 1e-9)
	assert.Equal(t, lang.Japanese, cfg.Translation.SourceLang)
	assert.Equal(t, lang.Russian, cfg.Translation.TargetLang)
	assert.Equal(t, 15*time.Second, cfg.Translation.Timeout)
	assert.Equal(t, 2, cfg.Translation.Retries)
	assert.Equal(t, translation.BackendMemory, cfg.Cache.Backend)
	assert.Zero(t, cfg.Cache.TTL)
	assert.Equal(t, "@every 10m", cfg.Cache.SweepSchedule)
	assert.Positive(t, cfg.Pipeline.Workers)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Server.MaxUploadMB)
	assert.Equal(t, 60, cfg.Server.TimeoutSec)
	assert.False(t, cfg.Server.RateLimit.Enabled)
	assert.Equal(t, 60, cfg.Server.RateLimit.RequestsPerMinute)

	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "invalid log level"},
		{"detection threshold", func(c *Config) { c.Detection.ConfidenceThreshold = 1.5 }, "detection"},
		{"input size", func(c *Config) { c.Detection.InputSize = 100 }, "detection"},
		{"preprocess contrast", func(c *Config) { c.Preprocess.Contrast = 300 }, "preprocess"},
		{"acceptance floor", func(c *Config) { c.Arbiter.AcceptanceFloor = -0.1 }, "arbiter"},
		{"no engines", func(c *Config) { c.Engines.Enabled = nil }, "at least one"},
		{"unknown engine", func(c *Config) { c.Engines.Enabled = []string{"abacus"} }, "unknown recognition engine"},
		{"unknown priority", func(c *Config) { c.Engines.Priority = []string{"abacus"} }, "unknown recognition engine"},
		{"paddle height", func(c *Config) { c.Engines.Paddle.Height = 0 }, "height"},
		{"vision confidence", func(c *Config) { c.Engines.Vision.DefaultConfidence = 2 }, "default_confidence"},
		{"source lang", func(c *Config) { c.Translation.SourceLang = "xx" }, "source_lang"},
		{"target lang empty", func(c *Config) { c.Translation.TargetLang = "" }, "target_lang"},
		{"retries", func(c *Config) { c.Translation.Retries = -1 }, "retries"},
		{"cache backend", func(c *Config) { c.Cache.Backend = "memcached" }, "invalid cache backend"},
		{"redis without url", func(c *Config) { c.Cache.Backend = translation.BackendRedis }, "redis_url"},
		{"postgres without dsn", func(c *Config) { c.Cache.Backend = translation.BackendPostgres }, "cache.dsn"},
		{"negative ttl", func(c *Config) { c.Cache.TTL = -time.Second }, "ttl"},
		{"workers", func(c *Config) { c.Pipeline.Workers = -2 }, "workers"},
		{"port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"upload size", func(c *Config) { c.Server.MaxUploadMB = 0 }, "max_upload_mb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	t.Run("auto source language", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Translation.SourceLang = ""
		assert.NoError(t, cfg.Validate())
	})
}

func TestToPipelineOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ModelsDir = "/opt/models"
	cfg.Detection.ConfidenceThreshold = 0.4
	cfg.Preprocess.MinSize = 48
	cfg.Engines.Enabled = []string{engine.NamePaddle}
	cfg.Engines.Priority = []string{engine.NamePaddle, engine.NameVision}
	cfg.Engines.Tesseract.Languages = []string{"jpn_vert"}
	cfg.Arbiter.LanguagePriority = map[string][]string{"JA-jp": {engine.NameVision}}
	cfg.Arbiter.AcceptanceFloor = 0.7
	cfg.Translation.Enabled = false
	cfg.Translation.Model = "gpt-4o"
	cfg.Translation.Retries = 5
	cfg.Translation.Timeout = 3 * time.Second
	cfg.Cache.Backend = translation.BackendSQLite
	cfg.Cache.DSN = "cache.db"
	cfg.Cache.TTL = time.Hour
	cfg.Pipeline.Workers = 3
	cfg.Pipeline.KeepCandidates = true
	cfg.Pipeline.Warmup = true

	opts := cfg.ToPipelineOptions()

	assert.Equal(t, "/opt/models", opts.ModelsDir)
	assert.InDelta(t, 0.4, opts.Detector.ConfidenceThreshold, 1e-9)
	assert.Equal(t, models.DetectionBubbles, opts.Detector.ModelPath)
	assert.Equal(t, 48, opts.Processing.Preprocess.MinSize)
	assert.Equal(t, 3, opts.Processing.Workers)
	assert.True(t, opts.Processing.KeepCandidates)
	assert.True(t, opts.Processing.RightToLeft)
	assert.Equal(t, []string{engine.NamePaddle}, opts.Engines.Enabled)
	assert.Equal(t, models.RecognitionCJK, opts.Engines.Paddle.ModelPath)
	assert.Equal(t, []string{"jpn_vert"}, opts.Engines.Tesseract.Languages)
	assert.Equal(t, []string{engine.NamePaddle, engine.NameVision}, opts.Arbiter.Priority)
	assert.Equal(t, []string{engine.NameVision}, opts.Arbiter.LanguagePriority["ja"])
	assert.InDelta(t, 0.7, opts.Arbiter.AcceptanceFloor, 1e-9)
	assert.False(t, opts.TranslationEnabled)
	assert.Equal(t, "gpt-4o", opts.Translator.Model)
	assert.Equal(t, 5, opts.Translator.Retries)
	assert.Equal(t, 3*time.Second, opts.Cache.Timeout)
	assert.Equal(t, time.Hour, opts.Cache.TTL)
	assert.Equal(t, translation.BackendSQLite, opts.Store.Backend)
	assert.Equal(t, "cache.db", opts.Store.DSN)
	assert.True(t, opts.Warmup)
}

func TestAPIKeyFallback(t *testing.T) {
	t.Setenv(EnvOpenAIKey, "sk-env")

	cfg := DefaultConfig()
	opts := cfg.ToPipelineOptions()
	assert.Equal(t, "sk-env", opts.Translator.APIKey)
	assert.Equal(t, "sk-env", opts.Engines.Vision.APIKey)

	cfg.Translation.APIKey = "sk-config"
	opts = cfg.ToPipelineOptions()
	assert.Equal(t, "sk-config", opts.Translator.APIKey)
	assert.Equal(t, "sk-env", opts.Engines.Vision.APIKey)
}

func TestShutdownPeriod(t *testing.T) {
	assert.Equal(t, 10*time.Second, ServerConfig{}.ShutdownPeriod())
	assert.Equal(t, 3*time.Second, ServerConfig{ShutdownTimeout: 3}.ShutdownPeriod())
}

func TestRedactedYAML(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Translation.APIKey = "sk-secret"
	cfg.Cache.RedisURL = "redis://user:pw@host:6379/0"

	data, err := yaml.Marshal(cfg.Redacted())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "sk-secret")
	assert.NotContains(t, string(data), "pw@host")
	assert.Equal(t, "sk-secret", cfg.Translation.APIKey)
	assert.Contains(t, string(data), "translation:")
	assert.Contains(t, string(data), "acceptance_floor: 0.5")

	var back Config
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.Equal(t, cfg.Engines.Priority, back.Engines.Priority)
	assert.Equal(t, cfg.Server.Port, back.Server.Port)
}
