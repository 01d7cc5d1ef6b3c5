package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name of the config file, without extension.
	ConfigFileName = "bubbletrans"
	// EnvPrefix prefixes environment overrides, e.g. BUBBLETRANS_CACHE_BACKEND.
	EnvPrefix = "BUBBLETRANS"
)

// Loader handles configuration loading from files, environment variables and flags.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader with its own viper instance.
func NewLoader() *Loader {
	return &Loader{v: viper.New()}
}

// NewLoaderWithViper creates a loader around v, typically the instance
// command-line flags were bound to.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{v: v}
}

// Load reads the config file from the search paths (if any), applies
// environment overrides and defaults, and validates the result.
func (l *Loader) Load() (*Config, error) {
	return l.LoadWithFile("")
}

// LoadWithoutValidation is Load without the final validation step.
func (l *Loader) LoadWithoutValidation() (*Config, error) {
	return l.load("", false)
}

// LoadWithFile loads configuration from configFile. An empty path searches the
// standard locations instead.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	return l.load(configFile, true)
}

func (l *Loader) load(configFile string, validate bool) (*Config, error) {
	if configFile != "" {
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file does not exist: %s", configFile)
		}
		l.v.SetConfigFile(configFile)
	} else {
		l.v.SetConfigName(ConfigFileName)
		l.v.SetConfigType("yaml")
		l.addConfigPaths()
	}

	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		// A missing file is fine when searching; defaults and env still apply.
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if validate {
		if err := config.Validate(); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}
	return &config, nil
}

// Get returns a raw value from the configuration.
func (l *Loader) Get(key string) any {
	return l.v.Get(key)
}

// Set overrides a value in the configuration.
func (l *Loader) Set(key string, value any) {
	l.v.Set(key, value)
}

// GetConfigFileUsed returns the path of the config file that was read, if any.
func (l *Loader) GetConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

func (l *Loader) addConfigPaths() {
	for _, p := range GetConfigSearchPaths() {
		l.v.AddConfigPath(p)
	}
}

func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// setDefaults registers every key so AutomaticEnv can override it.
func (l *Loader) setDefaults() {
	d := DefaultConfig()

	l.v.SetDefault("models_dir", d.ModelsDir)
	l.v.SetDefault("log_level", d.LogLevel)
	l.v.SetDefault("verbose", d.Verbose)

	l.v.SetDefault("detection.model_path", d.Detection.ModelPath)
	l.v.SetDefault("detection.confidence_threshold", d.Detection.ConfidenceThreshold)
	l.v.SetDefault("detection.iou_threshold", d.Detection.IoUThreshold)
	l.v.SetDefault("detection.input_size", d.Detection.InputSize)
	l.v.SetDefault("detection.num_threads", d.Detection.NumThreads)

	l.v.SetDefault("preprocess.margin", d.Preprocess.Margin)
	l.v.SetDefault("preprocess.min_size", d.Preprocess.MinSize)
	l.v.SetDefault("preprocess.min_crop", d.Preprocess.MinCrop)
	l.v.SetDefault("preprocess.contrast", d.Preprocess.Contrast)
	l.v.SetDefault("preprocess.denoise_sigma", d.Preprocess.DenoiseSigma)
	l.v.SetDefault("preprocess.sharpen_sigma", d.Preprocess.SharpenSigma)

	l.v.SetDefault("engines.enabled", d.Engines.Enabled)
	l.v.SetDefault("engines.priority", d.Engines.Priority)
	l.v.SetDefault("engines.paddle.model_path", d.Engines.Paddle.ModelPath)
	l.v.SetDefault("engines.paddle.dict_path", d.Engines.Paddle.DictPath)
	l.v.SetDefault("engines.paddle.height", d.Engines.Paddle.Height)
	l.v.SetDefault("engines.paddle.max_width", d.Engines.Paddle.MaxWidth)
	l.v.SetDefault("engines.paddle.num_threads", d.Engines.Paddle.NumThreads)
	l.v.SetDefault("engines.paddle.vertical_ratio", d.Engines.Paddle.VerticalRatio)
	l.v.SetDefault("engines.vision.model", d.Engines.Vision.Model)
	l.v.SetDefault("engines.vision.base_url", d.Engines.Vision.BaseURL)
	l.v.SetDefault("engines.vision.api_key", d.Engines.Vision.APIKey)
	l.v.SetDefault("engines.vision.timeout", d.Engines.Vision.Timeout)
	l.v.SetDefault("engines.vision.default_confidence", d.Engines.Vision.DefaultConfidence)
	l.v.SetDefault("engines.tesseract.languages", d.Engines.Tesseract.Languages)

	l.v.SetDefault("arbiter.acceptance_floor", d.Arbiter.AcceptanceFloor)
	l.v.SetDefault("arbiter.length_margin", d.Arbiter.LengthMargin)
	l.v.SetDefault("arbiter.language_priority", d.Arbiter.LanguagePriority)

	l.v.SetDefault("translation.enabled", d.Translation.Enabled)
	l.v.SetDefault("translation.source_lang", d.Translation.SourceLang)
	l.v.SetDefault("translation.target_lang", d.Translation.TargetLang)
	l.v.SetDefault("translation.model", d.Translation.Model)
	l.v.SetDefault("translation.base_url", d.Translation.BaseURL)
	l.v.SetDefault("translation.api_key", d.Translation.APIKey)
	l.v.SetDefault("translation.timeout", d.Translation.Timeout)
	l.v.SetDefault("translation.retries", d.Translation.Retries)

	l.v.SetDefault("cache.backend", d.Cache.Backend)
	l.v.SetDefault("cache.ttl", d.Cache.TTL)
	l.v.SetDefault("cache.sweep_schedule", d.Cache.SweepSchedule)
	l.v.SetDefault("cache.redis_url", d.Cache.RedisURL)
	l.v.SetDefault("cache.dsn", d.Cache.DSN)

	l.v.SetDefault("pipeline.workers", d.Pipeline.Workers)
	l.v.SetDefault("pipeline.right_to_left", d.Pipeline.RightToLeft)
	l.v.SetDefault("pipeline.keep_candidates", d.Pipeline.KeepCandidates)
	l.v.SetDefault("pipeline.warmup", d.Pipeline.Warmup)

	l.v.SetDefault("server.host", d.Server.Host)
	l.v.SetDefault("server.port", d.Server.Port)
	l.v.SetDefault("server.cors_origin", d.Server.CORSOrigin)
	l.v.SetDefault("server.max_upload_mb", d.Server.MaxUploadMB)
	l.v.SetDefault("server.timeout_sec", d.Server.TimeoutSec)
	l.v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	l.v.SetDefault("server.rate_limit.enabled", d.Server.RateLimit.Enabled)
	l.v.SetDefault("server.rate_limit.requests_per_minute", d.Server.RateLimit.RequestsPerMinute)
	l.v.SetDefault("server.rate_limit.requests_per_hour", d.Server.RateLimit.RequestsPerHour)
	l.v.SetDefault("server.rate_limit.max_requests_per_day", d.Server.RateLimit.MaxRequestsPerDay)
	l.v.SetDefault("server.rate_limit.max_data_per_day_mb", d.Server.RateLimit.MaxDataPerDayMB)
}

// GenerateDefaultConfigFile writes the defaults to filename (bubbletrans.yaml when empty).
func GenerateDefaultConfigFile(filename string) error {
	loader := NewLoader()
	loader.setDefaults()
	if filename == "" {
		filename = ConfigFileName + ".yaml"
	}
	return loader.v.WriteConfigAs(filename)
}

// GetConfigSearchPaths returns the directories searched for the config file, in order.
func GetConfigSearchPaths() []string {
	paths := []string{"."}
	if configDir, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok && configDir != "" {
		paths = append(paths, filepath.Join(configDir, "bubbletrans"))
	} else if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "bubbletrans"))
	}
	return append(paths, "/etc/bubbletrans")
}
