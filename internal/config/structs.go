//nolint:lll
package config

import "time"

// Config is the complete bubbletrans configuration. It is shared by every
// command (page, volume, serve) and is loaded from a config file,
// BUBBLETRANS_* environment variables and command-line flags.
type Config struct {
	ModelsDir string `mapstructure:"models_dir" yaml:"models_dir" json:"models_dir"`
	LogLevel  string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose   bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Detection   DetectionConfig   `mapstructure:"detection" yaml:"detection" json:"detection"`
	Preprocess  PreprocessConfig  `mapstructure:"preprocess" yaml:"preprocess" json:"preprocess"`
	Engines     EnginesConfig     `mapstructure:"engines" yaml:"engines" json:"engines"`
	Arbiter     ArbiterConfig     `mapstructure:"arbiter" yaml:"arbiter" json:"arbiter"`
	Translation TranslationConfig `mapstructure:"translation" yaml:"translation" json:"translation"`
	Cache       CacheConfig       `mapstructure:"cache" yaml:"cache" json:"cache"`
	Pipeline    PipelineConfig    `mapstructure:"pipeline" yaml:"pipeline" json:"pipeline"`
	Server      ServerConfig      `mapstructure:"server" yaml:"server" json:"server"`
}

// DetectionConfig contains bubble detection settings.
type DetectionConfig struct {
	ModelPath           string  `mapstructure:"model_path" yaml:"model_path" json:"model_path"`
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold" yaml:"confidence_threshold" json:"confidence_threshold"`
	IoUThreshold        float64 `mapstructure:"iou_threshold" yaml:"iou_threshold" json:"iou_threshold"`
	InputSize           int     `mapstructure:"input_size" yaml:"input_size" json:"input_size"`
	NumThreads          int     `mapstructure:"num_threads" yaml:"num_threads" json:"num_threads"`
}

// PreprocessConfig contains region preparation settings.
type PreprocessConfig struct {
	Margin       int     `mapstructure:"margin" yaml:"margin" json:"margin"`
	MinSize      int     `mapstructure:"min_size" yaml:"min_size" json:"min_size"`
	MinCrop      int     `mapstructure:"min_crop" yaml:"min_crop" json:"min_crop"`
	Contrast     float64 `mapstructure:"contrast" yaml:"contrast" json:"contrast"`
	DenoiseSigma float64 `mapstructure:"denoise_sigma" yaml:"denoise_sigma" json:"denoise_sigma"`
	SharpenSigma float64 `mapstructure:"sharpen_sigma" yaml:"sharpen_sigma" json:"sharpen_sigma"`
}

// EnginesConfig selects and configures the recognition engines.
type EnginesConfig struct {
	Enabled   []string        `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Priority  []string        `mapstructure:"priority" yaml:"priority" json:"priority"`
	Paddle    PaddleConfig    `mapstructure:"paddle" yaml:"paddle" json:"paddle"`
	Vision    VisionConfig    `mapstructure:"vision" yaml:"vision" json:"vision"`
	Tesseract TesseractConfig `mapstructure:"tesseract" yaml:"tesseract" json:"tesseract"`
}

// PaddleConfig configures the CJK recognition model.
type PaddleConfig struct {
	ModelPath     string  `mapstructure:"model_path" yaml:"model_path" json:"model_path"`
	DictPath      string  `mapstructure:"dict_path" yaml:"dict_path" json:"dict_path"`
	Height        int     `mapstructure:"height" yaml:"height" json:"height"`
	MaxWidth      int     `mapstructure:"max_width" yaml:"max_width" json:"max_width"`
	NumThreads    int     `mapstructure:"num_threads" yaml:"num_threads" json:"num_threads"`
	VerticalRatio float64 `mapstructure:"vertical_ratio" yaml:"vertical_ratio" json:"vertical_ratio"`
}

// VisionConfig configures the general-purpose vision engine.
type VisionConfig struct {
	Model             string        `mapstructure:"model" yaml:"model" json:"model"`
	BaseURL           string        `mapstructure:"base_url" yaml:"base_url" json:"base_url"`
	APIKey            string        `mapstructure:"api_key" yaml:"api_key" json:"-"`
	Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
	DefaultConfidence float64       `mapstructure:"default_confidence" yaml:"default_confidence" json:"default_confidence"`
}

// TesseractConfig configures the fallback engine.
type TesseractConfig struct {
	Languages []string `mapstructure:"languages" yaml:"languages" json:"languages"`
}

// ArbiterConfig contains result selection settings.
type ArbiterConfig struct {
	AcceptanceFloor  float64             `mapstructure:"acceptance_floor" yaml:"acceptance_floor" json:"acceptance_floor"`
	LengthMargin     float64             `mapstructure:"length_margin" yaml:"length_margin" json:"length_margin"`
	LanguagePriority map[string][]string `mapstructure:"language_priority" yaml:"language_priority" json:"language_priority"`
}

// TranslationConfig configures the translation provider.
type TranslationConfig struct {
	Enabled    bool          `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	SourceLang string        `mapstructure:"source_lang" yaml:"source_lang" json:"source_lang"`
	TargetLang string        `mapstructure:"target_lang" yaml:"target_lang" json:"target_lang"`
	Model      string        `mapstructure:"model" yaml:"model" json:"model"`
	BaseURL    string        `mapstructure:"base_url" yaml:"base_url" json:"base_url"`
	APIKey     string        `mapstructure:"api_key" yaml:"api_key" json:"-"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
	Retries    int           `mapstructure:"retries" yaml:"retries" json:"retries"`
}

// CacheConfig selects the translation cache backend.
type CacheConfig struct {
	Backend       string        `mapstructure:"backend" yaml:"backend" json:"backend"`
	TTL           time.Duration `mapstructure:"ttl" yaml:"ttl" json:"ttl"`
	SweepSchedule string        `mapstructure:"sweep_schedule" yaml:"sweep_schedule" json:"sweep_schedule"`
	RedisURL      string        `mapstructure:"redis_url" yaml:"redis_url" json:"redis_url"`
	DSN           string        `mapstructure:"dsn" yaml:"dsn" json:"-"`
}

// PipelineConfig contains page processing settings.
type PipelineConfig struct {
	Workers        int  `mapstructure:"workers" yaml:"workers" json:"workers"`
	RightToLeft    bool `mapstructure:"right_to_left" yaml:"right_to_left" json:"right_to_left"`
	KeepCandidates bool `mapstructure:"keep_candidates" yaml:"keep_candidates" json:"keep_candidates"`
	Warmup         bool `mapstructure:"warmup" yaml:"warmup" json:"warmup"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string          `mapstructure:"host" yaml:"host" json:"host"`
	Port            int             `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string          `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int             `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int             `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int             `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
}

// RateLimitConfig contains per-client request limits. Zero disables a limit.
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerHour   int  `mapstructure:"requests_per_hour" yaml:"requests_per_hour" json:"requests_per_hour"`
	MaxRequestsPerDay int  `mapstructure:"max_requests_per_day" yaml:"max_requests_per_day" json:"max_requests_per_day"`
	MaxDataPerDayMB   int  `mapstructure:"max_data_per_day_mb" yaml:"max_data_per_day_mb" json:"max_data_per_day_mb"`
}
