package server

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MeKo-Tech/bubbletrans/internal/engine"
	"github.com/MeKo-Tech/bubbletrans/internal/pipeline"
	"github.com/MeKo-Tech/bubbletrans/internal/translation"
)

// Processor is the part of the page pipeline the server drives.
type Processor interface {
	Process(ctx context.Context, page *pipeline.Page) (*pipeline.ProcessedPage, error)
	Engines() []engine.Engine
	Cache() *translation.Cache
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	processor   Processor
	corsOrigin  string
	maxUploadMB int64
	timeout     time.Duration
	sourceLang  string
	targetLang  string
	rateLimiter *RateLimiter
}

// Config holds server configuration.
type Config struct {
	Host        string
	Port        int
	CORSOrigin  string
	MaxUploadMB int64
	TimeoutSec  int
	// SourceLang and TargetLang apply when a request names no languages.
	SourceLang string
	TargetLang string
	RateLimit  RateLimitConfig
}

// RateLimitConfig holds per-client limits. Zero values disable a limit.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	RequestsPerHour   int
	MaxRequestsPerDay int
	MaxDataPerDay     int64
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

// EngineInfo describes one recognition engine.
type EngineInfo struct {
	Name  string `json:"name"`
	Ready *bool  `json:"ready,omitempty"`
}

// EnginesResponse is the body of GET /engines.
type EnginesResponse struct {
	Engines []EngineInfo       `json:"engines"`
	Count   int                `json:"count"`
	Cache   *translation.Stats `json:"cache,omitempty"`
}

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Type    string `json:"type,omitempty"`
}

// TranslateResponse is the JSON body of a successful POST /translate.
type TranslateResponse struct {
	Success bool                    `json:"success"`
	Result  *pipeline.ProcessedPage `json:"result"`
}

// NewServer creates a server around proc. The caller owns proc and closes it.
func NewServer(config Config, proc Processor) *Server {
	s := &Server{
		processor:   proc,
		corsOrigin:  config.CORSOrigin,
		maxUploadMB: config.MaxUploadMB,
		timeout:     time.Duration(config.TimeoutSec) * time.Second,
		sourceLang:  config.SourceLang,
		targetLang:  config.TargetLang,
	}
	if s.corsOrigin == "" {
		s.corsOrigin = "*"
	}
	if s.maxUploadMB <= 0 {
		s.maxUploadMB = 10
	}
	if s.timeout <= 0 {
		s.timeout = 60 * time.Second
	}
	if rl := config.RateLimit; rl.Enabled {
		s.rateLimiter = NewRateLimiter(rl.RequestsPerMinute, rl.RequestsPerHour, rl.MaxRequestsPerDay, rl.MaxDataPerDay)
	}
	return s
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/engines", s.corsMiddleware(s.enginesHandler))
	mux.HandleFunc("/translate", s.corsMiddleware(s.rateLimitMiddleware(s.translateHandler)))
	mux.HandleFunc("/ws/translate", s.rateLimitMiddleware(s.translateWebSocketHandler))
	mux.Handle("/metrics", promhttp.Handler())
}

// Handler returns a mux with every route installed.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return mux
}
