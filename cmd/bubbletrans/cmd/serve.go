package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/bubbletrans/internal/config"
	"github.com/MeKo-Tech/bubbletrans/internal/server"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and WebSocket translation server",
	Long: `Start an HTTP server exposing the page pipeline.

Endpoints:
  POST /translate     - translate an uploaded page image (multipart field "image")
  GET  /ws/translate  - WebSocket: send page images, receive results
  GET  /engines       - list recognition engines (?check=1 probes readiness)
  GET  /health        - health check
  GET  /metrics       - Prometheus metrics

Examples:
  bubbletrans serve
  bubbletrans serve --port 3000 --cors-origin https://reader.example`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := commandConfig(cmd)
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		if flags.Changed("host") {
			cfg.Server.Host, _ = flags.GetString("host")
		}
		if flags.Changed("port") {
			cfg.Server.Port, _ = flags.GetInt("port")
		}
		if flags.Changed("cors-origin") {
			cfg.Server.CORSOrigin, _ = flags.GetString("cors-origin")
		}
		if flags.Changed("rate-limit") {
			cfg.Server.RateLimit.Enabled, _ = flags.GetBool("rate-limit")
		}

		ctx := cmd.Context()
		proc, err := buildProcessor(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = proc.Close() }()

		srv := server.NewServer(serverConfig(cfg.Server, cfg.Translation.SourceLang, cfg.Translation.TargetLang), proc)
		httpServer := &http.Server{
			Addr:    net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
			Handler: srv.Handler(),
		}

		errCh := make(chan error, 1)
		go func() {
			slog.Info("server listening", "addr", httpServer.Addr,
				"engines", len(proc.Engines()), "target", cfg.Translation.TargetLang)
			errCh <- httpServer.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server: %w", err)
		case <-ctx.Done():
		}

		slog.Info("shutting down server", "timeout", cfg.Server.ShutdownPeriod())
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownPeriod())
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addPipelineFlags(serveCmd)
	serveCmd.Flags().String("host", "", "listen host (default from config)")
	serveCmd.Flags().IntP("port", "p", 0, "listen port (default from config)")
	serveCmd.Flags().String("cors-origin", "", "allowed CORS origin")
	serveCmd.Flags().Bool("rate-limit", false, "enable per-client rate limiting")
}

func serverConfig(s config.ServerConfig, sourceLang, targetLang string) server.Config {
	return server.Config{
		Host:        s.Host,
		Port:        s.Port,
		CORSOrigin:  s.CORSOrigin,
		MaxUploadMB: int64(s.MaxUploadMB),
		TimeoutSec:  s.TimeoutSec,
		SourceLang:  sourceLang,
		TargetLang:  targetLang,
		RateLimit: server.RateLimitConfig{
			Enabled:           s.RateLimit.Enabled,
			RequestsPerMinute: s.RateLimit.RequestsPerMinute,
			RequestsPerHour:   s.RateLimit.RequestsPerHour,
			MaxRequestsPerDay: s.RateLimit.MaxRequestsPerDay,
			MaxDataPerDay:     int64(s.RateLimit.MaxDataPerDayMB) << 20,
		},
	}
}
