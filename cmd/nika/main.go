package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/jaijaijai353/nika-analytics/internal/ai"
	"github.com/jaijaijai353/nika-analytics/internal/anomaly"
	"github.com/jaijaijai353/nika-analytics/internal/config"
	"github.com/jaijaijai353/nika-analytics/internal/forecast"
	"github.com/jaijaijai353/nika-analytics/internal/mcp"
	"github.com/jaijaijai353/nika-analytics/internal/server"
	"github.com/jaijaijai353/nika-analytics/internal/telemetry"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run0())
}

func run0() int {
	level := slog.LevelInfo
	if os.Getenv("NIKA_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		slog.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, logger *slog.Logger) error {
	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.Info("nika analytics starting", "version", version, "port", cfg.Port,
		"arima_enabled", cfg.ARIMAEnabled, "iforest_enabled", cfg.IsolationForestEnabled)

	// Initialize OpenTelemetry.
	otelShutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	// Analytics components. Capability flags are resolved here, once; the
	// components branch to their fallback strategies deterministically.
	forecaster := forecast.New(logger, cfg.ARIMAEnabled)
	detector := anomaly.New(logger, cfg.IsolationForestEnabled)

	// LLM collaborator for the query endpoint (optional).
	var completer ai.Completer
	if cfg.OpenAIAPIKey != "" {
		completer = ai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.QueryTimeout)
		logger.Info("query backend: openai-compatible", "model", cfg.OpenAIModel)
	} else {
		logger.Info("query backend: disabled (no OPENAI_API_KEY)")
	}

	handlers := server.NewHandlers(server.HandlersDeps{
		Forecaster:          forecaster,
		Detector:            detector,
		Completer:           completer,
		Logger:              logger,
		Version:             version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
	})

	// MCP server mounted alongside the HTTP API.
	mcpSrv := mcp.New(forecaster, detector, completer, logger, version)

	srv := server.New(server.ServerConfig{
		Handlers:          handlers,
		Logger:            logger,
		MCPServer:         mcpSrv.MCPServer(),
		Port:              cfg.Port,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
	})

	// Serve until the context is cancelled, then shut down gracefully.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("nika analytics shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
