package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/medquery/medquery/internal/config"
	"github.com/medquery/medquery/internal/domain/interpret"
	"github.com/medquery/medquery/internal/domain/query"
	"github.com/medquery/medquery/internal/domain/vocabulary"
	"github.com/medquery/medquery/internal/platform/fhir"
	"github.com/medquery/medquery/internal/platform/middleware"
	"github.com/medquery/medquery/internal/platform/telemetry"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "medquery-server",
		Short: "Clinical query interpretation server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(vocabCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the interpretation API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func vocabCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vocab",
		Short: "Inspect the condition vocabulary",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Print the active vocabulary",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")

			vocab, err := loadVocabulary(file)
			if err != nil {
				return err
			}

			fmt.Printf("%-28s %-32s %-12s %s\n", "KEY", "TERM", "CODE", "SYSTEM")
			for _, key := range vocab.Keys() {
				c, _ := vocab.Lookup(key)
				fmt.Printf("%-28s %-32s %-12s %s\n", key, c.Term, c.Code, c.System)
			}
			return nil
		},
	}
	listCmd.Flags().String("file", "", "Path to a vocabulary JSON file (defaults to the built-in vocabulary)")
	cmd.AddCommand(listCmd)

	return cmd
}

func loadVocabulary(path string) (*vocabulary.Vocabulary, error) {
	if path == "" {
		return vocabulary.Default(), nil
	}
	return vocabulary.LoadFile(path)
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Vocabulary and extraction rules: built once, read-only afterwards.
	vocab, err := loadVocabulary(cfg.VocabFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load vocabulary")
	}
	extractor := query.NewExtractor(vocab)
	logger.Info().Int("entries", vocab.Len()).Msg("vocabulary loaded")

	// Telemetry
	metrics := telemetry.NewRegistry("medquery")

	// FHIR repository client
	repo := fhir.NewClient(fhir.ClientConfig{
		BaseURL: cfg.FHIRBaseURL,
		Auth:    cfg.FHIRAuth,
		Timeout: cfg.FHIRTimeout(),
		Logger:  logger,
		Metrics: metrics,
	})

	// Pipeline
	svc := interpret.NewService(extractor, repo, interpret.ServiceConfig{
		SampleCount: cfg.PatientSampleCount,
		Logger:      logger,
		Metrics:     metrics,
	})

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(metrics.HTTPMiddleware())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout()))

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", metrics.Handler())

	// API group
	apiV1 := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	interpret.NewHandler(svc).RegisterRoutes(apiV1)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("fhir_base", cfg.FHIRBaseURL).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
