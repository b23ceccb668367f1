package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/facecheck-dev/facecheck/internal/api"
	"github.com/facecheck-dev/facecheck/internal/api/middleware"
	"github.com/facecheck-dev/facecheck/internal/config"
	"github.com/facecheck-dev/facecheck/internal/embedder"
	"github.com/facecheck-dev/facecheck/internal/embedder/deepface"
	"github.com/facecheck-dev/facecheck/internal/embedder/mock"
	"github.com/facecheck-dev/facecheck/internal/gallery"
	"github.com/facecheck-dev/facecheck/internal/index"
	"github.com/facecheck-dev/facecheck/internal/matcher"
	"github.com/facecheck-dev/facecheck/internal/registry"
	"github.com/facecheck-dev/facecheck/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; environment variables win
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := config.NewLogger(cfg.Environment)
	slog.SetDefault(logger)

	logger.Info("starting FaceCheck API",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
		slog.String("images_dir", cfg.ImagesDir),
		slog.String("embedder", cfg.EmbedderType),
		slog.Float64("threshold", cfg.MatchThreshold),
	)

	emb, err := newEmbedder(cfg)
	if err != nil {
		return err
	}

	m, err := newMatcher(cfg)
	if err != nil {
		return err
	}

	store, err := gallery.NewStore(cfg.ImagesDir, logger)
	if err != nil {
		return fmt.Errorf("open gallery: %w", err)
	}

	idx := index.New(store, emb, logger)

	// Initial index build is best-effort: a failed scan leaves an empty
	// snapshot serving and the operator can reload once the cause is fixed.
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 5*time.Minute)
	if loaded, err := idx.Rebuild(startupCtx); err != nil {
		logger.Warn("initial index build failed, serving empty index", slog.Any("error", err))
	} else {
		logger.Info("initial index built", slog.Int("embeddings", loaded))
	}
	cancelStartup()

	reg := registry.New(cfg.RegistryPath, logger)

	faceService := service.NewFaceService(
		store, idx, m, emb, reg, logger,
		cfg.MatchThreshold, cfg.EmbedTimeout,
	)

	router := api.NewRouter(logger, &api.Dependencies{
		FaceService:  faceService,
		MaxImageSize: int64(cfg.MaxUploadMB) * 1024 * 1024,
		RateLimit: middleware.RateLimiterConfig{
			RPS:   cfg.RateLimitRPS,
			Burst: cfg.RateLimitBurst,
		},
	})
	router.Setup()

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down server...")
	if err := router.Shutdown(); err != nil {
		logger.Error("shutdown error", slog.Any("error", err))
	}

	<-shutdownCtx.Done()
	logger.Info("server stopped")

	return nil
}

func newEmbedder(cfg *config.Config) (embedder.Embedder, error) {
	switch cfg.EmbedderType {
	case "mock":
		return mock.New(), nil
	case "deepface":
		dfCfg := deepface.DefaultConfig()
		dfCfg.BaseURL = cfg.DeepFaceURL
		dfCfg.Timeout = cfg.EmbedTimeout
		return deepface.New(dfCfg), nil
	default:
		return nil, fmt.Errorf("unknown embedder type %q (want mock or deepface)", cfg.EmbedderType)
	}
}

func newMatcher(cfg *config.Config) (matcher.Matcher, error) {
	switch cfg.MatcherType {
	case "exact":
		return matcher.NewExact(), nil
	case "hnsw":
		return matcher.NewHNSW(), nil
	default:
		return nil, fmt.Errorf("unknown matcher type %q (want exact or hnsw)", cfg.MatcherType)
	}
}
