// Package bootstrap provides dependency initialization for the Vidifolio API.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"google.golang.org/genai"

	"github.com/vidifolio/api/internal/auth"
	"github.com/vidifolio/api/internal/config"
	"github.com/vidifolio/api/internal/db"
	"github.com/vidifolio/api/internal/generator"
	"github.com/vidifolio/api/internal/portfolio"
	"github.com/vidifolio/api/internal/prompt"
	"github.com/vidifolio/api/internal/storage"
	"github.com/vidifolio/api/internal/user"
	"github.com/vidifolio/api/internal/video"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	Videos     *video.Service
	Portfolios *portfolio.Service
	Users      *user.Service
	Verifier   auth.Verifier

	pool *pgxpool.Pool
}

// Close releases held resources.
func (d *Dependencies) Close() {
	if d.pool != nil {
		d.pool.Close()
	}
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	store, err := initStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	deps := &Dependencies{
		Verifier: auth.NewJWTVerifier(cfg.JWTSecret),
	}

	var userRepo user.Repository
	var portfolioRepo portfolio.Repository
	var videoRepo video.Repository

	if cfg.PostgresEnabled() {
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		deps.pool = pool
		userRepo = user.NewPostgresRepository(pool)
		portfolioRepo = portfolio.NewPostgresRepository(pool)
		videoRepo = video.NewPostgresRepository(pool)
		logger.Info("postgres repositories configured")
	} else {
		userRepo = user.NewMemoryRepository()
		portfolioRepo = portfolio.NewMemoryRepository()
		videoRepo = video.NewMemoryRepository()
		logger.Info("in-memory repositories configured")
	}

	strategy, err := initStrategy(ctx, cfg, store, logger)
	if err != nil {
		deps.Close()
		return nil, err
	}

	deps.Users = user.NewService(userRepo, logger)
	deps.Portfolios = portfolio.NewService(portfolioRepo, store, logger)
	deps.Videos = video.NewService(videoRepo, portfolioRepo, strategy, cfg.VideoModel, logger)

	return deps, nil
}

// initStorage creates the appropriate blob store backend based on configuration.
func initStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	if cfg.S3Enabled() {
		s3Store, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStore(cfg.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("dir", cfg.StorageDir),
	)
	return localStore, nil
}

// initStrategy selects the generation strategy from configuration.
func initStrategy(ctx context.Context, cfg *config.Config, store storage.Store, logger *slog.Logger) (video.GenerationStrategy, error) {
	if cfg.GenerationMode == config.ModeMock {
		logger.Info("mock generation strategy configured",
			slog.Duration("delay", cfg.MockDelay),
		)
		return &video.MockStrategy{
			Delay:     cfg.MockDelay,
			SampleURL: cfg.MockVideoURL,
		}, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	gen := generator.NewVeoGenerator(client, cfg.GeminiAPIKey, logger)
	prompts := prompt.NewGeminiBuilder(client, cfg.PromptModel, logger)

	durations := make([]int32, len(cfg.SegmentDurations))
	for i, d := range cfg.SegmentDurations {
		durations[i] = int32(d)
	}

	strategy, err := video.NewSegmentedStrategy(gen, prompts, store, video.SegmentedConfig{
		Model:        cfg.VideoModel,
		Durations:    durations,
		PollInterval: cfg.PollInterval,
		PollTimeout:  cfg.PollTimeout,
		SignedURLTTL: cfg.SignedURLTTL,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create segmented strategy: %w", err)
	}

	logger.Info("segmented generation strategy configured",
		slog.String("model", cfg.VideoModel),
		slog.Any("durations", cfg.SegmentDurations),
	)
	return strategy, nil
}
