// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Generation modes selectable via GENERATION_MODE.
const (
	// ModeMock completes jobs after a fixed delay with a sample video URL.
	ModeMock = "mock"
	// ModeVeo drives the Veo provider through the segmented pipeline.
	ModeVeo = "veo"
)

// Static errors for configuration validation.
var (
	// ErrJWTSecretRequired is returned when JWT_SECRET is not set.
	ErrJWTSecretRequired = errors.New("config: JWT_SECRET is required")
	// ErrGeminiKeyRequired is returned when GENERATION_MODE=veo but no
	// GEMINI_API_KEY is set.
	ErrGeminiKeyRequired = errors.New("config: GEMINI_API_KEY is required when GENERATION_MODE=veo")
	// ErrUnknownGenerationMode is returned for an unrecognized GENERATION_MODE.
	ErrUnknownGenerationMode = errors.New("config: GENERATION_MODE must be mock or veo")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port           int      `env:"PORT, default=8080" json:"port"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS, default=http://localhost:5173,https://vidifolio.vercel.app" json:"allowed_origins"`

	// Auth settings
	JWTSecret string `env:"JWT_SECRET, required" json:"-"` // Masked in JSON

	// Record store settings. When DATABASE_URL is empty, in-memory
	// repositories are used instead of Postgres.
	DatabaseURL string `env:"DATABASE_URL" json:"-"` // Masked in JSON

	// Generation settings
	GenerationMode   string        `env:"GENERATION_MODE, default=mock" json:"generation_mode"`
	GeminiAPIKey     string        `env:"GEMINI_API_KEY" json:"-"` // Masked in JSON
	VideoModel       string        `env:"VIDEO_MODEL, default=veo-3.1-fast-generate-preview" json:"video_model"`
	PromptModel      string        `env:"PROMPT_MODEL, default=gemini-3-flash-preview" json:"prompt_model"`
	SegmentDurations []int         `env:"SEGMENT_DURATIONS, default=8,8,4" json:"segment_durations"`
	PollInterval     time.Duration `env:"POLL_INTERVAL, default=5s" json:"poll_interval"`
	PollTimeout      time.Duration `env:"POLL_TIMEOUT, default=10m" json:"poll_timeout"`
	MockDelay        time.Duration `env:"MOCK_DELAY, default=15s" json:"mock_delay"`
	MockVideoURL     string        `env:"MOCK_VIDEO_URL, default=https://storage.vidifolio.app/videos/sample/portfolio_20s.mp4" json:"mock_video_url"`

	// Blob store settings
	StorageDir         string        `env:"STORAGE_DIR, default=/tmp/vidifolio" json:"storage_dir"`
	S3Bucket           string        `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string        `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string        `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	AWSAccessKeyID     string        `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string        `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON
	SignedURLTTL       time.Duration `env:"SIGNED_URL_TTL, default=1h" json:"signed_url_ttl"`

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// PostgresEnabled returns true if a database URL is configured.
func (c *Config) PostgresEnabled() bool {
	return c.DatabaseURL != ""
}

// Load reads configuration from environment variables using go-envconfig.
// It returns an error if required variables are not set.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		if strings.Contains(err.Error(), "JWT_SECRET") {
			return nil, ErrJWTSecretRequired
		}
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present and coherent.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return ErrJWTSecretRequired
	}
	switch c.GenerationMode {
	case ModeMock:
	case ModeVeo:
		if c.GeminiAPIKey == "" {
			return ErrGeminiKeyRequired
		}
	default:
		return ErrUnknownGenerationMode
	}
	return nil
}

// TotalDurationSec returns the target video length implied by the
// configured segment durations.
func (c *Config) TotalDurationSec() int {
	total := 0
	for _, d := range c.SegmentDurations {
		total += d
	}
	return total
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, GenerationMode: %s, VideoModel: %s, PromptModel: %s, SegmentDurations: %v, PollInterval: %s, PollTimeout: %s, S3Bucket: %s, S3Region: %s, StorageDir: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.GenerationMode,
		c.VideoModel,
		c.PromptModel,
		c.SegmentDurations,
		c.PollInterval,
		c.PollTimeout,
		c.S3Bucket,
		c.S3Region,
		c.StorageDir,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
