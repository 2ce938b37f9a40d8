// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrStorageRootRequired is returned when neither STORAGE_ROOT nor S3 is configured.
	ErrStorageRootRequired = errors.New("config: STORAGE_ROOT is required when S3 is not configured")
	// ErrInvalidConcurrency is returned when MAX_CONCURRENT_RENDERS is not positive.
	ErrInvalidConcurrency = errors.New("config: MAX_CONCURRENT_RENDERS must be positive")
	// ErrInvalidResampler is returned when RESAMPLER names an unknown filter.
	ErrInvalidResampler = errors.New("config: RESAMPLER must be catmullrom or bicubic")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port               int `env:"PORT, default=8080" json:"port"`
	RateLimitPerMinute int `env:"RATE_LIMIT_PER_MINUTE, default=0" json:"rate_limit_per_minute"` // 0 disables

	// Storage settings
	StorageRoot string `env:"STORAGE_ROOT, default=/storage" json:"storage_root"`
	TempDir     string `env:"TEMP_DIR, default=/tmp/framethumb" json:"temp_dir"`

	// Decoder settings
	FFmpegPath         string `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path"`
	FFprobePath        string `env:"FFPROBE_PATH, default=ffprobe" json:"ffprobe_path"`
	DecoderThreads     int    `env:"DECODER_THREADS, default=0" json:"decoder_threads"`       // 0 lets ffmpeg decide
	DecoderProbeSize   int64  `env:"DECODER_PROBE_SIZE, default=0" json:"decoder_probe_size"` // bytes, 0 keeps ffmpeg's default
	X264BuildThreshold int    `env:"X264_BUILD_THRESHOLD, default=151" json:"x264_build_threshold"`

	// Processing settings
	Resampler            string `env:"RESAMPLER, default=catmullrom" json:"resampler"`
	MaxConcurrentRenders int    `env:"MAX_CONCURRENT_RENDERS, default=4" json:"max_concurrent_renders"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Prefix           string `env:"S3_PREFIX" json:"s3_prefix,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// RateLimitEnabled returns true if per-client rate limiting is configured.
func (c *Config) RateLimitEnabled() bool {
	return c.RateLimitPerMinute > 0
}

// Load reads configuration from environment variables using go-envconfig
// and validates the result.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if !c.S3Enabled() && c.StorageRoot == "" {
		return ErrStorageRootRequired
	}
	if c.MaxConcurrentRenders <= 0 {
		return ErrInvalidConcurrency
	}
	switch strings.ToLower(c.Resampler) {
	case "catmullrom", "bicubic":
	default:
		return ErrInvalidResampler
	}
	return nil
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
		"Config{Port: %d, StorageRoot: %s, TempDir: %s, FFmpegPath: %s, FFprobePath: %s, DecoderThreads: %d, DecoderProbeSize: %d, X264BuildThreshold: %d, Resampler: %s, MaxConcurrentRenders: %d, RateLimitPerMinute: %d, S3Bucket: %s, S3Region: %s, S3Prefix: %s, S3Endpoint: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.StorageRoot,
		c.TempDir,
		c.FFmpegPath,
		c.FFprobePath,
		c.DecoderThreads,
		c.DecoderProbeSize,
		c.X264BuildThreshold,
		c.Resampler,
		c.MaxConcurrentRenders,
		c.RateLimitPerMinute,
		c.S3Bucket,
		c.S3Region,
		c.S3Prefix,
		c.S3Endpoint,
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
