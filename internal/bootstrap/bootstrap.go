// Package bootstrap provides dependency initialization for the frame thumbnail service.
package bootstrap

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/maauso/framethumb/internal/config"
	"github.com/maauso/framethumb/internal/media"
	"github.com/maauso/framethumb/internal/render"
	"github.com/maauso/framethumb/internal/storage"
	"github.com/maauso/framethumb/internal/thumbnail"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	ThumbnailService *thumbnail.Service
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	// Initialize storage
	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	// Decoder limits are fixed for the life of the process
	decoder := media.NewFFmpegDecoder(cfg.FFmpegPath,
		media.WithFFprobePath(cfg.FFprobePath),
		media.WithThreads(cfg.DecoderThreads),
		media.WithProbeSize(cfg.DecoderProbeSize),
		media.WithX264BuildThreshold(cfg.X264BuildThreshold),
	)

	resampler, err := render.NewResampler(strings.ToLower(cfg.Resampler))
	if err != nil {
		return nil, fmt.Errorf("create resampler: %w", err)
	}

	svc := thumbnail.NewService(
		store,
		decoder,
		logger,
		thumbnail.WithSubtitleDecoder(media.ImageSubtitleDecoder{}),
		thumbnail.WithCompositor(render.NewCompositor(resampler)),
		thumbnail.WithMaxConcurrentRenders(cfg.MaxConcurrentRenders),
	)

	logger.Info("thumbnail service configured",
		slog.String("ffmpeg", cfg.FFmpegPath),
		slog.String("ffprobe", cfg.FFprobePath),
		slog.Int("decoder_threads", cfg.DecoderThreads),
		slog.Int64("decoder_probe_size", cfg.DecoderProbeSize),
		slog.Int("x264_build_threshold", cfg.X264BuildThreshold),
		slog.String("resampler", cfg.Resampler),
		slog.Int("max_concurrent_renders", cfg.MaxConcurrentRenders),
	)

	return &Dependencies{
		ThumbnailService: svc,
	}, nil
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Prefix:          cfg.S3Prefix,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(cfg.TempDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
			slog.String("prefix", cfg.S3Prefix),
			slog.String("temp_dir", cfg.TempDir),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.StorageRoot)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("root", cfg.StorageRoot),
	)
	return localStore, nil
}
