// Package bootstrap wires the thumbnail embedder, storage and job service
// together from configuration. The HTTP server and the CLI share it.
package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/maauso/thumbembed/internal/config"
	"github.com/maauso/thumbembed/internal/job"
	"github.com/maauso/thumbembed/internal/media"
	"github.com/maauso/thumbembed/internal/storage"
	"github.com/maauso/thumbembed/internal/thumbnail"
)

// Dependencies holds all initialized dependencies.
type Dependencies struct {
	Muxer        *media.FFmpegMuxer
	Storage      storage.Storage
	Embedder     *thumbnail.Embedder
	EmbedService *job.EmbedService
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	muxer := media.NewFFmpegMuxer(cfg.FFmpegPath)
	embedder := thumbnail.NewEmbedder(muxer, store, logger)

	svc := job.NewEmbedService(
		job.NewMemoryRepository(),
		embedder,
		store,
		logger,
		job.WithS3Prefix(cfg.S3Prefix),
	)

	return &Dependencies{
		Muxer:        muxer,
		Storage:      store,
		Embedder:     embedder,
		EmbedService: svc,
	}, nil
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Store, err := storage.NewS3Storage(cfg.TempDir, storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Debug("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
			slog.String("temp_dir", s3Store.TempDir()),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.TempDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Debug("local storage configured",
		slog.String("temp_dir", localStore.TempDir()),
	)
	return localStore, nil
}
