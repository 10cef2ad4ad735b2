package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/snarg/scribed/internal/config"
)

// AudioStore archives submitted audio files.
type AudioStore interface {
	// Save stores the data under key and returns the stored location
	// (filesystem path or object key).
	Save(ctx context.Context, key string, data []byte) (string, error)

	// Open returns a reader for a previously archived file.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists checks whether the key is present.
	Exists(ctx context.Context, key string) bool

	// Type returns "local" or "s3".
	Type() string
}

// New creates an AudioStore based on config. Returns an error if S3 is
// configured but unreachable.
func New(cfg config.S3Config, audioDir string, log zerolog.Logger) (AudioStore, error) {
	if !cfg.Enabled() {
		return NewLocalStore(audioDir), nil
	}

	store, err := NewS3Store(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("S3 init failed: %w", err)
	}

	// Startup validation: verify credentials and bucket access.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.HeadBucket(ctx); err != nil {
		return nil, fmt.Errorf("S3 startup check failed (bucket=%q endpoint=%q): %w",
			cfg.Bucket, cfg.Endpoint, err)
	}
	log.Info().Str("bucket", cfg.Bucket).Str("endpoint", cfg.Endpoint).Msg("S3 connection verified")

	return store, nil
}
