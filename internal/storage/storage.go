// Package storage provides the place converted icons are written to: a local directory or a MinIO bucket
package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/UnendingLoop/IconConverter/internal/settings"
	"github.com/UnendingLoop/IconConverter/internal/storage/localstorage"
	"github.com/UnendingLoop/IconConverter/internal/storage/miniostorage"
)

// Sink - контракт записи результата, всё что нужно конвертеру
type Sink interface {
	Put(ctx context.Context, key string, size int64, contentType string, r io.Reader) error
}

// ImageStorage - полный контракт для работы с хранилищем
type ImageStorage interface {
	Sink
	Get(ctx context.Context, key string) (output io.ReadCloser, ctype string, err error)
	Delete(ctx context.Context, key string) error
}

// Preparer is implemented by sinks that must create or check an output location before the first Put.
type Preparer interface {
	Prepare(ctx context.Context, prefix string) error
}

// New picks the backend configured in STORAGE_BACKEND. Keys are output paths:
// relative to the working directory for the local backend, object names for minio.
func New(cfg settings.StorageSettings) (ImageStorage, error) {
	switch cfg.Backend {
	case settings.BackendLocal, "":
		return localstorage.New(""), nil
	case settings.BackendMinio:
		return NewImgStorage(cfg, 5*time.Second, 5)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// NewImgStorage connects to MinIO, retrying up to attempts times.
func NewImgStorage(cfg settings.StorageSettings, delay time.Duration, attempts int) (*miniostorage.MinioImageStorage, error) {
	var lastErr error

	for i := 0; i < attempts; i++ {
		log.Printf("Connecting to IMG-storage (try #%d)...", i+1)
		client, err := miniostorage.NewMinioClient(cfg)
		if err == nil {
			log.Println("Successfully connected IMG-storage!")
			return client, nil
		}
		lastErr = err
		log.Printf("Failed to init connection to IMG-storage: %v\nNext retry in %v...", err, delay)
		time.Sleep(delay)
	}

	return nil, fmt.Errorf("IMG-storage unreachable after %d tries: %w", attempts, lastErr)
}
