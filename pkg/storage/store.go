package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/noah-isme/admission-agent-api/pkg/config"
)

// ErrObjectNotFound is returned when a key has no stored object.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStore persists rendered documents by key.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// NewObjectStore builds the backend selected in cfg.Backend ("local" or "s3").
func NewObjectStore(cfg config.AdmitCardConfig) (ObjectStore, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "local":
		return NewLocalStorage(cfg.StorageDir)
	case "s3":
		return NewS3Storage(cfg.S3)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
