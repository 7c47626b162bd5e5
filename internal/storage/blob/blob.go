// Package blob stores opaque byte payloads by slash-separated key. It backs
// the provider response cache with either a local directory or an S3 bucket.
package blob

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Read when no object exists at the key
var ErrNotFound = errors.New("blob: not found")

// Store is implemented by every backend
type Store interface {
	Write(ctx context.Context, key string, data []byte) error
	// Read returns ErrNotFound for a missing key
	Read(ctx context.Context, key string) ([]byte, error)
	// List returns keys under prefix, relative to the store root
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, key string) error
}

// Config selects and configures a backend
type Config struct {
	Type string // "localfs" or "s3"
	Path string
	S3   S3Config
}

// Open builds the backend named by cfg.Type
func Open(cfg Config) (Store, error) {
	switch cfg.Type {
	case "", "localfs":
		if cfg.Path == "" {
			return nil, fmt.Errorf("localfs store requires a path")
		}
		return NewLocalFS(cfg.Path)
	case "s3":
		return NewS3(cfg.S3)
	default:
		return nil, fmt.Errorf("unknown store type: %s", cfg.Type)
	}
}
