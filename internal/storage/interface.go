// internal/storage/interface.go
package storage

import (
	"context"
	"fmt"
)

// Storage defines the interface for the blob backends holding the price
// cache and run artifacts. Paths are slash separated and relative to the
// backend root.
type Storage interface {
	// Write stores data at the given path, replacing any existing object
	Write(ctx context.Context, path string, data []byte) error

	// Read retrieves data from the given path. Missing objects yield an
	// error matching core.ErrNotFound.
	Read(ctx context.Context, path string) ([]byte, error)

	// List returns all paths matching the prefix
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the data at the given path
	Delete(ctx context.Context, path string) error

	// Exists checks if data exists at the given path
	Exists(ctx context.Context, path string) (bool, error)
}

// Options selects and configures a backend
type Options struct {
	Type string // "localfs" or "s3"
	Path string
	S3   S3Config
}

// Open creates the backend described by opts
func Open(opts Options) (Storage, error) {
	switch opts.Type {
	case "localfs":
		return NewLocalFS(opts.Path)
	case "s3":
		return NewS3(opts.S3)
	}
	return nil, fmt.Errorf("unknown storage type %q", opts.Type)
}

// Mirrored writes to every backend and reads from the first
type Mirrored struct {
	backends []Storage
}

// Mirror combines a primary backend with replicas
func Mirror(primary Storage, replicas ...Storage) *Mirrored {
	return &Mirrored{backends: append([]Storage{primary}, replicas...)}
}

func (m *Mirrored) Write(ctx context.Context, path string, data []byte) error {
	for i, b := range m.backends {
		if err := b.Write(ctx, path, data); err != nil {
			return fmt.Errorf("backend %d: %w", i, err)
		}
	}
	return nil
}

func (m *Mirrored) Read(ctx context.Context, path string) ([]byte, error) {
	return m.backends[0].Read(ctx, path)
}

func (m *Mirrored) List(ctx context.Context, prefix string) ([]string, error) {
	return m.backends[0].List(ctx, prefix)
}

func (m *Mirrored) Delete(ctx context.Context, path string) error {
	for i, b := range m.backends {
		if err := b.Delete(ctx, path); err != nil {
			return fmt.Errorf("backend %d: %w", i, err)
		}
	}
	return nil
}

func (m *Mirrored) Exists(ctx context.Context, path string) (bool, error) {
	return m.backends[0].Exists(ctx, path)
}
