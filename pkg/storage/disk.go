// Package storage provides the file abstraction used for local state and
// photo sources.
//
// Two drivers are available:
//   - "local"  local filesystem (default)
//   - "s3"     S3-compatible object storage (AWS S3, MinIO, R2, Spaces)
//
// Quick start:
//
//	if err := storage.Connect(ctx); err != nil { ... }
//
//	disk, _ := storage.Use("s3")
//	rc, _ := disk.Open(ctx, "shoots/enduro-250/front.jpg")
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned when a path does not exist on the disk.
var ErrNotFound = errors.New("storage: file not found")

// FileInfo describes one stored file.
type FileInfo struct {
	Path         string
	Size         int64
	LastModified time.Time
	ContentType  string // empty when the driver does not know it
}

// Disk is the filesystem driver interface. Every driver must implement this.
type Disk interface {
	// Put writes content to path, creating parent directories as needed.
	Put(ctx context.Context, path string, content []byte) error

	// Get returns the full content of the file at path.
	Get(ctx context.Context, path string) ([]byte, error)

	// Open returns a ReadCloser for the file. Caller must close it.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Stat returns metadata for path.
	Stat(ctx context.Context, path string) (FileInfo, error)

	// Exists reports whether a file exists at path.
	Exists(ctx context.Context, path string) (bool, error)

	// Delete removes a file. Returns nil if the file did not exist.
	Delete(ctx context.Context, path string) error

	// Files lists the files directly inside directory.
	Files(ctx context.Context, directory string) ([]string, error)

	// URL returns the public URL for path.
	URL(path string) string
}
