// Package storage keeps generated report files. The local filesystem backend
// is the only one wired today; keys are slash separated regardless of OS.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no object exists at a key
var ErrNotFound = errors.New("object not found")

// Metadata is stored beside each object
type Metadata struct {
	ContentType string            `json:"contentType,omitempty"`
	Filename    string            `json:"filename,omitempty"`
	ReportKind  string            `json:"reportKind,omitempty"`
	GeneratedAt time.Time         `json:"generatedAt,omitempty"`
	Rows        int               `json:"rows,omitempty"`
	Custom      map[string]string `json:"custom,omitempty"`
}

// ObjectInfo describes a stored object without its content
type ObjectInfo struct {
	Key        string    `json:"key"`
	Size       int64     `json:"size"`
	Checksum   string    `json:"checksum"`
	ModifiedAt time.Time `json:"modifiedAt"`
	Metadata   *Metadata `json:"metadata,omitempty"`
}

// Storage is a flat key/value object store
type Storage interface {
	Put(ctx context.Context, key string, content []byte, metadata *Metadata) error
	Get(ctx context.Context, key string) ([]byte, error)
	Stat(ctx context.Context, key string) (*ObjectInfo, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	// List returns every key starting with prefix, sorted
	List(ctx context.Context, prefix string) ([]string, error)
	Type() Type
}

// Type names a storage backend
type Type string

const (
	TypeLocal Type = "local"
)
