package backend

import (
	"context"
	"errors"
	"time"
)

// BackendType identifies where library backups are kept
type BackendType string

const (
	BackendLocal   BackendType = "local"
	BackendS3      BackendType = "s3"
	BackendDropbox BackendType = "dropbox"
)

// Common errors
var (
	ErrNotConfigured = errors.New("backend not configured")
	ErrNotFound      = errors.New("backup not found")
	ErrLocked        = errors.New("resource is locked by another process")
)

// Backend stores a single encoded library snapshot
type Backend interface {
	// Write replaces the stored snapshot
	Write(ctx context.Context, data []byte) error

	// Read returns the stored snapshot, or ErrNotFound
	Read(ctx context.Context) ([]byte, error)

	// GetModTime returns when the snapshot was last written
	GetModTime(ctx context.Context) (time.Time, error)

	// Exists returns true if a snapshot is stored
	Exists(ctx context.Context) bool

	// Init prepares the backend (creates directories, validates credentials)
	Init(ctx context.Context) error

	// Close releases any resources held by the backend
	Close() error

	// Type returns the backend type
	Type() BackendType

	// GetLocation returns a human-readable location string
	GetLocation() string

	// SetLocation updates the backend location
	SetLocation(location string) error
}

// Config holds configuration for creating backends
type Config struct {
	Type     BackendType
	Location string // local: directory path; s3: s3://bucket/prefix

	// S3-specific
	S3Bucket   string
	S3Prefix   string
	S3Region   string
	S3Endpoint string // S3-compatible services such as MinIO

	// Dropbox-specific
	DropboxAppKey    string
	DropboxAppSecret string
	DropboxPath      string
}
