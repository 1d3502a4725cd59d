package backend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/mindmorass/clipdeck/internal/storage"
)

const (
	// DirName is the hidden directory holding the backup
	DirName = ".clipdeck"

	// LibraryFile is the filename of the library snapshot
	LibraryFile = "library" + storage.FileExt

	// LockTimeout bounds how long Write waits for the lock
	LockTimeout = 10 * time.Second

	// FilePermissions for backup files
	FilePermissions = 0600

	// DirPermissions for the backup directory
	DirPermissions = 0700

	lockRetryDelay = 100 * time.Millisecond
)

// LocalBackend keeps the snapshot in a directory, such as a mounted
// network share or a cloud drive folder
type LocalBackend struct {
	basePath string
}

// NewLocalBackend creates a new local filesystem backend
func NewLocalBackend(basePath string) *LocalBackend {
	return &LocalBackend{basePath: basePath}
}

// Type returns the backend type
func (b *LocalBackend) Type() BackendType {
	return BackendLocal
}

// GetLocation returns the current base path
func (b *LocalBackend) GetLocation() string {
	return b.basePath
}

// SetLocation updates the base path. The path must be absolute.
func (b *LocalBackend) SetLocation(location string) error {
	if location == "" {
		b.basePath = ""
		return nil
	}

	cleanPath := filepath.Clean(location)
	if !filepath.IsAbs(cleanPath) {
		return fmt.Errorf("path must be absolute: %s", location)
	}
	if cleanPath != location && filepath.Base(cleanPath) == ".." {
		return fmt.Errorf("invalid path: %s", location)
	}

	b.basePath = cleanPath
	return nil
}

func (b *LocalBackend) dir() string {
	return filepath.Join(b.basePath, DirName)
}

func (b *LocalBackend) libraryPath() string {
	return filepath.Join(b.dir(), LibraryFile)
}

func (b *LocalBackend) lockPath() string {
	return b.libraryPath() + ".lock"
}

// Init creates the backup directory if it doesn't exist
func (b *LocalBackend) Init(ctx context.Context) error {
	if b.basePath == "" {
		return ErrNotConfigured
	}
	if _, err := os.Stat(b.basePath); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("location does not exist: %s", b.basePath)
	}
	return os.MkdirAll(b.dir(), DirPermissions)
}

// Close releases resources (no-op for local backend)
func (b *LocalBackend) Close() error {
	return nil
}

// Write replaces the snapshot atomically while holding the file lock
func (b *LocalBackend) Write(ctx context.Context, data []byte) error {
	if err := b.Init(ctx); err != nil {
		return err
	}

	lock := flock.New(b.lockPath())
	lockCtx, cancel := context.WithTimeout(ctx, LockTimeout)
	defer cancel()
	locked, err := lock.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil || !locked {
		if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("acquire lock: %w", err)
		}
		return ErrLocked
	}
	defer lock.Unlock()

	tempPath := b.libraryPath() + ".tmp"
	if err := os.WriteFile(tempPath, data, FilePermissions); err != nil {
		return fmt.Errorf("write temp file failed: %w", err)
	}
	if err := os.Rename(tempPath, b.libraryPath()); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("rename failed: %w", err)
	}
	return nil
}

// Read returns the stored snapshot
func (b *LocalBackend) Read(ctx context.Context) ([]byte, error) {
	if b.basePath == "" {
		return nil, ErrNotConfigured
	}

	data, err := os.ReadFile(b.libraryPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read failed: %w", err)
	}
	return data, nil
}

// GetModTime returns the modification time of the snapshot file
func (b *LocalBackend) GetModTime(ctx context.Context) (time.Time, error) {
	info, err := os.Stat(b.libraryPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return time.Time{}, ErrNotFound
		}
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// Exists returns true if the snapshot file exists
func (b *LocalBackend) Exists(ctx context.Context) bool {
	if b.basePath == "" {
		return false
	}
	_, err := os.Stat(b.libraryPath())
	return err == nil
}
