package backend

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"
)

func TestLocalBackendRoundTrip(t *testing.T) {
	dir := t.TempDir()
	b := NewLocalBackend(dir)
	ctx := context.Background()

	if b.Exists(ctx) {
		t.Fatal("expected no snapshot before first write")
	}
	if _, err := b.Read(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := b.Write(ctx, []byte("snapshot-1")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := b.Write(ctx, []byte("snapshot-2")); err != nil {
		t.Fatalf("second Write: %v", err)
	}

	data, err := b.Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(data) != "snapshot-2" {
		t.Fatalf("unexpected data %q", data)
	}
	if !b.Exists(ctx) {
		t.Fatal("expected snapshot to exist")
	}
	if _, err := os.Stat(filepath.Join(dir, DirName, LibraryFile+".tmp")); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}
	if mod, err := b.GetModTime(ctx); err != nil || mod.IsZero() {
		t.Fatalf("GetModTime: %v %v", mod, err)
	}
}

func TestLocalBackendNotConfigured(t *testing.T) {
	b := NewLocalBackend("")
	if err := b.Write(context.Background(), []byte("x")); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if _, err := b.Read(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestLocalBackendMissingLocation(t *testing.T) {
	b := NewLocalBackend(filepath.Join(t.TempDir(), "gone"))
	if err := b.Init(context.Background()); err == nil {
		t.Fatal("expected error for missing location")
	}
}

func TestLocalBackendSetLocation(t *testing.T) {
	b := NewLocalBackend("")
	if err := b.SetLocation("relative/path"); err == nil {
		t.Fatal("expected relative path to be rejected")
	}
	dir := t.TempDir()
	if err := b.SetLocation(dir + "/"); err != nil {
		t.Fatalf("SetLocation: %v", err)
	}
	if b.GetLocation() != filepath.Clean(dir) {
		t.Fatalf("unexpected location %q", b.GetLocation())
	}
}

func TestLocalBackendLocked(t *testing.T) {
	dir := t.TempDir()
	b := NewLocalBackend(dir)
	ctx := context.Background()
	if err := b.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}

	other := flock.New(b.lockPath())
	locked, err := other.TryLock()
	if err != nil || !locked {
		t.Fatalf("could not take lock: %v", err)
	}
	defer other.Unlock()

	ctx, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	if err := b.Write(ctx, []byte("x")); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}
