//go:build !darwin

package keychain

import (
	"errors"
	"testing"
)

func TestUnsupportedPlatform(t *testing.T) {
	it := Item{Service: ServiceAPIKey, Account: "default"}
	if _, err := it.Load(); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported from Load, got %v", err)
	}
	if err := it.Save([]byte("x")); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported from Save, got %v", err)
	}
	if err := it.Delete(); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported from Delete, got %v", err)
	}
}
