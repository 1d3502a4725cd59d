package library

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mindmorass/clipdeck/internal/backend"
	"github.com/mindmorass/clipdeck/internal/storage"
	"github.com/mindmorass/clipdeck/internal/store"
)

// Export writes a snapshot of the whole library to the backend. A
// non-empty passphrase encrypts it.
func (s *Service) Export(ctx context.Context, b backend.Backend, passphrase string) (*storage.FileHeader, error) {
	items, templates, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	data, header, err := storage.Encode(&storage.Snapshot{Items: items, Templates: templates},
		storage.EncodeOptions{Passphrase: passphrase})
	if err != nil {
		return nil, fmt.Errorf("encode failed: %w", err)
	}

	if err := b.Init(ctx); err != nil {
		return nil, err
	}
	if err := b.Write(ctx, data); err != nil {
		return nil, err
	}

	s.logger.Info("library exported",
		zap.String("backend", string(b.Type())),
		zap.String("location", b.GetLocation()),
		zap.Int("items", header.ItemCount),
		zap.Int("templates", header.TemplateCount),
		zap.Bool("encrypted", header.Encrypted),
	)
	return header, nil
}

// Import reads a snapshot from the backend and adds every item and
// template the library does not already have
func (s *Service) Import(ctx context.Context, b backend.Backend, passphrase string) (store.RestoreResult, *storage.FileHeader, error) {
	if err := b.Init(ctx); err != nil {
		return store.RestoreResult{}, nil, err
	}
	if !b.Exists(ctx) {
		return store.RestoreResult{}, nil, fmt.Errorf("no backup yet at %s: %w", b.GetLocation(), backend.ErrNotFound)
	}
	data, err := b.Read(ctx)
	if err != nil {
		return store.RestoreResult{}, nil, err
	}

	snap, header, err := storage.Decode(data, passphrase)
	if err != nil {
		return store.RestoreResult{}, nil, fmt.Errorf("decode failed: %w", err)
	}

	result, err := s.store.Restore(ctx, snap.Items, snap.Templates)
	if err != nil {
		return store.RestoreResult{}, nil, err
	}

	s.logger.Info("library imported",
		zap.String("backend", string(b.Type())),
		zap.String("source_machine", header.SourceMachine),
		zap.Int("items_added", result.ItemsAdded),
		zap.Int("items_skipped", result.ItemsSkipped),
		zap.Int("templates_added", result.TemplatesAdded),
	)
	return result, header, nil
}

// BackupInfo describes a stored snapshot without restoring it
type BackupInfo struct {
	Location string
	Header   *storage.FileHeader
	ModTime  time.Time
}

// Inspect reads the header of the stored snapshot. Encrypted snapshots can
// be inspected without a passphrase.
func (s *Service) Inspect(ctx context.Context, b backend.Backend) (*BackupInfo, error) {
	if err := b.Init(ctx); err != nil {
		return nil, err
	}
	if !b.Exists(ctx) {
		return nil, fmt.Errorf("no backup yet at %s: %w", b.GetLocation(), backend.ErrNotFound)
	}
	data, err := b.Read(ctx)
	if err != nil {
		return nil, err
	}
	header, err := storage.ReadHeader(data)
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	info := &BackupInfo{Location: b.GetLocation(), Header: header, ModTime: header.CreatedAt}
	if modTime, err := b.GetModTime(ctx); err == nil {
		info.ModTime = modTime
	} else {
		s.logger.Debug("backup mod time unavailable", zap.Error(err))
	}
	return info, nil
}
