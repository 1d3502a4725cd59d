// Package library is the clipboard history service: it stores captured
// and user-added items, keeps tags and templates, runs AI enrichment and
// moves snapshots to and from backup backends.
package library

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/mindmorass/clipdeck/internal/augment"
	"github.com/mindmorass/clipdeck/internal/clipboard"
	"github.com/mindmorass/clipdeck/internal/item"
	"github.com/mindmorass/clipdeck/internal/store"
)

var (
	ErrEmptyContent       = errors.New("content is empty")
	ErrNotEnrichable      = errors.New("item type has no enrichment")
	ErrNothingToTranslate = errors.New("item has no text to translate")
	ErrNotFormattable     = errors.New("item type cannot be formatted")
	ErrEmptyName          = errors.New("template name is required")
)

// Options tunes the service
type Options struct {
	// HistoryLimit caps untagged items kept after a capture; 0 keeps all
	HistoryLimit int

	// AutoEnrich runs OCR or code analysis in the background after capture
	AutoEnrich bool

	Logger *zap.Logger
}

// Service coordinates the item store and the augmentation client
type Service struct {
	store   *store.Store
	augment *augment.Client
	opts    Options
	logger  *zap.Logger

	captureMu sync.Mutex
	wg        sync.WaitGroup
	bgCtx     context.Context
	cancel    context.CancelFunc
}

// New creates a service
func New(st *store.Store, ai *augment.Client, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if ai == nil {
		ai = augment.New(augment.Config{}, nil, logger)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		store:   st,
		augment: ai,
		opts:    opts,
		logger:  logger,
		bgCtx:   ctx,
		cancel:  cancel,
	}
}

// Augment returns the augmentation client
func (s *Service) Augment() *augment.Client {
	return s.augment
}

// Store returns the underlying store
func (s *Service) Store() *store.Store {
	return s.store
}

// Wait blocks until background enrichment has finished
func (s *Service) Wait() {
	s.wg.Wait()
}

// Close cancels background enrichment and waits for it to stop
func (s *Service) Close() {
	s.cancel()
	s.wg.Wait()
}

// AddRequest describes an item added explicitly by the user
type AddRequest struct {
	Type     item.Type
	Content  string
	Tags     []string
	Metadata *item.Metadata
}

// Add stores a new item
func (s *Service) Add(ctx context.Context, req AddRequest) (*item.ClipboardItem, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, ErrEmptyContent
	}
	t := req.Type
	if t == "" {
		t = item.Detect(req.Content)
	}
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %q", item.ErrUnknownType, t)
	}

	it := item.New(t, req.Content)
	it.Tags = item.NormalizeTags(req.Tags)
	it.MergeMetadata(req.Metadata)
	if err := s.store.AddItem(ctx, it); err != nil {
		return nil, err
	}
	s.logger.Debug("item added", zap.String("id", it.ID), zap.String("type", it.Type.String()))
	return it, nil
}

// Capture records clipboard content. It returns false when the content is
// empty or repeats the most recent item.
func (s *Service) Capture(ctx context.Context, content *clipboard.Content) (*item.ClipboardItem, bool, error) {
	if content == nil || len(content.Data) == 0 {
		return nil, false, nil
	}

	var it *item.ClipboardItem
	switch {
	case content.IsImage():
		it = item.New(item.TypeImage, base64.StdEncoding.EncodeToString(content.Data))
		it.EnsureMetadata().MimeType = content.MimeType
	case content.IsText():
		text := string(content.Data)
		if strings.TrimSpace(text) == "" {
			return nil, false, nil
		}
		it = item.New(item.Detect(text), text)
	default:
		return nil, false, nil
	}

	s.captureMu.Lock()
	defer s.captureMu.Unlock()

	latest, err := s.store.LatestItem(ctx)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, false, err
	}
	if latest != nil && latest.Type == it.Type && latest.Content == it.Content {
		return latest, false, nil
	}

	if err := s.store.AddItem(ctx, it); err != nil {
		return nil, false, err
	}
	s.logger.Info("captured clipboard item",
		zap.String("id", it.ID),
		zap.String("type", it.Type.String()),
		zap.Int64("size", content.Size),
	)

	if s.opts.HistoryLimit > 0 {
		if n, err := s.store.Prune(ctx, s.opts.HistoryLimit); err != nil {
			s.logger.Warn("prune history", zap.Error(err))
		} else if n > 0 {
			s.logger.Debug("pruned history", zap.Int64("removed", n))
		}
	}

	if s.opts.AutoEnrich && enrichable(it.Type) && s.augment.Configured() {
		s.enrichInBackground(it.ID)
	}
	return it, true, nil
}

func (s *Service) enrichInBackground(id string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		res, err := s.Enrich(s.bgCtx, id)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				s.logger.Warn("background enrichment failed", zap.String("id", id), zap.Error(err))
			}
			return
		}
		s.logger.Debug("background enrichment finished",
			zap.String("id", id),
			zap.Stringer("status", res.Status),
			zap.Bool("applied", res.Applied),
		)
	}()
}

// Get returns one item
func (s *Service) Get(ctx context.Context, id string) (*item.ClipboardItem, error) {
	return s.store.GetItem(ctx, id)
}

// List returns items matching the filter, newest first
func (s *Service) List(ctx context.Context, f store.Filter) ([]*item.ClipboardItem, error) {
	return s.store.ListItems(ctx, f)
}

// Delete removes an item
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.DeleteItem(ctx, id)
}

// UpdateContent replaces an item's content
func (s *Service) UpdateContent(ctx context.Context, id, content string) (*item.ClipboardItem, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	return s.store.UpdateContent(ctx, id, content)
}

// SetTags replaces an item's tags
func (s *Service) SetTags(ctx context.Context, id string, tags []string) ([]string, error) {
	return s.store.SetTags(ctx, id, tags)
}

// AddTag adds one tag to an item
func (s *Service) AddTag(ctx context.Context, id, tag string) ([]string, error) {
	return s.store.AddTag(ctx, id, tag)
}

// RemoveTag removes one tag from an item
func (s *Service) RemoveTag(ctx context.Context, id, tag string) ([]string, error) {
	return s.store.RemoveTag(ctx, id, tag)
}

// Tags returns all tags with usage counts
func (s *Service) Tags(ctx context.Context) ([]item.Tag, error) {
	return s.store.ListTags(ctx)
}

// Prune drops the oldest untagged items beyond keep
func (s *Service) Prune(ctx context.Context, keep int) (int64, error) {
	return s.store.Prune(ctx, keep)
}

// AddTemplate stores a reusable snippet
func (s *Service) AddTemplate(ctx context.Context, name, content string) (*item.Template, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyName
	}
	if content == "" {
		return nil, ErrEmptyContent
	}
	t := item.NewTemplate(name, content)
	if err := s.store.AddTemplate(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Template returns one template
func (s *Service) Template(ctx context.Context, id string) (*item.Template, error) {
	return s.store.GetTemplate(ctx, id)
}

// Templates returns every template
func (s *Service) Templates(ctx context.Context) ([]*item.Template, error) {
	return s.store.ListTemplates(ctx)
}

// DeleteTemplate removes a template
func (s *Service) DeleteTemplate(ctx context.Context, id string) error {
	return s.store.DeleteTemplate(ctx, id)
}
