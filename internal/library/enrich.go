package library

import (
	"context"
	"fmt"
	"strings"

	"github.com/mindmorass/clipdeck/internal/augment"
	"github.com/mindmorass/clipdeck/internal/item"
)

// EnrichResult reports what Enrich did to an item
type EnrichResult struct {
	Item    *item.ClipboardItem `json:"item"`
	Status  augment.Status      `json:"status"`
	Cause   augment.Cause       `json:"cause,omitempty"`
	Applied bool                `json:"applied"`
}

// TextResult pairs an item with a text augmentation outcome
type TextResult struct {
	Item    *item.ClipboardItem `json:"item"`
	Result  augment.TextResult  `json:"result"`
	Applied bool                `json:"applied"`
}

func enrichable(t item.Type) bool {
	return t == item.TypeImage || t == item.TypeCode
}

// Enrich runs OCR on image items and code analysis on code items. Degraded
// results leave the item untouched.
func (s *Service) Enrich(ctx context.Context, id string) (*EnrichResult, error) {
	it, err := s.store.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}

	switch it.Type {
	case item.TypeImage:
		var mimeType string
		if it.Metadata != nil {
			mimeType = it.Metadata.MimeType
		}
		res := s.augment.ExtractText(ctx, it.Content, mimeType)
		out := &EnrichResult{Item: it, Status: res.Status, Cause: res.Cause}
		if res.Degraded() {
			return out, nil
		}
		updated, err := s.store.UpdateMetadata(ctx, id, func(ci *item.ClipboardItem) {
			ci.SetOCRText(res.Text)
		})
		if err != nil {
			return nil, err
		}
		out.Item, out.Applied = updated, true
		return out, nil

	case item.TypeCode:
		res := s.augment.AnalyzeCode(ctx, it.Content)
		out := &EnrichResult{Item: it, Status: res.Status, Cause: res.Cause}
		if res.Degraded() {
			return out, nil
		}
		updated, err := s.store.UpdateMetadata(ctx, id, func(ci *item.ClipboardItem) {
			ci.ApplyCodeAnalysis(res.Language, res.IsSensitive)
		})
		if err != nil {
			return nil, err
		}
		out.Item, out.Applied = updated, true
		return out, nil

	default:
		return nil, fmt.Errorf("%s: %w", it.Type, ErrNotEnrichable)
	}
}

// Translate translates an item's text (or the OCR text of an image) and
// records a successful translation in the item's metadata
func (s *Service) Translate(ctx context.Context, id, target string) (*TextResult, error) {
	it, err := s.store.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}

	source := it.Content
	if it.Type == item.TypeImage {
		source = ""
		if it.Metadata != nil {
			source = it.Metadata.OCRText
		}
	}
	if strings.TrimSpace(source) == "" {
		return nil, ErrNothingToTranslate
	}

	res := s.augment.Translate(ctx, source, target)
	out := &TextResult{Item: it, Result: res}
	if res.Degraded() {
		return out, nil
	}
	updated, err := s.store.UpdateMetadata(ctx, id, func(ci *item.ClipboardItem) {
		ci.SetTranslation(res.Text)
	})
	if err != nil {
		return nil, err
	}
	out.Item, out.Applied = updated, true
	return out, nil
}

// Format beautifies an item's code. When apply is set and the provider
// returned something different, the item's content is replaced.
func (s *Service) Format(ctx context.Context, id string, apply bool) (*TextResult, error) {
	it, err := s.store.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if it.Type == item.TypeImage || it.Type == item.TypeFile {
		return nil, fmt.Errorf("%s: %w", it.Type, ErrNotFormattable)
	}

	language := ""
	if it.Metadata != nil {
		language = it.Metadata.Language
	}
	if language == "" {
		language = augment.DefaultLanguage
	}

	res := s.augment.FormatCode(ctx, it.Content, language)
	out := &TextResult{Item: it, Result: res}
	if !apply || res.Degraded() || res.Text == it.Content {
		return out, nil
	}
	updated, err := s.store.UpdateContent(ctx, id, res.Text)
	if err != nil {
		return nil, err
	}
	out.Item, out.Applied = updated, true
	return out, nil
}
