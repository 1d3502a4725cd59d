package item

import "strings"

// ApplyCodeAnalysis records a detected language and sensitivity flag.
// Only metadata changes; content, id and creation time are left alone.
func (i *ClipboardItem) ApplyCodeAnalysis(language string, sensitive bool) {
	m := i.EnsureMetadata()
	if lang := strings.TrimSpace(language); lang != "" {
		m.Language = lang
	}
	m.IsSensitive = &sensitive
}

// SetOCRText records text extracted from an image item
func (i *ClipboardItem) SetOCRText(text string) {
	i.EnsureMetadata().OCRText = text
}

// SetTranslation records a translation of the item's content
func (i *ClipboardItem) SetTranslation(text string) {
	i.EnsureMetadata().Translation = text
}

// MergeMetadata copies every set field of src into the item's metadata
func (i *ClipboardItem) MergeMetadata(src *Metadata) {
	if src.IsZero() {
		return
	}
	m := i.EnsureMetadata()
	if src.Language != "" {
		m.Language = src.Language
	}
	if src.OCRText != "" {
		m.OCRText = src.OCRText
	}
	if src.Translation != "" {
		m.Translation = src.Translation
	}
	if src.FileName != "" {
		m.FileName = src.FileName
	}
	if src.FileType != "" {
		m.FileType = src.FileType
	}
	if src.MimeType != "" {
		m.MimeType = src.MimeType
	}
	if src.IsSensitive != nil {
		v := *src.IsSensitive
		m.IsSensitive = &v
	}
}
