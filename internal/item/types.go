package item

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Type identifies how an item's content is interpreted and rendered
type Type string

const (
	TypeText  Type = "TEXT"
	TypeImage Type = "IMAGE"
	TypeCode  Type = "CODE"
	TypeLink  Type = "LINK"
	TypeEmail Type = "EMAIL"
	TypePhone Type = "PHONE"
	TypeColor Type = "COLOR"
	TypeFile  Type = "FILE"
)

// PreviewLength is the maximum number of runes kept in a text preview
const PreviewLength = 120

var (
	ErrUnknownType    = errors.New("unknown item type")
	ErrMissingID      = errors.New("item id is required")
	ErrMissingCreated = errors.New("item creation time is required")
)

// Types returns the closed set of item types in display order
func Types() []Type {
	return []Type{TypeText, TypeImage, TypeCode, TypeLink, TypeEmail, TypePhone, TypeColor, TypeFile}
}

// Valid returns true if t is one of the enumerated types
func (t Type) Valid() bool {
	switch t {
	case TypeText, TypeImage, TypeCode, TypeLink, TypeEmail, TypePhone, TypeColor, TypeFile:
		return true
	default:
		return false
	}
}

func (t Type) String() string {
	return string(t)
}

// ParseType parses a type name case-insensitively
func ParseType(s string) (Type, error) {
	t := Type(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
	}
	return t, nil
}

// CoerceType parses a type name, falling back to TEXT for unknown input
func CoerceType(s string) Type {
	t, err := ParseType(s)
	if err != nil {
		return TypeText
	}
	return t
}

// Metadata holds optional enrichment fields. Every field may be populated
// after the item is created.
type Metadata struct {
	Language    string `json:"language,omitempty"`
	OCRText     string `json:"ocrText,omitempty"`
	Translation string `json:"translation,omitempty"`
	FileName    string `json:"fileName,omitempty"`
	FileType    string `json:"fileType,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
	IsSensitive *bool  `json:"isSensitive,omitempty"`
}

// IsZero returns true if no metadata field is set
func (m *Metadata) IsZero() bool {
	return m == nil || *m == Metadata{}
}

// Sensitive reports the sensitivity flag, treating unset as false
func (m *Metadata) Sensitive() bool {
	return m != nil && m.IsSensitive != nil && *m.IsSensitive
}

// ClipboardItem is a single entry in the clipboard history
type ClipboardItem struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Content   string    `json:"content"`
	Preview   string    `json:"preview"`
	CreatedAt int64     `json:"createdAt"` // epoch milliseconds
	Tags      []string  `json:"tags"`
	Metadata  *Metadata `json:"metadata,omitempty"`
}

// New creates an item with a fresh id, creation time and preview
func New(t Type, content string) *ClipboardItem {
	if !t.Valid() {
		t = TypeText
	}
	return &ClipboardItem{
		ID:        uuid.New().String(),
		Type:      t,
		Content:   content,
		Preview:   MakePreview(t, content),
		CreatedAt: time.Now().UnixMilli(),
		Tags:      []string{},
	}
}

// Created returns the creation time
func (i *ClipboardItem) Created() time.Time {
	return time.UnixMilli(i.CreatedAt)
}

// Validate checks the invariants an item must satisfy before it is stored
func (i *ClipboardItem) Validate() error {
	if strings.TrimSpace(i.ID) == "" {
		return ErrMissingID
	}
	if !i.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownType, i.Type)
	}
	if i.CreatedAt <= 0 {
		return ErrMissingCreated
	}
	return nil
}

// EnsureMetadata returns the item's metadata, allocating it if needed
func (i *ClipboardItem) EnsureMetadata() *Metadata {
	if i.Metadata == nil {
		i.Metadata = &Metadata{}
	}
	return i.Metadata
}

// MakePreview derives the preview for content of the given type.
// Images keep their encoded payload as the thumbnail.
func MakePreview(t Type, content string) string {
	if t == TypeImage {
		return content
	}
	collapsed := strings.Join(strings.Fields(content), " ")
	if utf8.RuneCountInString(collapsed) <= PreviewLength {
		return collapsed
	}
	runes := []rune(collapsed)
	return string(runes[:PreviewLength-1]) + "…"
}

// Template is a reusable content snippet
type Template struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"createdAt"`
}

// NewTemplate creates a template with a fresh id
func NewTemplate(name, content string) *Template {
	return &Template{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(name),
		Content:   content,
		CreatedAt: time.Now().UnixMilli(),
	}
}
