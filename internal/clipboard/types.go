package clipboard

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// ContentType represents the type of clipboard content
type ContentType string

const (
	ContentTypeText  ContentType = "text"
	ContentTypeImage ContentType = "image"
)

// ErrUnsupported is returned on platforms without pasteboard access
var ErrUnsupported = errors.New("clipboard access is not supported on this platform")

// Content is a snapshot of the system clipboard
type Content struct {
	Timestamp   time.Time   `json:"timestamp"`
	ContentType ContentType `json:"content_type"`
	MimeType    string      `json:"mime_type"`
	Checksum    string      `json:"checksum"`
	Size        int64       `json:"size"`
	Data        []byte      `json:"-"`
}

// NewText builds a text snapshot
func NewText(text string) *Content {
	return newContent(ContentTypeText, "text/plain", []byte(text))
}

// NewImage builds an image snapshot from encoded image bytes
func NewImage(data []byte, mimeType string) *Content {
	if mimeType == "" {
		mimeType = "image/png"
	}
	return newContent(ContentTypeImage, mimeType, data)
}

func newContent(ct ContentType, mimeType string, data []byte) *Content {
	return &Content{
		Timestamp:   time.Now().UTC(),
		ContentType: ct,
		MimeType:    mimeType,
		Checksum:    Checksum(data),
		Size:        int64(len(data)),
		Data:        data,
	}
}

// Checksum returns the hex SHA-256 of data
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// IsText returns true if content is text-based
func (c *Content) IsText() bool {
	return c.ContentType == ContentTypeText
}

// IsImage returns true if content is an image
func (c *Content) IsImage() bool {
	return c.ContentType == ContentTypeImage
}

// Source reads the system clipboard
type Source interface {
	// ChangeCount increases every time the clipboard is written
	ChangeCount() int

	// Read returns the current content, or nil if there is nothing to capture
	Read() (*Content, error)

	// Write replaces the clipboard content
	Write(content *Content) error
}

// System returns the platform clipboard
func System() Source {
	return systemSource{}
}

type systemSource struct{}

func (systemSource) ChangeCount() int        { return GetChangeCount() }
func (systemSource) Read() (*Content, error) { return Read() }
func (systemSource) Write(content *Content) error {
	if !Write(content) {
		return errWriteFailed
	}
	return nil
}
