package item

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseType(t *testing.T) {
	got, err := ParseType(" code ")
	if err != nil {
		t.Fatalf("ParseType returned error: %v", err)
	}
	if got != TypeCode {
		t.Fatalf("expected CODE, got %q", got)
	}

	if _, err := ParseType("VIDEO"); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
}

func TestCoerceTypeFallsBackToText(t *testing.T) {
	if got := CoerceType("hologram"); got != TypeText {
		t.Fatalf("expected TEXT, got %q", got)
	}
	if got := CoerceType("image"); got != TypeImage {
		t.Fatalf("expected IMAGE, got %q", got)
	}
}

func TestNewAssignsIdentity(t *testing.T) {
	before := time.Now().UnixMilli()
	a := New(TypeText, "hello")
	b := New(TypeText, "hello")
	after := time.Now().UnixMilli()

	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("expected distinct ids, got %q and %q", a.ID, b.ID)
	}
	if a.CreatedAt < before || a.CreatedAt > after {
		t.Fatalf("createdAt %d outside [%d, %d]", a.CreatedAt, before, after)
	}
	if a.Preview != "hello" {
		t.Fatalf("unexpected preview %q", a.Preview)
	}
	if err := a.Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
}

func TestNewCoercesInvalidType(t *testing.T) {
	it := New(Type("BOGUS"), "x")
	if it.Type != TypeText {
		t.Fatalf("expected TEXT, got %q", it.Type)
	}
}

func TestValidateRejectsUnknownType(t *testing.T) {
	it := New(TypeText, "x")
	it.Type = "BOGUS"
	if err := it.Validate(); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
	it.Type = TypeText
	it.ID = " "
	if err := it.Validate(); !errors.Is(err, ErrMissingID) {
		t.Fatalf("expected ErrMissingID, got %v", err)
	}
}

func TestMakePreviewTruncates(t *testing.T) {
	long := strings.Repeat("word ", 100)
	preview := MakePreview(TypeText, long)
	if got := len([]rune(preview)); got != PreviewLength {
		t.Fatalf("expected %d runes, got %d", PreviewLength, got)
	}
	if !strings.HasSuffix(preview, "…") {
		t.Fatalf("expected ellipsis suffix, got %q", preview)
	}

	if got := MakePreview(TypeText, "a\n\n  b\tc"); got != "a b c" {
		t.Fatalf("expected collapsed whitespace, got %q", got)
	}
	if got := MakePreview(TypeImage, "aGVsbG8="); got != "aGVsbG8=" {
		t.Fatalf("expected image preview to keep payload, got %q", got)
	}
}

func TestPreviewNotResyncedOnEdit(t *testing.T) {
	it := New(TypeText, "original")
	it.Content = "edited"
	if it.Preview != "original" {
		t.Fatalf("preview should stay as computed at creation, got %q", it.Preview)
	}
}

func TestMetadataJSONOmitsUnset(t *testing.T) {
	it := New(TypeCode, "x := 1")
	it.ApplyCodeAnalysis("go", false)

	data, err := json.Marshal(it)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	if !strings.Contains(s, `"isSensitive":false`) {
		t.Fatalf("expected explicit isSensitive false, got %s", s)
	}
	if strings.Contains(s, "ocrText") {
		t.Fatalf("expected unset ocrText to be omitted, got %s", s)
	}
}
