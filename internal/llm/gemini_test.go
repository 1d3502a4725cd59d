package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mindmorass/clipdeck/internal/augment"
)

func geminiServer(t *testing.T, text string, inspect func(path, body string)) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if inspect != nil {
			inspect(r.URL.Path, string(body))
		}
		w.Header().Set("Content-Type", "application/json")
		payload := map[string]any{
			"candidates": []any{
				map[string]any{
					"content": map[string]any{
						"role":  "model",
						"parts": []any{map[string]any{"text": text}},
					},
				},
			},
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
}

func TestGeminiGenerate(t *testing.T) {
	server := geminiServer(t, "extracted text", func(path, body string) {
		if !strings.Contains(path, "gemini-2.5-flash:generateContent") {
			t.Errorf("unexpected path %s", path)
		}
		if !strings.Contains(body, "Extract all text") {
			t.Errorf("expected prompt in body, got %s", body)
		}
		if !strings.Contains(body, "inlineData") {
			t.Errorf("expected inline image in body, got %s", body)
		}
	})
	defer server.Close()

	gen, err := NewGemini(context.Background(), Config{APIKey: "test", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewGemini returned error: %v", err)
	}
	got, err := gen.Generate(context.Background(), augment.Request{
		Prompt: "Extract all text from this image.",
		Inline: &augment.InlineData{Data: []byte("png"), MIMEType: "image/png"},
	})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if got != "extracted text" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestGeminiGenerateSchema(t *testing.T) {
	server := geminiServer(t, `{"language":"go","isSensitive":true}`, func(path, body string) {
		if !strings.Contains(body, "application/json") {
			t.Errorf("expected JSON response mime type, got %s", body)
		}
	})
	defer server.Close()

	gen, err := NewGemini(context.Background(), Config{APIKey: "test", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewGemini returned error: %v", err)
	}
	client := augment.New(augment.Config{APIKey: "test"}, gen, nil)
	analysis := client.AnalyzeCode(context.Background(), "package main")
	if analysis.Degraded() || analysis.Language != "go" || !analysis.IsSensitive {
		t.Fatalf("unexpected analysis %+v", analysis)
	}
}

func TestGeminiRequiresAPIKey(t *testing.T) {
	if _, err := NewGemini(context.Background(), Config{}); err == nil {
		t.Fatal("expected missing key error")
	}
}

func TestGeminiSchemaMapping(t *testing.T) {
	s := geminiSchema(&augment.Schema{Properties: []augment.Property{
		{Name: "language", Kind: augment.KindString},
		{Name: "isSensitive", Kind: augment.KindBoolean},
	}})
	if len(s.Properties) != 2 {
		t.Fatalf("expected two properties, got %d", len(s.Properties))
	}
	if s.Properties["isSensitive"].Type != geminiType(augment.KindBoolean) {
		t.Fatal("expected boolean property")
	}
}
