package llm

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestNames(t *testing.T) {
	if got := Names(); !reflect.DeepEqual(got, []string{"gemini", "openai"}) {
		t.Fatalf("unexpected provider names %v", got)
	}
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	if _, err := New(context.Background(), "clippy", Config{APIKey: "k"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(context.Background(), "openai", Config{}); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestNewSelectsProvider(t *testing.T) {
	gen, err := New(context.Background(), " OpenAI ", Config{APIKey: "k"})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if gen.Name() != ProviderOpenAI {
		t.Fatalf("expected openai provider, got %q", gen.Name())
	}
}
