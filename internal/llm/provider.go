package llm

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/mindmorass/clipdeck/internal/augment"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	defaultHTTPTimeout = 60 * time.Second
)

// Config captures what a provider needs to reach its API
type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

type factory func(ctx context.Context, cfg Config) (augment.Generator, error)

var providers = map[string]factory{
	ProviderGemini: func(ctx context.Context, cfg Config) (augment.Generator, error) {
		return NewGemini(ctx, cfg)
	},
	ProviderOpenAI: func(ctx context.Context, cfg Config) (augment.Generator, error) {
		return NewOpenAI(cfg), nil
	},
}

// Names returns the registered provider names
func Names() []string {
	out := make([]string, 0, len(providers))
	for name := range providers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// New creates the named provider. An empty name selects Gemini.
func New(ctx context.Context, name string, cfg Config) (augment.Generator, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = ProviderGemini
	}
	f, ok := providers[key]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%s: %w", key, ErrMissingAPIKey)
	}
	return f(ctx, cfg)
}

func httpClient(cfg Config) *http.Client {
	if cfg.HTTPClient != nil {
		return cfg.HTTPClient
	}
	return &http.Client{Timeout: defaultHTTPTimeout}
}
