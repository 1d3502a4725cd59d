package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/mindmorass/clipdeck/internal/augment"
)

// DefaultGeminiModel is used when no model is configured
const DefaultGeminiModel = augment.DefaultModel

var (
	ErrMissingAPIKey = errors.New("api key required")
	ErrNoCandidates  = errors.New("response has no candidates")
)

// Gemini generates content through the Google Gen AI SDK
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini API client
func NewGemini(ctx context.Context, cfg Config) (*Gemini, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}

	cc := &genai.ClientConfig{
		APIKey:     strings.TrimSpace(cfg.APIKey),
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient(cfg),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: base}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultGeminiModel
	}
	return &Gemini{client: client, model: model}, nil
}

// Name returns the provider name
func (g *Gemini) Name() string {
	return ProviderGemini
}

// Model returns the model requests are sent to
func (g *Gemini) Model() string {
	return g.model
}

// Generate sends a single generateContent request
func (g *Gemini) Generate(ctx context.Context, req augment.Request) (string, error) {
	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	if req.Inline != nil {
		parts = append(parts, genai.NewPartFromBytes(req.Inline.Data, req.Inline.MIMEType))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	config := &genai.GenerateContentConfig{}
	if req.Schema != nil {
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = geminiSchema(req.Schema)
	}
	if req.DisableThinking {
		config.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: genai.Ptr[int32](0)}
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini generate: %w", ErrNoCandidates)
	}
	return resp.Text(), nil
}

func geminiSchema(s *augment.Schema) *genai.Schema {
	out := &genai.Schema{
		Type:       genai.TypeObject,
		Properties: make(map[string]*genai.Schema, len(s.Properties)),
	}
	for _, p := range s.Properties {
		out.Properties[p.Name] = &genai.Schema{Type: geminiType(p.Kind)}
	}
	return out
}

func geminiType(k augment.Kind) genai.Type {
	switch k {
	case augment.KindBoolean:
		return genai.TypeBoolean
	default:
		return genai.TypeString
	}
}
