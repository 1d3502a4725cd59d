package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mindmorass/clipdeck/internal/augment"
)

const (
	defaultOpenAIURL   = "https://api.openai.com/v1/chat/completions"
	defaultOpenAIModel = "gpt-4o-mini"
	jsonResponseType   = "json_object"
)

// OpenAI talks to an OpenAI-compatible chat completions endpoint
// (OpenAI, OpenRouter, local gateways)
type OpenAI struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewOpenAI creates a chat completions client
func NewOpenAI(cfg Config) *OpenAI {
	c := &OpenAI{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		baseURL:    strings.TrimSpace(cfg.BaseURL),
		model:      strings.TrimSpace(cfg.Model),
		httpClient: httpClient(cfg),
	}
	if c.baseURL == "" {
		c.baseURL = defaultOpenAIURL
	}
	if c.model == "" || strings.HasPrefix(c.model, "gemini-") {
		c.model = defaultOpenAIModel
	}
	return c
}

// Name returns the provider name
func (c *OpenAI) Name() string {
	return ProviderOpenAI
}

// Model returns the model requests are sent to
func (c *OpenAI) Model() string {
	return c.model
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("openai request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Generate sends one chat completion request
func (c *OpenAI) Generate(ctx context.Context, req augment.Request) (string, error) {
	payload := chatRequest{
		Model:    c.model,
		Messages: []chatMessage{{Role: "user", Content: buildContent(req)}},
	}
	if req.Schema != nil {
		payload.Messages = append([]chatMessage{{Role: "system", Content: schemaInstruction(req.Schema)}}, payload.Messages...)
		payload.ResponseFormat = map[string]string{"type": jsonResponseType}
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("openai request: encode body: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("openai request: new request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("openai request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("openai request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", &httpStatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var completion chatResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("openai request: decode response: %w", err)
	}
	if completion.Error != nil {
		return "", fmt.Errorf("openai request: api error: %s", strings.TrimSpace(completion.Error.Message))
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("openai request: %w", ErrNoCandidates)
	}

	choice := completion.Choices[0]
	if choice.Message.Content == "" && choice.Message.Refusal != "" {
		return "", fmt.Errorf("openai request: refused (finish_reason=%q): %s", choice.FinishReason, choice.Message.Refusal)
	}
	return choice.Message.Content, nil
}

func buildContent(req augment.Request) any {
	if req.Inline == nil {
		return req.Prompt
	}
	dataURL := "data:" + req.Inline.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(req.Inline.Data)
	return []contentPart{
		{Type: "text", Text: req.Prompt},
		{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
	}
}

func schemaInstruction(s *augment.Schema) string {
	fields := make([]string, 0, len(s.Properties))
	for _, p := range s.Properties {
		fields = append(fields, fmt.Sprintf("%q (%s)", p.Name, p.Kind))
	}
	return "Respond with a single JSON object with exactly these fields: " + strings.Join(fields, ", ") + "."
}
