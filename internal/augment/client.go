package augment

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultModel is the model used when none is configured
	DefaultModel = "gemini-2.5-flash"

	// DefaultTimeout bounds a single provider call
	DefaultTimeout = 60 * time.Second

	// DefaultLanguage is reported when code analysis cannot name a language
	DefaultLanguage = "plaintext"

	FallbackNotConfigured   = "API key not configured."
	FallbackExtractFailed   = "Failed to extract text."
	FallbackTranslateFailed = "Translation failed."
)

var (
	ErrEmptyResponse = errors.New("empty response")
	ErrInvalidImage  = errors.New("invalid image payload")
)

// Config is fixed for the lifetime of a Client
type Config struct {
	// APIKey is the provider credential. Empty disables every operation.
	APIKey string

	// Timeout bounds each provider call; zero means no bound
	Timeout time.Duration
}

// Client runs augmentation requests against a Generator
type Client struct {
	gen        Generator
	configured bool
	timeout    time.Duration
	logger     *zap.Logger
}

// New creates a client. A missing credential or generator leaves the client
// permanently unconfigured; it then answers every call with fallbacks.
func New(cfg Config, gen Generator, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		gen:        gen,
		configured: strings.TrimSpace(cfg.APIKey) != "" && gen != nil,
		timeout:    cfg.Timeout,
		logger:     logger,
	}
	if !c.configured {
		logger.Warn("augmentation provider not configured; AI features will return fallbacks")
	}
	return c
}

// Configured returns true if requests reach the provider
func (c *Client) Configured() bool {
	return c.configured
}

// Provider returns the provider name, or "" when not configured
func (c *Client) Provider() string {
	if !c.configured {
		return ""
	}
	return c.gen.Name()
}

// ExtractText runs OCR over a base64 encoded image. A data URL prefix
// ("data:image/png;base64,") is accepted and overrides an empty mimeType.
func (c *Client) ExtractText(ctx context.Context, base64Image, mimeType string) TextResult {
	if !c.configured {
		return degraded(FallbackNotConfigured, CauseNotConfigured)
	}

	data, mt, err := decodeImage(base64Image, mimeType)
	if err != nil {
		c.logFailure("extract text", err)
		return degraded(FallbackExtractFailed, CauseBadInput)
	}

	text, err := c.generate(ctx, Request{
		Prompt: ocrPrompt,
		Inline: &InlineData{Data: data, MIMEType: mt},
	})
	if err != nil {
		c.logFailure("extract text", err)
		return degraded(FallbackExtractFailed, CauseRequestFailed)
	}
	return succeeded(text)
}

// AnalyzeCode detects the language of a snippet and whether it contains
// secrets such as API keys or passwords
func (c *Client) AnalyzeCode(ctx context.Context, code string) CodeAnalysis {
	if !c.configured {
		return defaultAnalysis(CauseNotConfigured)
	}

	text, err := c.generate(ctx, Request{
		Prompt: fmt.Sprintf(analyzePrompt, code),
		Schema: analysisSchema,
	})
	if err != nil {
		c.logFailure("analyze code", err)
		return defaultAnalysis(CauseRequestFailed)
	}

	analysis, err := parseAnalysis(text)
	if err != nil {
		c.logFailure("analyze code", err)
		return defaultAnalysis(CauseBadResponse)
	}
	return analysis
}

// FormatCode beautifies a snippet. The original code is returned when the
// provider cannot help.
func (c *Client) FormatCode(ctx context.Context, code, language string) TextResult {
	if !c.configured {
		return degraded(code, CauseNotConfigured)
	}

	text, err := c.generate(ctx, Request{
		Prompt:          fmt.Sprintf(formatPrompt, strings.TrimSpace(language), code),
		DisableThinking: true,
	})
	if err != nil {
		c.logFailure("format code", err)
		return degraded(code, CauseRequestFailed)
	}

	formatted := StripCodeFences(text)
	if formatted == "" {
		c.logFailure("format code", ErrEmptyResponse)
		return degraded(code, CauseBadResponse)
	}
	return succeeded(formatted)
}

// Translate translates text into targetLanguage. The target may be a
// language name ("Spanish") or a BCP 47 tag ("es", "pt-BR").
func (c *Client) Translate(ctx context.Context, text, targetLanguage string) TextResult {
	if !c.configured {
		return degraded(FallbackNotConfigured, CauseNotConfigured)
	}

	out, err := c.generate(ctx, Request{
		Prompt:          fmt.Sprintf(translatePrompt, LanguageName(targetLanguage), text),
		DisableThinking: true,
	})
	if err != nil {
		c.logFailure("translate", err)
		return degraded(FallbackTranslateFailed, CauseRequestFailed)
	}
	if strings.TrimSpace(out) == "" {
		c.logFailure("translate", ErrEmptyResponse)
		return degraded(FallbackTranslateFailed, CauseBadResponse)
	}
	return succeeded(out)
}

// generate makes exactly one provider call
func (c *Client) generate(ctx context.Context, req Request) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.gen.Generate(ctx, req)
}

func (c *Client) logFailure(op string, err error) {
	c.logger.Warn("augmentation degraded",
		zap.String("op", op),
		zap.String("provider", c.gen.Name()),
		zap.Error(err),
	)
}

func decodeImage(payload, mimeType string) ([]byte, string, error) {
	payload = strings.TrimSpace(payload)
	if strings.HasPrefix(payload, "data:") {
		header, body, ok := strings.Cut(payload, ",")
		if !ok || !strings.HasSuffix(header, ";base64") {
			return nil, "", fmt.Errorf("%w: unsupported data URL", ErrInvalidImage)
		}
		if mimeType == "" {
			mimeType = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
		}
		payload = body
	}
	if payload == "" {
		return nil, "", fmt.Errorf("%w: empty payload", ErrInvalidImage)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// Browsers occasionally hand over unpadded or URL-safe encodings
		if alt, altErr := base64.RawURLEncoding.DecodeString(strings.TrimRight(payload, "=")); altErr == nil {
			data = alt
		} else {
			return nil, "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
		}
	}
	if mimeType == "" {
		mimeType = "image/png"
	}
	return data, mimeType, nil
}
