package augment

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	openingFence = regexp.MustCompile("```[\\w+#.-]*[ \\t]*\\r?\\n")
	anyFence     = regexp.MustCompile("```")
)

// StripCodeFences removes markdown code fences (an opening marker with an
// optional language tag, and closing markers) and surrounding whitespace.
// Applying it to its own output changes nothing.
func StripCodeFences(s string) string {
	s = openingFence.ReplaceAllString(s, "")
	s = anyFence.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// parseAnalysis reads the constrained analysis response. Fields are checked
// one by one so a missing or mistyped field only resets that field.
func parseAnalysis(text string) (CodeAnalysis, error) {
	var raw map[string]json.RawMessage
	if err := decodeJSONObject(text, &raw); err != nil {
		return CodeAnalysis{}, err
	}
	if raw == nil {
		return CodeAnalysis{}, fmt.Errorf("parse response: not an object (payload: %s)", snippet(text))
	}

	analysis := CodeAnalysis{Language: DefaultLanguage, Status: StatusSucceeded}

	var language string
	if msg, ok := raw["language"]; ok && json.Unmarshal(msg, &language) == nil {
		if language = strings.TrimSpace(language); language != "" {
			analysis.Language = language
		}
	}

	var sensitive bool
	if msg, ok := raw["isSensitive"]; ok && json.Unmarshal(msg, &sensitive) == nil {
		analysis.IsSensitive = sensitive
	}

	return analysis, nil
}

// decodeJSONObject decodes a JSON object, tolerating a fenced block or
// chatter around the object
func decodeJSONObject(content string, target any) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return ErrEmptyResponse
	}

	directErr := json.Unmarshal([]byte(trimmed), target)
	if directErr == nil {
		return nil
	}

	sanitized := StripCodeFences(trimmed)
	if start := strings.Index(sanitized, "{"); start >= 0 {
		if end := strings.LastIndex(sanitized, "}"); end > start {
			sanitized = sanitized[start : end+1]
		}
	}
	if sanitized == "" || sanitized == trimmed {
		return fmt.Errorf("parse response: %w (payload: %s)", directErr, snippet(trimmed))
	}
	if err := json.Unmarshal([]byte(sanitized), target); err != nil {
		return fmt.Errorf("parse response: %w (payload: %s)", err, snippet(sanitized))
	}
	return nil
}

func snippet(s string) string {
	clean := strings.Join(strings.Fields(s), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	if clean == "" {
		return "<empty>"
	}
	return clean
}
