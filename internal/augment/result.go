package augment

import "fmt"

// Status tells whether a result came from the provider
type Status int

const (
	StatusSucceeded Status = iota
	StatusDegraded
)

func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "succeeded":
		*s = StatusSucceeded
	case "degraded":
		*s = StatusDegraded
	default:
		return fmt.Errorf("unknown status %q", text)
	}
	return nil
}

// Cause explains why a result is degraded
type Cause int

const (
	CauseNone Cause = iota
	CauseNotConfigured
	CauseBadInput
	CauseRequestFailed
	CauseBadResponse
)

func (c Cause) String() string {
	switch c {
	case CauseNone:
		return ""
	case CauseNotConfigured:
		return "not_configured"
	case CauseBadInput:
		return "bad_input"
	case CauseRequestFailed:
		return "request_failed"
	case CauseBadResponse:
		return "bad_response"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler
func (c Cause) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (c *Cause) UnmarshalText(text []byte) error {
	for _, candidate := range []Cause{CauseNone, CauseNotConfigured, CauseBadInput, CauseRequestFailed, CauseBadResponse} {
		if candidate.String() == string(text) {
			*c = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown cause %q", text)
}

// TextResult is the outcome of a text-producing operation
type TextResult struct {
	Text   string `json:"text"`
	Status Status `json:"status"`
	Cause  Cause  `json:"cause,omitempty"`
}

// Degraded returns true if Text is a fallback rather than provider output
func (r TextResult) Degraded() bool {
	return r.Status == StatusDegraded
}

// CodeAnalysis is the outcome of AnalyzeCode
type CodeAnalysis struct {
	Language    string `json:"language"`
	IsSensitive bool   `json:"isSensitive"`
	Status      Status `json:"status"`
	Cause       Cause  `json:"cause,omitempty"`
}

// Degraded returns true if the analysis holds default values only
func (a CodeAnalysis) Degraded() bool {
	return a.Status == StatusDegraded
}

func succeeded(text string) TextResult {
	return TextResult{Text: text, Status: StatusSucceeded}
}

func degraded(text string, cause Cause) TextResult {
	return TextResult{Text: text, Status: StatusDegraded, Cause: cause}
}

func defaultAnalysis(cause Cause) CodeAnalysis {
	return CodeAnalysis{Language: DefaultLanguage, Status: StatusDegraded, Cause: cause}
}
