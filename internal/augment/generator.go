package augment

import "context"

// Kind is the JSON type of a schema property
type Kind string

const (
	KindString  Kind = "string"
	KindBoolean Kind = "boolean"
)

// Property is one field of a constrained JSON response
type Property struct {
	Name string
	Kind Kind
}

// Schema constrains a response to a JSON object with the given properties
type Schema struct {
	Properties []Property
}

// InlineData is binary content sent alongside the prompt
type InlineData struct {
	Data     []byte
	MIMEType string
}

// Request is a single completion request
type Request struct {
	Prompt string
	Inline *InlineData

	// Schema, when set, asks for a JSON response of that shape
	Schema *Schema

	// DisableThinking turns off extended reasoning for latency-sensitive calls
	DisableThinking bool
}

// Generator is a generative-AI completion endpoint
type Generator interface {
	// Name identifies the provider in logs
	Name() string

	// Generate returns the text of the first candidate response
	Generate(ctx context.Context, req Request) (string, error)
}
