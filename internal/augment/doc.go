// Package augment enriches clipboard content through a generative-AI
// provider: OCR text extraction, code analysis, code formatting and
// translation.
//
// Augmentation is best effort. Every operation returns a usable value; when
// the provider is not configured or a call fails, the value is a documented
// fallback and the result is marked degraded. Errors are logged, never
// returned.
package augment
