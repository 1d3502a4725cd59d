// Package llm provides the generative-AI backends used by augment.
package llm
