package provider

import (
	"context"
	"errors"
)

// Errors a Generator reports that the synthesizer treats as fallback
// triggers. Anything else it returns is a fallback trigger too; these just
// carry a sharper diagnosis.
var (
	// ErrNotConfigured means no API key was supplied; the service runs in
	// permanent fallback mode.
	ErrNotConfigured = errors.New("generative model not configured")
	// ErrModelNotFound means the configured model name is unknown upstream.
	ErrModelNotFound = errors.New("model not found")
	// ErrResourceExhausted means the upstream quota or rate limit was hit.
	ErrResourceExhausted = errors.New("resource exhausted")
)

// Generator produces a natural-language completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Embedder maps texts to fixed-length dense vectors. Pure, stateless; used
// by both the ingestion and query paths.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
