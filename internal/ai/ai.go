// Package ai is the provider boundary: embedding and generation reached
// through a fixed request/response contract with per-call timeouts.
package ai

import "context"

// Embedder converts texts into fixed-dimensionality vectors. Implementations
// must embed queries and corpus chunks in the same vector space.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces an answer for a fully assembled prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
