// Package embedding converts text into fixed-length vectors via an
// external embedding service.
package embedding

import "context"

// Embedder is the gateway contract: output length equals input length
// and order is preserved, so chunk i always maps to vector i.
//
// Documents and queries must use the same model and task configuration;
// vector-space comparability requires symmetric embedding semantics.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}
