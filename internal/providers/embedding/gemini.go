package embedding

import (
	"context"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/notevanta/backend/internal/utils"
)

// DefaultModel is the embedding model both ingestion and retrieval use.
const DefaultModel = "text-embedding-004"

// maxBatchSize is the provider's per-request content limit.
const maxBatchSize = 100

const maxRetries = 3

// Gemini embeds text through the Gemini embedding API.
type Gemini struct {
	client *genai.Client
	model  *genai.EmbeddingModel
	name   string
}

// NewGemini creates an embedder with RETRIEVAL_DOCUMENT task semantics
// on both paths, so query vectors stay comparable to corpus vectors.
func NewGemini(ctx context.Context, apiKey, modelName string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, "embedding.NewGemini", "failed to create gemini client", err)
	}
	if modelName == "" {
		modelName = DefaultModel
	}
	m := client.EmbeddingModel(modelName)
	m.TaskType = genai.TaskTypeRetrievalDocument
	return &Gemini{client: client, model: m, name: modelName}, nil
}

func (g *Gemini) Close() error { return g.client.Close() }

// Model reports the configured embedding model name.
func (g *Gemini) Model() string { return g.name }

// EmbedDocuments embeds a batch of chunk texts. The whole batch fails
// on provider failure; ingestion must not partially index.
func (g *Gemini) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	const op = "Gemini.EmbedDocuments"

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch := g.model.NewBatch()
		for _, t := range texts[start:end] {
			batch.AddContent(genai.Text(t))
		}

		resp, err := g.withRetry(ctx, func() (*genai.BatchEmbedContentsResponse, error) {
			return g.model.BatchEmbedContents(ctx, batch)
		})
		if err != nil {
			return nil, utils.E(utils.CodeEmbeddingFailed, op, "embedding provider failed", err)
		}
		if len(resp.Embeddings) != end-start {
			return nil, utils.E(utils.CodeEmbeddingFailed, op, "embedding count mismatch", nil)
		}
		for _, e := range resp.Embeddings {
			out = append(out, e.Values)
		}
	}
	return out, nil
}

// EmbedQuery embeds a single retrieval query.
func (g *Gemini) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	const op = "Gemini.EmbedQuery"

	var resp *genai.EmbedContentResponse
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		resp, err = g.model.EmbedContent(ctx, genai.Text(text))
		if err == nil {
			break
		}
		if attempt < maxRetries {
			select {
			case <-ctx.Done():
				return nil, utils.E(utils.CodeEmbeddingFailed, op, "embedding canceled", ctx.Err())
			case <-time.After(retryDelay(attempt)):
			}
		}
	}
	if err != nil {
		return nil, utils.E(utils.CodeEmbeddingFailed, op, "embedding provider failed", err)
	}
	if resp.Embedding == nil {
		return nil, utils.E(utils.CodeEmbeddingFailed, op, "empty embedding response", nil)
	}
	return resp.Embedding.Values, nil
}

func (g *Gemini) withRetry(ctx context.Context, fn func() (*genai.BatchEmbedContentsResponse, error)) (*genai.BatchEmbedContentsResponse, error) {
	var resp *genai.BatchEmbedContentsResponse
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		resp, err = fn()
		if err == nil {
			return resp, nil
		}
		if attempt < maxRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay(attempt)):
			}
		}
	}
	return nil, err
}

// retryDelay is an exponential backoff capped at 5s.
func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := 200 * time.Millisecond
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
