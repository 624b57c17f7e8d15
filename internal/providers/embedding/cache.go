package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/notevanta/backend/internal/cache"
)

const cacheTTL = 24 * time.Hour

// CachingEmbedder wraps an Embedder with a Redis-backed cache. The
// embedding service is deterministic for a fixed model, so a text's
// vector can be reused across re-ingestion and repeated queries.
type CachingEmbedder struct {
	inner Embedder
	cache cache.Cache
	model string
}

func NewCachingEmbedder(inner Embedder, c cache.Cache, model string) *CachingEmbedder {
	if model == "" {
		model = DefaultModel
	}
	return &CachingEmbedder{inner: inner, cache: c, model: model}
}

func (c *CachingEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	var missTexts []string
	var missIdx []int
	for i, t := range texts {
		var vec []float32
		hit, err := c.cache.GetJSON(ctx, c.key(t), &vec)
		if err == nil && hit && len(vec) > 0 {
			out[i] = vec
			continue
		}
		missTexts = append(missTexts, t)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) > 0 {
		vecs, err := c.inner.EmbedDocuments(ctx, missTexts)
		if err != nil {
			return nil, err
		}
		for j, vec := range vecs {
			out[missIdx[j]] = vec
			_ = c.cache.SetJSON(ctx, c.key(missTexts[j]), vec, cacheTTL)
		}
	}
	return out, nil
}

func (c *CachingEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	hit, err := c.cache.GetJSON(ctx, c.key(text), &vec)
	if err == nil && hit && len(vec) > 0 {
		return vec, nil
	}

	vec, err = c.inner.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	_ = c.cache.SetJSON(ctx, c.key(text), vec, cacheTTL)
	return vec, nil
}

func (c *CachingEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(c.model + "|" + text))
	return "emb:" + c.model + ":" + hex.EncodeToString(sum[:])
}
