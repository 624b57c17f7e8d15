package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/notevanta/backend/internal/models"
	"github.com/notevanta/backend/internal/utils"
)

// Qdrant is a minimal REST client to a Qdrant server. It assumes
// cosine distance and creates each user's collection on first write.
type Qdrant struct {
	url    string
	apiKey string
	client *http.Client
}

// QdrantConfig configures the Qdrant index.
type QdrantConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

func NewQdrant(cfg QdrantConfig) *Qdrant {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Qdrant{
		url:    cfg.URL,
		apiKey: cfg.APIKey,
		client: &http.Client{Timeout: timeout},
	}
}

func (q *Qdrant) Upsert(ctx context.Context, userID string, points []Point) error {
	const op = "Qdrant.Upsert"

	if len(points) == 0 {
		return nil
	}
	name := CollectionName(userID)

	if err := q.ensureCollection(ctx, name, len(points[0].Vector)); err != nil {
		return utils.E(utils.CodeVectorStore, op, "failed to create collection", err)
	}

	body := map[string]any{"points": make([]map[string]any, 0, len(points))}
	pts := body["points"].([]map[string]any)
	for _, p := range points {
		pts = append(pts, map[string]any{
			"id":     p.ID,
			"vector": p.Vector,
			"payload": map[string]any{
				"text":     p.Text,
				"metadata": p.Metadata,
			},
		})
	}
	body["points"] = pts

	status, _, err := q.do(ctx, http.MethodPut,
		fmt.Sprintf("%s/collections/%s/points?wait=true", q.url, name), body)
	if err != nil {
		return utils.E(utils.CodeVectorStore, op, "failed to upsert points", err)
	}
	if status >= 300 {
		return utils.E(utils.CodeVectorStore, op, fmt.Sprintf("upsert returned status %d", status), nil)
	}
	return nil
}

func (q *Qdrant) Query(ctx context.Context, userID string, vector []float32, k int) ([]models.ScoredChunk, error) {
	const op = "Qdrant.Query"

	if k <= 0 {
		k = 3
	}
	name := CollectionName(userID)

	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	status, raw, err := q.do(ctx, http.MethodPost,
		fmt.Sprintf("%s/collections/%s/points/search", q.url, name), req)
	if err != nil {
		return nil, utils.E(utils.CodeVectorStore, op, "search request failed", err)
	}
	if status == http.StatusNotFound {
		// Nothing ingested for this user yet.
		return nil, utils.E(utils.CodeCollectionNotFound, op, "no collection for user", nil)
	}
	if status >= 300 {
		return nil, utils.E(utils.CodeVectorStore, op, fmt.Sprintf("search returned status %d", status), nil)
	}

	var resp struct {
		Result []struct {
			Score   float32 `json:"score"`
			Payload struct {
				Text     string         `json:"text"`
				Metadata map[string]any `json:"metadata"`
			} `json:"payload"`
		} `json:"result"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, utils.E(utils.CodeVectorStore, op, "failed to decode search response", err)
	}

	out := make([]models.ScoredChunk, 0, len(resp.Result))
	for _, r := range resp.Result {
		out = append(out, models.ScoredChunk{
			Text:     r.Payload.Text,
			Metadata: r.Payload.Metadata,
			Score:    r.Score,
		})
	}
	return out, nil
}

func (q *Qdrant) DeleteByFilename(ctx context.Context, userID, filename string) error {
	const op = "Qdrant.DeleteByFilename"

	name := CollectionName(userID)
	body := map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{
				{"key": "metadata.filename", "match": map[string]any{"value": filename}},
			},
		},
	}
	status, _, err := q.do(ctx, http.MethodPost,
		fmt.Sprintf("%s/collections/%s/points/delete?wait=true", q.url, name), body)
	if err != nil {
		return utils.E(utils.CodeVectorStore, op, "delete request failed", err)
	}
	if status == http.StatusNotFound {
		// Deleting from a collection that was never created is a no-op.
		return nil
	}
	if status >= 300 {
		return utils.E(utils.CodeVectorStore, op, fmt.Sprintf("delete returned status %d", status), nil)
	}
	return nil
}

// ensureCollection creates the collection if missing. Qdrant answers
// 200 for a fresh create and 409 when it already exists.
func (q *Qdrant) ensureCollection(ctx context.Context, name string, dimension int) error {
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	status, _, err := q.do(ctx, http.MethodPut,
		fmt.Sprintf("%s/collections/%s", q.url, name), body)
	if err != nil {
		return err
	}
	if status >= 300 && status != http.StatusConflict {
		return fmt.Errorf("create collection %s: status %d", name, status)
	}
	return nil
}

func (q *Qdrant) do(ctx context.Context, method, url string, body any) (int, []byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return 0, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, buf.Bytes(), nil
}
