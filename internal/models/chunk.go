package models

// RawDocument is one normalized text document produced by a loader,
// before chunking. Metadata carries the origin-specific locator
// (page number, row number, source URL).
type RawDocument struct {
	PageContent string
	Metadata    map[string]any
}

// Chunk is a bounded span of source text with enough metadata to be
// independently attributable and independently deletable.
type Chunk struct {
	Text     string
	Metadata map[string]any
}

// ScoredChunk is a retrieval hit with its similarity score.
type ScoredChunk struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
	Score    float32        `json:"score"`
}
