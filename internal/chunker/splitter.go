// Package chunker splits raw documents into overlapping fixed-size chunks.
package chunker

import (
	"strings"

	"github.com/notevanta/backend/internal/models"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 400

// defaultSeparators are tried coarsest first: paragraph break, line
// break, sentence end, word space. A run with none of these markers is
// indivisible and gets emitted whole even when it exceeds the budget.
var defaultSeparators = []string{"\n\n", "\n", ". ", " "}

// Splitter splits text on the coarsest boundary that keeps segments
// within budget, then packs segments into chunks that share exactly
// chunkOverlap tail characters with their predecessor.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

// Option configures the splitter.
type Option func(*Splitter)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithChunkOverlap sets the overlap between adjacent chunks in characters.
func WithChunkOverlap(overlap int) Option {
	return func(s *Splitter) {
		if overlap >= 0 {
			s.chunkOverlap = overlap
		}
	}
}

// New creates a splitter. Overlap is clamped below chunk size.
func New(opts ...Option) *Splitter {
	s := &Splitter{
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
		separators:   defaultSeparators,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.chunkOverlap >= s.chunkSize {
		s.chunkOverlap = s.chunkSize / 4
	}
	return s
}

// ChunkSize reports the configured chunk size.
func (s *Splitter) ChunkSize() int { return s.chunkSize }

// ChunkOverlap reports the configured overlap.
func (s *Splitter) ChunkOverlap() int { return s.chunkOverlap }

// SplitText splits text into chunks of at most chunkSize characters.
// Adjacent chunks share the last chunkOverlap characters of the
// previous chunk. Only an indivisible token longer than the chunk size
// can produce an oversized chunk; it is emitted whole, never truncated.
func (s *Splitter) SplitText(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	// Segment budget is the net new content per chunk, so that an
	// overlap prefix plus one segment always fits in chunkSize.
	budget := s.chunkSize - s.chunkOverlap
	segments := s.segment(text, s.separators, budget)

	var chunks []string
	cur := ""
	prevTail := ""
	for _, seg := range segments {
		if cur != "" && len(cur)+len(seg) > s.chunkSize {
			chunks = append(chunks, cur)
			prevTail = tail(cur, s.chunkOverlap)
			cur = prevTail
		}
		if cur == prevTail && cur != "" && len(cur)+len(seg) > s.chunkSize {
			// An oversized indivisible segment: shrink the carried
			// overlap rather than exceed chunkSize for a splittable one.
			cur = tail(cur, s.chunkSize-len(seg))
		}
		cur += seg
	}
	if strings.TrimSpace(cur) != "" && cur != prevTail {
		chunks = append(chunks, cur)
	}
	return chunks
}

// SplitDocuments chunks each document in order. Every chunk inherits
// its source document's metadata unchanged.
func (s *Splitter) SplitDocuments(docs []models.RawDocument) []models.Chunk {
	var out []models.Chunk
	for _, doc := range docs {
		for _, text := range s.SplitText(doc.PageContent) {
			md := make(map[string]any, len(doc.Metadata))
			for k, v := range doc.Metadata {
				md[k] = v
			}
			out = append(out, models.Chunk{Text: text, Metadata: md})
		}
	}
	return out
}

// segment recursively splits text so each piece fits the budget,
// descending to a finer separator only for pieces that still exceed it.
// A piece with no remaining separators is returned whole.
func (s *Splitter) segment(text string, seps []string, budget int) []string {
	if len(text) <= budget {
		return []string{text}
	}
	if len(seps) == 0 {
		return []string{text}
	}
	parts := splitKeep(text, seps[0])
	if len(parts) == 1 {
		return s.segment(text, seps[1:], budget)
	}
	var out []string
	for _, p := range parts {
		if len(p) > budget {
			out = append(out, s.segment(p, seps[1:], budget)...)
		} else {
			out = append(out, p)
		}
	}
	return out
}

// splitKeep splits on sep, keeping the separator attached to the
// preceding piece so that no character of the source text is dropped.
func splitKeep(text, sep string) []string {
	raw := strings.Split(text, sep)
	if len(raw) == 1 {
		return raw
	}
	out := make([]string, 0, len(raw))
	for i, p := range raw {
		if i < len(raw)-1 {
			p += sep
		}
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func tail(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
