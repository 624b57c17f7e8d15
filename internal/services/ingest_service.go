package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/notevanta/backend/internal/chunker"
	"github.com/notevanta/backend/internal/loaders"
	"github.com/notevanta/backend/internal/models"
	"github.com/notevanta/backend/internal/providers/embedding"
	pgrepo "github.com/notevanta/backend/internal/repositories/postgres"
	"github.com/notevanta/backend/internal/utils"
	"github.com/notevanta/backend/internal/vectorindex"
)

// IngestResult reports a completed upload. Failures lists crawl pages
// that could not be fetched; their absence from the index is expected.
type IngestResult struct {
	ChunkCount int                   `json:"chunks"`
	Failures   []loaders.PageFailure `json:"failures,omitempty"`
}

// IngestService runs the upload pipeline: load, chunk, embed, upsert.
// Any stage failure aborts the whole upload; there are no partial
// index writes for a batch.
type IngestService interface {
	Ingest(ctx context.Context, userID string, src loaders.Source) (*IngestResult, error)
}

type ingestService struct {
	loader   *loaders.Adapter
	splitter *chunker.Splitter
	embedder embedding.Embedder
	index    vectorindex.Index
	docs     pgrepo.DocumentRepository
	log      *logrus.Logger
}

func NewIngestService(
	loader *loaders.Adapter,
	splitter *chunker.Splitter,
	embedder embedding.Embedder,
	index vectorindex.Index,
	docs pgrepo.DocumentRepository,
	log *logrus.Logger,
) IngestService {
	return &ingestService{
		loader:   loader,
		splitter: splitter,
		embedder: embedder,
		index:    index,
		docs:     docs,
		log:      log,
	}
}

func (s *ingestService) Ingest(ctx context.Context, userID string, src loaders.Source) (*IngestResult, error) {
	const op = "IngestService.Ingest"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	if src.Filename == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "filename is required", nil)
	}

	loaded, err := s.loader.Load(ctx, src)
	if err != nil {
		return nil, err
	}

	chunks := s.splitter.SplitDocuments(loaded.Documents)
	if len(chunks) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "source produced no text to index", nil)
	}

	// Every chunk carries the user and filename so it stays
	// independently attributable and deletable.
	texts := make([]string, len(chunks))
	for i := range chunks {
		chunks[i].Metadata["userId"] = userID
		chunks[i].Metadata["filename"] = src.Filename
		texts[i] = chunks[i].Text
	}

	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(chunks) {
		return nil, utils.E(utils.CodeEmbeddingFailed, op, "embedding count mismatch", nil)
	}

	points := make([]vectorindex.Point, len(chunks))
	for i, c := range chunks {
		points[i] = vectorindex.Point{
			ID:       uuid.NewString(),
			Vector:   vectors[i],
			Text:     c.Text,
			Metadata: c.Metadata,
		}
	}
	if err := s.index.Upsert(ctx, userID, points); err != nil {
		return nil, err
	}

	record := &models.Document{
		ID:         uuid.NewString(),
		UserID:     userID,
		Filename:   src.Filename,
		Type:       string(src.Kind),
		ChunkCount: len(chunks),
		UploadDate: time.Now().UTC(),
	}
	if err := s.docs.Insert(ctx, record); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to persist document metadata", err)
	}

	s.log.WithFields(logrus.Fields{
		"user_id":  userID,
		"filename": src.Filename,
		"type":     src.Kind,
		"chunks":   len(chunks),
		"failures": len(loaded.Failures),
	}).Info("source ingested")

	return &IngestResult{ChunkCount: len(chunks), Failures: loaded.Failures}, nil
}
