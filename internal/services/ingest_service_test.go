package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notevanta/backend/internal/chunker"
	"github.com/notevanta/backend/internal/loaders"
	"github.com/notevanta/backend/internal/utils"
)

func newIngestFixture() (IngestService, *fakeEmbedder, *fakeIndex, *memDocRepo) {
	emb := &fakeEmbedder{}
	idx := &fakeIndex{}
	docs := &memDocRepo{}
	log := discardLogger()

	adapter := loaders.NewAdapter(http.DefaultClient, log)
	splitter := chunker.New(chunker.WithChunkSize(64), chunker.WithChunkOverlap(16))

	return NewIngestService(adapter, splitter, emb, idx, docs, log), emb, idx, docs
}

func TestIngestService_Ingest(t *testing.T) {
	ctx := context.Background()

	t.Run("text source lands in the index and the catalog", func(t *testing.T) {
		svc, emb, idx, docs := newIngestFixture()

		res, err := svc.Ingest(ctx, "u1", loaders.Source{
			Kind:     loaders.KindText,
			Filename: "notes.txt",
			Text:     "First paragraph about lasers.\n\nSecond paragraph about optics and lenses, long enough to split.",
		})
		require.NoError(t, err)
		assert.Equal(t, res.ChunkCount, len(idx.upserted))
		assert.Greater(t, res.ChunkCount, 0)
		assert.Empty(t, res.Failures)
		assert.Equal(t, 1, emb.docCalls)

		for _, p := range idx.upserted {
			assert.NotEmpty(t, p.ID)
			assert.NotEmpty(t, p.Vector)
			assert.Equal(t, "u1", p.Metadata["userId"])
			assert.Equal(t, "notes.txt", p.Metadata["filename"])
		}

		rows, err := docs.ListByUser(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "notes.txt", rows[0].Filename)
		assert.Equal(t, string(loaders.KindText), rows[0].Type)
		assert.Equal(t, res.ChunkCount, rows[0].ChunkCount)
	})

	t.Run("empty source is rejected before embedding", func(t *testing.T) {
		svc, emb, idx, _ := newIngestFixture()

		_, err := svc.Ingest(ctx, "u1", loaders.Source{
			Kind:     loaders.KindText,
			Filename: "empty.txt",
			Text:     "   \n\n  ",
		})
		require.Error(t, err)
		assert.Equal(t, 0, emb.docCalls)
		assert.Empty(t, idx.upserted)
	})

	t.Run("embedding failure leaves no partial writes", func(t *testing.T) {
		svc, emb, idx, docs := newIngestFixture()
		emb.err = utils.E(utils.CodeEmbeddingFailed, "test", "backend down", nil)

		_, err := svc.Ingest(ctx, "u1", loaders.Source{
			Kind:     loaders.KindText,
			Filename: "notes.txt",
			Text:     "some content",
		})
		require.Error(t, err)
		assert.True(t, utils.IsCode(err, utils.CodeEmbeddingFailed))
		assert.Empty(t, idx.upserted)

		rows, _ := docs.ListByUser(ctx, "u1")
		assert.Empty(t, rows)
	})

	t.Run("validates user and filename", func(t *testing.T) {
		svc, _, _, _ := newIngestFixture()

		_, err := svc.Ingest(ctx, "", loaders.Source{Kind: loaders.KindText, Filename: "a", Text: "x"})
		assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))

		_, err = svc.Ingest(ctx, "u1", loaders.Source{Kind: loaders.KindText, Text: "x"})
		assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
	})

	t.Run("unknown kind surfaces the loader error", func(t *testing.T) {
		svc, _, _, _ := newIngestFixture()

		_, err := svc.Ingest(ctx, "u1", loaders.Source{Kind: "audio", Filename: "a.mp3"})
		assert.True(t, utils.IsCode(err, utils.CodeUnsupportedSource))
	})
}
