package vectorindex

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/notevanta/backend/internal/models"
	"github.com/notevanta/backend/internal/utils"
)

// chunkRow is the pgvector-backed representation of an indexed chunk.
// Per-user isolation is a filtered column here instead of a separate
// collection; CollectionName still names the logical partition.
type chunkRow struct {
	ID        string          `gorm:"column:id;type:uuid;primaryKey"`
	UserID    string          `gorm:"column:user_id;type:text;index"`
	Filename  string          `gorm:"column:filename;type:text;index"`
	Text      string          `gorm:"column:text;type:text"`
	Metadata  datatypes.JSON  `gorm:"column:metadata;type:jsonb"`
	Embedding pgvector.Vector `gorm:"column:embedding;type:vector(768)"`
}

func (chunkRow) TableName() string { return "chunks" }

// PGVector stores chunk vectors in Postgres via the pgvector extension.
// It is the alternative backend for deployments that already run
// Postgres and do not want a separate vector database.
type PGVector struct {
	db *gorm.DB
}

func NewPGVector(db *gorm.DB) (*PGVector, error) {
	if err := db.AutoMigrate(&chunkRow{}); err != nil {
		return nil, utils.E(utils.CodeVectorStore, "vectorindex.NewPGVector", "failed to migrate chunks table", err)
	}
	return &PGVector{db: db}, nil
}

func (p *PGVector) Upsert(ctx context.Context, userID string, points []Point) error {
	const op = "PGVector.Upsert"

	if len(points) == 0 {
		return nil
	}
	rows := make([]chunkRow, 0, len(points))
	for _, pt := range points {
		md, err := json.Marshal(pt.Metadata)
		if err != nil {
			return utils.E(utils.CodeVectorStore, op, "failed to encode chunk metadata", err)
		}
		filename, _ := pt.Metadata["filename"].(string)
		rows = append(rows, chunkRow{
			ID:        pt.ID,
			UserID:    userID,
			Filename:  filename,
			Text:      pt.Text,
			Metadata:  datatypes.JSON(md),
			Embedding: pgvector.NewVector(pt.Vector),
		})
	}
	if err := p.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return utils.E(utils.CodeVectorStore, op, "failed to insert chunks", err)
	}
	return nil
}

func (p *PGVector) Query(ctx context.Context, userID string, vector []float32, k int) ([]models.ScoredChunk, error) {
	const op = "PGVector.Query"

	if k <= 0 {
		k = 3
	}
	var rows []struct {
		Text     string
		Metadata datatypes.JSON
		Score    float32
	}
	err := p.db.WithContext(ctx).Raw(
		`SELECT text, metadata, 1 - (embedding <=> ?) AS score
		 FROM chunks WHERE user_id = ?
		 ORDER BY embedding <=> ? LIMIT ?`,
		pgvector.NewVector(vector), userID, pgvector.NewVector(vector), k,
	).Scan(&rows).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		rows = nil
	} else if err != nil {
		return nil, utils.E(utils.CodeVectorStore, op, "similarity query failed", err)
	}

	out := make([]models.ScoredChunk, 0, len(rows))
	for _, r := range rows {
		md := map[string]any{}
		_ = json.Unmarshal(r.Metadata, &md)
		out = append(out, models.ScoredChunk{Text: r.Text, Metadata: md, Score: r.Score})
	}
	return out, nil
}

func (p *PGVector) DeleteByFilename(ctx context.Context, userID, filename string) error {
	const op = "PGVector.DeleteByFilename"

	err := p.db.WithContext(ctx).
		Where("user_id = ? AND filename = ?", userID, filename).
		Delete(&chunkRow{}).Error
	if err != nil {
		return utils.E(utils.CodeVectorStore, op, "failed to delete chunks", err)
	}
	return nil
}
