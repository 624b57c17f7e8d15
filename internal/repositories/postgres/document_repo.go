package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/notevanta/backend/internal/models"
)

type DocumentRepository interface {
	Insert(ctx context.Context, d *models.Document) error
	ListByUser(ctx context.Context, userID string) ([]models.Document, error)
	DeleteByFilename(ctx context.Context, userID, filename string) error
}

type documentRepo struct {
	db *gorm.DB
}

func NewDocumentRepo(db *gorm.DB) DocumentRepository {
	return &documentRepo{db: db}
}

func (r *documentRepo) Insert(ctx context.Context, d *models.Document) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *documentRepo) ListByUser(ctx context.Context, userID string) ([]models.Document, error) {
	var rows []models.Document
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("upload_date DESC").
		Find(&rows).Error
	return rows, err
}

// DeleteByFilename removes every record for the filename. Deleting an
// absent filename is a no-op, matching the vector index contract.
func (r *documentRepo) DeleteByFilename(ctx context.Context, userID, filename string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND filename = ?", userID, filename).
		Delete(&models.Document{}).Error
}
