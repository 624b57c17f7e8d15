package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/notevanta/backend/internal/models"
	pgrepo "github.com/notevanta/backend/internal/repositories/postgres"
	"github.com/notevanta/backend/internal/utils"
	"github.com/notevanta/backend/internal/vectorindex"
)

// DocumentService manages the user's uploaded sources after ingestion.
type DocumentService interface {
	List(ctx context.Context, userID string) ([]models.Document, error)

	// Delete removes every chunk indexed under the filename and the
	// document record itself. Deleting an unknown filename succeeds.
	Delete(ctx context.Context, userID, filename string) error
}

type documentService struct {
	docs  pgrepo.DocumentRepository
	index vectorindex.Index
	log   *logrus.Logger
}

func NewDocumentService(docs pgrepo.DocumentRepository, index vectorindex.Index, log *logrus.Logger) DocumentService {
	return &documentService{docs: docs, index: index, log: log}
}

func (s *documentService) List(ctx context.Context, userID string) ([]models.Document, error) {
	const op = "DocumentService.List"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	rows, err := s.docs.ListByUser(ctx, userID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list documents", err)
	}
	return rows, nil
}

func (s *documentService) Delete(ctx context.Context, userID, filename string) error {
	const op = "DocumentService.Delete"

	if userID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	if filename == "" {
		return utils.E(utils.CodeInvalidArgument, op, "filename is required", nil)
	}

	// Index first: if this fails the record stays listed and the user
	// can retry the delete.
	if err := s.index.DeleteByFilename(ctx, userID, filename); err != nil {
		return err
	}
	if err := s.docs.DeleteByFilename(ctx, userID, filename); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to delete document record", err)
	}

	s.log.WithFields(logrus.Fields{"user_id": userID, "filename": filename}).Info("document deleted")
	return nil
}
