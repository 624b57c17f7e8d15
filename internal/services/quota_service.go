package services

import (
	"context"

	"github.com/notevanta/backend/internal/models"
	mongorepo "github.com/notevanta/backend/internal/repositories/mongo"
	"github.com/notevanta/backend/internal/utils"
)

// DefaultDailyLimit is the free-tier message allowance per day.
const DefaultDailyLimit = 10

// QuotaService gates chat turns on the per-user daily message counter.
type QuotaService interface {
	// Gate consumes one message from today's allowance. When the user
	// is already at the limit it returns a QUOTA_EXCEEDED error and
	// leaves the counter untouched.
	Gate(ctx context.Context, userID string) (*models.QuotaStatus, error)

	// Status reports today's usage without consuming anything.
	Status(ctx context.Context, userID string) (*models.QuotaStatus, error)
}

type quotaService struct {
	repo  mongorepo.QuotaRepository
	limit int
}

func NewQuotaService(repo mongorepo.QuotaRepository, limit int) QuotaService {
	if limit <= 0 {
		limit = DefaultDailyLimit
	}
	return &quotaService{repo: repo, limit: limit}
}

func (s *quotaService) Gate(ctx context.Context, userID string) (*models.QuotaStatus, error) {
	const op = "QuotaService.Gate"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}

	rec, allowed, err := s.repo.CheckAndIncrement(ctx, userID, s.limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to update message quota", err)
	}

	status := &models.QuotaStatus{Count: rec.Count, Limit: s.limit, CanSend: rec.Count < s.limit}
	if !allowed {
		return status, utils.E(utils.CodeQuotaExceeded, op, "daily message limit reached", nil)
	}
	return status, nil
}

func (s *quotaService) Status(ctx context.Context, userID string) (*models.QuotaStatus, error) {
	const op = "QuotaService.Status"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}

	rec, err := s.repo.Peek(ctx, userID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to read message quota", err)
	}
	return &models.QuotaStatus{Count: rec.Count, Limit: s.limit, CanSend: rec.Count < s.limit}, nil
}
