package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/notevanta/backend/internal/models"
	mongorepo "github.com/notevanta/backend/internal/repositories/mongo"
	"github.com/notevanta/backend/internal/utils"
)

// ChatHistoryService persists conversations. Saving a chat the first
// time kicks off title generation in the background so the response is
// never blocked on a model call.
type ChatHistoryService interface {
	// Save upserts the full message list for a chat. An empty chatID
	// creates a new conversation and returns its id.
	Save(ctx context.Context, userID, chatID string, messages []models.Message) (string, error)

	Get(ctx context.Context, userID, chatID string) (*models.ChatRecord, error)
	List(ctx context.Context, userID string, limit int) ([]models.ChatRecord, error)
	Delete(ctx context.Context, userID, chatID string) error

	// Retitle regenerates the title synchronously and persists it.
	Retitle(ctx context.Context, userID, chatID string) (string, error)
}

type chatHistoryService struct {
	repo   mongorepo.ChatRepository
	titles TitleService
	log    *logrus.Logger
}

func NewChatHistoryService(repo mongorepo.ChatRepository, titles TitleService, log *logrus.Logger) ChatHistoryService {
	return &chatHistoryService{repo: repo, titles: titles, log: log}
}

func (s *chatHistoryService) Save(ctx context.Context, userID, chatID string, messages []models.Message) (string, error) {
	const op = "ChatHistoryService.Save"

	if userID == "" {
		return "", utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	if len(messages) == 0 {
		return "", utils.E(utils.CodeInvalidArgument, op, "messages are required", nil)
	}

	if chatID != "" {
		err := s.repo.UpdateMessages(ctx, userID, chatID, messages)
		if err == nil {
			return chatID, nil
		}
		if err != utils.ErrNotFound {
			return "", utils.E(utils.CodeInternal, op, "failed to update chat", err)
		}
		// Unknown id from the client: fall through and create the
		// record under it so the conversation is not lost.
	}

	rec := &models.ChatRecord{
		ChatID:   chatID,
		UserID:   userID,
		Title:    DefaultTitle,
		Messages: messages,
	}
	if rec.ChatID == "" {
		rec.ChatID = uuid.NewString()
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return "", utils.E(utils.CodeInternal, op, "failed to create chat", err)
	}

	s.generateTitleAsync(userID, rec.ChatID, messages)
	return rec.ChatID, nil
}

// generateTitleAsync titles a new conversation off the request path.
// The request context is long gone by the time the model answers, so
// the goroutine runs under its own deadline.
func (s *chatHistoryService) generateTitleAsync(userID, chatID string, messages []models.Message) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		title := s.titles.Generate(ctx, messages)
		if title == "" || title == DefaultTitle {
			return
		}
		if err := s.repo.SetTitle(ctx, userID, chatID, title); err != nil {
			s.log.WithFields(logrus.Fields{
				"chat_id": chatID,
				"error":   err.Error(),
			}).Warn("failed to persist chat title")
		}
	}()
}

func (s *chatHistoryService) Get(ctx context.Context, userID, chatID string) (*models.ChatRecord, error) {
	const op = "ChatHistoryService.Get"

	if userID == "" || chatID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id and chat_id are required", nil)
	}
	rec, err := s.repo.Get(ctx, userID, chatID)
	if err == utils.ErrNotFound {
		return nil, utils.E(utils.CodeNotFound, op, "chat not found", err)
	}
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load chat", err)
	}
	return rec, nil
}

func (s *chatHistoryService) List(ctx context.Context, userID string, limit int) ([]models.ChatRecord, error) {
	const op = "ChatHistoryService.List"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	rows, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list chats", err)
	}
	return rows, nil
}

func (s *chatHistoryService) Delete(ctx context.Context, userID, chatID string) error {
	const op = "ChatHistoryService.Delete"

	if userID == "" || chatID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "user_id and chat_id are required", nil)
	}
	if err := s.repo.Delete(ctx, userID, chatID); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to delete chat", err)
	}
	return nil
}

func (s *chatHistoryService) Retitle(ctx context.Context, userID, chatID string) (string, error) {
	const op = "ChatHistoryService.Retitle"

	rec, err := s.Get(ctx, userID, chatID)
	if err != nil {
		return "", err
	}

	title := s.titles.Generate(ctx, rec.Messages)
	if err := s.repo.SetTitle(ctx, userID, chatID, title); err != nil {
		return "", utils.E(utils.CodeInternal, op, "failed to persist chat title", err)
	}
	return title, nil
}
