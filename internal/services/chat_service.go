package services

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/notevanta/backend/internal/models"
	"github.com/notevanta/backend/internal/providers/embedding"
	"github.com/notevanta/backend/internal/providers/llm"
	"github.com/notevanta/backend/internal/utils"
	"github.com/notevanta/backend/internal/vectorindex"
)

// RetrievalTopK is how many chunks ground each answer.
const RetrievalTopK = 3

// ChatService is the retrieval-augmented orchestrator for one chat
// turn: quota gate, query embedding, top-k retrieval, grounded prompt
// assembly, and the streamed model response.
type ChatService interface {
	// Answer returns the token stream for the next assistant turn.
	// A quota failure is returned synchronously, before any embedding
	// or model call is made. Retrieval failures degrade to an
	// empty-context prompt instead of aborting the turn. Canceling ctx
	// stops the model stream; the quota consumed by the gate stays
	// committed.
	Answer(ctx context.Context, userID string, messages []models.Message, modelChoice string) (<-chan string, <-chan error, error)
}

type chatService struct {
	quota    QuotaService
	embedder embedding.Embedder
	index    vectorindex.Index
	registry *llm.Registry
	log      *logrus.Logger
}

func NewChatService(
	quota QuotaService,
	embedder embedding.Embedder,
	index vectorindex.Index,
	registry *llm.Registry,
	log *logrus.Logger,
) ChatService {
	return &chatService{
		quota:    quota,
		embedder: embedder,
		index:    index,
		registry: registry,
		log:      log,
	}
}

func (s *chatService) Answer(ctx context.Context, userID string, messages []models.Message, modelChoice string) (<-chan string, <-chan error, error) {
	const op = "ChatService.Answer"

	if userID == "" {
		return nil, nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	if len(messages) == 0 {
		return nil, nil, utils.E(utils.CodeInvalidArgument, op, "messages are required", nil)
	}

	// Gate before anything billable happens.
	if _, err := s.quota.Gate(ctx, userID); err != nil {
		return nil, nil, err
	}

	query := lastUserQuery(messages)
	chunks := s.retrieve(ctx, userID, query)

	provider, err := s.registry.Resolve(modelChoice)
	if err != nil {
		return nil, nil, err
	}

	out, errs := provider.StreamAnswer(ctx, systemPrompt(chunks), messages)
	return out, errs, nil
}

// retrieve embeds the query and fetches the top-k chunks. Every
// failure on this path degrades to "no context": the user still gets
// an answer, just a less grounded one.
func (s *chatService) retrieve(ctx context.Context, userID, query string) []models.ScoredChunk {
	if strings.TrimSpace(query) == "" {
		return nil
	}

	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		s.log.WithFields(logrus.Fields{"user_id": userID, "error": err.Error()}).
			Warn("query embedding failed, answering without context")
		return nil
	}

	chunks, err := s.index.Query(ctx, userID, vector, RetrievalTopK)
	if err != nil {
		if !utils.IsCode(err, utils.CodeCollectionNotFound) {
			s.log.WithFields(logrus.Fields{"user_id": userID, "error": err.Error()}).
				Warn("retrieval failed, answering without context")
		}
		// No collection yet means nothing ingested: zero results.
		return nil
	}
	return chunks
}

// lastUserQuery extracts the text part of the latest user message.
func lastUserQuery(messages []models.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].TextOf()
		}
	}
	return ""
}

// systemPrompt embeds the retrieved chunks verbatim, metadata
// included, so the model can cite pages and source URLs.
func systemPrompt(chunks []models.ScoredChunk) string {
	var b strings.Builder
	b.WriteString("You are a helpful AI assistant who answers the user's question based on the ")
	b.WriteString("context retrieved from the user's uploaded sources. Each context entry carries ")
	b.WriteString("its text and metadata such as a page number or source URL.\n\n")
	b.WriteString("Answer only from the context below. When a page number or URL is available, ")
	b.WriteString("cite it and point the user at it. If the context is empty or does not contain ")
	b.WriteString("the answer, say explicitly that the uploaded sources do not cover it.\n\n")
	b.WriteString("Context:\n")

	if len(chunks) == 0 {
		b.WriteString("(no context available)\n")
		return b.String()
	}
	enc, err := json.Marshal(chunks)
	if err != nil {
		b.WriteString("(no context available)\n")
		return b.String()
	}
	b.Write(enc)
	b.WriteString("\n")
	return b.String()
}
