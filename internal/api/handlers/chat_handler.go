package handlers

import (
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/notevanta/backend/internal/models"
	"github.com/notevanta/backend/internal/services"
	"github.com/notevanta/backend/internal/utils"
)

type ChatHandler struct {
	chat    services.ChatService
	history services.ChatHistoryService
	log     *logrus.Logger
}

func NewChatHandler(chat services.ChatService, history services.ChatHistoryService, log *logrus.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, history: history, log: log}
}

type chatRequest struct {
	ChatID   string           `json:"chat_id"`
	Messages []models.Message `json:"messages" binding:"required"`
	Model    string           `json:"model"`
}

// Stream answers a chat turn over SSE. Quota and validation failures
// are plain JSON errors sent before the stream starts; once streaming
// begins the response is a sequence of token events ending in done.
func (h *ChatHandler) Stream(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "ChatHandler.Stream", "invalid request body", err))
		return
	}

	out, errs, err := h.chat.Answer(c.Request.Context(), userID, req.Messages, req.Model)
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	var answer strings.Builder
	streamErr := error(nil)

	c.Stream(func(io.Writer) bool {
		select {
		case tok, open := <-out:
			if !open {
				return false
			}
			answer.WriteString(tok)
			c.SSEvent("token", tok)
			return true
		case err, open := <-errs:
			if !open {
				// Keep draining buffered tokens; a nil channel never
				// wins the select again.
				errs = nil
				return true
			}
			if err != nil {
				streamErr = err
			}
			return false
		case <-c.Request.Context().Done():
			streamErr = c.Request.Context().Err()
			return false
		}
	})

	if streamErr != nil {
		h.log.WithFields(logrus.Fields{"user_id": userID, "error": streamErr.Error()}).
			Warn("chat stream ended with error")
		c.SSEvent("error", APIError{Code: utils.CodeModelStream, Message: "model stream interrupted"})
		return
	}

	chatID := h.saveTurn(c, userID, req, answer.String())
	c.SSEvent("done", gin.H{"chat_id": chatID})
}

// saveTurn appends the assistant answer and persists the conversation.
// History failures are logged, not surfaced: the user already has the
// answer on the wire.
func (h *ChatHandler) saveTurn(c *gin.Context, userID string, req chatRequest, answer string) string {
	msgs := req.Messages
	if answer != "" {
		msgs = append(msgs, models.Message{
			Role:  "assistant",
			Parts: []models.MessagePart{{Type: "text", Text: answer}},
		})
	}

	chatID, err := h.history.Save(c.Request.Context(), userID, req.ChatID, msgs)
	if err != nil {
		h.log.WithFields(logrus.Fields{"user_id": userID, "error": err.Error()}).
			Warn("failed to persist chat history")
		return req.ChatID
	}
	return chatID
}
