package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/notevanta/backend/internal/models"
	"github.com/notevanta/backend/internal/services"
	"github.com/notevanta/backend/internal/utils"
)

type HistoryHandler struct {
	svc services.ChatHistoryService
}

func NewHistoryHandler(svc services.ChatHistoryService) *HistoryHandler {
	return &HistoryHandler{svc: svc}
}

type saveChatRequest struct {
	ChatID   string           `json:"chat_id"`
	Messages []models.Message `json:"messages" binding:"required"`
}

// Save upserts a conversation directly, for clients that stream the
// model response through their own backend instead of /api/chat.
func (h *HistoryHandler) Save(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req saveChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "HistoryHandler.Save", "invalid request body", err))
		return
	}

	chatID, err := h.svc.Save(c.Request.Context(), userID, req.ChatID, req.Messages)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"chat_id": chatID})
}

func (h *HistoryHandler) List(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	limit := 50
	if s := c.Query("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	rows, err := h.svc.List(c.Request.Context(), userID, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"chats": rows})
}

func (h *HistoryHandler) Get(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	rec, err := h.svc.Get(c.Request.Context(), userID, c.Param("chat_id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, rec)
}

func (h *HistoryHandler) Delete(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	chatID := c.Param("chat_id")
	if err := h.svc.Delete(c.Request.Context(), userID, chatID); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": chatID})
}

// Retitle regenerates the conversation title from its messages.
func (h *HistoryHandler) Retitle(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	title, err := h.svc.Retitle(c.Request.Context(), userID, c.Param("chat_id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"title": title})
}
