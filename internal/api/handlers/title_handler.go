package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/notevanta/backend/internal/models"
	"github.com/notevanta/backend/internal/services"
	"github.com/notevanta/backend/internal/utils"
)

type TitleHandler struct {
	svc services.TitleService
}

func NewTitleHandler(svc services.TitleService) *TitleHandler {
	return &TitleHandler{svc: svc}
}

type titleRequest struct {
	Messages []models.Message `json:"messages" binding:"required"`
}

// Generate produces a conversation title from the messages in the
// request. Stateless: nothing is persisted.
func (h *TitleHandler) Generate(c *gin.Context) {
	if _, ok := requireUserID(c); !ok {
		return
	}

	var req titleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "TitleHandler.Generate", "invalid request body", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"title": h.svc.Generate(c.Request.Context(), req.Messages)})
}
