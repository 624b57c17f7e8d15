package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/notevanta/backend/internal/services"
	"github.com/notevanta/backend/internal/utils"
)

type QuotaHandler struct {
	svc services.QuotaService
}

func NewQuotaHandler(svc services.QuotaService) *QuotaHandler {
	return &QuotaHandler{svc: svc}
}

// Status reports today's usage without consuming a message.
func (h *QuotaHandler) Status(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	status, err := h.svc.Status(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// Consume spends one message from today's allowance. Clients that
// stream the model response through their own backend call this
// instead of the chat endpoint.
func (h *QuotaHandler) Consume(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	status, err := h.svc.Gate(c.Request.Context(), userID)
	if err != nil {
		if utils.IsCode(err, utils.CodeQuotaExceeded) && status != nil {
			c.JSON(http.StatusTooManyRequests, status)
			return
		}
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}
