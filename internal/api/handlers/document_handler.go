package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/notevanta/backend/internal/services"
	"github.com/notevanta/backend/internal/utils"
)

type DocumentHandler struct {
	svc services.DocumentService
}

func NewDocumentHandler(svc services.DocumentService) *DocumentHandler {
	return &DocumentHandler{svc: svc}
}

func (h *DocumentHandler) List(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	rows, err := h.svc.List(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"documents": rows})
}

// Delete removes a source and every chunk indexed from it. The
// filename comes from the query string so names with slashes or dots
// survive routing.
func (h *DocumentHandler) Delete(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	filename := c.Query("filename")
	if filename == "" {
		filename = c.Param("filename")
	}
	if filename == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, "DocumentHandler.Delete", "filename is required", nil))
		return
	}

	if err := h.svc.Delete(c.Request.Context(), userID, filename); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": filename})
}
