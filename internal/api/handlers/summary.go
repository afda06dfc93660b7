package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GetSummary returns period totals and the estimated deduction.
func (h *Handler) GetSummary(c *gin.Context) {
	start, end, ok := parseRange(c)
	if !ok {
		return
	}

	summary, err := h.summaryRepo.Summarize(c.Request.Context(), start, end)
	if err != nil {
		h.logger.Error("Failed to summarize trips", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to summarize trips"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summary})
}
