package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"bulk-mail-verify-go/internal/model"
)

// GetBatches returns recent bouncer batches for a mode, newest first
func (h *Handlers) GetBatches(c *gin.Context) {
	mode, err := model.ParseMode(c.Query("mode"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_mode",
			Message: err.Error(),
			Code:    http.StatusBadRequest,
		})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_limit", Message: "Invalid limit", Code: http.StatusBadRequest})
			return
		}
	}

	batches, err := h.store.ListRecentBouncerBatches(c.Request.Context(), mode, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "database_error",
			Message: "Failed to fetch batches",
			Code:    http.StatusInternalServerError,
		})
		return
	}
	c.JSON(http.StatusOK, batches)
}

// GetBatch returns a single bouncer batch by its provider id
func (h *Handlers) GetBatch(c *gin.Context) {
	mode, err := model.ParseMode(c.Query("mode"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_mode", Message: err.Error(), Code: http.StatusBadRequest})
		return
	}

	batch, err := h.store.GetBouncerBatch(c.Request.Context(), mode, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "database_error",
			Message: "Failed to fetch batch",
			Code:    http.StatusInternalServerError,
		})
		return
	}
	if batch == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "Batch not found", Code: http.StatusNotFound})
		return
	}
	c.JSON(http.StatusOK, batch)
}
