package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"dispenser-status-backend/internal/machine"
	"dispenser-status-backend/internal/mw"
)

const invalidStatusMessage = `Invalid status. Must be "open", "closed" or "denied"`

type setStatusRequest struct {
	Status *string `json:"status"`
}

// GetStatus handles the GET /api/status request.
func (h *Handler) GetStatus(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, h.controller.GetState())
}

// SetStatus handles the POST /api/status request.
func (h *Handler) SetStatus(c *gin.Context) {
	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.recorder.IncInvalidRequest("body")
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Status == nil {
		h.recorder.IncInvalidRequest("status")
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": invalidStatusMessage})
		return
	}

	mode, err := machine.ParseMode(*req.Status)
	if err != nil {
		h.recorder.IncInvalidRequest("status")
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": invalidStatusMessage})
		return
	}

	snap, err := h.controller.SetState(mode)
	if err != nil {
		if errors.Is(err, machine.ErrInvalidMode) {
			h.recorder.IncInvalidRequest("status")
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": invalidStatusMessage})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to set status"})
		return
	}

	log.Printf("Status set to %s (request %s)", snap.Mode, mw.GetRequestID(c))
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, snap)
}
