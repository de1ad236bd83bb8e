package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ConfigResponse exposes the auto-revert windows to the front-end.
type ConfigResponse struct {
	OpenWindowMs   int64 `json:"openWindowMs"`
	DeniedWindowMs int64 `json:"deniedWindowMs"`
}

// GetConfig handles the GET /api/config request.
func (h *Handler) GetConfig(c *gin.Context) {
	w := h.controller.Windows()
	c.JSON(http.StatusOK, ConfigResponse{
		OpenWindowMs:   w.Open.Milliseconds(),
		DeniedWindowMs: w.Denied.Milliseconds(),
	})
}
