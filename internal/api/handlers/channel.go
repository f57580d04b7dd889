package handlers

import (
	"log/slog"
	"net/http"

	"chat-relay/internal/models"
	"chat-relay/internal/repositories"
	"chat-relay/pkg/response"

	"github.com/gin-gonic/gin"
)

type ChannelHandler struct {
	catalog repositories.ChannelCatalog
}

func NewChannelHandler(catalog repositories.ChannelCatalog) *ChannelHandler {
	return &ChannelHandler{catalog: catalog}
}

// ListChannels godoc
// @Summary List channels
// @Description Channels offered to clients as an initial choice
// @Tags channels
// @Produce json
// @Success 200 {object} models.ChannelListResponse
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /channels [get]
func (h *ChannelHandler) ListChannels(c *gin.Context) {
	names, err := h.catalog.List(c.Request.Context())
	if err != nil {
		slog.Error("Failed to list channels", "error", err)
		response.Error(c, http.StatusInternalServerError, "Failed to list channels", "")
		return
	}
	if names == nil {
		names = []string{}
	}
	c.JSON(http.StatusOK, models.ChannelListResponse{Channels: names})
}
