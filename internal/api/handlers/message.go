package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"chat-relay/internal/api/middleware"
	"chat-relay/internal/models"
	"chat-relay/internal/repositories"
	"chat-relay/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

// MessageDeleter deletes a message and notifies the live channel.
type MessageDeleter interface {
	DeleteMessage(ctx context.Context, id uint, requester string) (*models.Message, error)
}

type MessageHandler struct {
	store   repositories.MessageStore
	deleter MessageDeleter
}

func NewMessageHandler(store repositories.MessageStore, deleter MessageDeleter) *MessageHandler {
	return &MessageHandler{store: store, deleter: deleter}
}

type historyURI struct {
	Channel string `uri:"channel" binding:"required,max=100,channelname"`
}

type historyQuery struct {
	Limit int `form:"limit"`
}

type deleteURI struct {
	ID uint `uri:"id" binding:"required"`
}

// ListMessages godoc
// @Summary Get recent messages of a channel
// @Description Oldest first, deleted messages excluded
// @Tags messages
// @Produce json
// @Param channel path string true "Channel name (letters, digits, _ and -)"
// @Param limit query int false "Maximum messages, default 50, capped at 100"
// @Success 200 {object} models.MessageListResponse
// @Failure 400 {object} models.ErrorResponse "Invalid channel name or limit"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /messages/{channel} [get]
func (h *MessageHandler) ListMessages(c *gin.Context) {
	var uri historyURI
	if err := c.ShouldBindUri(&uri); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid channel name", err.Error())
		return
	}
	var query historyQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid limit", err.Error())
		return
	}

	messages, err := h.store.ListRecent(c.Request.Context(), uri.Channel, repositories.ClampLimit(query.Limit))
	if err != nil {
		slog.Error("Failed to list messages", "channel", uri.Channel, "error", err)
		response.Error(c, http.StatusInternalServerError, "Failed to get messages", "")
		return
	}

	c.JSON(http.StatusOK, models.MessageListResponse{
		Messages: lo.Map(messages, func(m *models.Message, _ int) models.MessageResponse {
			return models.NewMessageResponse(m)
		}),
	})
}

// DeleteMessage godoc
// @Summary Delete a message
// @Description Soft delete one of the requester's own messages; live clients receive message_deleted
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param id path int true "Message ID"
// @Param username query string false "Requester, when no bearer token is sent"
// @Success 200 {object} models.DeleteMessageResponse
// @Failure 400 {object} models.ErrorResponse "Invalid id or missing username"
// @Failure 403 {object} models.ErrorResponse "Not the author"
// @Failure 404 {object} models.ErrorResponse "Message not found"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /messages/{id} [delete]
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	var uri deleteURI
	if err := c.ShouldBindUri(&uri); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid message ID", err.Error())
		return
	}

	requester := c.GetString(middleware.UsernameKey)
	if requester == "" {
		requester = c.Query("username")
	}
	if requester == "" {
		response.Error(c, http.StatusBadRequest, "", "username is required")
		return
	}

	msg, err := h.deleter.DeleteMessage(c.Request.Context(), uri.ID, requester)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, models.DeleteMessageResponse{Success: true, MessageID: msg.ID, Channel: msg.Channel})
	case errors.Is(err, repositories.ErrNotFound):
		response.Error(c, http.StatusNotFound, "Message not found", "")
	case errors.Is(err, repositories.ErrForbidden):
		response.Error(c, http.StatusForbidden, "You can only delete your own messages", "")
	default:
		slog.Error("Failed to delete message", "messageID", uri.ID, "error", err)
		response.Error(c, http.StatusInternalServerError, "Failed to delete message", "")
	}
}
