package handlers

import (
	"context"
	"net/http"

	"chat-relay/internal/websocket"

	"github.com/gin-gonic/gin"
)

// OnlineLister reports which usernames are connected.
type OnlineLister interface {
	GetOnlineUsers(ctx context.Context) ([]string, error)
}

type WSHandler struct {
	hub    *websocket.Hub
	online OnlineLister
}

// NewWSHandler serves sockets on hub. online may be a shared presence
// mirror; nil falls back to the hub's own view.
func NewWSHandler(hub *websocket.Hub, online OnlineLister) *WSHandler {
	if online == nil {
		online = hub
	}
	return &WSHandler{hub: hub, online: online}
}

// HandleWebSocket godoc
// @Summary WebSocket connection
// @Description Upgrade to the chat relay. The first frame must be {"username": "...", "channel": "...", "token": "..."}
// @Tags websocket
// @Success 101 "Switching Protocols - WebSocket connection established"
// @Router /ws [get]
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	websocket.ServeWS(h.hub, c.Writer, c.Request)
}

// OnlineUsers godoc
// @Summary List online users
// @Tags websocket
// @Produce json
// @Success 200 {object} map[string][]string
// @Router /users/online [get]
func (h *WSHandler) OnlineUsers(c *gin.Context) {
	users, err := h.online.GetOnlineUsers(c.Request.Context())
	if err != nil {
		users, _ = h.hub.GetOnlineUsers(c.Request.Context())
	}
	if users == nil {
		users = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// Stats godoc
// @Summary Relay counters
// @Tags websocket
// @Produce json
// @Success 200 {object} websocket.MetricsSnapshot
// @Router /stats [get]
func (h *WSHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.hub.Metrics())
}
