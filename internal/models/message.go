package models

import (
	"time"
)

// MaxHistoryLimit caps how many messages a history request may return.
const MaxHistoryLimit = 100

// DefaultHistoryLimit is used when a history request does not name a limit.
const DefaultHistoryLimit = 50

/** --------------------ENTITIES-------------------- */
// Message is a chat message posted to a channel. Deleted hides the record
// from history without removing the row.
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:50;not null;index" json:"username"`
	Channel   string    `gorm:"size:100;not null;index:idx_messages_channel_created,priority:1" json:"channel"`
	Text      string    `gorm:"type:text;not null" json:"message"`
	CreatedAt time.Time `gorm:"index:idx_messages_channel_created,priority:2" json:"timestamp"`
	Deleted   bool      `gorm:"not null;default:false" json:"-"`
}

/** -------------------- DTOs -------------------- */
// Response
type MessageResponse struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type MessageListResponse struct {
	Messages []MessageResponse `json:"messages"`
}

type DeleteMessageResponse struct {
	Success   bool   `json:"success"`
	MessageID uint   `json:"message_id"`
	Channel   string `json:"channel"`
}

func NewMessageResponse(m *Message) MessageResponse {
	return MessageResponse{
		ID:        m.ID,
		Username:  m.Username,
		Message:   m.Text,
		Timestamp: m.CreatedAt.Format(time.RFC3339Nano),
	}
}
