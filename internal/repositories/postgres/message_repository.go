package postgres

import (
	"context"
	"errors"
	"fmt"

	"chat-relay/internal/models"
	"chat-relay/internal/repositories"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db}
}

func (r *MessageRepository) Save(ctx context.Context, username, channel, text string) (*models.Message, error) {
	msg := &models.Message{
		Username: username,
		Channel:  channel,
		Text:     text,
	}
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}
	return msg, nil
}

func (r *MessageRepository) Delete(ctx context.Context, id uint, requester string) (*models.Message, error) {
	var msg models.Message

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND deleted = ?", id, false).
			First(&msg).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return repositories.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load message: %w", err)
		}

		if msg.Username != requester {
			return repositories.ErrForbidden
		}

		if err := tx.Model(&msg).Update("deleted", true).Error; err != nil {
			return fmt.Errorf("failed to delete message: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *MessageRepository) ListRecent(ctx context.Context, channel string, limit int) ([]*models.Message, error) {
	var msgs []*models.Message
	err := r.db.WithContext(ctx).
		Where("channel = ? AND deleted = ?", channel, false).
		Order("created_at DESC, id DESC").
		Limit(repositories.ClampLimit(limit)).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	// newest first from the query, callers want oldest first
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
