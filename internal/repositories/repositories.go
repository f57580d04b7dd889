// Package repositories holds the persistence contracts the relay consumes and
// the errors every implementation reports through them.
package repositories

import (
	"context"
	"errors"

	"chat-relay/internal/models"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrForbidden     = errors.New("not the author of this message")
	ErrAlreadyExists = errors.New("record already exists")
)

type UserStore interface {
	// Create fails with ErrAlreadyExists when the username is taken.
	Create(ctx context.Context, user *models.User) error
	// FindByUsername fails with ErrNotFound for unknown usernames.
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

type MessageStore interface {
	// Save stores a new message and returns it with its server assigned id and timestamp.
	Save(ctx context.Context, username, channel, text string) (*models.Message, error)
	// Delete soft deletes a message on behalf of requester. It returns
	// ErrNotFound for unknown or already deleted messages and ErrForbidden
	// when requester is not the author. The returned message carries its channel.
	Delete(ctx context.Context, id uint, requester string) (*models.Message, error)
	// ListRecent returns up to limit visible messages of a channel, oldest first.
	ListRecent(ctx context.Context, channel string, limit int) ([]*models.Message, error)
}

type ChannelCatalog interface {
	List(ctx context.Context) ([]string, error)
	// Ensure creates the named channels that do not exist yet.
	Ensure(ctx context.Context, names ...string) error
}

// ClampLimit bounds a history limit to (0, models.MaxHistoryLimit].
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return models.DefaultHistoryLimit
	case limit > models.MaxHistoryLimit:
		return models.MaxHistoryLimit
	}
	return limit
}
