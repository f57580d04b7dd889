package postgres

import (
	"context"
	"fmt"
	"strings"

	"chat-relay/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChannelRepository struct {
	db *gorm.DB
}

func NewChannelRepository(db *gorm.DB) *ChannelRepository {
	return &ChannelRepository{db}
}

func (r *ChannelRepository) List(ctx context.Context) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).
		Model(&models.Channel{}).
		Order("name").
		Pluck("name", &names).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	return names, nil
}

func (r *ChannelRepository) Ensure(ctx context.Context, names ...string) error {
	channels := make([]models.Channel, 0, len(names))
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			channels = append(channels, models.Channel{Name: name})
		}
	}
	if len(channels) == 0 {
		return nil
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&channels).Error
	if err != nil {
		return fmt.Errorf("failed to ensure channels: %w", err)
	}
	return nil
}
