package main

import (
	"context"
	"log"
	"log/slog"
	"time"

	"chat-relay/internal/config"
	"chat-relay/internal/database"
	"chat-relay/internal/repositories/postgres"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	slog.Info("Starting database migration...")

	// Connecting runs the schema migration
	db, err := database.NewPostgresConnection(cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("Failed to get database instance:", err)
	}
	defer sqlDB.Close()

	slog.Info("Seeding default channels", "channels", cfg.Relay.SeedChannels)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := postgres.NewChannelRepository(db).Ensure(ctx, cfg.Relay.SeedChannels...); err != nil {
		log.Fatal("Failed to seed channels:", err)
	}

	slog.Info("Database migration completed successfully!")
}
