package main

// @title           Chat Relay API
// @version         1.0
// @description     Multi-channel real-time chat relay
// @host            localhost:8080
// @BasePath        /api
// @schemes         http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat-relay/internal/adapters/kafka"
	"chat-relay/internal/api/handlers"
	"chat-relay/internal/api/middleware"
	"chat-relay/internal/api/routes"
	"chat-relay/internal/config"
	"chat-relay/internal/database"
	"chat-relay/internal/ratelimit"
	"chat-relay/internal/repositories"
	"chat-relay/internal/repositories/memory"
	"chat-relay/internal/repositories/postgres"
	"chat-relay/internal/services"
	"chat-relay/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type stores struct {
	users    repositories.UserStore
	messages repositories.MessageStore
	channels repositories.ChannelCatalog
}

func openStores(cfg *config.Config) (stores, error) {
	if cfg.Relay.Store == config.StoreMemory {
		slog.Warn("Using in-memory store, data is lost on restart")
		s := memory.NewStore()
		return stores{users: s, messages: s, channels: s}, nil
	}

	db, err := database.NewPostgresConnection(cfg.Database.DSN())
	if err != nil {
		return stores{}, fmt.Errorf("connect to PostgreSQL: %w", err)
	}
	return stores{
		users:    postgres.NewUserRepository(db),
		messages: postgres.NewMessageRepository(db),
		channels: postgres.NewChannelRepository(db),
	}, nil
}

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// Initialize logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	gin.SetMode(gin.ReleaseMode)
	slog.Info("Starting chat relay", "store", cfg.Relay.Store, "defaultChannel", cfg.Relay.DefaultChannel)

	st, err := openStores(cfg)
	if err != nil {
		slog.Error("Failed to open stores", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := st.channels.Ensure(ctx, cfg.Relay.SeedChannels...); err != nil {
		slog.Error("Failed to seed channels", "error", err)
	}
	cancel()

	hubOpts := []websocket.HubOption{
		websocket.WithLogger(logger),
		websocket.WithDefaultChannel(cfg.Relay.DefaultChannel),
		websocket.WithAllowedOrigins(cfg.Server.AllowedOrigins),
		websocket.WithLimiter(ratelimit.New(
			ratelimit.WithLimit(cfg.Relay.RateLimit),
			ratelimit.WithWindow(cfg.Relay.RateWindow),
		)),
	}

	userService := services.NewUserService(st.users, cfg.JWT.Secret, cfg.JWT.ExpirationTime)
	if cfg.Relay.RequireToken {
		hubOpts = append(hubOpts, websocket.WithTokenVerifier(userService))
	}

	// Redis is optional: it shares HTTP rate limits and mirrors presence
	var rateChecker middleware.RateChecker = ratelimit.NewChecker()
	var online handlers.OnlineLister
	if cfg.Redis.Enabled() {
		redisClient, err := database.NewRedisConnection(&cfg.Redis)
		if err != nil {
			slog.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()

		redisService := services.NewRedisService(redisClient)
		rateChecker = redisService
		online = redisService
		hubOpts = append(hubOpts, websocket.WithPresenceMirror(redisService))
	}

	// Kafka is optional: stored and deleted messages are published as events
	if cfg.Kafka.Enabled() {
		producer, err := kafka.InitKafkaProducer(cfg.Kafka.Brokers)
		if err != nil {
			slog.Error("Failed to create Kafka producer", "brokers", cfg.Kafka.Brokers, "error", err)
			os.Exit(1)
		}
		publisher := kafka.NewPublisher(producer, cfg.Kafka.Topic, logger)
		defer publisher.Close()
		hubOpts = append(hubOpts, websocket.WithMessageEvents(publisher))
	}

	// Initialize WebSocket hub
	hub := websocket.NewHub(st.messages, hubOpts...)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		websocket.NewCollector(hub),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Initialize router with all dependencies
	router, err := routes.NewRouter(routes.Deps{
		Hub:            hub,
		UserService:    userService,
		Messages:       st.messages,
		Channels:       st.channels,
		Online:         online,
		RateChecker:    rateChecker,
		Metrics:        registry,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RequireToken:   cfg.Relay.RequireToken,
	})
	if err != nil {
		slog.Error("Failed to build router", "error", err)
		os.Exit(1)
	}
	router.SetupRoutes()

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.GetEngine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Shutdown HTTP server, then close the sockets it hijacked
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	hub.Stop()

	slog.Info("Server stopped")
}
