package routes

import (
	"net/http"
	"time"

	"chat-relay/internal/api/handlers"
	"chat-relay/internal/api/middleware"
	"chat-relay/internal/repositories"
	"chat-relay/internal/services"
	"chat-relay/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps is everything the HTTP surface needs. Online and RateChecker are
// Redis backed when Redis is configured.
type Deps struct {
	Hub            *websocket.Hub
	UserService    *services.UserService
	Messages       repositories.MessageStore
	Channels       repositories.ChannelCatalog
	Online         handlers.OnlineLister
	RateChecker    middleware.RateChecker
	Metrics        prometheus.Gatherer
	AllowedOrigins []string
	RequireToken   bool
}

type Router struct {
	engine         *gin.Engine
	deps           Deps
	wsHandler      *handlers.WSHandler
	channelHandler *handlers.ChannelHandler
	messageHandler *handlers.MessageHandler
	authHandler    *handlers.AuthHandler
	rateLimitMW    *middleware.RateLimitMiddleware
	authMW         *middleware.AuthMiddleware
}

func NewRouter(deps Deps) (*Router, error) {
	if err := handlers.RegisterValidators(); err != nil {
		return nil, err
	}

	engine := gin.New()

	// Add middlewares
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(deps.AllowedOrigins))
	engine.Use(middleware.LogApi("/healthz", "/metrics"))

	return &Router{
		engine:         engine,
		deps:           deps,
		wsHandler:      handlers.NewWSHandler(deps.Hub, deps.Online),
		channelHandler: handlers.NewChannelHandler(deps.Channels),
		messageHandler: handlers.NewMessageHandler(deps.Messages, deps.Hub),
		authHandler:    handlers.NewAuthHandler(deps.UserService),
		rateLimitMW:    middleware.NewRateLimitMiddleware(deps.RateChecker),
		authMW:         middleware.NewAuthMiddleware(deps.UserService),
	}, nil
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if r.deps.Metrics != nil {
		r.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(r.deps.Metrics, promhttp.HandlerOpts{})))
	}

	r.engine.GET("/ws",
		r.rateLimitMW.WebSocketRateLimit(30, time.Minute), // 30 connection attempts per minute per IP
		r.wsHandler.HandleWebSocket,
	)

	api := r.engine.Group("/api")

	// Public routes
	authRoutes := api.Group("/")
	authRoutes.Use(r.rateLimitMW.RateLimitIP(50, time.Minute)) // 50 requests per minute per IP
	{
		authRoutes.POST("/register", r.authHandler.Register)
		authRoutes.POST("/login", r.authHandler.Login)
	}

	identity := r.authMW.OptionalAuth()
	if r.deps.RequireToken {
		identity = r.authMW.RequireAuth()
	}

	reads := api.Group("/")
	reads.Use(r.rateLimitMW.RateLimitIP(200, time.Minute)) // 200 requests per minute per IP
	{
		reads.GET("/channels", r.channelHandler.ListChannels)
		reads.GET("/messages/:channel", r.messageHandler.ListMessages)
		reads.GET("/users/online", r.wsHandler.OnlineUsers)
		reads.GET("/stats", r.wsHandler.Stats)
	}

	writes := api.Group("/")
	writes.Use(identity, r.rateLimitMW.RateLimit(100, time.Minute)) // 100 requests per minute per user
	{
		writes.DELETE("/messages/:id", r.messageHandler.DeleteMessage)
	}
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
