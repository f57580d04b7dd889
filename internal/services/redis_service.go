package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"chat-relay/internal/database"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const onlineUsersKey = "online_users"

type RedisService struct {
	client *database.RedisClient
}

func NewRedisService(client *database.RedisClient) *RedisService {
	return &RedisService{
		client: client,
	}
}

// =============================================================================
// User Status Management
// =============================================================================

func (r *RedisService) SetUserOnline(ctx context.Context, username string) error {
	pipe := r.client.GetClient().Pipeline()

	pipe.SAdd(ctx, onlineUsersKey, username)
	pipe.HSet(ctx, statusKey(username), map[string]interface{}{
		"status":    "online",
		"last_seen": time.Now().Unix(),
	})
	pipe.Expire(ctx, statusKey(username), 5*time.Minute)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to set user online: %w", err)
	}

	slog.Debug("User set to online", "user", username)
	return nil
}

func (r *RedisService) SetUserOffline(ctx context.Context, username string) error {
	pipe := r.client.GetClient().Pipeline()

	pipe.SRem(ctx, onlineUsersKey, username)
	pipe.HSet(ctx, statusKey(username), map[string]interface{}{
		"status":    "offline",
		"last_seen": time.Now().Unix(),
	})
	pipe.Expire(ctx, statusKey(username), 24*time.Hour)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to set user offline: %w", err)
	}

	slog.Debug("User set to offline", "user", username)
	return nil
}

func (r *RedisService) IsUserOnline(ctx context.Context, username string) (bool, error) {
	return r.client.GetClient().SIsMember(ctx, onlineUsersKey, username).Result()
}

func (r *RedisService) GetOnlineUsers(ctx context.Context) ([]string, error) {
	return r.client.GetClient().SMembers(ctx, onlineUsersKey).Result()
}

func statusKey(username string) string {
	return fmt.Sprintf("user:%s:status", username)
}

// =============================================================================
// Rate Limiting
// =============================================================================

// slidingWindowScript prunes, counts and conditionally records in one round
// trip so that denied requests do not consume capacity.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
if redis.call('ZCARD', key) >= limit then
  return 0
end
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, math.ceil(window / 1000))
return 1
`)

func (r *RedisService) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	// microseconds keep scores exact inside Lua's double precision numbers
	now := time.Now().UnixMicro()
	res, err := slidingWindowScript.Run(ctx, r.client.GetClient(), []string{key},
		now, window.Microseconds(), limit, uuid.NewString()).Int()
	if err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}
	return res == 1, nil
}
