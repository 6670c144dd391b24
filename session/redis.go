package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"musicbox/models"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
)

// redisAPI is the subset of *redis.Client the registry uses, so tests can run without a server.
type redisAPI interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Close() error
}

// maxTokenAttempts bounds retries when a generated token is already taken.
const maxTokenAttempts = 5

// RedisRegistry stores sessions as "<prefix><token>" -> JSON identity, without TTL.
type RedisRegistry struct {
	rdb    redisAPI
	prefix string
}

// NewRedisRegistry wraps a connected redis client.
func NewRedisRegistry(rdb redisAPI, prefix string) *RedisRegistry {
	return &RedisRegistry{rdb: rdb, prefix: prefix}
}

func (r *RedisRegistry) key(token string) string {
	return r.prefix + token
}

func (r *RedisRegistry) Create(ctx context.Context, identity models.Identity) (string, error) {
	payload, err := json.Marshal(identity)
	if err != nil {
		return "", fmt.Errorf("failed to encode session: %w", err)
	}

	for attempt := 0; attempt < maxTokenAttempts; attempt++ {
		token, err := GenerateToken()
		if err != nil {
			return "", err
		}
		created, err := r.rdb.SetNX(ctx, r.key(token), payload, 0).Result()
		if err != nil {
			return "", fmt.Errorf("failed to store session: %w", err)
		}
		if created {
			log.Debug("session created", "email", identity.Email, "backend", "redis")
			return token, nil
		}
	}
	return "", errors.New("failed to allocate a unique session token")
}

func (r *RedisRegistry) Resolve(ctx context.Context, token string) (models.Identity, error) {
	if token == "" {
		return models.Identity{}, ErrInvalidSession
	}

	val, err := r.rdb.Get(ctx, r.key(token)).Result()
	if errors.Is(err, redis.Nil) {
		return models.Identity{}, ErrInvalidSession
	}
	if err != nil {
		return models.Identity{}, fmt.Errorf("failed to look up session: %w", err)
	}

	var identity models.Identity
	if err := json.Unmarshal([]byte(val), &identity); err != nil {
		log.Warn("discarding unreadable session payload", "error", err)
		return models.Identity{}, ErrInvalidSession
	}
	return identity, nil
}

func (r *RedisRegistry) Close() error {
	return r.rdb.Close()
}
