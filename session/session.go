// Package session maps opaque bearer tokens to signed-in identities.
//
// Sessions are created at login and consulted by the auth middleware on every
// protected request. They never expire and cannot be revoked: a token stays
// valid for as long as the registry keeps it (process lifetime for the memory
// backend, until the key is removed for the redis backend).
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"musicbox/config"
	"musicbox/models"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
)

// TokenBytes is the amount of randomness in a session token (256 bits).
const TokenBytes = 32

// ErrInvalidSession is returned when a token does not denote an active session.
var ErrInvalidSession = errors.New("invalid or expired session token")

// Registry creates and resolves sessions.
type Registry interface {
	// Create binds a fresh random token to identity and returns the token.
	Create(ctx context.Context, identity models.Identity) (string, error)
	// Resolve returns the identity bound to token, or ErrInvalidSession.
	Resolve(ctx context.Context, token string) (models.Identity, error)
	// Close releases any connection held by the registry.
	Close() error
}

// GenerateToken returns a URL-safe token built from crypto/rand.
// The token carries no information about the user it is bound to.
func GenerateToken() (string, error) {
	b := make([]byte, TokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// New builds the registry selected by cfg.Sessions.Backend.
func New(ctx context.Context, cfg *config.Config) (Registry, error) {
	switch cfg.Sessions.Backend {
	case config.SessionRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Sessions.Redis.Addr,
			Password: cfg.Sessions.Redis.Password,
			DB:       cfg.Sessions.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis ping %s: %w", cfg.Sessions.Redis.Addr, err)
		}
		log.Info("using redis session registry", "addr", cfg.Sessions.Redis.Addr)
		return NewRedisRegistry(rdb, cfg.Sessions.Redis.KeyPrefix), nil
	case config.SessionMemory, "":
		log.Info("using in-memory session registry")
		return NewMemoryRegistry(), nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Sessions.Backend)
	}
}
