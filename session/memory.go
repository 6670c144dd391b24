package session

import (
	"context"
	"sync"

	"musicbox/models"

	"github.com/charmbracelet/log"
)

// MemoryRegistry keeps sessions in a map for the lifetime of the process.
type MemoryRegistry struct {
	mu       sync.RWMutex
	sessions map[string]models.Identity
}

// NewMemoryRegistry returns an empty in-memory registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{sessions: make(map[string]models.Identity)}
}

func (r *MemoryRegistry) Create(_ context.Context, identity models.Identity) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for {
		token, err := GenerateToken()
		if err != nil {
			return "", err
		}
		if _, taken := r.sessions[token]; taken {
			continue
		}
		r.sessions[token] = identity
		log.Debug("session created", "email", identity.Email)
		return token, nil
	}
}

func (r *MemoryRegistry) Resolve(_ context.Context, token string) (models.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	identity, ok := r.sessions[token]
	if !ok || token == "" {
		return models.Identity{}, ErrInvalidSession
	}
	return identity, nil
}

// Len reports the number of active sessions.
func (r *MemoryRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *MemoryRegistry) Close() error { return nil }
