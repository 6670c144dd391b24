package utils

import (
	"errors"
	"fmt"
	"strings"

	"musicbox/models"
	"musicbox/session"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// --- Password Hashing ---

// HashPassword generates a bcrypt hash for the given password using the cost from config.
func HashPassword(password string, cost int) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		log.Error("failed to hash password", "error", err)
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

// CheckPasswordHash compares a plain text password with a stored bcrypt hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// --- Bearer Tokens ---

// Context keys set by AuthMiddleware.
const (
	ContextIdentity  = "identity"
	ContextUserEmail = "userEmail"
)

var (
	ErrMissingAuthHeader = errors.New("Authorization header (Bearer token) required")
	ErrInvalidAuthHeader = errors.New("Authorization header format must be Bearer {token}")
)

// BearerToken extracts the token from an "Authorization: Bearer <token>" header value.
func BearerToken(header string) (string, error) {
	if strings.TrimSpace(header) == "" {
		return "", ErrMissingAuthHeader
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", ErrInvalidAuthHeader
	}
	return parts[1], nil
}

// AuthMiddleware creates a Gin middleware function to protect routes.
// It resolves the bearer token through the session registry and stores the
// signed-in identity in the context for handlers to use.
func AuthMiddleware(sessions session.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			GinUnauthorized(c, err.Error())
			return
		}

		identity, err := sessions.Resolve(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, session.ErrInvalidSession) {
				GinUnauthorized(c, "Invalid token or session has ended.")
				return
			}
			GinInternalServerError(c, "Failed to verify session.")
			return
		}

		c.Set(ContextIdentity, identity)
		c.Set(ContextUserEmail, identity.Email)
		log.Debug("request authorized", "path", c.Request.URL.Path, "email", identity.Email)

		c.Next()
	}
}

// CurrentIdentity returns the identity stored by AuthMiddleware.
func CurrentIdentity(c *gin.Context) (models.Identity, bool) {
	value, exists := c.Get(ContextIdentity)
	if !exists {
		return models.Identity{}, false
	}
	identity, ok := value.(models.Identity)
	return identity, ok
}
