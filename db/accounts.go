package db

import (
	"context"
	"fmt"
	"strings"

	"musicbox/models"
	"musicbox/utils"

	"github.com/charmbracelet/log"
)

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

// NormalizeEmail trims and lower-cases an email so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a new account and persists users.json.
// name, email and password must be non-empty; the email must not be registered yet.
func (db *Database) Register(ctx context.Context, name, email, password string) (models.Identity, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)
	if name == "" || email == "" || strings.TrimSpace(password) == "" {
		return models.Identity{}, newError(ErrInvalidInput, "Name, email and password are required.")
	}
	if len(password) > MaxPasswordBytes {
		return models.Identity{}, newError(ErrInvalidInput, "Password must be at most %d bytes.", MaxPasswordBytes)
	}

	// bcrypt runs before the lock is taken.
	hash, err := utils.HashPassword(password, db.bcryptCost)
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: failed to hash password: %w", ErrInternal, err)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.accounts[email]; exists {
		return models.Identity{}, newError(ErrAlreadyExists, "Email %s is already registered.", email)
	}

	db.accounts[email] = models.Account{Name: name, PasswordHash: hash}
	if err := db.save(ctx, UsersFile, db.accounts); err != nil {
		delete(db.accounts, email)
		return models.Identity{}, err
	}

	log.Info("registered account", "email", email)
	return models.Identity{Name: name, Email: email}, nil
}

// Verify checks a password against the stored hash.
// An unknown email and a wrong password return the same ErrUnauthorized.
func (db *Database) Verify(_ context.Context, email, password string) (models.Identity, error) {
	email = NormalizeEmail(email)

	db.mu.RLock()
	account, exists := db.accounts[email]
	db.mu.RUnlock()

	if !exists || !utils.CheckPasswordHash(password, account.PasswordHash) {
		return models.Identity{}, newError(ErrUnauthorized, "Invalid email or password.")
	}
	return models.Identity{Name: account.Name, Email: email}, nil
}

// AccountCount returns the number of registered accounts.
func (db *Database) AccountCount() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.accounts)
}
