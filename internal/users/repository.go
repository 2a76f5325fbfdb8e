package users

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"

	"github.com/ssogate/ssogate/internal/models"
)

// ErrDuplicateKey is returned by Create when a unique constraint
// (email or a provider id) already holds for another user. Under
// concurrent logins the store's unique indexes are the final arbiter;
// callers map this to a conflict, never a partial success.
var ErrDuplicateKey = errors.New("duplicate key")

// Repository defines persistence operations for users. Lookups return
// (nil, nil) when no record matches.
type Repository interface {
	// FindByProviderID looks up the user linked to (provider, externalID).
	FindByProviderID(ctx context.Context, provider, externalID string) (*models.User, error)
	// FindByEmail looks up the user owning the given email.
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	// Create inserts a new user and returns it with its assigned ID.
	Create(ctx context.Context, u *models.User) (*models.User, error)
	// Update persists mutable fields (name, photo, emailVerifiedAt) of an
	// existing user and returns the stored record.
	Update(ctx context.Context, u *models.User) (*models.User, error)
}

// newID generates a store-assigned user id (32 hex chars).
func newID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
