package users

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ssogate/ssogate/internal/models"
)

// MemoryRepository is an in-memory Repository used for unit tests and as
// a dev fallback when MongoDB is not configured. It enforces the same
// uniqueness constraints the Mongo indexes do.
type MemoryRepository struct {
	mu    sync.RWMutex
	store map[string]*models.User
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{store: make(map[string]*models.User)}
}

func clone(u *models.User) *models.User {
	cp := *u
	if u.EmailVerifiedAt != nil {
		t := *u.EmailVerifiedAt
		cp.EmailVerifiedAt = &t
	}
	return &cp
}

func (m *MemoryRepository) FindByProviderID(ctx context.Context, provider, externalID string) (*models.User, error) {
	if !models.ValidProvider(provider) {
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.store {
		if u.ProviderID(provider) == externalID && externalID != "" {
			return clone(u), nil
		}
	}
	return nil, nil
}

func (m *MemoryRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.store {
		if u.Email == email && email != "" {
			return clone(u), nil
		}
	}
	return nil, nil
}

func (m *MemoryRepository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.store {
		if existing.Email == u.Email {
			return nil, fmt.Errorf("%w: email %q", ErrDuplicateKey, u.Email)
		}
		for _, p := range []string{models.ProviderGoogle, models.ProviderGithub} {
			if id := u.ProviderID(p); id != "" && existing.ProviderID(p) == id {
				return nil, fmt.Errorf("%w: %s id %q", ErrDuplicateKey, p, id)
			}
		}
	}
	now := time.Now().UTC()
	if u.ID == "" {
		u.ID = newID()
	}
	u.CreatedAt = now
	u.UpdatedAt = now
	m.store[u.ID] = clone(u)
	return clone(u), nil
}

func (m *MemoryRepository) Update(ctx context.Context, u *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.store[u.ID]
	if !ok {
		return nil, fmt.Errorf("user %s not found", u.ID)
	}
	existing.Name = u.Name
	if u.Photo != "" {
		existing.Photo = u.Photo
	}
	if u.EmailVerifiedAt != nil {
		t := *u.EmailVerifiedAt
		existing.EmailVerifiedAt = &t
	} else {
		existing.EmailVerifiedAt = nil
	}
	existing.UpdatedAt = time.Now().UTC()
	return clone(existing), nil
}
