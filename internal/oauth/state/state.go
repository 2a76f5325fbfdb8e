// Package state issues and validates the anti-forgery state nonces that
// tie an authorization redirect to its callback. A nonce is single-use:
// validating it consumes it.
package state

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long a handshake may stay in flight.
const DefaultTTL = 10 * time.Minute

type Store interface {
	// Issue mints a new state nonce scoped to the given provider.
	Issue(ctx context.Context, provider string) (string, error)
	// Consume validates and invalidates the nonce. It returns false for
	// unknown, expired or already-used states.
	Consume(ctx context.Context, provider, state string) (bool, error)
}

func newState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// RedisStore keeps states in Redis under "oauthstate:<provider>:<state>"
// with a TTL, so concurrent gateway replicas share one state space.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, prefix: "oauthstate:", ttl: ttl}
}

func (s *RedisStore) key(provider, state string) string {
	return s.prefix + provider + ":" + state
}

func (s *RedisStore) Issue(ctx context.Context, provider string) (string, error) {
	state, err := newState()
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, s.key(provider, state), "1", s.ttl).Err(); err != nil {
		return "", err
	}
	return state, nil
}

func (s *RedisStore) Consume(ctx context.Context, provider, state string) (bool, error) {
	if state == "" {
		return false, nil
	}
	n, err := s.client.Del(ctx, s.key(provider, state)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// MemoryStore is the single-process fallback used when Redis is not
// configured, and in tests.
type MemoryStore struct {
	mu     sync.Mutex
	states map[string]time.Time
	ttl    time.Duration
	now    func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{states: make(map[string]time.Time), ttl: ttl, now: time.Now}
}

func (s *MemoryStore) Issue(ctx context.Context, provider string) (string, error) {
	state, err := newState()
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[provider+":"+state] = s.now().Add(s.ttl)
	return state, nil
}

func (s *MemoryStore) Consume(ctx context.Context, provider, state string) (bool, error) {
	if state == "" {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := provider + ":" + state
	exp, ok := s.states[key]
	if !ok {
		return false, nil
	}
	delete(s.states, key)
	return s.now().Before(exp), nil
}
