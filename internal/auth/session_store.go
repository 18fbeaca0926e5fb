package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "notesu/internal/errors"
)

const sessionKeyPrefix = "session:"

// SessionStore maps opaque session ids to user ids. Lookup of a missing or
// expired session yields ErrUnauthorized; an infrastructure failure is
// reported as an error so callers never mistake an outage for a logout.
type SessionStore interface {
	Create(ctx context.Context, userID string, ttl time.Duration) (sessionID string, err error)
	Lookup(ctx context.Context, sessionID string) (userID string, err error)
	Destroy(ctx context.Context, sessionID string) error
}

// SessionCache is the slice of the cache client the store relies on. Get
// must return (nil, nil) for a missing key and a non-nil error only for
// infrastructure failures.
type SessionCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// RedisSessionStore keeps sessions in Redis with a TTL.
type RedisSessionStore struct {
	cache SessionCache
}

var _ SessionStore = (*RedisSessionStore)(nil)

// NewRedisSessionStore creates a Redis-backed session store.
func NewRedisSessionStore(cache SessionCache) *RedisSessionStore {
	return &RedisSessionStore{cache: cache}
}

// Create registers a new session for the user and returns its id.
func (s *RedisSessionStore) Create(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	sessionID := uuid.New().String()
	key := sessionKeyPrefix + sessionID
	if err := s.cache.Set(ctx, key, []byte(userID), ttl); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return sessionID, nil
}

// Lookup resolves a session id to its user id.
func (s *RedisSessionStore) Lookup(ctx context.Context, sessionID string) (string, error) {
	key := sessionKeyPrefix + sessionID
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("lookup session: %w", err)
	}
	if data == nil {
		return "", apperrors.ErrUnauthorized
	}
	return string(data), nil
}

// Destroy removes a session. Destroying a missing session is not an error.
func (s *RedisSessionStore) Destroy(ctx context.Context, sessionID string) error {
	return s.cache.Delete(ctx, sessionKeyPrefix+sessionID)
}
