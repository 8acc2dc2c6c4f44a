package repository

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"CreditGate/internal/domain/models"
	"CreditGate/internal/domain/repository"
	"CreditGate/pkg/cache"
)

const (
	sessionKeyPrefix    = "session:"
	identityKeyPrefix   = "identity:"
	identityEmailPrefix = "identity_email:"
	verifyRatePrefix    = "verify_rate:"
)

// RedisSessionStore keeps sessions and identities in Redis. Session TTL is
// set once at creation; verification never extends it. A per-token counter
// throttles excessive verification traffic.
type RedisSessionStore struct {
	cache        cache.Service
	ttl          time.Duration
	verifyMaxRPS int
	verifyWindow time.Duration
}

// NewRedisSessionStore creates a session store on top of a cache service.
func NewRedisSessionStore(c cache.Service, ttl time.Duration, verifyMaxRPS int, verifyWindow time.Duration) *RedisSessionStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if verifyWindow <= 0 {
		verifyWindow = time.Second
	}
	return &RedisSessionStore{
		cache:        c,
		ttl:          ttl,
		verifyMaxRPS: verifyMaxRPS,
		verifyWindow: verifyWindow,
	}
}

func (s *RedisSessionStore) GetSession(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, repository.ErrSessionNotFound
	}
	if err := s.throttle(ctx, token); err != nil {
		return nil, err
	}

	var sess models.Session
	if err := s.cache.Get(ctx, sessionKeyPrefix+token, &sess); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, repository.ErrSessionNotFound
		}
		return nil, fmt.Errorf("session lookup: %w", err)
	}
	return &sess, nil
}

func (s *RedisSessionStore) GetIdentity(ctx context.Context, identityID string) (*models.Identity, error) {
	var id models.Identity
	if err := s.cache.Get(ctx, identityKeyPrefix+identityID, &id); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, repository.ErrIdentityNotFound
		}
		return nil, fmt.Errorf("identity lookup: %w", err)
	}
	return &id, nil
}

func (s *RedisSessionStore) DeleteSession(ctx context.Context, sessionID string) error {
	return s.cache.Delete(ctx, sessionKeyPrefix+sessionID)
}

// CreateSession mints a new session bound to the identity. The token doubles
// as the session ID; it is opaque to callers.
func (s *RedisSessionStore) CreateSession(ctx context.Context, identityID string) (*models.Session, error) {
	token, err := newToken()
	if err != nil {
		return nil, fmt.Errorf("mint token: %w", err)
	}
	now := time.Now().UTC()
	sess := &models.Session{
		ID:         token,
		IdentityID: identityID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.ttl),
	}
	if err := s.cache.Set(ctx, sessionKeyPrefix+token, sess, s.ttl); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	return sess, nil
}

// PutIdentity stores an identity record and its email index. Identities have
// no TTL; account lifecycle is owned elsewhere.
func (s *RedisSessionStore) PutIdentity(ctx context.Context, id *models.Identity) error {
	if err := s.cache.Set(ctx, identityKeyPrefix+id.ID, id, 0); err != nil {
		return fmt.Errorf("store identity: %w", err)
	}
	if err := s.cache.Set(ctx, identityEmailPrefix+id.Email, id.ID, 0); err != nil {
		return fmt.Errorf("store identity email index: %w", err)
	}
	return nil
}

// GetIdentityByEmail resolves an identity via the email index.
func (s *RedisSessionStore) GetIdentityByEmail(ctx context.Context, email string) (*models.Identity, error) {
	var identityID string
	if err := s.cache.Get(ctx, identityEmailPrefix+email, &identityID); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, repository.ErrIdentityNotFound
		}
		return nil, fmt.Errorf("identity email lookup: %w", err)
	}
	return s.GetIdentity(ctx, identityID)
}

// throttle enforces the per-token verification budget via INCR+EXPIRE.
func (s *RedisSessionStore) throttle(ctx context.Context, token string) error {
	if s.verifyMaxRPS <= 0 {
		return nil
	}
	key := verifyRatePrefix + token
	n, err := s.cache.Increment(ctx, key)
	if err != nil {
		return fmt.Errorf("verify counter: %w", err)
	}
	if n == 1 {
		if _, err := s.cache.Expire(ctx, key, s.verifyWindow); err != nil {
			return fmt.Errorf("verify counter expire: %w", err)
		}
	}
	if n > int64(s.verifyMaxRPS) {
		return repository.ErrThrottled
	}
	return nil
}

func newToken() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

var _ repository.SessionStore = (*RedisSessionStore)(nil)
