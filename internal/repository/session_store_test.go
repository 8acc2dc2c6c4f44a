package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"CreditGate/internal/domain/models"
	domrepo "CreditGate/internal/domain/repository"
	"CreditGate/pkg/cache"
)

// memCache is an in-process cache.Service for tests.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (m *memCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[key] = b
	m.mu.Unlock()
	return nil
}

func (m *memCache) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	b, ok := m.data[key]
	m.mu.Unlock()
	if !ok {
		return cache.ErrCacheMiss
	}
	return json.Unmarshal(b, dest)
}

func (m *memCache) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	for _, k := range keys {
		delete(m.data, k)
	}
	m.mu.Unlock()
	return nil
}

func (m *memCache) DeleteByPattern(context.Context, string) error { return nil }

func (m *memCache) Exists(_ context.Context, keys ...string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		if _, ok := m.data[k]; !ok {
			return false, nil
		}
	}
	return true, nil
}

func (m *memCache) Increment(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	if b, ok := m.data[key]; ok {
		parsed, err := strconv.ParseInt(string(b), 10, 64)
		if err != nil {
			return 0, err
		}
		n = parsed
	}
	n++
	m.data[key] = []byte(fmt.Sprintf("%d", n))
	return n, nil
}

func (m *memCache) Expire(context.Context, string, time.Duration) (bool, error) { return true, nil }

func (m *memCache) MSet(context.Context, map[string]interface{}, time.Duration) error { return nil }

func (m *memCache) MGet(context.Context, ...string) (map[string]string, error) {
	return map[string]string{}, nil
}

func (m *memCache) TryLock(context.Context, string, time.Duration) (bool, error) { return true, nil }
func (m *memCache) Unlock(context.Context, string) error                         { return nil }

func newStore(maxRPS int) (*RedisSessionStore, *memCache) {
	mc := newMemCache()
	return NewRedisSessionStore(mc, time.Hour, maxRPS, time.Second), mc
}

func TestCreateAndGetSession(t *testing.T) {
	store, _ := newStore(0)
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, "id-1")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if len(sess.ID) != 48 {
		t.Fatalf("unexpected token length: %d", len(sess.ID))
	}

	got, err := store.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.IdentityID != "id-1" {
		t.Fatalf("unexpected identity: %s", got.IdentityID)
	}
	if !got.ExpiresAt.After(got.CreatedAt) {
		t.Fatalf("session must expire after creation: %+v", got)
	}
}

func TestGetSessionMiss(t *testing.T) {
	store, _ := newStore(0)

	_, err := store.GetSession(context.Background(), "nope")
	if !errors.Is(err, domrepo.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestGetSessionEmptyToken(t *testing.T) {
	store, _ := newStore(0)

	_, err := store.GetSession(context.Background(), "")
	if !errors.Is(err, domrepo.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestDeleteSession(t *testing.T) {
	store, _ := newStore(0)
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, "id-1")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := store.DeleteSession(ctx, sess.ID); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, err := store.GetSession(ctx, sess.ID); !errors.Is(err, domrepo.ErrSessionNotFound) {
		t.Fatalf("expected miss after delete, got %v", err)
	}
}

func TestVerifyThrottling(t *testing.T) {
	store, _ := newStore(3)
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, "id-1")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := store.GetSession(ctx, sess.ID); err != nil {
			t.Fatalf("lookup %d under budget failed: %v", i, err)
		}
	}
	if _, err := store.GetSession(ctx, sess.ID); !errors.Is(err, domrepo.ErrThrottled) {
		t.Fatalf("expected ErrThrottled over budget, got %v", err)
	}
}

func TestIdentityRoundTrip(t *testing.T) {
	store, _ := newStore(0)
	ctx := context.Background()

	id := &models.Identity{ID: "id-1", Email: "jane@example.com", Name: "Jane", PasswordHash: "h"}
	if err := store.PutIdentity(ctx, id); err != nil {
		t.Fatalf("put identity: %v", err)
	}

	got, err := store.GetIdentity(ctx, "id-1")
	if err != nil {
		t.Fatalf("get identity: %v", err)
	}
	if got.Email != "jane@example.com" {
		t.Fatalf("unexpected identity: %+v", got)
	}

	byEmail, err := store.GetIdentityByEmail(ctx, "jane@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if byEmail.ID != "id-1" {
		t.Fatalf("email index resolved wrong identity: %+v", byEmail)
	}

	if _, err := store.GetIdentity(ctx, "missing"); !errors.Is(err, domrepo.ErrIdentityNotFound) {
		t.Fatalf("expected ErrIdentityNotFound, got %v", err)
	}
}

func TestTokensAreUnique(t *testing.T) {
	store, _ := newStore(0)
	ctx := context.Background()

	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		sess, err := store.CreateSession(ctx, "id-1")
		if err != nil {
			t.Fatalf("create session: %v", err)
		}
		if _, dup := seen[sess.ID]; dup {
			t.Fatalf("duplicate token minted: %s", sess.ID)
		}
		seen[sess.ID] = struct{}{}
	}
}
