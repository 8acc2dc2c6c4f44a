package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"CreditGate/internal/domain/models"
	domrepo "CreditGate/internal/domain/repository"
)

type fakeCredStore struct {
	identity  *models.Identity
	lookupErr error

	created int
	deleted []string
}

func (s *fakeCredStore) GetIdentityByEmail(_ context.Context, email string) (*models.Identity, error) {
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	if s.identity == nil || s.identity.Email != email {
		return nil, domrepo.ErrIdentityNotFound
	}
	id := *s.identity
	return &id, nil
}

func (s *fakeCredStore) CreateSession(_ context.Context, identityID string) (*models.Session, error) {
	s.created++
	now := time.Now().UTC()
	return &models.Session{ID: "tok-1", IdentityID: identityID, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}, nil
}

func (s *fakeCredStore) DeleteSession(_ context.Context, sessionID string) error {
	s.deleted = append(s.deleted, sessionID)
	return nil
}

func credStore() *fakeCredStore {
	return &fakeCredStore{identity: &models.Identity{
		ID:           "id-1",
		Email:        "jane@example.com",
		Name:         "Jane",
		PasswordHash: HashPassword("correct horse"),
	}}
}

func TestLoginSuccess(t *testing.T) {
	store := credStore()
	auth := NewAuthService(store, newFakeMetrics())

	sess, identity, err := auth.Login(context.Background(), "jane@example.com", "correct horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if sess.IdentityID != "id-1" || identity.ID != "id-1" {
		t.Fatalf("session bound to wrong identity: %+v", sess)
	}
	if identity.PasswordHash != "" {
		t.Fatalf("password hash must not be returned")
	}
	if store.created != 1 {
		t.Fatalf("expected one session, got %d", store.created)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	auth := NewAuthService(credStore(), newFakeMetrics())

	_, _, err := auth.Login(context.Background(), "jane@example.com", "wrong password")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	store := credStore()
	auth := NewAuthService(store, newFakeMetrics())

	_, _, err := auth.Login(context.Background(), "nobody@example.com", "correct horse")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if store.created != 0 {
		t.Fatalf("no session may be minted on failed login")
	}
}

func TestLoginStoreFailure(t *testing.T) {
	store := &fakeCredStore{lookupErr: errors.New("connection refused")}
	auth := NewAuthService(store, newFakeMetrics())

	_, _, err := auth.Login(context.Background(), "jane@example.com", "correct horse")
	if err == nil || errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("infrastructure failure must not read as bad credentials: %v", err)
	}
}

func TestLogout(t *testing.T) {
	store := credStore()
	auth := NewAuthService(store, newFakeMetrics())

	if err := auth.Logout(context.Background(), "tok-1"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(store.deleted) != 1 || store.deleted[0] != "tok-1" {
		t.Fatalf("expected session delete, got %v", store.deleted)
	}

	// Empty token is a no-op.
	if err := auth.Logout(context.Background(), ""); err != nil {
		t.Fatalf("empty token logout: %v", err)
	}
	if len(store.deleted) != 1 {
		t.Fatalf("empty token must not delete anything")
	}
}
