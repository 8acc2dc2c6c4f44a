package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"CreditGate/internal/domain/models"
	domrepo "CreditGate/internal/domain/repository"
)

type fakeMetrics struct {
	errors map[string]int
}

func newFakeMetrics() *fakeMetrics { return &fakeMetrics{errors: make(map[string]int)} }

func (m *fakeMetrics) RecordDecision(string)         {}
func (m *fakeMetrics) RecordError(kind string)       { m.errors[kind]++ }
func (m *fakeMetrics) RecordRiskScore(float64)       {}
func (m *fakeMetrics) RecordLatency(string, float64) {}

type fakeSessionStore struct {
	session     *models.Session
	sessionErr  error
	identity    *models.Identity
	identityErr error

	identityCalls int
	deleteCalls   int
	deletedID     string
}

func (s *fakeSessionStore) GetSession(_ context.Context, token string) (*models.Session, error) {
	if s.sessionErr != nil {
		return nil, s.sessionErr
	}
	return s.session, nil
}

func (s *fakeSessionStore) GetIdentity(_ context.Context, id string) (*models.Identity, error) {
	s.identityCalls++
	if s.identityErr != nil {
		return nil, s.identityErr
	}
	return s.identity, nil
}

func (s *fakeSessionStore) DeleteSession(_ context.Context, id string) error {
	s.deleteCalls++
	s.deletedID = id
	return nil
}

func liveSession() *models.Session {
	return &models.Session{
		ID:         "tok-1",
		IdentityID: "id-1",
		CreatedAt:  time.Now().Add(-time.Minute),
		ExpiresAt:  time.Now().Add(time.Hour),
	}
}

func kindOf(t *testing.T, err error) models.FailureKind {
	t.Helper()
	var derr *models.DecisionError
	if !errors.As(err, &derr) {
		t.Fatalf("expected DecisionError, got %v", err)
	}
	return derr.Kind
}

func TestVerifyNoSession(t *testing.T) {
	store := &fakeSessionStore{sessionErr: domrepo.ErrSessionNotFound}
	gate := NewSessionGate(store, newFakeMetrics())

	_, err := gate.Verify(context.Background(), "missing")
	if got := kindOf(t, err); got != models.KindNoSession {
		t.Fatalf("expected no_session, got %s", got)
	}
	if store.identityCalls != 0 {
		t.Fatalf("identity must not be consulted without a session")
	}
	if store.deleteCalls != 0 {
		t.Fatalf("gate must not delete anything without a session")
	}
}

func TestVerifyExpiredSession(t *testing.T) {
	sess := liveSession()
	sess.ExpiresAt = time.Now().Add(-time.Minute)
	store := &fakeSessionStore{session: sess}
	gate := NewSessionGate(store, newFakeMetrics())

	_, err := gate.Verify(context.Background(), sess.ID)
	if got := kindOf(t, err); got != models.KindNoSession {
		t.Fatalf("expected no_session for expired session, got %s", got)
	}
}

func TestVerifyOrphanedSessionDeletedOnce(t *testing.T) {
	store := &fakeSessionStore{
		session:     liveSession(),
		identityErr: domrepo.ErrIdentityNotFound,
	}
	gate := NewSessionGate(store, newFakeMetrics())

	_, err := gate.Verify(context.Background(), "tok-1")
	if got := kindOf(t, err); got != models.KindIdentityUnavailable {
		t.Fatalf("expected identity_unavailable, got %s", got)
	}
	if store.deleteCalls != 1 {
		t.Fatalf("expected exactly one session delete, got %d", store.deleteCalls)
	}
	if store.deletedID != "tok-1" {
		t.Fatalf("deleted wrong session: %s", store.deletedID)
	}
}

func TestVerifyThrottled(t *testing.T) {
	store := &fakeSessionStore{sessionErr: domrepo.ErrThrottled}
	gate := NewSessionGate(store, newFakeMetrics())

	_, err := gate.Verify(context.Background(), "tok-1")
	if got := kindOf(t, err); got != models.KindRateLimited {
		t.Fatalf("expected rate_limited, got %s", got)
	}
}

func TestVerifyStoreUnavailable(t *testing.T) {
	store := &fakeSessionStore{sessionErr: errors.New("connection refused")}
	gate := NewSessionGate(store, newFakeMetrics())

	_, err := gate.Verify(context.Background(), "tok-1")
	if got := kindOf(t, err); got != models.KindUpstreamUnavailable {
		t.Fatalf("expected upstream_unavailable, got %s", got)
	}
}

func TestVerifySuccess(t *testing.T) {
	store := &fakeSessionStore{
		session:  liveSession(),
		identity: &models.Identity{ID: "id-1", Email: "jane@example.com", Name: "Jane", PasswordHash: "secret"},
	}
	gate := NewSessionGate(store, newFakeMetrics())

	sctx, err := gate.Verify(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sctx.SessionID != "tok-1" || sctx.Identity.ID != "id-1" {
		t.Fatalf("unexpected session context: %+v", sctx)
	}
	if sctx.Identity.PasswordHash != "" {
		t.Fatalf("password hash must not leave the gate")
	}
	if store.deleteCalls != 0 {
		t.Fatalf("successful verification must not delete the session")
	}
}
