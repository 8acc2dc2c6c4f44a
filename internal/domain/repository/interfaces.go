package repository

import (
	"context"
	"errors"
	"time"

	"CreditGate/internal/domain/models"
)

// Sentinel errors the session store reports; the gate maps them onto the
// failure taxonomy.
var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrIdentityNotFound = errors.New("identity not found")
	ErrThrottled        = errors.New("verification rate exceeded")
)

// SessionStore is the external session boundary the gate consults.
// The gate reads sessions and identities and may delete an orphaned
// session; it never creates one.
type SessionStore interface {
	GetSession(ctx context.Context, token string) (*models.Session, error)
	GetIdentity(ctx context.Context, identityID string) (*models.Identity, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// DecisionPublisher emits decision records onto the audit stream.
type DecisionPublisher interface {
	Publish(ctx context.Context, rec *models.DecisionRecord) error
	Close() error
}

// DecisionArchive persists decision records and serves time-ranged reads.
type DecisionArchive interface {
	Store(ctx context.Context, rec *models.DecisionRecord) error
	Query(ctx context.Context, identityID string, from, to time.Time, limit int) ([]*models.DecisionRecord, error)
	Health(ctx context.Context) error
	Close() error
}

// Metrics records pipeline observability signals.
type Metrics interface {
	RecordDecision(outcome string)
	RecordError(kind string)
	RecordRiskScore(score float64)
	RecordLatency(op string, seconds float64)
}
