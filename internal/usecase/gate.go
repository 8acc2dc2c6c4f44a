package usecase

import (
	"context"
	"errors"
	"time"

	"CreditGate/internal/domain/models"
	domrepo "CreditGate/internal/domain/repository"
)

// SessionGate validates that a caller holds a live authenticated session
// before any decision work proceeds. It never creates a session and never
// retries; retry policy belongs to the caller.
type SessionGate struct {
	store   domrepo.SessionStore
	metrics domrepo.Metrics
}

func NewSessionGate(store domrepo.SessionStore, metrics domrepo.Metrics) *SessionGate {
	return &SessionGate{store: store, metrics: metrics}
}

// Verify resolves the token into a SessionContext. A session whose identity
// cannot be resolved is orphaned: it is deleted before the failure is
// reported so it never stays live.
func (g *SessionGate) Verify(ctx context.Context, token string) (models.SessionContext, error) {
	start := time.Now()
	sess, err := g.store.GetSession(ctx, token)
	if err != nil {
		return models.SessionContext{}, g.classifySessionErr(err)
	}
	if sess.Expired(time.Now()) {
		g.metrics.RecordError("gate_session_expired")
		return models.SessionContext{}, models.NewDecisionError(
			models.KindNoSession, "session expired", nil)
	}

	identity, err := g.store.GetIdentity(ctx, sess.IdentityID)
	if err != nil {
		if errors.Is(err, domrepo.ErrIdentityNotFound) {
			// Orphaned session: invalidate before reporting.
			if derr := g.store.DeleteSession(ctx, sess.ID); derr != nil {
				g.metrics.RecordError("gate_orphan_delete")
			}
			g.metrics.RecordError("gate_identity_missing")
			return models.SessionContext{}, models.NewDecisionError(
				models.KindIdentityUnavailable, "session has no valid identity", err)
		}
		g.metrics.RecordError("gate_identity_lookup")
		return models.SessionContext{}, models.NewDecisionError(
			models.KindUpstreamUnavailable, "identity lookup failed", err)
	}

	g.metrics.RecordLatency("gate_verify", time.Since(start).Seconds())
	identity.PasswordHash = ""
	return models.SessionContext{
		SessionID: sess.ID,
		Identity:  *identity,
		Expiry:    sess.ExpiresAt,
	}, nil
}

func (g *SessionGate) classifySessionErr(err error) error {
	switch {
	case errors.Is(err, domrepo.ErrSessionNotFound):
		g.metrics.RecordError("gate_no_session")
		return models.NewDecisionError(models.KindNoSession, "no active session", err)
	case errors.Is(err, domrepo.ErrThrottled):
		g.metrics.RecordError("gate_rate_limited")
		return models.NewDecisionError(models.KindRateLimited, "session store throttled verification", err)
	default:
		g.metrics.RecordError("gate_store_unavailable")
		return models.NewDecisionError(models.KindUpstreamUnavailable, "session store unavailable", err)
	}
}
