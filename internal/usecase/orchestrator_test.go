package usecase

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"CreditGate/internal/domain/models"
)

type fakeGate struct {
	calls int32
	sctx  models.SessionContext
	err   error
}

func (g *fakeGate) Verify(_ context.Context, _ string) (models.SessionContext, error) {
	atomic.AddInt32(&g.calls, 1)
	if g.err != nil {
		return models.SessionContext{}, g.err
	}
	return g.sctx, nil
}

type fakeScorer struct {
	calls     int32
	result    models.DecisionResult
	err       error
	delay     time.Duration
	ignoreCtx bool
}

func (s *fakeScorer) Score(ctx context.Context, _ models.ApplicantRecord) (models.DecisionResult, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.delay > 0 {
		if s.ignoreCtx {
			time.Sleep(s.delay)
		} else {
			select {
			case <-time.After(s.delay):
			case <-ctx.Done():
				return models.DecisionResult{}, ctx.Err()
			}
		}
	}
	return s.result, s.err
}

type fakeEmitter struct {
	records []*models.DecisionRecord
}

func (e *fakeEmitter) Emit(rec *models.DecisionRecord) {
	e.records = append(e.records, rec)
}

func okGate() *fakeGate {
	return &fakeGate{sctx: models.SessionContext{
		SessionID: "tok-1",
		Identity:  models.Identity{ID: "id-1", Email: "jane@example.com", Name: "Jane"},
		Expiry:    time.Now().Add(time.Hour),
	}}
}

func applicant() models.ApplicantRecord {
	return models.ApplicantRecord{
		Amount:                 10000,
		Term:                   36,
		ActiveAccounts:         2,
		DefaultedAccounts:      0,
		AccountsOpenedLast12m:  1,
		OldestAccountAgeMonths: 48,
		Balance:                1000,
		TotalDefaults:          0,
		Purpose:                models.PurposeDebt,
		EmploymentType:         models.EmploymentFull,
		ApplicantName:          "Jane Doe",
		ApplicantEmail:         "jane@example.com",
	}
}

func TestSubmitApproved(t *testing.T) {
	gate := okGate()
	scorer := &fakeScorer{result: models.DecisionResult{
		RiskScore: 0.02, Approved: true, Confidence: 0.98,
	}}
	emitter := &fakeEmitter{}
	orch := NewOrchestrator(gate, scorer, emitter, newFakeMetrics(), time.Second)

	sub := orch.Submit(context.Background(), "tok-1", applicant(), time.Second)
	res, err := sub.Wait(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Approved || res.RiskScore != 0.02 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if sub.State() != models.StateSucceeded {
		t.Fatalf("expected succeeded, got %s", sub.State())
	}
	if len(emitter.records) != 1 {
		t.Fatalf("expected one audit record, got %d", len(emitter.records))
	}
	rec := emitter.records[0]
	if rec.IdentityID != "id-1" || rec.EventID == "" || !rec.Result.Approved {
		t.Fatalf("unexpected audit record: %+v", rec)
	}
}

func TestSubmitInvalidRecordSkipsGate(t *testing.T) {
	gate := okGate()
	scorer := &fakeScorer{}
	orch := NewOrchestrator(gate, scorer, nil, newFakeMetrics(), time.Second)

	rec := applicant()
	rec.Term = 0
	sub := orch.Submit(context.Background(), "tok-1", rec, time.Second)
	_, err := sub.Wait(context.Background())
	if got := kindOf(t, err); got != models.KindInvalidInput {
		t.Fatalf("expected invalid_input, got %s", got)
	}
	if atomic.LoadInt32(&gate.calls) != 0 {
		t.Fatalf("gate must not run for an invalid record")
	}
	if atomic.LoadInt32(&scorer.calls) != 0 {
		t.Fatalf("scorer must not run for an invalid record")
	}
}

func TestSubmitZeroAmountRejected(t *testing.T) {
	orch := NewOrchestrator(okGate(), &fakeScorer{}, nil, newFakeMetrics(), time.Second)

	rec := applicant()
	rec.Amount = 0
	rec.Term = 0
	sub := orch.Submit(context.Background(), "tok-1", rec, time.Second)
	_, err := sub.Wait(context.Background())
	if got := kindOf(t, err); got != models.KindInvalidInput {
		t.Fatalf("expected invalid_input, got %s", got)
	}
}

func TestSubmitNoSessionSkipsScorer(t *testing.T) {
	gate := &fakeGate{err: models.NewDecisionError(models.KindNoSession, "no active session", nil)}
	scorer := &fakeScorer{}
	orch := NewOrchestrator(gate, scorer, nil, newFakeMetrics(), time.Second)

	sub := orch.Submit(context.Background(), "tok-1", applicant(), time.Second)
	_, err := sub.Wait(context.Background())
	if got := kindOf(t, err); got != models.KindNoSession {
		t.Fatalf("expected no_session, got %s", got)
	}
	if atomic.LoadInt32(&scorer.calls) != 0 {
		t.Fatalf("scorer must not run without a verified session")
	}
	if sub.State() != models.StateFailed {
		t.Fatalf("expected failed, got %s", sub.State())
	}
}

func TestSubmitDeadlineExceeded(t *testing.T) {
	scorer := &fakeScorer{
		result: models.DecisionResult{Approved: true, Confidence: 0.98},
		delay:  150 * time.Millisecond,
	}
	emitter := &fakeEmitter{}
	orch := NewOrchestrator(okGate(), scorer, emitter, newFakeMetrics(), time.Second)

	sub := orch.Submit(context.Background(), "tok-1", applicant(), 30*time.Millisecond)
	_, err := sub.Wait(context.Background())
	if got := kindOf(t, err); got != models.KindTimeout {
		t.Fatalf("expected timeout, got %s", got)
	}
	if sub.State() != models.StateFailed {
		t.Fatalf("expected failed, got %s", sub.State())
	}
	if len(emitter.records) != 0 {
		t.Fatalf("a timed-out request must not be recorded")
	}
}

func TestLateResultSuppressed(t *testing.T) {
	// Scorer ignores cancellation and completes after the deadline; the
	// late result must not flip a failed submission.
	scorer := &fakeScorer{
		result:    models.DecisionResult{Approved: true, Confidence: 0.98},
		delay:     100 * time.Millisecond,
		ignoreCtx: true,
	}
	emitter := &fakeEmitter{}
	orch := NewOrchestrator(okGate(), scorer, emitter, newFakeMetrics(), time.Second)

	sub := orch.Submit(context.Background(), "tok-1", applicant(), 20*time.Millisecond)
	_, err := sub.Wait(context.Background())
	if got := kindOf(t, err); got != models.KindTimeout {
		t.Fatalf("expected timeout, got %s", got)
	}

	time.Sleep(150 * time.Millisecond)
	if sub.State() != models.StateFailed {
		t.Fatalf("late result transitioned state to %s", sub.State())
	}
	if len(emitter.records) != 0 {
		t.Fatalf("late result must not be recorded")
	}
}

func TestCancelReturnsToIdle(t *testing.T) {
	scorer := &fakeScorer{
		result: models.DecisionResult{Approved: true},
		delay:  200 * time.Millisecond,
	}
	orch := NewOrchestrator(okGate(), scorer, nil, newFakeMetrics(), time.Second)

	sub := orch.Submit(context.Background(), "tok-1", applicant(), time.Second)
	time.Sleep(30 * time.Millisecond)
	sub.Cancel()

	if _, err := sub.Wait(context.Background()); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if sub.State() != models.StateIdle {
		t.Fatalf("expected idle after cancel, got %s", sub.State())
	}

	// A second cancel is harmless.
	sub.Cancel()
	if sub.State() != models.StateIdle {
		t.Fatalf("state drifted after repeated cancel: %s", sub.State())
	}
}

func TestSubmitScorerFailureClassified(t *testing.T) {
	scorer := &fakeScorer{err: context.DeadlineExceeded}
	orch := NewOrchestrator(okGate(), scorer, nil, newFakeMetrics(), time.Second)

	sub := orch.Submit(context.Background(), "tok-1", applicant(), time.Second)
	_, err := sub.Wait(context.Background())
	if got := kindOf(t, err); got != models.KindUpstreamUnavailable {
		t.Fatalf("expected upstream_unavailable, got %s", got)
	}
}
