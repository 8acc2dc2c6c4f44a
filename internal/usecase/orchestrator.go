package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"CreditGate/internal/domain/models"
	domrepo "CreditGate/internal/domain/repository"
	domsvc "CreditGate/internal/domain/service"

	"github.com/go-playground/validator/v10"
)

// GateVerifier is the slice of SessionGate the orchestrator needs.
type GateVerifier interface {
	Verify(ctx context.Context, token string) (models.SessionContext, error)
}

// AuditEmitter receives completed decision records. Emission must never
// block or fail the request path.
type AuditEmitter interface {
	Emit(rec *models.DecisionRecord)
}

// Orchestrator coordinates one decision request: record validation, session
// gate, then a single bounded scoring attempt. It holds no cross-request
// mutable state; concurrent submissions are independent units of work.
type Orchestrator struct {
	gate            GateVerifier
	scorer          domsvc.Scorer
	emitter         AuditEmitter
	metrics         domrepo.Metrics
	validate        *validator.Validate
	defaultDeadline time.Duration
}

func NewOrchestrator(gate GateVerifier, scorer domsvc.Scorer, emitter AuditEmitter, metrics domrepo.Metrics, defaultDeadline time.Duration) *Orchestrator {
	if defaultDeadline <= 0 {
		defaultDeadline = 5 * time.Second
	}
	return &Orchestrator{
		gate:            gate,
		scorer:          scorer,
		emitter:         emitter,
		metrics:         metrics,
		validate:        validator.New(),
		defaultDeadline: defaultDeadline,
	}
}

// Submission tracks the client-visible state of one submission attempt.
// Terminal states are succeeded and failed; Cancel from any non-terminal
// state returns to idle with no result retained.
type Submission struct {
	mu     sync.Mutex
	state  models.RequestState
	result *models.DecisionResult
	err    error
	cancel context.CancelFunc

	done     chan struct{}
	doneOnce sync.Once
}

// State returns the current request state.
func (s *Submission) State() models.RequestState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Wait blocks until the submission settles, is cancelled, or ctx ends.
func (s *Submission) Wait(ctx context.Context) (models.DecisionResult, error) {
	select {
	case <-ctx.Done():
		return models.DecisionResult{}, ctx.Err()
	case <-s.done:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case models.StateSucceeded:
		return *s.result, nil
	case models.StateFailed:
		return models.DecisionResult{}, s.err
	default:
		// Cancelled back to idle.
		return models.DecisionResult{}, context.Canceled
	}
}

// Cancel abandons a non-terminal submission. The in-flight scoring attempt
// is cancelled and any late result is discarded.
func (s *Submission) Cancel() {
	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		return
	}
	s.state = models.StateIdle
	s.result = nil
	s.err = nil
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.doneOnce.Do(func() { close(s.done) })
}

// advance moves between non-terminal states; no-op once settled or
// cancelled away from the expected state.
func (s *Submission) advance(from, to models.RequestState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != from {
		return false
	}
	s.state = to
	return true
}

// apply records a terminal outcome at most once. A result arriving after
// the submission already failed (or was cancelled) is discarded entirely.
// Waiters are not released until signal is called.
func (s *Submission) apply(state models.RequestState, res *models.DecisionResult, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != models.StateSubmitting && s.state != models.StateAwaitingResult {
		return false
	}
	s.state = state
	s.result = res
	s.err = err
	return true
}

func (s *Submission) signal() {
	s.doneOnce.Do(func() { close(s.done) })
}

func (s *Submission) settle(state models.RequestState, res *models.DecisionResult, err error) bool {
	applied := s.apply(state, res, err)
	s.signal()
	return applied
}

type scoreOutcome struct {
	res models.DecisionResult
	err error
}

// Submit starts one decision request. Exactly one scoring attempt is made;
// there is no automatic retry of the scoring step, since a second score on
// identical input reproduces the first and would only mask the failure.
func (o *Orchestrator) Submit(ctx context.Context, token string, rec models.ApplicantRecord, deadline time.Duration) *Submission {
	if deadline <= 0 {
		deadline = o.defaultDeadline
	}
	sub := &Submission{state: models.StateIdle, done: make(chan struct{})}
	sub.advance(models.StateIdle, models.StateSubmitting)
	go o.run(ctx, sub, token, rec, deadline)
	return sub
}

func (o *Orchestrator) run(ctx context.Context, sub *Submission, token string, rec models.ApplicantRecord, deadline time.Duration) {
	// Record invariants are checked before the gate or the engine see
	// anything.
	if err := o.validateRecord(rec); err != nil {
		o.metrics.RecordError("orchestrator_invalid_input")
		sub.settle(models.StateFailed, nil, err)
		return
	}

	sctx, err := o.gate.Verify(ctx, token)
	if err != nil {
		sub.settle(models.StateFailed, nil, classify(err))
		return
	}
	if !sub.advance(models.StateSubmitting, models.StateAwaitingResult) {
		return // cancelled while verifying
	}

	scoreCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()
	sub.mu.Lock()
	sub.cancel = cancel
	sub.mu.Unlock()

	start := time.Now()
	outCh := make(chan scoreOutcome, 1)
	go func() {
		res, serr := o.scorer.Score(scoreCtx, rec)
		// The cancellation token is checked before any result is applied;
		// a completion after the deadline is suppressed entirely.
		if scoreCtx.Err() != nil {
			return
		}
		outCh <- scoreOutcome{res: res, err: serr}
	}()

	select {
	case <-scoreCtx.Done():
		if errors.Is(scoreCtx.Err(), context.DeadlineExceeded) {
			o.metrics.RecordError("orchestrator_timeout")
			sub.settle(models.StateFailed, nil, models.NewDecisionError(
				models.KindTimeout, "scoring deadline exceeded", scoreCtx.Err()))
		}
		// Plain cancellation was initiated by Cancel(); state already idle.
	case out := <-outCh:
		if out.err != nil {
			sub.settle(models.StateFailed, nil, classify(out.err))
			return
		}
		o.metrics.RecordLatency("score", time.Since(start).Seconds())
		o.metrics.RecordRiskScore(out.res.RiskScore)
		if sub.apply(models.StateSucceeded, &out.res, nil) {
			o.recordOutcome(sctx, rec, out.res)
		}
		sub.signal()
	}
}

func (o *Orchestrator) recordOutcome(sctx models.SessionContext, rec models.ApplicantRecord, res models.DecisionResult) {
	outcome := "declined"
	if res.Approved {
		outcome = "approved"
	}
	o.metrics.RecordDecision(outcome)

	if o.emitter == nil {
		return
	}
	now := time.Now().UTC()
	o.emitter.Emit(&models.DecisionRecord{
		EventID:        fmt.Sprintf("%s-%d", sctx.Identity.ID, now.UnixNano()),
		IdentityID:     sctx.Identity.ID,
		ApplicantEmail: rec.ApplicantEmail,
		Record:         rec,
		Result:         res,
		DecidedAt:      now,
	})
}

func (o *Orchestrator) validateRecord(rec models.ApplicantRecord) error {
	if err := o.validate.Struct(rec); err != nil {
		return models.NewDecisionError(models.KindInvalidInput, "applicant record failed validation", err)
	}
	if rec.Amount == 0 {
		return models.NewDecisionError(models.KindInvalidInput, "amount must be greater than zero", nil)
	}
	if rec.Amount > 0 && rec.Term == 0 {
		return models.NewDecisionError(models.KindInvalidInput, "term must be greater than zero for a non-zero amount", nil)
	}
	return nil
}

// classify recovers any failure into the closed taxonomy; nothing crosses
// the orchestrator boundary unclassified.
func classify(err error) error {
	var derr *models.DecisionError
	if errors.As(err, &derr) {
		return derr
	}
	return models.NewDecisionError(models.KindUpstreamUnavailable, "decision pipeline failure", err)
}
