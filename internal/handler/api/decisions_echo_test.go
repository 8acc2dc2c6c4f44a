package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"CreditGate/internal/domain/models"
	"CreditGate/internal/service/feed"
	"CreditGate/internal/usecase"
	xlogger "CreditGate/pkg/logger"

	"github.com/labstack/echo/v4"
)

type stubMetrics struct{}

func (stubMetrics) RecordDecision(string)         {}
func (stubMetrics) RecordError(string)            {}
func (stubMetrics) RecordRiskScore(float64)       {}
func (stubMetrics) RecordLatency(string, float64) {}

type stubGate struct {
	sctx models.SessionContext
	err  error
}

func (g *stubGate) Verify(_ context.Context, token string) (models.SessionContext, error) {
	if g.err != nil {
		return models.SessionContext{}, g.err
	}
	if token == "" {
		return models.SessionContext{}, models.NewDecisionError(models.KindNoSession, "no active session", nil)
	}
	return g.sctx, nil
}

type stubScorer struct {
	result models.DecisionResult
	err    error
}

func (s *stubScorer) Score(context.Context, models.ApplicantRecord) (models.DecisionResult, error) {
	return s.result, s.err
}

type stubArchive struct {
	rows []*models.DecisionRecord
	err  error
}

func (a *stubArchive) Store(context.Context, *models.DecisionRecord) error { return nil }
func (a *stubArchive) Query(context.Context, string, time.Time, time.Time, int) ([]*models.DecisionRecord, error) {
	return a.rows, a.err
}
func (a *stubArchive) Health(context.Context) error { return nil }
func (a *stubArchive) Close() error                 { return nil }

func testLogger(t *testing.T) *xlogger.Logger {
	t.Helper()
	log, err := xlogger.New(&xlogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func newHandler(t *testing.T, gate *stubGate, scorer *stubScorer, archive *stubArchive) *DecisionsEchoHandler {
	t.Helper()
	log := testLogger(t)
	orch := usecase.NewOrchestrator(gate, scorer, nil, stubMetrics{}, time.Second)
	return NewDecisionsEchoHandler(log, orch, gate, archive, feed.NewBroadcaster(log))
}

func verifiedGate() *stubGate {
	return &stubGate{sctx: models.SessionContext{
		SessionID: "tok-1",
		Identity:  models.Identity{ID: "id-1", Email: "jane@example.com", Name: "Jane"},
		Expiry:    time.Now().Add(time.Hour),
	}}
}

const submitBody = `{
	"amount": 10000, "term": 36,
	"active_accounts": 2, "defaulted_accounts": 0,
	"accounts_opened_12m": 1, "oldest_account_age_months": 48,
	"balance": 1000, "total_defaults": 0,
	"purpose": "debt", "employment_type": "full",
	"applicant_name": "Jane Doe", "applicant_email": "jane@example.com",
	"deadline_ms": 1000
}`

func doSubmit(t *testing.T, h *DecisionsEchoHandler, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/decisions", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	if err := h.Submit(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec
}

func TestSubmitEndpointApproved(t *testing.T) {
	scorer := &stubScorer{result: models.DecisionResult{
		RiskScore: 0.02, Approved: true, Confidence: 0.98,
		Explanation: "Based on your credit profile, your application meets our approval criteria.",
	}}
	h := newHandler(t, verifiedGate(), scorer, &stubArchive{})

	rec := doSubmit(t, h, submitBody, "tok-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data models.DecisionResult `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !envelope.Data.Approved || envelope.Data.Confidence != 0.98 {
		t.Fatalf("unexpected decision: %+v", envelope.Data)
	}
}

func TestSubmitEndpointNoSession(t *testing.T) {
	h := newHandler(t, verifiedGate(), &stubScorer{}, &stubArchive{})

	rec := doSubmit(t, h, submitBody, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSubmitEndpointRateLimited(t *testing.T) {
	gate := &stubGate{err: models.NewDecisionError(models.KindRateLimited, "verification rate exceeded", nil)}
	h := newHandler(t, gate, &stubScorer{}, &stubArchive{})

	rec := doSubmit(t, h, submitBody, "tok-1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSubmitEndpointUpstreamDown(t *testing.T) {
	scorer := &stubScorer{err: models.NewDecisionError(models.KindUpstreamUnavailable, "model service unavailable", nil)}
	h := newHandler(t, verifiedGate(), scorer, &stubArchive{})

	rec := doSubmit(t, h, submitBody, "tok-1")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSubmitEndpointTimeout(t *testing.T) {
	scorer := &stubScorer{err: models.NewDecisionError(models.KindTimeout, "scoring deadline exceeded", nil)}
	h := newHandler(t, verifiedGate(), scorer, &stubArchive{})

	rec := doSubmit(t, h, submitBody, "tok-1")
	if rec.Code != http.StatusGatewayTimeout {
		t.Fatalf("expected 504, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSubmitEndpointRejectsBadDeadline(t *testing.T) {
	h := newHandler(t, verifiedGate(), &stubScorer{}, &stubArchive{})

	body := strings.Replace(submitBody, `"deadline_ms": 1000`, `"deadline_ms": 10`, 1)
	rec := doSubmit(t, h, body, "tok-1")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRecentEndpoint(t *testing.T) {
	archive := &stubArchive{rows: []*models.DecisionRecord{
		{EventID: "id-1-1", IdentityID: "id-1", DecidedAt: time.Now().UTC()},
	}}
	h := newHandler(t, verifiedGate(), &stubScorer{}, archive)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/decisions?limit=10", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer tok-1")
	rec := httptest.NewRecorder()
	if err := h.Recent(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data struct {
			Rows  []*models.DecisionRecord `json:"rows"`
			Total int64                    `json:"total"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Total != 1 || len(envelope.Data.Rows) != 1 {
		t.Fatalf("unexpected listing: %s", rec.Body.String())
	}
}

func TestRecentEndpointRequiresSession(t *testing.T) {
	h := newHandler(t, verifiedGate(), &stubScorer{}, &stubArchive{})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/decisions", nil)
	rec := httptest.NewRecorder()
	if err := h.Recent(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
}
