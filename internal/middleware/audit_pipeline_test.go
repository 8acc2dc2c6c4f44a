package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"CreditGate/internal/domain/models"
)

type countingMetrics struct {
	mu     sync.Mutex
	errors map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{errors: make(map[string]int)}
}

func (m *countingMetrics) RecordDecision(string)         {}
func (m *countingMetrics) RecordRiskScore(float64)       {}
func (m *countingMetrics) RecordLatency(string, float64) {}

func (m *countingMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errors[kind]++
	m.mu.Unlock()
}

func (m *countingMetrics) errorCount(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[kind]
}

type recordingProc struct {
	mu   sync.Mutex
	recs []*models.DecisionRecord
	err  error
}

func (p *recordingProc) Process(_ context.Context, rec *models.DecisionRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.recs = append(p.recs, rec)
	return nil
}

func (p *recordingProc) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.recs)
}

func rec(id string) *models.DecisionRecord {
	return &models.DecisionRecord{EventID: id, IdentityID: "id-1", DecidedAt: time.Now().UTC()}
}

func TestPipelineFlushesRecords(t *testing.T) {
	proc := &recordingProc{}
	p := NewAuditPipeline(proc, newCountingMetrics(), WithMaxRPS(1000), WithBufferSize(10))
	p.Start(context.Background())
	defer p.Stop()

	p.Emit(rec("e1"))
	p.Emit(rec("e2"))

	deadline := time.After(time.Second)
	for proc.count() < 2 {
		select {
		case <-deadline:
			t.Fatalf("records not flushed, got %d", proc.count())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestEmitNeverBlocksWhenFull(t *testing.T) {
	// Worker not started, so the buffer fills up.
	m := newCountingMetrics()
	p := NewAuditPipeline(&recordingProc{}, m, WithBufferSize(2))

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			p.Emit(rec("e"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Emit blocked on a full buffer")
	}
	if m.errorCount("audit_buffer_drop") != 8 {
		t.Fatalf("expected 8 drops, got %d", m.errorCount("audit_buffer_drop"))
	}
}

func TestBroadcastHookSeesEveryEmit(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	p := NewAuditPipeline(&recordingProc{}, newCountingMetrics(),
		WithBufferSize(1),
		WithBroadcast(func(r *models.DecisionRecord) {
			mu.Lock()
			seen = append(seen, r.EventID)
			mu.Unlock()
		}),
	)

	// Second emit overflows the backend buffer but still broadcasts.
	p.Emit(rec("e1"))
	p.Emit(rec("e2"))

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 {
		t.Fatalf("broadcast missed emits: %v", seen)
	}
}

func TestPipelineRequeuesOnBackendFailure(t *testing.T) {
	proc := &recordingProc{err: errors.New("backend down")}
	m := newCountingMetrics()
	p := NewAuditPipeline(proc, m, WithMaxRPS(1000), WithBufferSize(10))
	p.Start(context.Background())
	defer p.Stop()

	p.Emit(rec("e1"))

	deadline := time.After(time.Second)
	for m.errorCount("audit_flush") == 0 {
		select {
		case <-deadline:
			t.Fatalf("flush failure not recorded")
		case <-time.After(10 * time.Millisecond):
		}
	}

	// Backend recovers; the requeued record eventually lands.
	proc.mu.Lock()
	proc.err = nil
	proc.mu.Unlock()

	deadline = time.After(2 * time.Second)
	for proc.count() == 0 {
		select {
		case <-deadline:
			t.Fatalf("record lost after backend recovery")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
