package middleware

import (
	"context"
	"sync"
	"time"

	"CreditGate/internal/domain/models"
	domrepo "CreditGate/internal/domain/repository"
)

// Proc is the minimal processor interface the pipeline needs.
type Proc interface {
	Process(ctx context.Context, rec *models.DecisionRecord) error
}

// AuditPipeline sits between the orchestrator and the audit backend. Emit
// never blocks the request path: records are buffered and flushed by a
// background worker under a rate cap; under sustained backpressure records
// are dropped with a metric rather than stalling a decision.
type AuditPipeline struct {
	proc    Proc
	metrics domrepo.Metrics
	maxRPS  int
	bufSize int
	bufCh   chan *models.DecisionRecord
	stopCh  chan struct{}
	started bool
	mu      sync.Mutex

	broadcast func(*models.DecisionRecord)
	lastFlush time.Time
}

type PipelineOption func(*AuditPipeline)

// WithMaxRPS caps records flushed per second.
func WithMaxRPS(n int) PipelineOption {
	return func(p *AuditPipeline) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

// WithBufferSize sets the emit buffer size.
func WithBufferSize(n int) PipelineOption {
	return func(p *AuditPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithBroadcast registers a fan-out hook invoked for every emitted record
// before it reaches the backend (live feed subscribers).
func WithBroadcast(fn func(*models.DecisionRecord)) PipelineOption {
	return func(p *AuditPipeline) { p.broadcast = fn }
}

// NewAuditPipeline creates a new pipeline.
func NewAuditPipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *AuditPipeline {
	p := &AuditPipeline{
		proc:    proc,
		metrics: metrics,
		maxRPS:  100,
		bufSize: 1000,
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan *models.DecisionRecord, p.bufSize)
	return p
}

// Emit enqueues a record without blocking; full buffer drops the record.
func (p *AuditPipeline) Emit(rec *models.DecisionRecord) {
	if rec == nil {
		return
	}
	if p.broadcast != nil {
		p.broadcast(rec)
	}
	select {
	case p.bufCh <- rec:
	default:
		p.metrics.RecordError("audit_buffer_drop")
	}
}

// Start launches the background flush worker.
func (p *AuditPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case rec := <-p.bufCh:
				if rec == nil {
					continue
				}
				p.throttleFlush()
				if err := p.proc.Process(ctx, rec); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("audit_flush")
					time.Sleep(backoff)
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- rec:
					default:
						p.metrics.RecordError("audit_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flush worker.
func (p *AuditPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

func (p *AuditPipeline) throttleFlush() {
	if p.maxRPS <= 0 {
		return
	}
	minGap := time.Second / time.Duration(p.maxRPS)
	if since := time.Since(p.lastFlush); since < minGap {
		time.Sleep(minGap - since)
	}
	p.lastFlush = time.Now()
}
