package usecase

import (
	"context"
	"fmt"
	"time"

	"CreditGate/internal/domain/models"
	domrepo "CreditGate/internal/domain/repository"
)

// DecisionProcessor routes completed decision records to the configured
// audit backend.
type DecisionProcessor struct {
	pub     domrepo.DecisionPublisher
	archive domrepo.DecisionArchive
	metrics domrepo.Metrics
	backend string
}

// NewDecisionProcessor creates a new DecisionProcessor instance.
func NewDecisionProcessor(
	pub domrepo.DecisionPublisher,
	archive domrepo.DecisionArchive,
	metrics domrepo.Metrics,
	backend string,
) *DecisionProcessor {
	return &DecisionProcessor{
		pub:     pub,
		archive: archive,
		metrics: metrics,
		backend: backend,
	}
}

// Process routes a single decision record to the configured backend.
func (p *DecisionProcessor) Process(ctx context.Context, rec *models.DecisionRecord) error {
	if rec == nil {
		return fmt.Errorf("decision record is nil")
	}

	start := time.Now()
	var err error

	switch p.backend {
	case "kafka":
		err = p.pub.Publish(ctx, rec)
	case "clickhouse":
		err = p.archive.Store(ctx, rec)
	default:
		err = fmt.Errorf("unknown audit backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("audit_process")
		return fmt.Errorf("process decision record: %w", err)
	}

	p.metrics.RecordLatency("audit_process", time.Since(start).Seconds())
	return nil
}

// Close closes underlying resources if available.
func (p *DecisionProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
	if p.archive != nil {
		_ = p.archive.Close()
	}
}
