package usecase

import (
	"context"
	"encoding/json"
	"time"

	"CreditGate/internal/domain/models"
	domrepo "CreditGate/internal/domain/repository"
	pkgkafka "CreditGate/pkg/kafka"
)

// KafkaDecisionsHandler drains the decisions topic into the archive.
type KafkaDecisionsHandler struct {
	topic   string
	archive domrepo.DecisionArchive
	metrics domrepo.Metrics
}

func NewKafkaDecisionsHandler(topic string, archive domrepo.DecisionArchive, metrics domrepo.Metrics) *KafkaDecisionsHandler {
	return &KafkaDecisionsHandler{topic: topic, archive: archive, metrics: metrics}
}

func (h *KafkaDecisionsHandler) Topic() string { return h.topic }

func (h *KafkaDecisionsHandler) Handle(ctx context.Context, b []byte) error {
	var rec models.DecisionRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	// E2E latency from decision time to archival (approx)
	h.metrics.RecordLatency("audit_e2e", time.Since(rec.DecidedAt).Seconds())

	start := time.Now()
	if err := h.archive.Store(ctx, &rec); err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordLatency("archive_insert", time.Since(start).Seconds())
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaDecisionsHandler)(nil)
