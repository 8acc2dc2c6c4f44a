package service

import (
	"context"

	"CreditGate/internal/domain/models"
)

// Scorer maps an applicant record to a decision. Implementations must be
// deterministic for identical input and honor context cancellation when the
// call crosses a boundary. The orchestrator depends only on this contract so
// the rule engine can be swapped for a trained model without touching it.
type Scorer interface {
	Score(ctx context.Context, rec models.ApplicantRecord) (models.DecisionResult, error)
}
