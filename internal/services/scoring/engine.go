package scoring

import (
	"context"

	"CreditGate/internal/domain/models"
	domsvc "CreditGate/internal/domain/service"
)

// Weights of the linear risk model.
const (
	weightDefaultedAccounts = 0.30
	weightTotalDefaults     = 0.25
	weightBalanceRatio      = 0.20
	weightYoungOldestAcct   = 0.15
	weightManyRecentAccts   = 0.10
)

// Standard explanation texts returned with a decision.
const (
	approvalText = "Your application meets our current criteria for approval based on your credit history and financial situation."
	declineText  = "Our analysis indicates higher risk based on your credit history and current financial obligations."
)

// RuleEngine scores an application with a deterministic weighted linear
// model. Pure: no I/O, no state, identical input yields an identical result.
type RuleEngine struct{}

func NewRuleEngine() *RuleEngine { return &RuleEngine{} }

func (e *RuleEngine) Score(_ context.Context, rec models.ApplicantRecord) (models.DecisionResult, error) {
	if rec.Amount == 0 {
		// balance/amount is undefined; silently zeroing the term would
		// misrepresent risk, so the record is rejected outright.
		return models.DecisionResult{}, models.NewDecisionError(
			models.KindInvalidInput, "amount must be greater than zero", nil)
	}

	raw := weightDefaultedAccounts*float64(rec.DefaultedAccounts) +
		weightTotalDefaults*float64(rec.TotalDefaults) +
		weightBalanceRatio*(rec.Balance/rec.Amount)
	if rec.OldestAccountAgeMonths < 12 {
		raw += weightYoungOldestAcct
	}
	if rec.AccountsOpenedLast12m > 3 {
		raw += weightManyRecentAccts
	}

	// Extreme inputs push the weighted sum outside [0,1]; the score used for
	// thresholding is always the clamped one, the raw value stays on the
	// result for audit.
	risk := clamp(raw, 0, 1)

	approved := risk < models.ApprovalThreshold
	confidence := risk
	if approved {
		confidence = 1 - risk
	}

	res := models.DecisionResult{
		RiskScore:    risk,
		Approved:     approved,
		Confidence:   clamp(confidence, 0.1, 0.99),
		RawRiskScore: raw,
		Clamped:      raw != risk,
	}
	if approved {
		res.Explanation = approvalText
	} else {
		res.Explanation = declineText
	}
	return res, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

var _ domsvc.Scorer = (*RuleEngine)(nil)
