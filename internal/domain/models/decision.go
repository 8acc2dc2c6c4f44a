package models

import "time"

// ApprovalThreshold is the risk score above which an application is declined.
const ApprovalThreshold = 0.7

// DecisionResult is the output of a scoring run.
// Invariant: Approved == (RiskScore < ApprovalThreshold); Confidence is
// derived from RiskScore, clamped to [0.1, 0.99].
type DecisionResult struct {
	RiskScore    float64 `json:"risk_score"`
	Approved     bool    `json:"approved"`
	Confidence   float64 `json:"confidence"`
	Explanation  string  `json:"explanation"`
	RawRiskScore float64 `json:"raw_risk_score"`
	Clamped      bool    `json:"clamped"`
}

// DecisionRecord is the audit event emitted after a completed decision.
// The pipeline only produces it; persistence belongs to the audit backend.
type DecisionRecord struct {
	EventID        string         `json:"event_id"`
	IdentityID     string         `json:"identity_id"`
	ApplicantEmail string         `json:"applicant_email"`
	Record         ApplicantRecord `json:"record"`
	Result         DecisionResult  `json:"result"`
	DecidedAt      time.Time       `json:"decided_at"`
}

// RequestState is the client-visible state of one submission attempt.
type RequestState string

const (
	StateIdle           RequestState = "idle"
	StateSubmitting     RequestState = "submitting"
	StateAwaitingResult RequestState = "awaitingResult"
	StateSucceeded      RequestState = "succeeded"
	StateFailed         RequestState = "failed"
)

// Terminal reports whether the state admits no further transitions.
func (s RequestState) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}
