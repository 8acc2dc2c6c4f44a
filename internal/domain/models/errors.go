package models

import "fmt"

// FailureKind is the closed set of ways a decision request can fail.
// Every failure crossing the pipeline boundary carries exactly one kind;
// nothing escapes unclassified.
type FailureKind string

const (
	KindInvalidInput        FailureKind = "invalid_input"
	KindNoSession           FailureKind = "no_session"
	KindIdentityUnavailable FailureKind = "identity_unavailable"
	KindRateLimited         FailureKind = "rate_limited"
	KindUpstreamUnavailable FailureKind = "upstream_unavailable"
	KindTimeout             FailureKind = "timeout"
)

// DecisionError is the structured error shape every pipeline failure is
// recovered into at the orchestrator boundary.
type DecisionError struct {
	Kind    FailureKind
	Message string
	Err     error
}

func (e *DecisionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error.
func (e *DecisionError) Unwrap() error { return e.Err }

// Retryable reports whether the caller may resubmit the same request.
// InvalidInput never is; authentication failures route to re-auth instead.
func (e *DecisionError) Retryable() bool {
	switch e.Kind {
	case KindRateLimited, KindUpstreamUnavailable, KindTimeout:
		return true
	default:
		return false
	}
}

// NewDecisionError creates a classified pipeline error.
func NewDecisionError(kind FailureKind, message string, err error) *DecisionError {
	return &DecisionError{Kind: kind, Message: message, Err: err}
}
