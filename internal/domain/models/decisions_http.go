package models

// Requests for the decision HTTP endpoints. Defined in domain for consistency and reuse.

type DecisionRequest struct {
	ApplicantRecord
	DeadlineMs int `json:"deadline_ms" default:"5000" validate:"gte=100,lte=30000"`
}

type RecentDecisionsRequest struct {
	From  string `query:"from" json:"from"`
	To    string `query:"to" json:"to"`
	Limit int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=500"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginResponse struct {
	Token      string `json:"token"`
	IdentityID string `json:"identity_id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	ExpiresAt  string `json:"expires_at"`
}
