package scoring

import (
	"context"
	"fmt"
	"time"

	"CreditGate/internal/domain/models"
	domsvc "CreditGate/internal/domain/service"
	"CreditGate/pkg/config"
	xhttp "CreditGate/pkg/http"
)

// HTTPScorer calls an external model service over HTTP. It honors the same
// Score contract as the local engine; cancellation of the passed context
// aborts the in-flight request.
type HTTPScorer struct {
	baseURL string
	client  *xhttp.Client
}

// NewHTTPScorer builds a scorer against the configured model service.
func NewHTTPScorer(cfg *config.Config) *HTTPScorer {
	timeout := cfg.Scoring.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTPScorer{
		baseURL: cfg.Scoring.ModelServiceURL,
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

type scoreResp struct {
	RiskScore    float64 `json:"risk_score"`
	Approved     bool    `json:"approved"`
	Confidence   float64 `json:"confidence"`
	Explanation  string  `json:"explanation"`
	RawRiskScore float64 `json:"raw_risk_score"`
	Clamped      bool    `json:"clamped"`
}

func (s *HTTPScorer) Score(ctx context.Context, rec models.ApplicantRecord) (models.DecisionResult, error) {
	if s.client == nil || s.baseURL == "" {
		return models.DecisionResult{}, fmt.Errorf("model service client not initialized")
	}
	var sr scoreResp
	err := s.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    s.baseURL + "/score",
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body: rec,
	}, &sr)
	if err != nil {
		return models.DecisionResult{}, fmt.Errorf("post score: %w", err)
	}
	return models.DecisionResult{
		RiskScore:    sr.RiskScore,
		Approved:     sr.Approved,
		Confidence:   sr.Confidence,
		Explanation:  sr.Explanation,
		RawRiskScore: sr.RawRiskScore,
		Clamped:      sr.Clamped,
	}, nil
}

var _ domsvc.Scorer = (*HTTPScorer)(nil)
