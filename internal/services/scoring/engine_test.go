package scoring

import (
	"context"
	"errors"
	"math"
	"testing"

	"CreditGate/internal/domain/models"
)

func validRecord() models.ApplicantRecord {
	return models.ApplicantRecord{
		Amount:                 10000,
		Term:                   24,
		ActiveAccounts:         2,
		DefaultedAccounts:      0,
		AccountsOpenedLast12m:  1,
		OldestAccountAgeMonths: 36,
		Balance:                1000,
		TotalDefaults:          0,
		Purpose:                models.PurposePersonal,
		EmploymentType:         models.EmploymentFull,
		ApplicantName:          "Jane Doe",
		ApplicantEmail:         "jane@example.com",
	}
}

func TestScoreLowRiskApproved(t *testing.T) {
	e := NewRuleEngine()
	res, err := e.Score(context.Background(), validRecord())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Approved {
		t.Fatalf("expected approval, got decline")
	}
	if math.Abs(res.RiskScore-0.02) > 1e-9 {
		t.Fatalf("unexpected risk score %v", res.RiskScore)
	}
	if math.Abs(res.Confidence-0.98) > 1e-9 {
		t.Fatalf("unexpected confidence %v", res.Confidence)
	}
	if res.Clamped {
		t.Fatalf("score should not be clamped")
	}
	if res.Explanation == "" {
		t.Fatalf("expected explanation text")
	}
}

func TestScoreHighRiskClamped(t *testing.T) {
	rec := validRecord()
	rec.DefaultedAccounts = 2
	rec.TotalDefaults = 3

	e := NewRuleEngine()
	res, err := e.Score(context.Background(), rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Approved {
		t.Fatalf("expected decline")
	}
	if res.RiskScore != 1.0 {
		t.Fatalf("expected risk clamped to 1.0, got %v", res.RiskScore)
	}
	if !res.Clamped {
		t.Fatalf("expected clamped flag")
	}
	if math.Abs(res.RawRiskScore-1.37) > 1e-9 {
		t.Fatalf("unexpected raw risk %v", res.RawRiskScore)
	}
	if res.Confidence != 0.99 {
		t.Fatalf("expected confidence clamped to 0.99, got %v", res.Confidence)
	}
}

func TestScoreZeroAmountRejected(t *testing.T) {
	rec := validRecord()
	rec.Amount = 0

	e := NewRuleEngine()
	_, err := e.Score(context.Background(), rec)
	if err == nil {
		t.Fatalf("expected error for zero amount")
	}
	var derr *models.DecisionError
	if !errors.As(err, &derr) || derr.Kind != models.KindInvalidInput {
		t.Fatalf("expected invalid input kind, got %v", err)
	}
}

func TestScoreDeterministic(t *testing.T) {
	rec := validRecord()
	rec.Balance = 777.77
	rec.OldestAccountAgeMonths = 6
	rec.AccountsOpenedLast12m = 4

	e := NewRuleEngine()
	first, err := e.Score(context.Background(), rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := e.Score(context.Background(), rec)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if again != first {
			t.Fatalf("score not deterministic: %+v vs %+v", again, first)
		}
	}
}

func TestScoreInvariants(t *testing.T) {
	cases := []models.ApplicantRecord{
		validRecord(),
		{Amount: 1, Term: 1, Balance: 0, Purpose: models.PurposeDebt, EmploymentType: models.EmploymentSelf},
		{Amount: 500, Term: 12, Balance: 100000, TotalDefaults: 9, DefaultedAccounts: 9,
			OldestAccountAgeMonths: 1, AccountsOpenedLast12m: 8,
			Purpose: models.PurposeVehicle, EmploymentType: models.EmploymentRetired},
	}

	e := NewRuleEngine()
	for i, rec := range cases {
		res, err := e.Score(context.Background(), rec)
		if err != nil {
			t.Fatalf("case %d: unexpected error: %v", i, err)
		}
		if res.RiskScore < 0 || res.RiskScore > 1 {
			t.Fatalf("case %d: risk score out of range: %v", i, res.RiskScore)
		}
		if res.Confidence < 0.1 || res.Confidence > 0.99 {
			t.Fatalf("case %d: confidence out of range: %v", i, res.Confidence)
		}
		if res.Approved != (res.RiskScore < models.ApprovalThreshold) {
			t.Fatalf("case %d: approval does not match threshold", i)
		}
	}
}
