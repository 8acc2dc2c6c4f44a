package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"CreditGate/internal/domain/models"
	"CreditGate/internal/domain/repository"
	pkgkafka "CreditGate/pkg/kafka"
)

// ClickHouseDecisionArchive implements DecisionArchive on ClickHouse.
type ClickHouseDecisionArchive struct {
	db    *sql.DB
	table string
}

// NewClickHouseDecisionArchive creates a ClickHouse-backed archive.
func NewClickHouseDecisionArchive(db *sql.DB, table string) repository.DecisionArchive {
	return &ClickHouseDecisionArchive{db: db, table: table}
}

func (a *ClickHouseDecisionArchive) Store(ctx context.Context, rec *models.DecisionRecord) error {
	q := fmt.Sprintf(`INSERT INTO %s
		(ts, event_id, identity_id, applicant_email, amount, term, purpose, employment_type,
		 risk_score, raw_risk_score, approved, confidence, clamped)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, a.table)
	approved, clamped := uint8(0), uint8(0)
	if rec.Result.Approved {
		approved = 1
	}
	if rec.Result.Clamped {
		clamped = 1
	}
	_, err := a.db.ExecContext(ctx, q,
		rec.DecidedAt,
		rec.EventID,
		rec.IdentityID,
		rec.ApplicantEmail,
		rec.Record.Amount,
		int32(rec.Record.Term),
		rec.Record.Purpose,
		rec.Record.EmploymentType,
		rec.Result.RiskScore,
		rec.Result.RawRiskScore,
		approved,
		rec.Result.Confidence,
		clamped,
	)
	return err
}

func (a *ClickHouseDecisionArchive) Query(ctx context.Context, identityID string, from, to time.Time, limit int) ([]*models.DecisionRecord, error) {
	q := fmt.Sprintf(`SELECT ts, event_id, identity_id, applicant_email, amount, term,
		purpose, employment_type, risk_score, raw_risk_score, approved, confidence, clamped
		FROM %s WHERE identity_id = ? AND ts >= ? AND ts <= ? ORDER BY ts DESC LIMIT ?`, a.table)
	rows, err := a.db.QueryContext(ctx, q, identityID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*models.DecisionRecord
	for rows.Next() {
		var r models.DecisionRecord
		var term int32
		var approved, clamped uint8
		if err := rows.Scan(&r.DecidedAt, &r.EventID, &r.IdentityID, &r.ApplicantEmail,
			&r.Record.Amount, &term, &r.Record.Purpose, &r.Record.EmploymentType,
			&r.Result.RiskScore, &r.Result.RawRiskScore, &approved, &r.Result.Confidence, &clamped); err != nil {
			return nil, err
		}
		r.Record.Term = int(term)
		r.Result.Approved = approved == 1
		r.Result.Clamped = clamped == 1
		recs = append(recs, &r)
	}
	return recs, rows.Err()
}

func (a *ClickHouseDecisionArchive) Health(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

func (a *ClickHouseDecisionArchive) Close() error {
	return nil // Managed by pkg
}

// KafkaDecisionPublisher implements DecisionPublisher for Kafka. Records are
// keyed by identity so one applicant's decisions stay ordered per partition.
type KafkaDecisionPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaDecisionPublisher creates a Kafka publisher.
func NewKafkaDecisionPublisher(producer *pkgkafka.Producer, topic string) repository.DecisionPublisher {
	return &KafkaDecisionPublisher{producer: producer, topic: topic}
}

func (p *KafkaDecisionPublisher) Publish(ctx context.Context, rec *models.DecisionRecord) error {
	return p.producer.Publish(ctx, p.topic, []byte(rec.IdentityID), rec)
}

func (p *KafkaDecisionPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
