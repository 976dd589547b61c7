package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/tarang-screening-server/internal/domain"
)

// ProgressRepository handles therapy progress persistence in PostgreSQL
type ProgressRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewProgressRepository creates a new progress repository
func NewProgressRepository(db *pgxpool.Pool, logger *logrus.Logger) *ProgressRepository {
	return &ProgressRepository{
		db:  db,
		log: logger,
	}
}

// SaveProgress inserts a progress sample
func (r *ProgressRepository) SaveProgress(ctx context.Context, p *domain.ProgressRecord) error {
	if p.TenantID == "" {
		return domain.ErrTenantRequired
	}
	if p.RecordedAt.IsZero() {
		p.RecordedAt = time.Now().UTC()
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO therapy_progress (
			id, tenant_id, patient_id, session_id, social_engagement,
			joint_attention, focus_drift, notes, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID,
		p.TenantID,
		p.PatientID,
		nullable(p.SessionID),
		p.SocialEngagement,
		p.JointAttention,
		p.FocusDrift,
		p.Notes,
		p.RecordedAt,
	)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"progress_id": p.ID,
			"patient_id":  p.PatientID,
			"error":       err,
		}).Error("Failed to save progress record")
		return fmt.Errorf("saving progress record: %w", err)
	}
	return nil
}

// ListProgress returns a patient's samples in ascending time order
func (r *ProgressRepository) ListProgress(ctx context.Context, tenantID, patientID string) ([]*domain.ProgressRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id::text, tenant_id, patient_id, COALESCE(session_id::text, ''),
			social_engagement, joint_attention, focus_drift, notes, recorded_at
		FROM therapy_progress
		WHERE tenant_id = $1 AND patient_id = $2
		ORDER BY recorded_at ASC, seq ASC`, tenantID, patientID)
	if err != nil {
		return nil, fmt.Errorf("listing progress records: %w", err)
	}
	defer rows.Close()

	records := make([]*domain.ProgressRecord, 0)
	for rows.Next() {
		var p domain.ProgressRecord
		if err := rows.Scan(
			&p.ID, &p.TenantID, &p.PatientID, &p.SessionID,
			&p.SocialEngagement, &p.JointAttention, &p.FocusDrift,
			&p.Notes, &p.RecordedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning progress record: %w", err)
		}
		records = append(records, &p)
	}
	return records, rows.Err()
}

// nullable maps an empty string onto SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
