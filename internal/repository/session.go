// Package repository persists screening sessions and therapy progress.
// The pgx repositories back the HTTP server; the SQLite repositories back the
// standalone MCP server.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/tarang-screening-server/internal/domain"
)

// SessionRepository handles screening session persistence in PostgreSQL
type SessionRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *pgxpool.Pool, logger *logrus.Logger) *SessionRepository {
	return &SessionRepository{
		db:  db,
		log: logger,
	}
}

const sessionColumns = `id, tenant_id, patient_id, patient_name, risk_score, confidence,
	confidence_level, dissonance_factor, interpretation, fusion_method, breakdown,
	clinical_recommendation, created_at`

const sessionSelect = `id::text, tenant_id, patient_id, patient_name, risk_score, confidence,
	confidence_level, dissonance_factor, interpretation, fusion_method, breakdown,
	clinical_recommendation, created_at`

// SaveSession inserts a new screening session
func (r *SessionRepository) SaveSession(ctx context.Context, s *domain.ScreeningSession) error {
	if s.TenantID == "" {
		return domain.ErrTenantRequired
	}

	breakdownJSON, err := json.Marshal(s.Breakdown)
	if err != nil {
		return fmt.Errorf("marshaling breakdown: %w", err)
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO screening_sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err = r.db.Exec(ctx, query,
		s.ID,
		s.TenantID,
		s.PatientID,
		s.PatientName,
		s.RiskScore,
		s.Confidence,
		string(s.ConfidenceLevel),
		s.DissonanceFactor,
		string(s.Interpretation),
		string(s.FusionMethod),
		breakdownJSON,
		s.ClinicalRecommendation,
		s.CreatedAt,
	)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"session_id": s.ID,
			"tenant_id":  s.TenantID,
			"error":      err,
		}).Error("Failed to save screening session")
		return fmt.Errorf("saving screening session: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"session_id": s.ID,
		"patient_id": s.PatientID,
		"risk_score": s.RiskScore,
	}).Debug("Screening session saved")
	return nil
}

// GetSession retrieves a session by ID within a tenant
func (r *SessionRepository) GetSession(ctx context.Context, tenantID, sessionID string) (*domain.ScreeningSession, error) {
	query := `SELECT ` + sessionSelect + ` FROM screening_sessions
		WHERE tenant_id = $1 AND id::text = $2`

	s, err := scanSession(r.db.QueryRow(ctx, query, tenantID, sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("screening session %s: %w", sessionID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("getting screening session: %w", err)
	}
	return s, nil
}

// ListSessions returns the latest limit sessions of a patient, oldest first.
// A non-positive limit returns every session.
func (r *SessionRepository) ListSessions(ctx context.Context, tenantID, patientID string, limit int) ([]*domain.ScreeningSession, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if limit > 0 {
		rows, err = r.db.Query(ctx, `
			SELECT `+sessionSelect+` FROM (
				SELECT * FROM screening_sessions
				WHERE tenant_id = $1 AND patient_id = $2
				ORDER BY created_at DESC, seq DESC
				LIMIT $3
			) latest ORDER BY created_at ASC, seq ASC`, tenantID, patientID, limit)
	} else {
		rows, err = r.db.Query(ctx, `
			SELECT `+sessionSelect+` FROM screening_sessions
			WHERE tenant_id = $1 AND patient_id = $2
			ORDER BY created_at ASC, seq ASC`, tenantID, patientID)
	}
	if err != nil {
		return nil, fmt.Errorf("listing screening sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]*domain.ScreeningSession, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning screening session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// History returns the patient's risk scores in ascending creation order.
// Sessions created in the same instant keep insertion order.
func (r *SessionRepository) History(ctx context.Context, tenantID, patientID string) (domain.ScoreSeries, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id::text, created_at, risk_score FROM screening_sessions
		WHERE tenant_id = $1 AND patient_id = $2
		ORDER BY created_at ASC, seq ASC`, tenantID, patientID)
	if err != nil {
		return nil, fmt.Errorf("querying score history: %w", err)
	}
	defer rows.Close()

	series := make(domain.ScoreSeries, 0)
	for rows.Next() {
		var p domain.ScorePoint
		if err := rows.Scan(&p.SessionID, &p.Timestamp, &p.RiskScore); err != nil {
			return nil, fmt.Errorf("scanning score history: %w", err)
		}
		series = append(series, p)
	}
	return series, rows.Err()
}

func scanSession(row pgx.Row) (*domain.ScreeningSession, error) {
	var (
		s                             domain.ScreeningSession
		level, interpretation, method string
		breakdownJSON                 []byte
	)
	err := row.Scan(
		&s.ID,
		&s.TenantID,
		&s.PatientID,
		&s.PatientName,
		&s.RiskScore,
		&s.Confidence,
		&level,
		&s.DissonanceFactor,
		&interpretation,
		&method,
		&breakdownJSON,
		&s.ClinicalRecommendation,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.ConfidenceLevel = domain.ConfidenceLevel(level)
	s.Interpretation = domain.Interpretation(interpretation)
	s.FusionMethod = domain.FusionMethod(method)
	if len(breakdownJSON) > 0 {
		if err := json.Unmarshal(breakdownJSON, &s.Breakdown); err != nil {
			return nil, fmt.Errorf("unmarshaling breakdown: %w", err)
		}
	}
	return &s, nil
}
