package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/tarang-screening-server/internal/domain"
)

// SQLiteStore keeps sessions and progress in a single SQLite file. It
// implements both domain.SessionRepository and domain.ProgressRepository.
type SQLiteStore struct {
	db  *sql.DB
	log *logrus.Logger
}

// NewSQLiteStore opens (and creates when missing) the database at dbPath.
func NewSQLiteStore(dbPath string, logger *logrus.Logger) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db, log: logger}, nil
}

// rowid preserves insertion order for sessions sharing a timestamp.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS screening_sessions (
	id TEXT PRIMARY KEY,
	tenant_id TEXT NOT NULL,
	patient_id TEXT NOT NULL,
	patient_name TEXT NOT NULL DEFAULT '',
	risk_score REAL NOT NULL,
	confidence TEXT NOT NULL,
	confidence_level TEXT NOT NULL,
	dissonance_factor REAL NOT NULL,
	interpretation TEXT NOT NULL,
	fusion_method TEXT NOT NULL,
	breakdown TEXT NOT NULL DEFAULT '{}',
	clinical_recommendation TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_tenant_patient ON screening_sessions(tenant_id, patient_id, created_at);

CREATE TABLE IF NOT EXISTS therapy_progress (
	id TEXT PRIMARY KEY,
	tenant_id TEXT NOT NULL,
	patient_id TEXT NOT NULL,
	session_id TEXT NOT NULL DEFAULT '',
	social_engagement REAL NOT NULL,
	joint_attention REAL NOT NULL,
	focus_drift REAL NOT NULL,
	notes TEXT NOT NULL DEFAULT '',
	recorded_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_progress_tenant_patient ON therapy_progress(tenant_id, patient_id, recorded_at);
`

// SaveSession inserts a new screening session
func (s *SQLiteStore) SaveSession(ctx context.Context, session *domain.ScreeningSession) error {
	if session.TenantID == "" {
		return domain.ErrTenantRequired
	}
	breakdownJSON, err := json.Marshal(session.Breakdown)
	if err != nil {
		return fmt.Errorf("marshaling breakdown: %w", err)
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO screening_sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.TenantID,
		session.PatientID,
		session.PatientName,
		session.RiskScore,
		session.Confidence,
		string(session.ConfidenceLevel),
		session.DissonanceFactor,
		string(session.Interpretation),
		string(session.FusionMethod),
		string(breakdownJSON),
		session.ClinicalRecommendation,
		session.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving screening session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID within a tenant
func (s *SQLiteStore) GetSession(ctx context.Context, tenantID, sessionID string) (*domain.ScreeningSession, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM screening_sessions WHERE tenant_id = ? AND id = ?`,
		tenantID, sessionID)

	session, err := scanSQLiteSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("screening session %s: %w", sessionID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("getting screening session: %w", err)
	}
	return session, nil
}

// ListSessions returns the latest limit sessions of a patient, oldest first.
func (s *SQLiteStore) ListSessions(ctx context.Context, tenantID, patientID string, limit int) ([]*domain.ScreeningSession, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sessionColumns+` FROM (
			SELECT *, rowid AS r FROM screening_sessions
			WHERE tenant_id = ? AND patient_id = ?
			ORDER BY created_at DESC, rowid DESC
			LIMIT ?
		) ORDER BY created_at ASC, r ASC`, tenantID, patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing screening sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]*domain.ScreeningSession, 0)
	for rows.Next() {
		session, err := scanSQLiteSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning screening session: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// History returns the patient's risk scores in ascending creation order
func (s *SQLiteStore) History(ctx context.Context, tenantID, patientID string) (domain.ScoreSeries, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, risk_score FROM screening_sessions
		WHERE tenant_id = ? AND patient_id = ?
		ORDER BY created_at ASC, rowid ASC`, tenantID, patientID)
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

// SaveProgress inserts a progress sample
func (s *SQLiteStore) SaveProgress(ctx context.Context, p *domain.ProgressRecord) error {
	if p.TenantID == "" {
		return domain.ErrTenantRequired
	}
	if p.RecordedAt.IsZero() {
		p.RecordedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO therapy_progress (
			id, tenant_id, patient_id, session_id, social_engagement,
			joint_attention, focus_drift, notes, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.TenantID, p.PatientID, p.SessionID,
		p.SocialEngagement, p.JointAttention, p.FocusDrift,
		p.Notes, p.RecordedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving progress record: %w", err)
	}
	return nil
}

// ListProgress returns a patient's samples in ascending time order
func (s *SQLiteStore) ListProgress(ctx context.Context, tenantID, patientID string) ([]*domain.ProgressRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, patient_id, session_id, social_engagement,
			joint_attention, focus_drift, notes, recorded_at
		FROM therapy_progress
		WHERE tenant_id = ? AND patient_id = ?
		ORDER BY recorded_at ASC, rowid ASC`, tenantID, patientID)
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

// Ping verifies the database file is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanSQLiteSession(row scanner) (*domain.ScreeningSession, error) {
	var (
		session                       domain.ScreeningSession
		level, interpretation, method string
		breakdownJSON                 string
	)
	err := row.Scan(
		&session.ID,
		&session.TenantID,
		&session.PatientID,
		&session.PatientName,
		&session.RiskScore,
		&session.Confidence,
		&level,
		&session.DissonanceFactor,
		&interpretation,
		&method,
		&breakdownJSON,
		&session.ClinicalRecommendation,
		&session.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	session.ConfidenceLevel = domain.ConfidenceLevel(level)
	session.Interpretation = domain.Interpretation(interpretation)
	session.FusionMethod = domain.FusionMethod(method)
	if err := json.Unmarshal([]byte(breakdownJSON), &session.Breakdown); err != nil {
		return nil, fmt.Errorf("unmarshaling breakdown: %w", err)
	}
	return &session, nil
}
