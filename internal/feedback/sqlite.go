package feedback

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tarang-screening-server/internal/domain"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite review store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

const reviewColumns = `id, session_id, tenant_id, engine_result, clinician_result,
	verdict, reviewer, notes, created_at, updated_at`

// scanReview scans a row into a ClinicianReview.
func scanReview(s scanner) (*domain.ClinicianReview, error) {
	r := &domain.ClinicianReview{}
	var engineResult, clinicianResult, verdict string

	err := s.Scan(
		&r.ID, &r.SessionID, &r.TenantID, &engineResult, &clinicianResult,
		&verdict, &r.Reviewer, &r.Notes, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.EngineResult = domain.Interpretation(engineResult)
	r.ClinicianResult = domain.Interpretation(clinicianResult)
	r.Verdict = domain.ReviewVerdict(verdict)
	return r, nil
}

// createSchema creates the database tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS clinician_reviews (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL UNIQUE,
		tenant_id TEXT NOT NULL DEFAULT '',
		engine_result TEXT NOT NULL DEFAULT '',
		clinician_result TEXT NOT NULL DEFAULT '',
		verdict TEXT NOT NULL,
		reviewer TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_reviews_tenant ON clinician_reviews(tenant_id);
	CREATE INDEX IF NOT EXISTS idx_reviews_created_at ON clinician_reviews(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// Save stores or updates the clinician review for a session.
func (s *SQLiteStore) Save(ctx context.Context, review *domain.ClinicianReview) error {
	if err := review.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()

	var existingID int64
	var createdAt time.Time
	err := s.db.QueryRowContext(ctx,
		"SELECT id, created_at FROM clinician_reviews WHERE session_id = ?",
		review.SessionID,
	).Scan(&existingID, &createdAt)

	if err == nil {
		review.ID = existingID
		review.CreatedAt = createdAt
		review.UpdatedAt = now

		_, err = s.db.ExecContext(ctx, `
			UPDATE clinician_reviews SET
				tenant_id = ?,
				engine_result = ?,
				clinician_result = ?,
				verdict = ?,
				reviewer = ?,
				notes = ?,
				updated_at = ?
			WHERE id = ?
		`,
			review.TenantID,
			string(review.EngineResult),
			string(review.ClinicianResult),
			string(review.Verdict),
			review.Reviewer,
			review.Notes,
			now,
			existingID,
		)
		if err != nil {
			return fmt.Errorf("failed to update review: %w", err)
		}
		return nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check existing: %w", err)
	}

	if review.CreatedAt.IsZero() {
		review.CreatedAt = now
	}
	review.UpdatedAt = now

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO clinician_reviews (
			session_id, tenant_id, engine_result, clinician_result,
			verdict, reviewer, notes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		review.SessionID,
		review.TenantID,
		string(review.EngineResult),
		string(review.ClinicianResult),
		string(review.Verdict),
		review.Reviewer,
		review.Notes,
		review.CreatedAt.UTC(),
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert ID: %w", err)
	}
	review.ID = id

	return nil
}

// Get returns the review for a session.
func (s *SQLiteStore) Get(ctx context.Context, sessionID string) (*domain.ClinicianReview, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+reviewColumns+` FROM clinician_reviews WHERE session_id = ?`, sessionID)

	r, err := scanReview(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return r, nil
}

// List returns reviews newest first with pagination.
func (s *SQLiteStore) List(ctx context.Context, tenantID string, limit, offset int) ([]*domain.ClinicianReview, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+reviewColumns+`
		FROM clinician_reviews
		WHERE (? = '' OR tenant_id = ?)
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, tenantID, tenantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	result := make([]*domain.ClinicianReview, 0)
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// Count returns the number of reviews.
func (s *SQLiteStore) Count(ctx context.Context, tenantID string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM clinician_reviews WHERE (? = '' OR tenant_id = ?)",
		tenantID, tenantID,
	).Scan(&count)
	return count, err
}

// Delete removes a review by ID.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM clinician_reviews WHERE id = ?", id)
	return err
}

// AgreementRate summarizes verdicts.
func (s *SQLiteStore) AgreementRate(ctx context.Context, tenantID string) (*AgreementStats, error) {
	var agreed, disagreed, unsure int64
	err := s.db.QueryRowContext(ctx,
		agreementQuery+" WHERE (? = '' OR tenant_id = ?)", tenantID, tenantID,
	).Scan(&agreed, &disagreed, &unsure)
	if err != nil {
		return nil, fmt.Errorf("failed to compute agreement: %w", err)
	}
	return newAgreementStats(agreed, disagreed, unsure), nil
}

// ExportJSON exports all reviews to a JSON writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	all, err := s.List(ctx, "", maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list reviews: %w", err)
	}
	return writeExport(writer, all)
}

// ImportJSON imports reviews from a JSON reader.
func (s *SQLiteStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	return importReviews(ctx, s, reader)
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func writeExport(writer io.Writer, reviews []*domain.ClinicianReview) error {
	export := &ReviewExport{
		Version:    "1.0",
		ExportedAt: time.Now().UTC(),
		Count:      len(reviews),
		Reviews:    reviews,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

func importReviews(ctx context.Context, s Store, reader io.Reader) (imported int, skipped int, err error) {
	var export ReviewExport
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}

	for _, r := range export.Reviews {
		existing, err := s.Get(ctx, r.SessionID)
		if err != nil {
			return imported, skipped, fmt.Errorf("failed to check existing: %w", err)
		}
		if existing != nil {
			skipped++
			continue
		}

		r.ID = 0
		if err := s.Save(ctx, r); err != nil {
			return imported, skipped, fmt.Errorf("failed to save: %w", err)
		}
		imported++
	}

	return imported, skipped, nil
}
