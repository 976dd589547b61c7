// Package feedback stores clinician reviews of screening interpretations.
// A review records whether the clinician agreed with the engine's risk band,
// which is the ground truth used to audit the fusion heuristics over time.
package feedback

import (
	"context"
	"io"
	"time"

	"github.com/tarang-screening-server/internal/domain"
)

// Store defines the interface for clinician review storage operations.
type Store interface {
	// Save stores or updates the review for a session.
	// A session has at most one review; saving again replaces it.
	Save(ctx context.Context, review *domain.ClinicianReview) error

	// Get returns the review for a session, or nil when none exists.
	Get(ctx context.Context, sessionID string) (*domain.ClinicianReview, error)

	// List returns reviews newest first. An empty tenantID lists every tenant.
	List(ctx context.Context, tenantID string, limit, offset int) ([]*domain.ClinicianReview, error)

	// Count returns the number of reviews for a tenant (all tenants when empty).
	Count(ctx context.Context, tenantID string) (int64, error)

	// Delete removes a review by ID.
	Delete(ctx context.Context, id int64) error

	// AgreementRate summarizes verdicts for a tenant (all tenants when empty).
	AgreementRate(ctx context.Context, tenantID string) (*AgreementStats, error)

	// ExportJSON exports all reviews to a JSON writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON imports reviews from a JSON reader, skipping sessions that
	// already have one.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Close closes the store and releases resources.
	Close() error
}

// AgreementStats counts verdicts. Rate is agreed over decided reviews
// (agree plus disagree); unsure reviews are excluded from the rate.
type AgreementStats struct {
	Total     int64   `json:"total"`
	Agreed    int64   `json:"agreed"`
	Disagreed int64   `json:"disagreed"`
	Unsure    int64   `json:"unsure"`
	Rate      float64 `json:"agreement_rate"`
}

func newAgreementStats(agreed, disagreed, unsure int64) *AgreementStats {
	s := &AgreementStats{
		Total:     agreed + disagreed + unsure,
		Agreed:    agreed,
		Disagreed: disagreed,
		Unsure:    unsure,
	}
	if decided := agreed + disagreed; decided > 0 {
		s.Rate = float64(agreed) / float64(decided)
	}
	return s
}

// ReviewExport represents the JSON export format.
type ReviewExport struct {
	Version    string                    `json:"version"`
	ExportedAt time.Time                 `json:"exported_at"`
	Count      int                       `json:"count"`
	Reviews    []*domain.ClinicianReview `json:"reviews"`
}

// maxExportLimit is the maximum number of entries to export at once.
const maxExportLimit = 1000000

const agreementQuery = `
	SELECT
		COALESCE(SUM(CASE WHEN verdict = 'agree' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN verdict = 'disagree' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN verdict = 'unsure' THEN 1 ELSE 0 END), 0)
	FROM clinician_reviews`
