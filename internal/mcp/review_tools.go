package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/tarang-screening-server/internal/domain"
)

// registerReviewTools registers the clinician review tools.
func (s *Server) registerReviewTools() {
	if s.services.Reviews == nil {
		return
	}

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "submit_review",
		Description: "Record a clinician's agreement or disagreement with the risk interpretation of a stored screening. Saving again replaces the earlier review.",
	}, s.handleSubmitReview)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "review_agreement",
		Description: "Summarize clinician verdicts for a tenant: agree, disagree and unsure counts and the agreement rate.",
	}, s.handleReviewAgreement)

	if s.services.ExportDir != "" {
		mcp.AddTool(s.mcpServer, &mcp.Tool{
			Name:        "export_reviews",
			Description: "Export every clinician review to a timestamped JSON file in the export directory.",
		}, s.handleExportReviews)

		mcp.AddTool(s.mcpServer, &mcp.Tool{
			Name:        "import_reviews",
			Description: "Import clinician reviews from a JSON export in the export directory. Sessions that already have a review are skipped.",
		}, s.handleImportReviews)
	}
}

// SubmitReviewInput is the submit_review argument shape.
type SubmitReviewInput struct {
	TenantID        string `json:"tenant_id" jsonschema:"clinic the session belongs to"`
	SessionID       string `json:"session_id" jsonschema:"screening session being reviewed"`
	Verdict         string `json:"verdict" jsonschema:"agree, disagree or unsure"`
	ClinicianResult string `json:"clinician_result,omitempty" jsonschema:"the clinician's own reading: Low Risk, Moderate Risk or High Risk"`
	Reviewer        string `json:"reviewer,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

func (s *Server) handleSubmitReview(ctx context.Context, req *mcp.CallToolRequest, in SubmitReviewInput) (*mcp.CallToolResult, any, error) {
	s.logTool("submit_review", logrus.Fields{"tenant_id": in.TenantID, "session_id": in.SessionID})

	session, err := s.services.Screening.GetSession(ctx, in.TenantID, in.SessionID)
	if err != nil {
		return nil, nil, err
	}

	review := &domain.ClinicianReview{
		SessionID:       session.ID,
		TenantID:        session.TenantID,
		EngineResult:    session.Interpretation,
		ClinicianResult: domain.Interpretation(in.ClinicianResult),
		Verdict:         domain.ReviewVerdict(in.Verdict),
		Reviewer:        in.Reviewer,
		Notes:           in.Notes,
	}
	if err := s.services.Reviews.Save(ctx, review); err != nil {
		return nil, nil, err
	}
	return jsonResult(review)
}

// TenantInput scopes a query to one tenant.
type TenantInput struct {
	TenantID string `json:"tenant_id" jsonschema:"clinic to summarize"`
}

func (s *Server) handleReviewAgreement(ctx context.Context, req *mcp.CallToolRequest, in TenantInput) (*mcp.CallToolResult, any, error) {
	s.logTool("review_agreement", logrus.Fields{"tenant_id": in.TenantID})

	if in.TenantID == "" {
		return nil, nil, domain.ErrTenantRequired
	}
	stats, err := s.services.Reviews.AgreementRate(ctx, in.TenantID)
	if err != nil {
		return nil, nil, err
	}
	return jsonResult(stats)
}

type exportResult struct {
	Path  string `json:"path"`
	Count int64  `json:"count"`
}

func (s *Server) handleExportReviews(ctx context.Context, req *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	s.logTool("export_reviews", nil)

	if err := os.MkdirAll(s.services.ExportDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create export directory: %w", err)
	}
	path := filepath.Join(s.services.ExportDir, fmt.Sprintf("reviews_%s.json", time.Now().UTC().Format("20060102_150405")))

	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	if err := s.services.Reviews.ExportJSON(ctx, f); err != nil {
		return nil, nil, err
	}
	count, err := s.services.Reviews.Count(ctx, "")
	if err != nil {
		return nil, nil, err
	}
	return jsonResult(exportResult{Path: path, Count: count})
}

// ImportReviewsInput is the import_reviews argument shape.
type ImportReviewsInput struct {
	File string `json:"file" jsonschema:"export file name inside the export directory"`
}

type importResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

func (s *Server) handleImportReviews(ctx context.Context, req *mcp.CallToolRequest, in ImportReviewsInput) (*mcp.CallToolResult, any, error) {
	s.logTool("import_reviews", logrus.Fields{"file": in.File})

	name := filepath.Base(in.File)
	if name == "." || name == string(filepath.Separator) || name != in.File {
		return nil, nil, domain.NewValidationError("file", "must be a file name inside the export directory", in.File)
	}

	f, err := os.Open(filepath.Join(s.services.ExportDir, name))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open import file: %w", err)
	}
	defer f.Close()

	imported, skipped, err := s.services.Reviews.ImportJSON(ctx, f)
	if err != nil {
		return nil, nil, err
	}
	return jsonResult(importResult{Imported: imported, Skipped: skipped})
}
