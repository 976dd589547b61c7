package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tarang-screening-server/internal/domain"
	"github.com/tarang-screening-server/internal/service"
)

func (s *Server) registerPrompts() {
	s.mcpServer.AddPrompt(&mcp.Prompt{
		Name:        "screening_review",
		Description: "Walk a clinician through reviewing one stored screening before recording a verdict.",
		Arguments: []*mcp.PromptArgument{
			{Name: "tenant_id", Description: "clinic the session belongs to", Required: true},
			{Name: "session_id", Description: "screening session to review", Required: true},
		},
	}, s.screeningReviewPrompt)

	s.mcpServer.AddPrompt(&mcp.Prompt{
		Name:        "trajectory_review",
		Description: "Summarize a patient's screening trajectory and suggest next steps for the care team.",
		Arguments: []*mcp.PromptArgument{
			{Name: "tenant_id", Description: "clinic the patient belongs to", Required: true},
			{Name: "patient_id", Description: "patient identifier", Required: true},
		},
	}, s.trajectoryReviewPrompt)
}

func promptArg(req *mcp.GetPromptRequest, name string) (string, error) {
	v := strings.TrimSpace(req.Params.Arguments[name])
	if v == "" {
		return "", domain.NewValidationError(name, "is required", v)
	}
	return v, nil
}

func userPrompt(description, text string) *mcp.GetPromptResult {
	return &mcp.GetPromptResult{
		Description: description,
		Messages: []*mcp.PromptMessage{
			{Role: "user", Content: &mcp.TextContent{Text: text}},
		},
	}
}

func (s *Server) screeningReviewPrompt(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	tenantID, err := promptArg(req, "tenant_id")
	if err != nil {
		return nil, err
	}
	sessionID, err := promptArg(req, "session_id")
	if err != nil {
		return nil, err
	}

	session, err := s.services.Screening.GetSession(ctx, tenantID, sessionID)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Review screening %s for patient %s.\n\n", session.ID, session.PatientID)
	fmt.Fprintf(&b, "Engine result: %s (risk %.1f/100, %s confidence, %s).\n",
		session.Interpretation, session.RiskScore, session.ConfidenceLevel, session.FusionMethod)
	fmt.Fprintf(&b, "Modality breakdown: behavioral %.1f, questionnaire %.1f, physiological %.1f",
		session.Breakdown.Behavioral, session.Breakdown.Questionnaire, session.Breakdown.Physiological)
	if session.Breakdown.MLModel != nil {
		fmt.Fprintf(&b, ", classifier %.1f", *session.Breakdown.MLModel)
	}
	fmt.Fprintf(&b, ".\nDissonance between vision and questionnaire: %.3f.\n", session.DissonanceFactor)
	if session.ClinicalRecommendation != "" {
		fmt.Fprintf(&b, "Recommendation on file: %s\n", session.ClinicalRecommendation)
	}

	b.WriteString("\nSteps:\n")
	b.WriteString("1. Check whether the behavioral and questionnaire signals agree. A dissonance above 0.5 means the two disagree and the score was dampened.\n")
	b.WriteString("2. Compare the risk band with your own observation of the child.\n")
	b.WriteString("3. Look at earlier sessions with the patient_trajectory tool if a trend matters for the decision.\n")
	fmt.Fprintf(&b, "4. Record the outcome with submit_review (tenant_id %q, session_id %q) using verdict agree, disagree or unsure, and your own risk band when you disagree.\n", tenantID, session.ID)

	return userPrompt("Clinician review of a stored screening", b.String()), nil
}

func (s *Server) trajectoryReviewPrompt(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	tenantID, err := promptArg(req, "tenant_id")
	if err != nil {
		return nil, err
	}
	patientID, err := promptArg(req, "patient_id")
	if err != nil {
		return nil, err
	}

	traj, err := s.services.Outcomes.Trajectory(ctx, tenantID, patientID)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Patient %s has %d stored screening(s).\n", patientID, traj.HistoricalCount)
	if traj.HistoricalCount > 0 {
		scores := make([]string, len(traj.History))
		for i, p := range traj.History {
			scores[i] = fmt.Sprintf("%.1f", p.RiskScore)
		}
		fmt.Fprintf(&b, "Risk scores, oldest first: %s.\n", strings.Join(scores, ", "))
	}
	fmt.Fprintf(&b, "Trend: %s (velocity %.4f, confidence %.2f).\n",
		traj.Prediction.Trend, traj.Prediction.Velocity, traj.Prediction.ConfidenceInterval)
	fmt.Fprintf(&b, "Latest change: %s.\n", traj.Monitor.Status)
	fmt.Fprintf(&b, "Engine insight: %s\n", service.InterventionAlert(traj.Prediction))
	if traj.Monitor.AlertClinician {
		b.WriteString("\nThe latest session triggered a clinician alert. Address it first.\n")
	}
	b.WriteString("\nSummarize the trajectory for the care team in plain language, state whether the current therapy plan should continue, and list what additional sessions or data would make the projection more reliable.\n")

	return userPrompt("Care team summary of a patient trajectory", b.String()), nil
}
