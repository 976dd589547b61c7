package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/tarang-screening-server/internal/domain"
	"github.com/tarang-screening-server/internal/service"
)

// jsonResult renders v as the tool's text content.
func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}

func (s *Server) logTool(name string, fields logrus.Fields) {
	s.logger.WithField("tool", name).WithFields(fields).Info("Tool invoked")
}

// FuseRiskInput is the fuse_risk argument shape.
type FuseRiskInput struct {
	EyeContact         float64  `json:"eye_contact,omitempty" jsonschema:"eye contact score from the vision pipeline, 0-1"`
	MotorCoordination  float64  `json:"motor_coordination,omitempty" jsonschema:"motor coordination score from the vision pipeline, 0-1"`
	QuestionnaireScore int      `json:"questionnaire_score" jsonschema:"developmental questionnaire total, 0-20"`
	AlphaThetaRatio    *float64 `json:"alpha_theta_ratio,omitempty" jsonschema:"optional EEG alpha/theta ratio"`
	MLProbability      *float64 `json:"ml_probability,omitempty" jsonschema:"optional classifier probability, 0-1"`
}

type fuseRiskResult struct {
	Assessment   *domain.RiskAssessment `json:"assessment"`
	Degradations []domain.Degradation   `json:"degradations"`
}

func (s *Server) handleFuseRisk(ctx context.Context, req *mcp.CallToolRequest, in FuseRiskInput) (*mcp.CallToolResult, any, error) {
	s.logTool("fuse_risk", logrus.Fields{"questionnaire_score": in.QuestionnaireScore})

	score := in.QuestionnaireScore
	fr := &domain.FusionRequest{
		VideoMetrics:       domain.ModalityMetrics{EyeContact: in.EyeContact, MotorCoordination: in.MotorCoordination},
		QuestionnaireScore: &score,
		MLProbability:      in.MLProbability,
	}
	if in.AlphaThetaRatio != nil {
		fr.EEGMock = &domain.PhysiologicalProxy{AlphaThetaRatio: *in.AlphaThetaRatio}
	}

	assessment, degradations, err := s.services.Screening.Fuse(fr)
	if err != nil {
		return nil, nil, err
	}
	return jsonResult(fuseRiskResult{Assessment: assessment, Degradations: degradations})
}

// PredictTrajectoryInput is the predict_trajectory argument shape.
type PredictTrajectoryInput struct {
	HistoricalScores []float64 `json:"historical_scores" jsonschema:"risk scores on the 0-100 scale, oldest first"`
}

type trajectoryResult struct {
	domain.TrendProjection
	ClinicalInsight string `json:"clinical_insight"`
}

func (s *Server) handlePredictTrajectory(ctx context.Context, req *mcp.CallToolRequest, in PredictTrajectoryInput) (*mcp.CallToolResult, any, error) {
	s.logTool("predict_trajectory", logrus.Fields{"points": len(in.HistoricalScores)})

	if err := domain.ValidateScoreSeries(in.HistoricalScores); err != nil {
		return nil, nil, err
	}
	projection := s.services.Outcomes.Trend().Predict(in.HistoricalScores)
	return jsonResult(trajectoryResult{
		TrendProjection: projection,
		ClinicalInsight: service.InterventionAlert(projection),
	})
}

// AnalyzeEfficacyInput is the analyze_efficacy argument shape.
type AnalyzeEfficacyInput struct {
	Sessions []domain.ProgressSample `json:"sessions" jsonschema:"therapy progress samples, oldest first"`
}

func (s *Server) handleAnalyzeEfficacy(ctx context.Context, req *mcp.CallToolRequest, in AnalyzeEfficacyInput) (*mcp.CallToolResult, any, error) {
	s.logTool("analyze_efficacy", logrus.Fields{"samples": len(in.Sessions)})

	if err := domain.ValidateSamples(in.Sessions); err != nil {
		return nil, nil, err
	}
	return jsonResult(s.services.Outcomes.Analyzer().Analyze(in.Sessions))
}

// ScreenPatientInput is the screen_patient argument shape.
type ScreenPatientInput struct {
	TenantID           string                `json:"tenant_id" jsonschema:"clinic the patient belongs to"`
	PatientID          string                `json:"patient_id" jsonschema:"patient identifier"`
	PatientName        string                `json:"patient_name,omitempty" jsonschema:"display name used in the clinical summary"`
	EyeContact         float64               `json:"eye_contact,omitempty" jsonschema:"eye contact score, 0-1"`
	MotorCoordination  float64               `json:"motor_coordination,omitempty" jsonschema:"motor coordination score, 0-1"`
	QuestionnaireScore int                   `json:"questionnaire_score" jsonschema:"developmental questionnaire total, 0-20"`
	Questionnaire      *domain.AQ10Responses `json:"questionnaire,omitempty" jsonschema:"optional itemized AQ-10 responses"`
	AlphaThetaRatio    *float64              `json:"alpha_theta_ratio,omitempty" jsonschema:"optional EEG alpha/theta ratio"`
}

func (s *Server) handleScreenPatient(ctx context.Context, req *mcp.CallToolRequest, in ScreenPatientInput) (*mcp.CallToolResult, any, error) {
	s.logTool("screen_patient", logrus.Fields{"tenant_id": in.TenantID, "patient_id": in.PatientID})

	score := in.QuestionnaireScore
	sr := &domain.ScreeningRequest{
		TenantID:           in.TenantID,
		PatientID:          in.PatientID,
		PatientName:        in.PatientName,
		VideoMetrics:       domain.ModalityMetrics{EyeContact: in.EyeContact, MotorCoordination: in.MotorCoordination},
		QuestionnaireScore: &score,
		Questionnaire:      in.Questionnaire,
	}
	if in.AlphaThetaRatio != nil {
		sr.EEGMock = &domain.PhysiologicalProxy{AlphaThetaRatio: *in.AlphaThetaRatio}
	}

	result, err := s.services.Screening.Screen(ctx, sr)
	if err != nil {
		return nil, nil, err
	}
	return jsonResult(result)
}

// PatientInput identifies one patient within a tenant.
type PatientInput struct {
	TenantID  string `json:"tenant_id" jsonschema:"clinic the patient belongs to"`
	PatientID string `json:"patient_id" jsonschema:"patient identifier"`
}

func (s *Server) handlePatientTrajectory(ctx context.Context, req *mcp.CallToolRequest, in PatientInput) (*mcp.CallToolResult, any, error) {
	s.logTool("patient_trajectory", logrus.Fields{"tenant_id": in.TenantID, "patient_id": in.PatientID})

	report, err := s.services.Outcomes.Trajectory(ctx, in.TenantID, in.PatientID)
	if err != nil {
		return nil, nil, err
	}
	return jsonResult(report)
}

// RecordProgressInput is the record_progress argument shape.
type RecordProgressInput struct {
	TenantID         string  `json:"tenant_id" jsonschema:"clinic the patient belongs to"`
	PatientID        string  `json:"patient_id" jsonschema:"patient identifier"`
	SessionID        string  `json:"session_id,omitempty" jsonschema:"optional screening session the sample belongs to"`
	SocialEngagement float64 `json:"social_engagement" jsonschema:"0-1"`
	JointAttention   float64 `json:"joint_attention" jsonschema:"0-1"`
	FocusDrift       float64 `json:"focus_drift" jsonschema:"0-1"`
	Notes            string  `json:"notes,omitempty"`
}

func (s *Server) handleRecordProgress(ctx context.Context, req *mcp.CallToolRequest, in RecordProgressInput) (*mcp.CallToolResult, any, error) {
	s.logTool("record_progress", logrus.Fields{"tenant_id": in.TenantID, "patient_id": in.PatientID})

	record := &domain.ProgressRecord{
		TenantID:  in.TenantID,
		PatientID: in.PatientID,
		SessionID: in.SessionID,
		Notes:     in.Notes,
		ProgressSample: domain.ProgressSample{
			SocialEngagement: in.SocialEngagement,
			JointAttention:   in.JointAttention,
			FocusDrift:       in.FocusDrift,
		},
	}
	if err := s.services.Outcomes.RecordProgress(ctx, record); err != nil {
		return nil, nil, err
	}
	return jsonResult(record)
}
