package api

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tarang-screening-server/internal/domain"
	"github.com/tarang-screening-server/internal/middleware"
	"github.com/tarang-screening-server/internal/report"
	"github.com/tarang-screening-server/internal/service"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

func tenantOf(c *gin.Context) string {
	return c.GetString(middleware.TenantIDKey)
}

// queryLimit parses ?limit=, defaulting to def and capping at maxListLimit.
func queryLimit(c *gin.Context, def int) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, domain.NewValidationError("limit", "must be a non-negative integer", raw)
	}
	if n > maxListLimit {
		n = maxListLimit
	}
	return n, nil
}

func (s *Server) handleScreen(c *gin.Context) {
	var req domain.ScreeningRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	req.TenantID = tenantOf(c)

	result, err := s.deps.Screening.Screen(c.Request.Context(), &req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (s *Server) handleGetScreening(c *gin.Context) {
	session, err := s.deps.Screening.GetSession(c.Request.Context(), tenantOf(c), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (s *Server) handleFHIR(c *gin.Context) {
	session, err := s.deps.Screening.GetSession(c.Request.Context(), tenantOf(c), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	resource, err := report.Resource(c.Query("type"), session, time.Now())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.Header("Content-Type", "application/fhir+json")
	c.JSON(http.StatusOK, resource)
}

type reviewRequest struct {
	Verdict         domain.ReviewVerdict  `json:"verdict"`
	ClinicianResult domain.Interpretation `json:"clinician_result"`
	Reviewer        string                `json:"reviewer"`
	Notes           string                `json:"notes"`
}

func (s *Server) handleSaveReview(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	ctx := c.Request.Context()
	session, err := s.deps.Screening.GetSession(ctx, tenantOf(c), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	review := &domain.ClinicianReview{
		SessionID:       session.ID,
		TenantID:        session.TenantID,
		EngineResult:    session.Interpretation,
		ClinicianResult: req.ClinicianResult,
		Verdict:         req.Verdict,
		Reviewer:        req.Reviewer,
		Notes:           req.Notes,
	}
	if err := s.deps.Reviews.Save(ctx, review); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, review)
}

func (s *Server) handleGetReview(c *gin.Context) {
	ctx := c.Request.Context()
	session, err := s.deps.Screening.GetSession(ctx, tenantOf(c), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	review, err := s.deps.Reviews.Get(ctx, session.ID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if review == nil {
		s.respondError(c, domain.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, review)
}

func (s *Server) handleListReviews(c *gin.Context) {
	limit, err := queryLimit(c, defaultListLimit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		s.respondError(c, domain.NewValidationError("offset", "must be a non-negative integer", c.Query("offset")))
		return
	}

	ctx := c.Request.Context()
	reviews, err := s.deps.Reviews.List(ctx, tenantOf(c), limit, offset)
	if err != nil {
		s.respondError(c, err)
		return
	}
	total, err := s.deps.Reviews.Count(ctx, tenantOf(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews, "total": total})
}

func (s *Server) handleAgreement(c *gin.Context) {
	stats, err := s.deps.Reviews.AgreementRate(c.Request.Context(), tenantOf(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleListScreenings(c *gin.Context) {
	limit, err := queryLimit(c, 0)
	if err != nil {
		s.respondError(c, err)
		return
	}

	sessions, err := s.deps.Screening.ListSessions(c.Request.Context(), tenantOf(c), c.Param("id"), limit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if sessions == nil {
		sessions = []*domain.ScreeningSession{}
	}
	c.JSON(http.StatusOK, gin.H{"patient_id": c.Param("id"), "sessions": sessions})
}

func (s *Server) handleTrajectory(c *gin.Context) {
	traj, err := s.deps.Outcomes.Trajectory(c.Request.Context(), tenantOf(c), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, traj)
}

func (s *Server) handleTrajectoryChart(c *gin.Context) {
	format := c.DefaultQuery("format", report.FormatPNG)
	contentType, err := report.ChartContentType(format)
	if err != nil {
		s.respondError(c, err)
		return
	}

	traj, err := s.deps.Outcomes.Trajectory(c.Request.Context(), tenantOf(c), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := report.RenderTrajectoryChart(&buf, traj, format); err != nil {
		s.respondError(c, err)
		return
	}
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

func (s *Server) handleDashboard(c *gin.Context) {
	ctx := c.Request.Context()
	tenantID, patientID := tenantOf(c), c.Param("id")

	traj, err := s.deps.Outcomes.Trajectory(ctx, tenantID, patientID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	latest, err := s.deps.Screening.ListSessions(ctx, tenantID, patientID, 1)
	if err != nil {
		s.respondError(c, err)
		return
	}

	var session *domain.ScreeningSession
	if len(latest) > 0 {
		session = latest[len(latest)-1]
	}

	var buf bytes.Buffer
	if err := report.RenderDashboard(&buf, traj, session); err != nil {
		s.respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func (s *Server) handleRecordProgress(c *gin.Context) {
	var record domain.ProgressRecord
	if err := c.ShouldBindJSON(&record); err != nil {
		respondBindError(c, err)
		return
	}
	record.ID = ""
	record.TenantID = tenantOf(c)
	record.PatientID = c.Param("id")

	if err := s.deps.Outcomes.RecordProgress(c.Request.Context(), &record); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

func (s *Server) handleEfficacy(c *gin.Context) {
	rep, err := s.deps.Outcomes.Efficacy(c.Request.Context(), tenantOf(c), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"patient_id": c.Param("id"), "efficacy": rep})
}

type fuseResponse struct {
	*domain.RiskAssessment
	Degradations []domain.Degradation `json:"degradations,omitempty"`
}

func (s *Server) handleFuse(c *gin.Context) {
	var req domain.FusionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	assessment, degradations, err := s.deps.Screening.Fuse(&req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fuseResponse{RiskAssessment: assessment, Degradations: degradations})
}

type trendRequest struct {
	HistoricalScores []float64 `json:"historical_scores"`
}

type trendResponse struct {
	domain.TrendProjection
	ClinicalInsight string `json:"clinical_insight"`
}

func (s *Server) handleTrend(c *gin.Context) {
	var req trendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if err := domain.ValidateScoreSeries(req.HistoricalScores); err != nil {
		s.respondError(c, err)
		return
	}

	projection := s.deps.Outcomes.Trend().Predict(req.HistoricalScores)
	c.JSON(http.StatusOK, trendResponse{
		TrendProjection: projection,
		ClinicalInsight: service.InterventionAlert(projection),
	})
}

type efficacyRequest struct {
	Sessions []domain.ProgressSample `json:"sessions"`
}

func (s *Server) handleAnalyzeEfficacy(c *gin.Context) {
	var req efficacyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if err := domain.ValidateSamples(req.Sessions); err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, s.deps.Outcomes.Analyzer().Analyze(req.Sessions))
}
