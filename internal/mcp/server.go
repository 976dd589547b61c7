// Package mcp exposes the screening engine as Model Context Protocol tools.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/tarang-screening-server/internal/feedback"
	"github.com/tarang-screening-server/internal/service"
)

// Services are the backends the tools dispatch to.
type Services struct {
	Screening *service.ScreeningService
	Outcomes  *service.OutcomeService
	Reviews   feedback.Store
	// ExportDir receives review exports. Empty disables export_reviews.
	ExportDir string
}

// ServerInfo contains MCP server metadata
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Server represents the screening MCP server
type Server struct {
	mcpServer *mcp.Server
	services  Services
	logger    *logrus.Logger
}

// NewServer creates an MCP server with every screening tool registered.
func NewServer(info ServerInfo, services Services, logger *logrus.Logger) *Server {
	if info.Name == "" {
		info.Name = "tarang-screening"
	}
	if info.Version == "" {
		info.Version = "v1.0.0"
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    info.Name,
		Version: info.Version,
	}, nil)

	s := &Server{
		mcpServer: mcpServer,
		services:  services,
		logger:    logger,
	}
	s.registerTools()
	s.registerResources()
	s.registerPrompts()
	return s
}

// MCPServer returns the underlying SDK server, for custom transports.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}

// Start serves over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting screening MCP server on stdio")
	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "fuse_risk",
		Description: "Fuse video, questionnaire and optional physiological and classifier signals into a 0-100 autism screening risk score with confidence, dissonance and a modality breakdown.",
	}, s.handleFuseRisk)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "predict_trajectory",
		Description: "Project a chronological series of risk scores forward and classify the trend (Initializing, Stabilizing, Improving, Plateaued, Regressing).",
	}, s.handlePredictTrajectory)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "analyze_efficacy",
		Description: "Compare recent therapy sessions against the baseline and report drift status, efficacy, focus stability and social velocity.",
	}, s.handleAnalyzeEfficacy)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "screen_patient",
		Description: "Run and store a full screening for a patient: fusion, clinical summary, therapy plan and report link.",
	}, s.handleScreenPatient)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "patient_trajectory",
		Description: "Load a patient's stored screening history and project its trajectory, including session-to-session monitoring.",
	}, s.handlePatientTrajectory)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "record_progress",
		Description: "Store a therapy progress sample (social engagement, joint attention, focus drift) for a patient.",
	}, s.handleRecordProgress)

	s.registerReviewTools()
}
