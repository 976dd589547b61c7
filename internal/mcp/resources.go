package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tarang-screening-server/internal/domain"
	"github.com/tarang-screening-server/internal/report"
)

const fhirMIMEType = "application/fhir+json"

var (
	screeningURI  = regexp.MustCompile(`^tarang://tenants/(?P<tenant>[^/]+)/screenings/(?P<id>[^/]+)(?P<kind>/report)?$`)
	trajectoryURI = regexp.MustCompile(`^tarang://tenants/(?P<tenant>[^/]+)/patients/(?P<patient>[^/]+)/trajectory$`)
)

func (s *Server) registerResources() {
	s.mcpServer.AddResourceTemplate(&mcp.ResourceTemplate{
		Name:        "screening_observation",
		Title:       "Screening as FHIR Observation",
		URITemplate: "tarang://tenants/{tenant}/screenings/{id}",
		MIMEType:    fhirMIMEType,
	}, s.readScreening)

	s.mcpServer.AddResourceTemplate(&mcp.ResourceTemplate{
		Name:        "screening_report",
		Title:       "Screening as FHIR DiagnosticReport",
		URITemplate: "tarang://tenants/{tenant}/screenings/{id}/report",
		MIMEType:    fhirMIMEType,
	}, s.readScreening)

	s.mcpServer.AddResourceTemplate(&mcp.ResourceTemplate{
		Name:        "patient_trajectory",
		Title:       "Patient risk trajectory",
		URITemplate: "tarang://tenants/{tenant}/patients/{patient}/trajectory",
		MIMEType:    "application/json",
	}, s.readTrajectory)
}

func (s *Server) readScreening(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	m := screeningURI.FindStringSubmatch(uri)
	if m == nil {
		return nil, mcp.ResourceNotFoundError(uri)
	}

	session, err := s.services.Screening.GetSession(ctx, m[screeningURI.SubexpIndex("tenant")], m[screeningURI.SubexpIndex("id")])
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, mcp.ResourceNotFoundError(uri)
		}
		return nil, err
	}

	kind := report.KindObservation
	if m[screeningURI.SubexpIndex("kind")] != "" {
		kind = report.KindReport
	}
	resource, err := report.Resource(kind, session, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return textResource(uri, fhirMIMEType, resource)
}

func (s *Server) readTrajectory(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	m := trajectoryURI.FindStringSubmatch(uri)
	if m == nil {
		return nil, mcp.ResourceNotFoundError(uri)
	}

	traj, err := s.services.Outcomes.Trajectory(ctx, m[trajectoryURI.SubexpIndex("tenant")], m[trajectoryURI.SubexpIndex("patient")])
	if err != nil {
		return nil, err
	}
	return textResource(uri, "application/json", traj)
}

func textResource(uri, mimeType string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode resource: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{URI: uri, MIMEType: mimeType, Text: string(data)}},
	}, nil
}
