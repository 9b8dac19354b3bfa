package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/tijdlijn/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for tijdlijn resources.
	uriScheme = "tijdlijn://"

	dateLayout = "2006-01-02"
	timeLayout = time.RFC3339
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "timelines",
		Name:        "timelines",
		Description: "All stored case timelines with their date range",
		MIMEType:    "application/json",
	}, s.handleTimelinesResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "timelines/{caseId}",
		Name:        "case-timeline",
		Description: "The full timeline of a case",
		MIMEType:    "application/json",
	}, s.handleTimelineResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "documents/{documentId}",
		Name:        "document-content",
		Description: "Extracted text of a bulletin document",
		MIMEType:    "text/plain",
	}, s.handleDocumentContentResource)
}

// handleTimelinesResource returns an overview of all stored timelines.
func (s *Server) handleTimelinesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	timelines, err := s.ports.Timeline.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing timelines: %w", err)
	}

	type timelineInfo struct {
		CaseID  string `json:"case_id"`
		Entries int    `json:"entries"`
		From    string `json:"from,omitempty"`
		To      string `json:"to,omitempty"`
		URI     string `json:"uri"`
	}

	infos := make([]timelineInfo, len(timelines))
	for i, t := range timelines {
		infos[i] = timelineInfo{
			CaseID:  t.CaseID,
			Entries: len(t.Entries),
			URI:     uriScheme + "timelines/" + t.CaseID,
		}
		if n := len(t.Entries); n > 0 {
			infos[i].From = t.Entries[0].Period
			infos[i].To = t.Entries[n-1].Period
		}
	}

	return jsonResource(req.Params.URI, infos)
}

// handleTimelineResource returns the timeline of one case.
func (s *Server) handleTimelineResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	// tijdlijn://timelines/{caseId}
	caseID := extractID(req.Params.URI, "timelines/")
	if caseID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	timeline, err := s.ports.Timeline.Get(ctx, caseID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting timeline: %w", err)
	}

	return jsonResource(req.Params.URI, toTimelineOutput(*timeline))
}

// handleDocumentContentResource returns the content of a specific document.
func (s *Server) handleDocumentContentResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	// tijdlijn://documents/{documentId}
	docID := extractID(req.Params.URI, "documents/")
	if docID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	doc, err := s.ports.Document.Get(ctx, docID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting document content: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     doc.Content,
		}},
	}, nil
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractID returns the single path segment after uriScheme+kind, or ""
// when the URI does not match.
func extractID(uri, kind string) string {
	prefix := uriScheme + kind
	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	id := strings.TrimPrefix(uri, prefix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
