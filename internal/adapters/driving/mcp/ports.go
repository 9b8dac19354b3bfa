package mcp

import (
	"github.com/custodia-labs/tijdlijn/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Timeline reads stored timelines.
	Timeline driving.TimelineService

	// Document reads stored documents.
	Document driving.DocumentService

	// Pipeline re-summarises documents. Optional: without it the
	// update_document tool reports ErrPipelineUnavailable.
	Pipeline driving.PipelineService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Timeline == nil {
		return ErrMissingTimelineService
	}
	if p.Document == nil {
		return ErrMissingDocumentService
	}
	return nil
}
