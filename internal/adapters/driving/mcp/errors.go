// Package mcp provides an MCP (Model Context Protocol) server adapter for tijdlijn.
// It lets AI assistants read case timelines and documents, and refresh a
// single document's timeline entry.
package mcp

import "errors"

var (
	// ErrMissingTimelineService is returned when the timeline service is not provided.
	ErrMissingTimelineService = errors.New("mcp: timeline service is required")

	// ErrMissingDocumentService is returned when the document service is not provided.
	ErrMissingDocumentService = errors.New("mcp: document service is required")

	// ErrPipelineUnavailable is returned by update_document when no pipeline is configured.
	ErrPipelineUnavailable = errors.New("mcp: pipeline is not configured")
)
