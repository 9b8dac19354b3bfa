package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/tijdlijn/internal/core/domain"
)

// CaseInput is the input schema for the case-scoped tools.
type CaseInput struct {
	CaseID string `json:"case_id" jsonschema:"the case (dossier) identifier"`
}

// UpdateDocumentInput is the input schema for the update_document tool.
type UpdateDocumentInput struct {
	CaseID     string `json:"case_id" jsonschema:"the case the document belongs to"`
	DocumentID string `json:"document_id" jsonschema:"the document to re-summarise"`
}

// TimelineOutput is the output schema for the get_timeline tool.
type TimelineOutput struct {
	CaseID      string        `json:"case_id"`
	Granularity string        `json:"granularity"`
	Description string        `json:"description,omitempty"`
	GeneratedAt string        `json:"generated_at"`
	Entries     []EntryOutput `json:"entries"`
}

// EntryOutput represents a single timeline entry.
type EntryOutput struct {
	Period      string   `json:"period"`
	Date        string   `json:"date"`
	Summary     string   `json:"summary"`
	DocumentIDs []string `json:"document_ids"`
}

// DocumentsOutput is the output schema for the list_documents tool.
type DocumentsOutput struct {
	Documents []DocumentOutput `json:"documents"`
	Count     int              `json:"count"`
}

// DocumentOutput represents a single document without its content.
type DocumentOutput struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	PublishedAt  string `json:"published_at,omitempty"`
	DocType      string `json:"doc_type,omitempty"`
	Organisation string `json:"organisation,omitempty"`
	SourceURI    string `json:"source_uri,omitempty"`
	Stage        string `json:"stage"`
	Summary      string `json:"summary,omitempty"`
}

// UpdateDocumentOutput is the output schema for the update_document tool.
type UpdateDocumentOutput struct {
	DocumentID string       `json:"document_id"`
	OnTimeline bool         `json:"on_timeline"`
	Entry      *EntryOutput `json:"entry,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_timeline",
		Description: "Get the dated timeline of a case, one summary per publication date",
	}, s.handleGetTimeline)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List the documents of a case by publication date, with their summaries",
	}, s.handleListDocuments)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "update_document",
		Description: "Re-summarise one document and recompute the timeline entry that contains it",
	}, s.handleUpdateDocument)
}

// handleGetTimeline handles the get_timeline tool invocation.
func (s *Server) handleGetTimeline(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input CaseInput,
) (*mcp.CallToolResult, TimelineOutput, error) {
	if input.CaseID == "" {
		return nil, TimelineOutput{}, errors.New("case_id is required")
	}

	timeline, err := s.ports.Timeline.Get(ctx, input.CaseID)
	if err != nil {
		return nil, TimelineOutput{}, fmt.Errorf("getting timeline %s: %w", input.CaseID, err)
	}

	return nil, toTimelineOutput(*timeline), nil
}

// handleListDocuments handles the list_documents tool invocation.
func (s *Server) handleListDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input CaseInput,
) (*mcp.CallToolResult, DocumentsOutput, error) {
	if input.CaseID == "" {
		return nil, DocumentsOutput{}, errors.New("case_id is required")
	}

	docs, err := s.ports.Document.ListByCase(ctx, input.CaseID)
	if err != nil {
		return nil, DocumentsOutput{}, fmt.Errorf("listing documents: %w", err)
	}

	output := DocumentsOutput{
		Documents: make([]DocumentOutput, len(docs)),
		Count:     len(docs),
	}
	for i := range docs {
		output.Documents[i] = toDocumentOutput(docs[i])
	}
	return nil, output, nil
}

// handleUpdateDocument handles the update_document tool invocation.
func (s *Server) handleUpdateDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input UpdateDocumentInput,
) (*mcp.CallToolResult, UpdateDocumentOutput, error) {
	if s.ports.Pipeline == nil {
		return nil, UpdateDocumentOutput{}, ErrPipelineUnavailable
	}
	if input.CaseID == "" || input.DocumentID == "" {
		return nil, UpdateDocumentOutput{}, errors.New("case_id and document_id are required")
	}

	output := UpdateDocumentOutput{DocumentID: input.DocumentID}
	timeline, err := s.ports.Pipeline.UpdateDocument(ctx, input.CaseID, input.DocumentID)
	if errors.Is(err, domain.ErrUndated) {
		return nil, output, nil
	}
	if err != nil {
		return nil, UpdateDocumentOutput{}, fmt.Errorf("updating document %s: %w", input.DocumentID, err)
	}

	if entry, ok := timeline.EntryFor(input.DocumentID); ok {
		out := toEntryOutput(entry)
		output.OnTimeline = true
		output.Entry = &out
	}
	return nil, output, nil
}

func toTimelineOutput(t domain.Timeline) TimelineOutput {
	out := TimelineOutput{
		CaseID:      t.CaseID,
		Granularity: t.Granularity.String(),
		Description: t.Description,
		GeneratedAt: t.GeneratedAt.Format(timeLayout),
		Entries:     make([]EntryOutput, len(t.Entries)),
	}
	for i, e := range t.Entries {
		out.Entries[i] = toEntryOutput(e)
	}
	return out
}

func toEntryOutput(e domain.TimelineEntry) EntryOutput {
	return EntryOutput{
		Period:      e.Period,
		Date:        e.Date.Format(dateLayout),
		Summary:     e.Summary,
		DocumentIDs: e.DocumentIDs,
	}
}

func toDocumentOutput(doc domain.Document) DocumentOutput {
	out := DocumentOutput{
		ID:           doc.ID,
		Title:        doc.Metadata.Title,
		DocType:      doc.Metadata.DocType,
		Organisation: doc.Metadata.Organisation,
		SourceURI:    doc.Metadata.SourceURI,
		Stage:        string(doc.Status.Stage),
		Summary:      doc.Summary,
	}
	if doc.Dated() {
		out.PublishedAt = doc.Metadata.PublishedAt.Format(dateLayout)
	}
	return out
}
