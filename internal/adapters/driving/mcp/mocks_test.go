package mcp

import (
	"context"

	"github.com/custodia-labs/tijdlijn/internal/core/domain"
	"github.com/custodia-labs/tijdlijn/internal/core/ports/driven"
)

// mockTimelineService is a mock implementation of driving.TimelineService.
type mockTimelineService struct {
	timelines []domain.Timeline
	timeline  *domain.Timeline
	err       error
	gotCaseID string
}

func (m *mockTimelineService) Get(_ context.Context, caseID string) (*domain.Timeline, error) {
	m.gotCaseID = caseID
	return m.timeline, m.err
}

func (m *mockTimelineService) List(_ context.Context) ([]domain.Timeline, error) {
	return m.timelines, m.err
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	documents []domain.Document
	document  *domain.Document
	err       error
}

func (m *mockDocumentService) Get(_ context.Context, _ string) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockDocumentService) ListByCase(_ context.Context, _ string) ([]domain.Document, error) {
	return m.documents, m.err
}

func (m *mockDocumentService) ListCases(_ context.Context) ([]string, error) {
	return nil, m.err
}

func (m *mockDocumentService) Ingest(_ context.Context, _ domain.RawDocument) (*domain.Document, bool, error) {
	return m.document, false, m.err
}

func (m *mockDocumentService) Import(_ context.Context, _ driven.Connector) (*domain.IngestReport, error) {
	return &domain.IngestReport{}, m.err
}

func (m *mockDocumentService) Watch(_ context.Context, _ driven.Connector, _ func(domain.Document)) error {
	return m.err
}

// mockPipelineService is a mock implementation of driving.PipelineService.
type mockPipelineService struct {
	timeline *domain.Timeline
	err      error
	updated  []string
}

func (m *mockPipelineService) RunCase(_ context.Context, caseID string) (*domain.BatchReport, error) {
	return &domain.BatchReport{CaseID: caseID}, m.err
}

func (m *mockPipelineService) RunAll(_ context.Context) ([]domain.BatchReport, error) {
	return nil, m.err
}

func (m *mockPipelineService) ProcessDocument(_ context.Context, _ string) (*domain.DocumentResult, error) {
	return nil, m.err
}

func (m *mockPipelineService) UpdateDocument(_ context.Context, caseID, documentID string) (*domain.Timeline, error) {
	m.updated = append(m.updated, caseID+"/"+documentID)
	return m.timeline, m.err
}
