package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tijdlijn/internal/core/domain"
)

func testTimeline() *domain.Timeline {
	return &domain.Timeline{
		CaseID:      "36410",
		Granularity: domain.GranularityDay,
		Description: "Wetsvoorstel in behandeling.",
		GeneratedAt: time.Date(2024, 5, 3, 9, 0, 0, 0, time.UTC),
		Entries: []domain.TimelineEntry{
			{
				Period:      "2024-01-15",
				Date:        time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
				DocumentIDs: []string{"kst-1"},
				Summary:     "Wetsvoorstel ingediend.",
			},
			{
				Period:      "2024-03-02",
				Date:        time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
				DocumentIDs: []string{"kst-2", "kst-3"},
				Summary:     "Nota naar aanleiding van het verslag.",
			},
		},
	}
}

func newTestServer(t *testing.T, ports *Ports) *Server {
	t.Helper()
	if ports.Timeline == nil {
		ports.Timeline = &mockTimelineService{}
	}
	if ports.Document == nil {
		ports.Document = &mockDocumentService{}
	}
	server, err := NewServer(ports)
	require.NoError(t, err)
	return server
}

func TestServer_handleGetTimeline(t *testing.T) {
	ctx := context.Background()

	t.Run("returns timeline", func(t *testing.T) {
		timelines := &mockTimelineService{timeline: testTimeline()}
		server := newTestServer(t, &Ports{Timeline: timelines})

		_, output, err := server.handleGetTimeline(ctx, nil, CaseInput{CaseID: "36410"})

		require.NoError(t, err)
		assert.Equal(t, "36410", timelines.gotCaseID)
		assert.Equal(t, "36410", output.CaseID)
		assert.Equal(t, "day", output.Granularity)
		assert.Equal(t, "Wetsvoorstel in behandeling.", output.Description)
		assert.Equal(t, "2024-05-03T09:00:00Z", output.GeneratedAt)
		require.Len(t, output.Entries, 2)
		assert.Equal(t, "2024-01-15", output.Entries[0].Date)
		assert.Equal(t, []string{"kst-2", "kst-3"}, output.Entries[1].DocumentIDs)
		assert.Equal(t, "Nota naar aanleiding van het verslag.", output.Entries[1].Summary)
	})

	t.Run("requires case id", func(t *testing.T) {
		server := newTestServer(t, &Ports{})

		_, _, err := server.handleGetTimeline(ctx, nil, CaseInput{})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "case_id is required")
	})

	t.Run("wraps not found", func(t *testing.T) {
		server := newTestServer(t, &Ports{Timeline: &mockTimelineService{err: domain.ErrNotFound}})

		_, _, err := server.handleGetTimeline(ctx, nil, CaseInput{CaseID: "missing"})

		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestServer_handleListDocuments(t *testing.T) {
	ctx := context.Background()
	published := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	t.Run("returns documents without content", func(t *testing.T) {
		docs := &mockDocumentService{documents: []domain.Document{
			{
				ID: "kst-1",
				Metadata: domain.DocumentMetadata{
					Title:        "Wijziging van de Wet",
					PublishedAt:  &published,
					DocType:      "Kamerstuk",
					Organisation: "Tweede Kamer",
				},
				Content: "full text",
				Summary: "Samenvatting.",
				Status:  domain.Status{Stage: domain.StagePersisted},
			},
			{ID: "kst-9", Metadata: domain.DocumentMetadata{Title: "Undated"}},
		}}
		server := newTestServer(t, &Ports{Document: docs})

		_, output, err := server.handleListDocuments(ctx, nil, CaseInput{CaseID: "36410"})

		require.NoError(t, err)
		assert.Equal(t, 2, output.Count)
		assert.Equal(t, "kst-1", output.Documents[0].ID)
		assert.Equal(t, "2024-01-15", output.Documents[0].PublishedAt)
		assert.Equal(t, "Kamerstuk", output.Documents[0].DocType)
		assert.Equal(t, "persisted", output.Documents[0].Stage)
		assert.Equal(t, "Samenvatting.", output.Documents[0].Summary)
		assert.Empty(t, output.Documents[1].PublishedAt)
	})

	t.Run("returns error on list failure", func(t *testing.T) {
		server := newTestServer(t, &Ports{Document: &mockDocumentService{err: errors.New("database error")}})

		_, _, err := server.handleListDocuments(ctx, nil, CaseInput{CaseID: "36410"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "listing documents")
	})
}

func TestServer_handleUpdateDocument(t *testing.T) {
	ctx := context.Background()
	input := UpdateDocumentInput{CaseID: "36410", DocumentID: "kst-2"}

	t.Run("returns updated entry", func(t *testing.T) {
		pipeline := &mockPipelineService{timeline: testTimeline()}
		server := newTestServer(t, &Ports{Pipeline: pipeline})

		_, output, err := server.handleUpdateDocument(ctx, nil, input)

		require.NoError(t, err)
		assert.Equal(t, []string{"36410/kst-2"}, pipeline.updated)
		assert.True(t, output.OnTimeline)
		require.NotNil(t, output.Entry)
		assert.Equal(t, "2024-03-02", output.Entry.Period)
	})

	t.Run("undated document is not an error", func(t *testing.T) {
		pipeline := &mockPipelineService{err: domain.ErrUndated}
		server := newTestServer(t, &Ports{Pipeline: pipeline})

		_, output, err := server.handleUpdateDocument(ctx, nil, input)

		require.NoError(t, err)
		assert.False(t, output.OnTimeline)
		assert.Nil(t, output.Entry)
	})

	t.Run("pipeline failure is returned", func(t *testing.T) {
		pipeline := &mockPipelineService{err: domain.NewSummarizationError("kst-2", "rate limited", domain.ErrRateLimited)}
		server := newTestServer(t, &Ports{Pipeline: pipeline})

		_, _, err := server.handleUpdateDocument(ctx, nil, input)

		assert.ErrorIs(t, err, domain.ErrSummarization)
	})

	t.Run("requires pipeline", func(t *testing.T) {
		server := newTestServer(t, &Ports{})

		_, _, err := server.handleUpdateDocument(ctx, nil, input)

		assert.ErrorIs(t, err, ErrPipelineUnavailable)
	})

	t.Run("requires ids", func(t *testing.T) {
		server := newTestServer(t, &Ports{Pipeline: &mockPipelineService{}})

		_, _, err := server.handleUpdateDocument(ctx, nil, UpdateDocumentInput{CaseID: "36410"})

		require.Error(t, err)
	})
}
