package cli

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/custodia-labs/tijdlijn/internal/core/domain"
	"github.com/custodia-labs/tijdlijn/internal/core/ports/driven"
)

var testPublished = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

func testDocuments() []domain.Document {
	return []domain.Document{
		{
			ID: "doc-1",
			Metadata: domain.DocumentMetadata{
				Title:        "Test Document 1",
				PublishedAt:  &testPublished,
				DocType:      "Kamerstuk",
				CaseID:       "case-1",
				SourceURI:    "https://example.org/doc-1",
				Organisation: "Tweede Kamer",
				Extra:        map[string]string{"language": "nl"},
			},
			Content: "Full text of document 1.",
			Summary: "Summary of document 1.",
			Status:  domain.Status{Stage: domain.StagePersisted},
		},
		{
			ID: "doc-2",
			Metadata: domain.DocumentMetadata{
				Title:  "Test Document 2",
				CaseID: "case-1",
			},
			Status: domain.Status{
				Stage:       domain.StageFailed,
				FailedStage: domain.StageSummarized,
				Reason:      "rate limited",
			},
		},
	}
}

func testTimeline() *domain.Timeline {
	return &domain.Timeline{
		CaseID:      "case-1",
		Granularity: domain.GranularityDay,
		Description: "Introduction to case 1.",
		GeneratedAt: time.Date(2024, 5, 3, 9, 0, 0, 0, time.UTC),
		Entries: []domain.TimelineEntry{{
			Period:      "2024-01-15",
			Date:        testPublished,
			DocumentIDs: []string{"doc-1"},
			Summary:     "Entry summary for January.",
		}},
	}
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	docs    []domain.Document
	cases   []string
	report  *domain.IngestReport
	changes []domain.Document
	err     error
}

func (m *mockDocumentService) Get(_ context.Context, id string) (*domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.docs {
		if m.docs[i].ID == id {
			doc := m.docs[i]
			return &doc, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockDocumentService) ListByCase(_ context.Context, caseID string) ([]domain.Document, error) {
	var out []domain.Document
	for _, doc := range m.docs {
		if doc.CaseID() == caseID {
			out = append(out, doc)
		}
	}
	return out, m.err
}

func (m *mockDocumentService) ListCases(_ context.Context) ([]string, error) {
	return m.cases, m.err
}

func (m *mockDocumentService) Ingest(_ context.Context, _ domain.RawDocument) (*domain.Document, bool, error) {
	return nil, false, errors.New("not implemented")
}

func (m *mockDocumentService) Import(_ context.Context, _ driven.Connector) (*domain.IngestReport, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.report, nil
}

func (m *mockDocumentService) Watch(_ context.Context, _ driven.Connector, onChange func(domain.Document)) error {
	for _, doc := range m.changes {
		onChange(doc)
	}
	return m.err
}

// mockTimelineService is a mock implementation of driving.TimelineService.
type mockTimelineService struct {
	timelines []domain.Timeline
	err       error
}

func (m *mockTimelineService) Get(_ context.Context, caseID string) (*domain.Timeline, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.timelines {
		if m.timelines[i].CaseID == caseID {
			t := m.timelines[i]
			return &t, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockTimelineService) List(_ context.Context) ([]domain.Timeline, error) {
	return m.timelines, m.err
}

// mockPipelineService is a mock implementation of driving.PipelineService.
type mockPipelineService struct {
	reports  []domain.BatchReport
	timeline *domain.Timeline
	err      error
	ran      []string
	updated  []string
}

func (m *mockPipelineService) RunCase(_ context.Context, caseID string) (*domain.BatchReport, error) {
	m.ran = append(m.ran, caseID)
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.reports {
		if m.reports[i].CaseID == caseID {
			r := m.reports[i]
			return &r, nil
		}
	}
	return &domain.BatchReport{CaseID: caseID, TimelineBuilt: true}, nil
}

func (m *mockPipelineService) RunAll(_ context.Context) ([]domain.BatchReport, error) {
	return m.reports, m.err
}

func (m *mockPipelineService) ProcessDocument(_ context.Context, _ string) (*domain.DocumentResult, error) {
	return nil, m.err
}

func (m *mockPipelineService) UpdateDocument(_ context.Context, caseID, documentID string) (*domain.Timeline, error) {
	m.updated = append(m.updated, caseID+"/"+documentID)
	return m.timeline, m.err
}

// mockSettingsService is a mock implementation of driving.SettingsService.
type mockSettingsService struct {
	settings    domain.AppSettings
	validateErr error
	pingErr     error
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(settings *domain.AppSettings) error {
	m.settings = *settings
	return nil
}

func (m *mockSettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if model == "" {
		model = domain.DefaultLLMModels()[provider]
	}
	m.settings.LLM = domain.LLMSettings{Provider: provider, Model: model, APIKey: apiKey}
	return nil
}

func (m *mockSettingsService) SetPipeline(cfg domain.PipelineConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.settings.Pipeline = cfg
	return nil
}

func (m *mockSettingsService) Validate() error {
	return m.validateErr
}

func (m *mockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

func (m *mockSettingsService) ValidateLLMConfig() error {
	return m.pingErr
}

// mockConnector is a no-op driven.Connector.
type mockConnector struct {
	path   string
	closed bool
}

func (c *mockConnector) Type() string                     { return "mock" }
func (c *mockConnector) Validate(_ context.Context) error { return nil }
func (c *mockConnector) Close() error                     { c.closed = true; return nil }

func (c *mockConnector) FullSync(_ context.Context) (<-chan domain.RawDocument, <-chan error) {
	docs := make(chan domain.RawDocument)
	errs := make(chan error)
	close(docs)
	close(errs)
	return docs, errs
}

func (c *mockConnector) Watch(_ context.Context) (<-chan domain.RawDocumentChange, error) {
	ch := make(chan domain.RawDocumentChange)
	close(ch)
	return ch, nil
}

// testEnv holds the mocks installed by setupTestServices.
type testEnv struct {
	documents *mockDocumentService
	timelines *mockTimelineService
	pipeline  *mockPipelineService
	settings  *mockSettingsService
	connector *mockConnector
}

// setupTestServices installs mocks for all services and returns a cleanup
// function that restores the previous state.
func setupTestServices() (*testEnv, func()) {
	env := &testEnv{
		documents: &mockDocumentService{
			docs:   testDocuments(),
			cases:  []string{"case-1"},
			report: &domain.IngestReport{Rejected: map[string]string{}},
		},
		timelines: &mockTimelineService{timelines: []domain.Timeline{*testTimeline()}},
		pipeline:  &mockPipelineService{timeline: testTimeline()},
		settings:  &mockSettingsService{settings: domain.DefaultAppSettings()},
		connector: &mockConnector{},
	}

	prevBootstrap := bootstrap
	bootstrap = nil
	setServices(&Services{
		Document: env.documents,
		Timeline: env.timelines,
		Settings: env.settings,
		Pipeline: env.pipeline,
		NewConnector: func(path string) (driven.Connector, error) {
			env.connector.path = path
			return env.connector, nil
		},
	})

	return env, func() {
		setServices(&Services{})
		bootstrap = prevBootstrap
		runJSON = false
		ingestProcess = false
		exportFormat = "json"
		exportOutput = ""
		llmProvider, llmModel, llmAPIKey = "", "", ""
		for _, name := range pipelineFlags {
			if f := settingsPipelineCmd.Flags().Lookup(name); f != nil {
				_ = f.Value.Set(f.DefValue)
				f.Changed = false
			}
		}
		opts = Options{}
	}
}

// execute runs the root command with args and returns its output.
func execute(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}
