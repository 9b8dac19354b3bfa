package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tijdlijn/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/tijdlijn/internal/core/domain"
	"github.com/custodia-labs/tijdlijn/internal/core/ports/driven"
	"github.com/custodia-labs/tijdlijn/internal/postprocessors/chunker"
)

// ==================== Test Helpers ====================

func newTestProcessor(cfg domain.PipelineConfig, llm *mockCompletion, repo driven.Repository) *Processor {
	s, _ := newTestSummarizer(cfg, llm)
	return newTestProcessorWith(cfg, repo, chunker.FromConfig(cfg), s)
}

func newTestProcessorWith(
	cfg domain.PipelineConfig,
	repo driven.Repository,
	c driven.Chunker,
	s pipelineSummarizer,
) *Processor {
	p := NewProcessor(repo, c, s, cfg)
	p.now = func() time.Time { return fixedNow }
	p.builder.now = p.now
	p.sleep = func(context.Context, time.Duration) error { return nil }
	return p
}

func rawDoc(id, caseID string, published *time.Time, content string) domain.Document {
	return domain.Document{
		ID:      id,
		Content: content,
		Metadata: domain.DocumentMetadata{
			Title:       "Titel " + id,
			CaseID:      caseID,
			PublishedAt: published,
		},
	}
}

func seed(t *testing.T, repo driven.DocumentRepository, docs ...domain.Document) {
	t.Helper()
	for _, doc := range docs {
		require.NoError(t, repo.StoreDocument(context.Background(), doc))
	}
}

func storedDoc(t *testing.T, repo driven.DocumentRepository, id string) *domain.Document {
	t.Helper()
	doc, err := repo.GetDocument(context.Background(), id)
	require.NoError(t, err)
	return doc
}

func storedTimeline(t *testing.T, repo driven.TimelineRepository, caseID string) *domain.Timeline {
	t.Helper()
	tl, err := repo.GetTimeline(context.Background(), caseID)
	require.NoError(t, err)
	return tl
}

func skipReasons(report *domain.BatchReport) map[string]string {
	out := make(map[string]string, len(report.Skipped))
	for _, s := range report.Skipped {
		out[s.ID] = s.Reason
	}
	return out
}

// flakyRepository fails GetDocument a number of times per document.
type flakyRepository struct {
	*memory.Repository

	mu       sync.Mutex
	failures map[string]int
	calls    map[string]int
}

func newFlakyRepository(failures map[string]int) *flakyRepository {
	return &flakyRepository{
		Repository: memory.NewRepository(),
		failures:   failures,
		calls:      make(map[string]int),
	}
}

func (r *flakyRepository) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	r.mu.Lock()
	r.calls[id]++
	fail := r.failures[id] > 0
	if fail {
		r.failures[id]--
	}
	r.mu.Unlock()

	if fail {
		return nil, errors.New("database is locked")
	}
	return r.Repository.GetDocument(ctx, id)
}

func (r *flakyRepository) callCount(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[id]
}

// stubChunker fails with a chunking error for selected documents.
type stubChunker struct {
	driven.Chunker
	fatal map[string]bool
}

func (c *stubChunker) Chunk(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	if c.fatal[doc.ID] {
		return nil, domain.NewChunkingError("overlap leaves no room for content")
	}
	return c.Chunker.Chunk(ctx, doc)
}

// ==================== RunCase ====================

func TestProcessor_RunCase_BuildsTimeline(t *testing.T) {
	cfg := noDescription()
	cfg.MaxChunkSize = 60

	llm := &mockCompletion{
		respond: func(prompt string, _ int) (string, error) {
			parts := strings.Split(prompt, "|")
			last := parts[len(parts)-1]
			switch parts[0] {
			case "chunk":
				for label, marker := range map[string]string{"S1": "Eerste", "S2": "Tweede", "S3": "Derde", "S4": "Vierde"} {
					if strings.HasPrefix(last, marker) {
						return label, nil
					}
				}
			case "doc":
				return "DOC1", nil
			case "entry":
				return "ENTRY(" + strings.ReplaceAll(last, summarySeparator, "+") + ")", nil
			}
			return "", fmt.Errorf("%w: unexpected prompt %q", domain.ErrUnrecoverable, prompt)
		},
	}

	repo := memory.NewRepository()
	day := publishedOn(2024, 3, 1)
	seed(t, repo,
		rawDoc("d1", "case-1", day, "Eerste alinea over het besluit van de minister.\n\n"+
			"Tweede alinea over de reactie van de gemeente.\n\n"+
			"Derde alinea over de vervolgstappen in het dossier."),
		rawDoc("d2", "case-1", day, "Vierde stuk: de Kamer stemt in met het voorstel."),
		rawDoc("undated", "case-1", nil, "Zonder datum."),
	)
	p := newTestProcessor(cfg, llm, repo)

	report, err := p.RunCase(context.Background(), "case-1")

	require.NoError(t, err)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, "case-1", report.CaseID)
	assert.Equal(t, []string{"d1", "d2"}, report.Succeeded)
	assert.Equal(t, map[string]string{"undated": domain.SkipUndated}, skipReasons(report))
	assert.Empty(t, report.Failed)
	assert.True(t, report.TimelineBuilt)
	assert.False(t, report.Cancelled)
	assert.Equal(t, 3, report.Total())

	assert.Equal(t, 4, llm.countPrefix("chunk|"))
	assert.Equal(t, 1, llm.countPrefix("doc|"))
	assert.Equal(t, 1, llm.countPrefix("entry|"))
	for _, prompt := range llm.calls() {
		if strings.HasPrefix(prompt, "doc|") {
			assert.True(t, strings.HasSuffix(prompt, "S1\n\nS2\n\nS3"), prompt)
		}
	}

	d1 := storedDoc(t, repo, "d1")
	assert.Equal(t, domain.StagePersisted, d1.Status.Stage)
	assert.Equal(t, "DOC1", d1.Summary)
	assert.Equal(t, d1.ContentFingerprint(), d1.Fingerprint)
	assert.Equal(t, "S4", storedDoc(t, repo, "d2").Summary)
	assert.Empty(t, storedDoc(t, repo, "undated").Summary)

	tl := storedTimeline(t, repo, "case-1")
	require.Len(t, tl.Entries, 1)
	assert.Equal(t, "2024-03-01", tl.Entries[0].Period)
	assert.Equal(t, []string{"d1", "d2"}, tl.Entries[0].DocumentIDs)
	assert.Equal(t, "ENTRY(DOC1+S4)", tl.Entries[0].Summary)
}

func TestProcessor_RunCase_SkipsUnchanged(t *testing.T) {
	llm := &mockCompletion{}
	repo := memory.NewRepository()
	seed(t, repo,
		rawDoc("d1", "case-1", publishedOn(2024, 3, 1), "Eerste publicatie."),
		rawDoc("d2", "case-1", publishedOn(2024, 3, 2), "Tweede publicatie."),
	)
	p := newTestProcessor(noDescription(), llm, repo)
	ctx := context.Background()

	_, err := p.RunCase(ctx, "case-1")
	require.NoError(t, err)
	require.Equal(t, 2, llm.countPrefix("chunk|"))

	report, err := p.RunCase(ctx, "case-1")
	require.NoError(t, err)
	assert.Empty(t, report.Succeeded)
	assert.Equal(t, map[string]string{"d1": domain.SkipUnchanged, "d2": domain.SkipUnchanged}, skipReasons(report))
	assert.Equal(t, 2, llm.countPrefix("chunk|"))

	changed := storedDoc(t, repo, "d2").WithContent("Gewijzigde publicatie.", fixedNow)
	seed(t, repo, changed)

	report, err = p.RunCase(ctx, "case-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"d2"}, report.Succeeded)
	assert.Equal(t, map[string]string{"d1": domain.SkipUnchanged}, skipReasons(report))
	assert.Equal(t, 3, llm.countPrefix("chunk|"))

	entry, ok := storedTimeline(t, repo, "case-1").Entry("2024-03-02")
	require.True(t, ok)
	assert.Equal(t, "S(Gewijzigde publicatie.)", entry.Summary)
}

func TestProcessor_RunCase_FailureIsolation(t *testing.T) {
	llm := &mockCompletion{
		respond: func(prompt string, _ int) (string, error) {
			if strings.Contains(prompt, "Kapot") {
				return "", fmt.Errorf("%w: status 400", domain.ErrUnrecoverable)
			}
			return echoResponse(prompt), nil
		},
	}
	repo := memory.NewRepository()
	seed(t, repo,
		rawDoc("good", "case-1", publishedOn(2024, 3, 1), "Goede publicatie."),
		rawDoc("bad", "case-1", publishedOn(2024, 3, 2), "Kapotte publicatie."),
		rawDoc("empty", "case-1", publishedOn(2024, 3, 3), "  \n\t "),
		rawDoc("binary", "case-1", publishedOn(2024, 3, 4), "ok \xff\xfe"),
	)
	p := newTestProcessor(noDescription(), llm, repo)

	report, err := p.RunCase(context.Background(), "case-1")

	require.NoError(t, err)
	assert.Equal(t, []string{"good"}, report.Succeeded)
	require.Len(t, report.Failed, 3)

	stages := make(map[string]domain.Stage)
	for _, f := range report.Failed {
		stages[f.ID] = f.Stage
		assert.NotEmpty(t, f.Reason)
	}
	assert.Equal(t, map[string]domain.Stage{
		"bad":    domain.StageSummarized,
		"binary": domain.StageParsed,
		"empty":  domain.StageParsed,
	}, stages)

	bad := storedDoc(t, repo, "bad")
	assert.Equal(t, domain.StageFailed, bad.Status.Stage)
	assert.Equal(t, domain.StageSummarized, bad.Status.FailedStage)
	assert.Empty(t, bad.Summary)

	assert.True(t, report.TimelineBuilt)
	assert.Len(t, report.EntryFailures, 3)
	tl := storedTimeline(t, repo, "case-1")
	require.Len(t, tl.Entries, 1)
	assert.Equal(t, []string{"good"}, tl.Entries[0].DocumentIDs)
}

func TestProcessor_RunCase_ChunkingErrorIsFatal(t *testing.T) {
	cfg := noDescription()
	cfg.ConcurrencyLimit = 1
	repo := memory.NewRepository()
	seed(t, repo,
		rawDoc("a", "case-1", publishedOn(2024, 3, 1), "Eerste."),
		rawDoc("b", "case-1", publishedOn(2024, 3, 2), "Tweede."),
	)
	s, _ := newTestSummarizer(cfg, &mockCompletion{})
	c := &stubChunker{Chunker: chunker.FromConfig(cfg), fatal: map[string]bool{"a": true}}
	p := newTestProcessorWith(cfg, repo, c, s)

	report, err := p.RunCase(context.Background(), "case-1")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrChunking)
	require.NotNil(t, report)
	assert.False(t, report.TimelineBuilt)
	assert.Empty(t, report.Failed)
	assert.NotEqual(t, domain.StageFailed, storedDoc(t, repo, "a").Status.Stage)

	_, err = repo.GetTimeline(context.Background(), "case-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProcessor_RunCase_InvalidConfiguration(t *testing.T) {
	cfg := noDescription()
	cfg.ChunkOverlap = cfg.MaxChunkSize
	p := newTestProcessor(cfg, &mockCompletion{}, memory.NewRepository())

	report, err := p.RunCase(context.Background(), "case-1")

	assert.Nil(t, report)
	assert.ErrorIs(t, err, domain.ErrChunking)
}

func TestProcessor_RunCase_EmptyCaseID(t *testing.T) {
	p := newTestProcessor(noDescription(), &mockCompletion{}, memory.NewRepository())

	_, err := p.RunCase(context.Background(), "")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestProcessor_RunCase_CancelledBeforeStart(t *testing.T) {
	llm := &mockCompletion{}
	repo := memory.NewRepository()
	seed(t, repo,
		rawDoc("a", "case-1", publishedOn(2024, 3, 1), "Eerste."),
		rawDoc("b", "case-1", publishedOn(2024, 3, 2), "Tweede."),
	)
	p := newTestProcessor(noDescription(), llm, repo)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := p.RunCase(ctx, "case-1")

	require.NoError(t, err)
	assert.True(t, report.Cancelled)
	assert.False(t, report.TimelineBuilt)
	assert.Equal(t, map[string]string{"a": domain.SkipCancelled, "b": domain.SkipCancelled}, skipReasons(report))
	assert.Empty(t, llm.calls())
}

func TestProcessor_RunCase_CancelledMidRun(t *testing.T) {
	cfg := noDescription()
	cfg.ConcurrencyLimit = 1

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	llm := &mockCompletion{
		respond: func(prompt string, _ int) (string, error) {
			cancel()
			return echoResponse(prompt), nil
		},
	}
	repo := memory.NewRepository()
	seed(t, repo,
		rawDoc("a", "case-1", publishedOn(2024, 3, 1), "Eerste."),
		rawDoc("b", "case-1", publishedOn(2024, 3, 2), "Tweede."),
		rawDoc("c", "case-1", publishedOn(2024, 3, 3), "Derde."),
	)
	p := newTestProcessor(cfg, llm, repo)

	report, err := p.RunCase(ctx, "case-1")

	require.NoError(t, err)
	assert.True(t, report.Cancelled)
	assert.False(t, report.TimelineBuilt)
	assert.Contains(t, report.Succeeded, "a")
	assert.Equal(t, domain.SkipCancelled, skipReasons(report)["c"])
	assert.Equal(t, 3, report.Total())
	assert.Equal(t, domain.StagePersisted, storedDoc(t, repo, "a").Status.Stage)
}

func TestProcessor_RunCase_CancelledAfterLastDispatch(t *testing.T) {
	cfg := noDescription()
	cfg.ConcurrencyLimit = 1

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	llm := &mockCompletion{
		respond: func(prompt string, _ int) (string, error) {
			if strings.Contains(prompt, "Tweede.") {
				cancel()
			}
			return echoResponse(prompt), nil
		},
	}
	repo := memory.NewRepository()
	seed(t, repo,
		rawDoc("a", "case-1", publishedOn(2024, 3, 1), "Eerste."),
		rawDoc("b", "case-1", publishedOn(2024, 3, 2), "Tweede."),
	)
	p := newTestProcessor(cfg, llm, repo)

	report, err := p.RunCase(ctx, "case-1")

	require.NoError(t, err)
	assert.False(t, report.Cancelled)
	assert.ElementsMatch(t, []string{"a", "b"}, report.Succeeded)
	assert.Empty(t, report.Skipped)
	assert.True(t, report.TimelineBuilt)

	timeline, err := repo.GetTimeline(context.Background(), "case-1")
	require.NoError(t, err)
	assert.Len(t, timeline.Entries, 2)
}

func TestProcessor_RunCase_RepositoryRetries(t *testing.T) {
	cfg := noDescription()
	cfg.RepositoryRetries = 3

	t.Run("recovers", func(t *testing.T) {
		repo := newFlakyRepository(map[string]int{"a": 2})
		seed(t, repo.Repository, rawDoc("a", "case-1", publishedOn(2024, 3, 1), "Eerste."))
		p := newTestProcessor(cfg, &mockCompletion{}, repo)

		report, err := p.RunCase(context.Background(), "case-1")

		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, report.Succeeded)
		assert.Equal(t, 3, repo.callCount("a"))
	})

	t.Run("exhausted", func(t *testing.T) {
		repo := newFlakyRepository(map[string]int{"a": 10})
		seed(t, repo.Repository,
			rawDoc("a", "case-1", publishedOn(2024, 3, 1), "Eerste."),
			rawDoc("b", "case-1", publishedOn(2024, 3, 2), "Tweede."),
		)
		p := newTestProcessor(cfg, &mockCompletion{}, repo)

		report, err := p.RunCase(context.Background(), "case-1")

		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, report.Succeeded)
		require.Len(t, report.Failed, 1)
		assert.Equal(t, "a", report.Failed[0].ID)
		assert.Equal(t, domain.StageFetched, report.Failed[0].Stage)
		assert.Equal(t, 3, repo.callCount("a"))
	})
}

func TestProcessor_RunAll(t *testing.T) {
	repo := memory.NewRepository()
	seed(t, repo,
		rawDoc("a", "case-2", publishedOn(2024, 3, 1), "Eerste."),
		rawDoc("b", "case-1", publishedOn(2024, 3, 2), "Tweede."),
	)
	p := newTestProcessor(noDescription(), &mockCompletion{}, repo)

	reports, err := p.RunAll(context.Background())

	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "case-1", reports[0].CaseID)
	assert.Equal(t, "case-2", reports[1].CaseID)

	timelines, err := repo.ListTimelines(context.Background())
	require.NoError(t, err)
	assert.Len(t, timelines, 2)
}

// ==================== ProcessDocument ====================

func TestProcessor_ProcessDocument(t *testing.T) {
	llm := &mockCompletion{}
	repo := memory.NewRepository()
	seed(t, repo, rawDoc("undated", "case-1", nil, "Zonder datum."))
	p := newTestProcessor(noDescription(), llm, repo)
	ctx := context.Background()

	result, err := p.ProcessDocument(ctx, "undated")
	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.Equal(t, "S(Zonder datum.)", result.Document.Summary)
	assert.Equal(t, domain.StagePersisted, result.Document.Status.Stage)

	result, err = p.ProcessDocument(ctx, "undated")
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Equal(t, domain.SkipUnchanged, result.Reason)
	assert.Equal(t, 1, llm.countPrefix("chunk|"))

	_, err = repo.GetTimeline(ctx, "case-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProcessor_ProcessDocument_NotFound(t *testing.T) {
	cfg := noDescription()
	cfg.RepositoryRetries = 3
	repo := newFlakyRepository(nil)
	p := newTestProcessor(cfg, &mockCompletion{}, repo)

	_, err := p.ProcessDocument(context.Background(), "missing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, err, domain.ErrRepository)
	assert.Equal(t, 1, repo.callCount("missing"))
}

// ==================== UpdateDocument ====================

func buildCase(t *testing.T, p *Processor, repo *memory.Repository) *domain.Timeline {
	t.Helper()
	seed(t, repo,
		rawDoc("d1", "case-1", publishedOn(2024, 3, 1), "Eerste publicatie."),
		rawDoc("d2", "case-1", publishedOn(2024, 3, 5), "Tweede publicatie."),
		rawDoc("d3", "case-1", publishedOn(2024, 3, 9), "Derde publicatie."),
	)
	_, err := p.RunCase(context.Background(), "case-1")
	require.NoError(t, err)
	return storedTimeline(t, repo, "case-1")
}

func entryJSON(t *testing.T, e domain.TimelineEntry) string {
	t.Helper()
	b, err := json.Marshal(e)
	require.NoError(t, err)
	return string(b)
}

func TestProcessor_UpdateDocument_RecomputesOnlyContainingEntry(t *testing.T) {
	llm := &mockCompletion{}
	repo := memory.NewRepository()
	p := newTestProcessor(noDescription(), llm, repo)
	before := buildCase(t, p, repo)
	require.Len(t, before.Entries, 3)

	seed(t, repo, storedDoc(t, repo, "d2").WithContent("Herziene publicatie.", fixedNow))
	calls := len(llm.calls())

	after, err := p.UpdateDocument(context.Background(), "case-1", "d2")

	require.NoError(t, err)
	require.Len(t, after.Entries, 3)
	assert.Equal(t, entryJSON(t, before.Entries[0]), entryJSON(t, after.Entries[0]))
	assert.Equal(t, entryJSON(t, before.Entries[2]), entryJSON(t, after.Entries[2]))
	assert.Equal(t, "S(Herziene publicatie.)", after.Entries[1].Summary)
	assert.Equal(t, calls+1, len(llm.calls()))

	assert.Equal(t, after, storedTimeline(t, repo, "case-1"))
	assert.Equal(t, "S(Herziene publicatie.)", storedDoc(t, repo, "d2").Summary)
}

func TestProcessor_UpdateDocument_DateMoved(t *testing.T) {
	repo := memory.NewRepository()
	p := newTestProcessor(noDescription(), &mockCompletion{}, repo)
	before := buildCase(t, p, repo)

	moved := storedDoc(t, repo, "d1")
	moved.Metadata.PublishedAt = publishedOn(2024, 3, 20)
	seed(t, repo, *moved)

	after, err := p.UpdateDocument(context.Background(), "case-1", "d1")

	require.NoError(t, err)
	require.Len(t, after.Entries, 3)
	assert.Equal(t, []string{"2024-03-05", "2024-03-09", "2024-03-20"},
		[]string{after.Entries[0].Period, after.Entries[1].Period, after.Entries[2].Period})
	assert.Equal(t, entryJSON(t, before.Entries[1]), entryJSON(t, after.Entries[0]))
	assert.Equal(t, entryJSON(t, before.Entries[2]), entryJSON(t, after.Entries[1]))
	assert.Equal(t, []string{"d1"}, after.Entries[2].DocumentIDs)
}

func TestProcessor_UpdateDocument_BecameUndated(t *testing.T) {
	repo := memory.NewRepository()
	p := newTestProcessor(noDescription(), &mockCompletion{}, repo)
	buildCase(t, p, repo)

	undated := storedDoc(t, repo, "d3")
	undated.Metadata.PublishedAt = nil
	seed(t, repo, *undated)

	after, err := p.UpdateDocument(context.Background(), "case-1", "d3")

	assert.ErrorIs(t, err, domain.ErrUndated)
	require.NotNil(t, after)
	assert.Len(t, after.Entries, 2)
	assert.NotContains(t, after.DocumentIDs(), "d3")
	assert.Len(t, storedTimeline(t, repo, "case-1").Entries, 2)
}

func TestProcessor_UpdateDocument_UndatedNotOnTimeline(t *testing.T) {
	repo := memory.NewRepository()
	seed(t, repo, rawDoc("x", "case-1", nil, "Zonder datum."))
	p := newTestProcessor(noDescription(), &mockCompletion{}, repo)

	after, err := p.UpdateDocument(context.Background(), "case-1", "x")

	assert.ErrorIs(t, err, domain.ErrUndated)
	assert.Nil(t, after)
	assert.Equal(t, "S(Zonder datum.)", storedDoc(t, repo, "x").Summary)
}

func TestProcessor_UpdateDocument_WithoutTimeline(t *testing.T) {
	repo := memory.NewRepository()
	seed(t, repo,
		rawDoc("a", "case-1", publishedOn(2024, 3, 1), "Eerste."),
		rawDoc("b", "case-1", publishedOn(2024, 3, 2), "Tweede."),
	)
	p := newTestProcessor(noDescription(), &mockCompletion{}, repo)

	after, err := p.UpdateDocument(context.Background(), "case-1", "a")

	require.NoError(t, err)
	require.Len(t, after.Entries, 1)
	assert.Equal(t, []string{"a"}, after.Entries[0].DocumentIDs)
}

func TestProcessor_UpdateDocument_GranularityChanged(t *testing.T) {
	repo := memory.NewRepository()
	p := newTestProcessor(noDescription(), &mockCompletion{}, repo)
	buildCase(t, p, repo)

	cfg := noDescription()
	cfg.DateGranularity = domain.GranularityMonth
	monthly := newTestProcessor(cfg, &mockCompletion{}, repo)

	after, err := monthly.UpdateDocument(context.Background(), "case-1", "d1")

	require.NoError(t, err)
	assert.Equal(t, domain.GranularityMonth, after.Granularity)
	require.Len(t, after.Entries, 1)
	assert.Equal(t, []string{"d1", "d2", "d3"}, after.Entries[0].DocumentIDs)
}

func TestProcessor_UpdateDocument_WrongCase(t *testing.T) {
	repo := memory.NewRepository()
	seed(t, repo, rawDoc("a", "case-1", publishedOn(2024, 3, 1), "Eerste."))
	p := newTestProcessor(noDescription(), &mockCompletion{}, repo)

	_, err := p.UpdateDocument(context.Background(), "case-2", "a")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
