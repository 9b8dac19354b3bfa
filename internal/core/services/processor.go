package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/tijdlijn/internal/core/domain"
	"github.com/custodia-labs/tijdlijn/internal/core/ports/driven"
	"github.com/custodia-labs/tijdlijn/internal/core/ports/driving"
	"github.com/custodia-labs/tijdlijn/internal/logger"
)

// Ensure Processor implements the interface.
var _ driving.PipelineService = (*Processor)(nil)

// repoRetryDelay is the pause between repository attempts, multiplied by
// the attempt number.
const repoRetryDelay = 200 * time.Millisecond

// pipelineSummarizer is the part of the Summarizer the processor uses.
type pipelineSummarizer interface {
	timelineSummarizer
	SummarizeChunks(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) (string, error)
}

// Processor drives documents through parse, chunk, summarise and persist,
// then rebuilds the case timeline. It implements the PipelineService.
type Processor struct {
	repo       driven.Repository
	chunker    driven.Chunker
	summarizer pipelineSummarizer
	builder    *TimelineBuilder
	cfg        domain.PipelineConfig

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewProcessor creates a processor.
func NewProcessor(
	repo driven.Repository,
	chunker driven.Chunker,
	summarizer pipelineSummarizer,
	cfg domain.PipelineConfig,
) *Processor {
	return &Processor{
		repo:       repo,
		chunker:    chunker,
		summarizer: summarizer,
		builder:    NewTimelineBuilder(summarizer, cfg),
		cfg:        cfg,
		now:        time.Now,
		sleep:      sleepContext,
	}
}

// RunCase processes every dated document of a case and rebuilds its timeline.
func (p *Processor) RunCase(ctx context.Context, caseID string) (*domain.BatchReport, error) {
	if caseID == "" {
		return nil, fmt.Errorf("%w: case id is required", domain.ErrInvalidInput)
	}
	if err := p.cfg.ValidateChunking(); err != nil {
		return nil, err
	}

	report := &domain.BatchReport{
		RunID:     uuid.NewString(),
		CaseID:    caseID,
		StartedAt: p.now().UTC(),
	}
	logger.Section("Run " + caseID)
	logger.Info("run %s: case %s started", report.RunID, caseID)

	docs, err := p.listDocuments(ctx, caseID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		if !doc.Dated() {
			logger.Debug("run %s: skipping undated document %s", report.RunID, doc.ID)
			report.Skipped = append(report.Skipped, domain.SkippedDocument{ID: doc.ID, Reason: domain.SkipUndated})
			continue
		}
		ids = append(ids, doc.ID)
	}

	if err := p.runBatch(ctx, ids, report); err != nil {
		p.finish(report)
		return report, err
	}

	if !report.Cancelled {
		buildCtx := ctx
		if ctx.Err() != nil {
			// Every document was handed out before the cancellation.
			logger.Info("run %s: cancelled after the last document, rebuilding the timeline", report.RunID)
			buildCtx = context.WithoutCancel(ctx)
		}
		if err := p.rebuildTimeline(buildCtx, report); err != nil {
			p.finish(report)
			return report, err
		}
	}

	p.finish(report)
	logger.Info("run %s: %d succeeded, %d skipped, %d failed, cancelled=%t",
		report.RunID, len(report.Succeeded), len(report.Skipped), len(report.Failed), report.Cancelled)

	return report, nil
}

// RunAll runs every case in the corpus, stopping early on cancellation or
// a run-level error.
func (p *Processor) RunAll(ctx context.Context) ([]domain.BatchReport, error) {
	var caseIDs []string
	err := p.withRepoRetry(ctx, "list cases", func() error {
		var err error
		caseIDs, err = p.repo.ListCaseIDs(ctx)
		return err
	})
	if err != nil {
		return nil, domain.NewRepositoryError(domain.StageNone, "", "list cases", err)
	}

	reports := make([]domain.BatchReport, 0, len(caseIDs))
	for _, caseID := range caseIDs {
		if ctx.Err() != nil {
			break
		}
		report, err := p.RunCase(ctx, caseID)
		if report != nil {
			reports = append(reports, *report)
		}
		if err != nil {
			return reports, err
		}
		if report.Cancelled {
			break
		}
	}

	return reports, nil
}

// ProcessDocument runs a single document through the pipeline. Dates are
// not required here; only timeline assembly skips undated documents.
func (p *Processor) ProcessDocument(ctx context.Context, documentID string) (*domain.DocumentResult, error) {
	if err := p.cfg.ValidateChunking(); err != nil {
		return nil, err
	}
	result, err := p.process(ctx, documentID, false)
	return &result, err
}

// UpdateDocument re-summarises one document and recomputes only the entry
// that contains it, plus the entry it left when its date moved. Every other
// entry is carried over unchanged.
//
// An undated document is summarised and removed from the timeline; the
// stored timeline is returned together with an error wrapping ErrUndated.
func (p *Processor) UpdateDocument(ctx context.Context, caseID, documentID string) (*domain.Timeline, error) {
	if err := p.cfg.ValidateChunking(); err != nil {
		return nil, err
	}

	current, err := p.getDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if current.CaseID() != caseID {
		return nil, fmt.Errorf("%w: document %s belongs to case %q, not %q",
			domain.ErrInvalidInput, documentID, current.CaseID(), caseID)
	}

	result, err := p.process(ctx, documentID, true)
	if err != nil {
		return nil, err
	}
	doc := result.Document

	docs, err := p.listDocuments(ctx, caseID)
	if err != nil {
		return nil, err
	}

	previous, err := p.getTimeline(ctx, caseID)
	if err != nil {
		return nil, err
	}

	var build *BuildResult
	if previous != nil && previous.Granularity != p.builder.Granularity() {
		logger.Info("update: case %s timeline granularity changed, rebuilding all entries", caseID)
		build, err = p.builder.Build(ctx, caseID, docs, previous)
	} else {
		base := domain.Timeline{CaseID: caseID, Granularity: p.builder.Granularity()}
		if previous != nil {
			base = *previous
		}

		var periods []string
		if doc.Dated() {
			periods = append(periods, p.builder.Granularity().Period(*doc.Metadata.PublishedAt))
		}
		if old, ok := base.EntryFor(doc.ID); ok && (len(periods) == 0 || old.Period != periods[0]) {
			periods = append(periods, old.Period)
		}
		if len(periods) == 0 {
			return previous, fmt.Errorf("document %s is not on the timeline: %w", doc.ID, domain.ErrUndated)
		}
		build, err = p.builder.UpdateEntries(ctx, base, docs, periods...)
	}
	if err != nil {
		return nil, err
	}

	p.persistSummarized(ctx, build.Summarized)
	if err := p.storeTimeline(ctx, build.Timeline); err != nil {
		return nil, err
	}

	if !doc.Dated() {
		return &build.Timeline, fmt.Errorf("document %s is not on the timeline: %w", doc.ID, domain.ErrUndated)
	}
	return &build.Timeline, nil
}

// runBatch processes ids on a pool of ConcurrencyLimit workers. Cancelling
// ctx stops handing out documents; documents already started finish on a
// context detached from cancellation. The report is marked cancelled only
// when some documents were never handed out. A chunking error stops the
// batch and is returned.
func (p *Processor) runBatch(ctx context.Context, ids []string, report *domain.BatchReport) error {
	workers := p.cfg.ConcurrencyLimit
	if workers < 1 {
		workers = 1
	}

	work := context.WithoutCancel(ctx)
	feedCtx, stop := context.WithCancel(ctx)
	defer stop()

	var (
		mu    sync.Mutex
		fatal error
		wg    sync.WaitGroup
		jobs  = make(chan string)
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				result, err := p.process(work, id, false)

				mu.Lock()
				switch {
				case err == nil && result.Skipped:
					report.Skipped = append(report.Skipped, domain.SkippedDocument{ID: id, Reason: result.Reason})
				case err == nil:
					report.Succeeded = append(report.Succeeded, id)
				case errors.Is(err, domain.ErrChunking):
					if fatal == nil {
						fatal = err
					}
					stop()
				default:
					report.Failed = append(report.Failed, domain.FailedDocument{
						ID:     id,
						Stage:  domain.StageOf(err, domain.StageFetched),
						Reason: err.Error(),
					})
				}
				mu.Unlock()
			}
		}()
	}

	dispatched := 0
feed:
	for _, id := range ids {
		if feedCtx.Err() != nil {
			break
		}
		select {
		case <-feedCtx.Done():
			break feed
		case jobs <- id:
			dispatched++
		}
	}
	close(jobs)
	wg.Wait()

	if fatal != nil {
		logger.Error("run %s: stopped: %v", report.RunID, fatal)
		return fatal
	}

	if dispatched < len(ids) {
		report.Cancelled = true
		for _, id := range ids[dispatched:] {
			report.Skipped = append(report.Skipped, domain.SkippedDocument{ID: id, Reason: domain.SkipCancelled})
		}
		logger.Warn("run %s: cancelled after %d of %d document(s)", report.RunID, dispatched, len(ids))
	}

	return nil
}

// rebuildTimeline assembles and stores the case timeline after a batch.
func (p *Processor) rebuildTimeline(ctx context.Context, report *domain.BatchReport) error {
	docs, err := p.listDocuments(ctx, report.CaseID)
	if err != nil {
		return err
	}
	previous, err := p.getTimeline(ctx, report.CaseID)
	if err != nil {
		return err
	}

	build, err := p.builder.Build(ctx, report.CaseID, docs, previous)
	if err != nil {
		if ctx.Err() != nil {
			report.Cancelled = true
			logger.Warn("run %s: cancelled while building the timeline", report.RunID)
			return nil
		}
		return err
	}
	report.EntryFailures = build.Failures

	p.persistSummarized(ctx, build.Summarized)
	if err := p.storeTimeline(ctx, build.Timeline); err != nil {
		return err
	}
	report.TimelineBuilt = true

	logger.Info("run %s: timeline for case %s has %d entries", report.RunID, report.CaseID, len(build.Timeline.Entries))
	return nil
}

// process runs one document through the state machine. Unless force is
// set, a document persisted for its current content is skipped. Failures
// are stored on the document and returned as pipeline errors.
func (p *Processor) process(ctx context.Context, id string, force bool) (domain.DocumentResult, error) {
	doc, err := p.getDocument(ctx, id)
	if err != nil {
		return domain.DocumentResult{}, err
	}

	if !force && doc.Unchanged() {
		logger.Debug("process: document %s unchanged, skipping", id)
		return domain.DocumentResult{Document: *doc, Skipped: true, Reason: domain.SkipUnchanged}, nil
	}

	current := doc.WithStatus(domain.Status{Stage: domain.StageFetched, UpdatedAt: p.now().UTC()})

	if err := domain.ValidateContent(current.Content); err != nil {
		return p.fail(ctx, current, domain.NewParsingError(id, "content unusable", err))
	}
	if current, err = p.advance(current, domain.StageParsed); err != nil {
		return p.fail(ctx, current, err)
	}

	chunks, err := p.chunker.Chunk(ctx, &current)
	if err != nil {
		if errors.Is(err, domain.ErrChunking) {
			return domain.DocumentResult{Document: current}, err
		}
		return p.fail(ctx, current, err)
	}
	if current, err = p.advance(current, domain.StageChunked); err != nil {
		return p.fail(ctx, current, err)
	}
	logger.Debug("process: document %s has %d chunk(s)", id, len(chunks))

	summary, err := p.summarizer.SummarizeChunks(ctx, &current, chunks)
	if err != nil {
		return p.fail(ctx, current, err)
	}
	current = current.WithSummary(summary, p.now().UTC())
	if current, err = p.advance(current, domain.StageSummarized); err != nil {
		return p.fail(ctx, current, err)
	}

	if current, err = p.advance(current, domain.StagePersisted); err != nil {
		return p.fail(ctx, current, err)
	}
	if err := p.storeDocument(ctx, current, domain.StagePersisted); err != nil {
		failed := current.WithStatus(current.Status.Fail(domain.StagePersisted, err.Error(), p.now().UTC()))
		return domain.DocumentResult{Document: failed}, err
	}

	logger.Debug("process: document %s persisted", id)
	return domain.DocumentResult{Document: current}, nil
}

// advance moves the document to the next stage.
func (p *Processor) advance(doc domain.Document, next domain.Stage) (domain.Document, error) {
	status, err := doc.Status.Advance(next, p.now().UTC())
	if err != nil {
		return doc, err
	}
	return doc.WithStatus(status), nil
}

// fail records a failure on the document and stores it when possible.
func (p *Processor) fail(ctx context.Context, doc domain.Document, cause error) (domain.DocumentResult, error) {
	attempted := domain.StageOf(cause, doc.Status.Stage)
	failed := doc.WithStatus(doc.Status.Fail(attempted, cause.Error(), p.now().UTC()))

	logger.Warn("process: document %s failed at %s: %v", doc.ID, attempted, cause)
	if err := p.storeDocument(ctx, failed, attempted); err != nil {
		logger.Error("process: document %s failure could not be recorded: %v", doc.ID, err)
	}

	return domain.DocumentResult{Document: failed}, cause
}

// persistSummarized stores documents summarised during a timeline build.
func (p *Processor) persistSummarized(ctx context.Context, docs []domain.Document) {
	for _, doc := range docs {
		persisted := doc.WithStatus(domain.Status{Stage: domain.StagePersisted, UpdatedAt: p.now().UTC()})
		if err := p.storeDocument(ctx, persisted, domain.StagePersisted); err != nil {
			logger.Error("timeline: summary of document %s not stored: %v", doc.ID, err)
		}
	}
}

// Repository access with retries.

func (p *Processor) getDocument(ctx context.Context, id string) (*domain.Document, error) {
	var doc *domain.Document
	err := p.withRepoRetry(ctx, "get document "+id, func() error {
		var err error
		doc, err = p.repo.GetDocument(ctx, id)
		return err
	})
	if err != nil {
		return nil, domain.NewRepositoryError(domain.StageFetched, id, "get document", err)
	}
	return doc, nil
}

func (p *Processor) storeDocument(ctx context.Context, doc domain.Document, stage domain.Stage) error {
	err := p.withRepoRetry(ctx, "store document "+doc.ID, func() error {
		return p.repo.StoreDocument(ctx, doc)
	})
	if err != nil {
		return domain.NewRepositoryError(stage, doc.ID, "store document", err)
	}
	return nil
}

func (p *Processor) listDocuments(ctx context.Context, caseID string) ([]domain.Document, error) {
	var docs []domain.Document
	err := p.withRepoRetry(ctx, "list documents of "+caseID, func() error {
		var err error
		docs, err = p.repo.ListDocuments(ctx, caseID)
		return err
	})
	if err != nil {
		return nil, domain.NewRepositoryError(domain.StageNone, "", "list documents of case "+caseID, err)
	}
	return docs, nil
}

// getTimeline returns the stored timeline, or nil when there is none.
func (p *Processor) getTimeline(ctx context.Context, caseID string) (*domain.Timeline, error) {
	var timeline *domain.Timeline
	err := p.withRepoRetry(ctx, "get timeline "+caseID, func() error {
		var err error
		timeline, err = p.repo.GetTimeline(ctx, caseID)
		return err
	})
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewRepositoryError(domain.StageNone, "", "get timeline "+caseID, err)
	}
	return timeline, nil
}

func (p *Processor) storeTimeline(ctx context.Context, timeline domain.Timeline) error {
	err := p.withRepoRetry(ctx, "store timeline "+timeline.CaseID, func() error {
		return p.repo.StoreTimeline(ctx, timeline)
	})
	if err != nil {
		return domain.NewRepositoryError(domain.StageNone, "", "store timeline "+timeline.CaseID, err)
	}
	return nil
}

// withRepoRetry runs fn up to RepositoryRetries times. Not-found results
// and cancellation are returned at once.
func (p *Processor) withRepoRetry(ctx context.Context, op string, fn func() error) error {
	attempts := p.cfg.RepositoryRetries
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn()
		if err == nil || errors.Is(err, domain.ErrNotFound) || ctx.Err() != nil || attempt == attempts {
			return err
		}
		logger.Warn("repository: %s attempt %d/%d failed: %v", op, attempt, attempts, err)
		if serr := p.sleep(ctx, repoRetryDelay*time.Duration(attempt)); serr != nil {
			return err
		}
	}
	return err
}

// finish stamps and orders the report.
func (p *Processor) finish(report *domain.BatchReport) {
	report.FinishedAt = p.now().UTC()
	sort.Strings(report.Succeeded)
	sort.Slice(report.Skipped, func(i, j int) bool { return report.Skipped[i].ID < report.Skipped[j].ID })
	sort.Slice(report.Failed, func(i, j int) bool { return report.Failed[i].ID < report.Failed[j].ID })
}
