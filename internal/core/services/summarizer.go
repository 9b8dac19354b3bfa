package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/tijdlijn/internal/core/domain"
	"github.com/custodia-labs/tijdlijn/internal/core/ports/driven"
	"github.com/custodia-labs/tijdlijn/internal/logger"
)

// maxReduceDepth bounds the number of reduction levels for one reduction.
const maxReduceDepth = 8

// summarySeparator joins summaries in reduction prompts.
const summarySeparator = domain.SummarySeparator

// undatedLabel is used in prompts for documents without a date.
const undatedLabel = "onbekend"

// Summarizer produces chunk, document, timeline entry and timeline
// summaries through the completion service.
//
// Every completion call passes through one gate shared by all callers:
// a semaphore of ConcurrencyLimit slots and a rate limiter. Transient
// failures are retried with exponential backoff.
type Summarizer struct {
	llm     driven.CompletionService
	chunker driven.Chunker
	prompts driven.PromptStore
	cfg     domain.PipelineConfig

	gate    chan struct{}
	limiter *rate.Limiter

	sleep  func(ctx context.Context, d time.Duration) error
	jitter func(d time.Duration) time.Duration
}

// NewSummarizer creates a summarizer. The chunker is used to split
// summaries that are too large to reduce in one call.
func NewSummarizer(
	llm driven.CompletionService,
	chunker driven.Chunker,
	prompts driven.PromptStore,
	cfg domain.PipelineConfig,
) *Summarizer {
	limit := cfg.ConcurrencyLimit
	if limit < 1 {
		limit = 1
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}

	return &Summarizer{
		llm:     llm,
		chunker: chunker,
		prompts: prompts,
		cfg:     cfg,
		gate:    make(chan struct{}, limit),
		limiter: limiter,
		sleep:   sleepContext,
		jitter:  randomJitter,
	}
}

// SummarizeChunk summarises one chunk, grounded on the document metadata.
func (s *Summarizer) SummarizeChunk(ctx context.Context, doc *domain.Document, chunk domain.Chunk) (string, error) {
	title, date, docType := promptContext(doc)
	template := loadPrompt(s.prompts, driven.PromptChunkSummary, defaultChunkSummaryPrompt)
	prompt := fmt.Sprintf(template, title, date, docType, chunk.PromptText())

	return s.complete(ctx, doc.ID, prompt)
}

// SummarizeChunks summarises all chunks of a document concurrently and
// reduces the results in chunk order.
func (s *Summarizer) SummarizeChunks(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) (string, error) {
	if len(chunks) == 0 {
		return "", domain.NewSummarizationError(doc.ID, "document has no chunks", domain.ErrInvalidInput)
	}

	ordered := make([]domain.Chunk, len(chunks))
	copy(ordered, chunks)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	summaries := make([]string, len(ordered))
	err := forEachConcurrent(ctx, s.cfg.ConcurrencyLimit, len(ordered), func(ctx context.Context, i int) error {
		summary, err := s.SummarizeChunk(ctx, doc, ordered[i])
		if err != nil {
			return err
		}
		summaries[i] = summary
		return nil
	})
	if err != nil {
		return "", s.asSummarizationError(doc.ID, "summarise chunks", err)
	}

	logger.Debug("summarizer: document %s has %d chunk summaries", doc.ID, len(summaries))
	return s.ReduceDocument(ctx, doc, summaries)
}

// SummarizeDocument chunks the document content and summarises it.
func (s *Summarizer) SummarizeDocument(ctx context.Context, doc *domain.Document) (string, error) {
	chunks, err := s.chunker.Chunk(ctx, doc)
	if err != nil {
		return "", err
	}
	return s.SummarizeChunks(ctx, doc, chunks)
}

// ReduceDocument combines ordered chunk summaries into one document summary.
// A single summary is returned unchanged.
func (s *Summarizer) ReduceDocument(ctx context.Context, doc *domain.Document, summaries []string) (string, error) {
	title, date, docType := promptContext(doc)
	template := loadPrompt(s.prompts, driven.PromptDocumentReduce, defaultDocumentReducePrompt)

	return s.reduce(ctx, doc.ID, summaries, func(ctx context.Context, joined string) (string, error) {
		return s.complete(ctx, doc.ID, fmt.Sprintf(template, title, date, docType, joined))
	})
}

// ReduceTimelineEntry combines the summaries of documents sharing a period.
// A single summary is returned unchanged.
func (s *Summarizer) ReduceTimelineEntry(ctx context.Context, caseID, period string, summaries []string) (string, error) {
	template := loadPrompt(s.prompts, driven.PromptEntryReduce, defaultEntryReducePrompt)
	id := caseID + "@" + period

	return s.reduce(ctx, id, summaries, func(ctx context.Context, joined string) (string, error) {
		return s.complete(ctx, id, fmt.Sprintf(template, caseID, period, joined))
	})
}

// DescribeTimeline writes an introduction over all entry summaries.
func (s *Summarizer) DescribeTimeline(ctx context.Context, timeline domain.Timeline) (string, error) {
	items := make([]string, 0, len(timeline.Entries))
	for _, e := range timeline.Entries {
		if strings.TrimSpace(e.Summary) == "" {
			continue
		}
		items = append(items, e.Period+": "+e.Summary)
	}
	if len(items) == 0 {
		return "", domain.NewSummarizationError("", "timeline "+timeline.CaseID+" has no entry summaries", domain.ErrInvalidInput)
	}

	id := timeline.CaseID
	entryTemplate := loadPrompt(s.prompts, driven.PromptEntryReduce, defaultEntryReducePrompt)
	combine := func(ctx context.Context, joined string) (string, error) {
		return s.complete(ctx, id, fmt.Sprintf(entryTemplate, id, "meerdere data", joined))
	}

	for depth := 0; !s.fitsWindow(items); depth++ {
		if depth >= maxReduceDepth {
			return "", domain.NewSummarizationError("", "timeline description input did not converge", nil)
		}
		next, err := s.reduceLevel(ctx, id, items, combine)
		if err != nil {
			return "", err
		}
		items = next
	}

	template := loadPrompt(s.prompts, driven.PromptTimelineDescription, defaultTimelineDescriptionPrompt)
	return s.complete(ctx, id, fmt.Sprintf(template, id, strings.Join(items, summarySeparator)))
}

// reduce combines items level by level until one remains.
func (s *Summarizer) reduce(
	ctx context.Context,
	id string,
	items []string,
	combine func(ctx context.Context, joined string) (string, error),
) (string, error) {
	items = nonEmpty(items)
	switch len(items) {
	case 0:
		return "", domain.NewSummarizationError(id, "nothing to reduce", domain.ErrInvalidInput)
	case 1:
		return items[0], nil
	}

	for depth := 0; depth < maxReduceDepth; depth++ {
		next, err := s.reduceLevel(ctx, id, items, combine)
		if err != nil {
			return "", err
		}
		if len(next) == 1 {
			return next[0], nil
		}
		logger.Debug("summarizer: %s reduction level %d left %d item(s)", id, depth+1, len(next))
		items = next
	}

	return "", domain.NewSummarizationError(id,
		fmt.Sprintf("reduction did not converge within %d levels", maxReduceDepth), nil)
}

// reduceLevel packs items into windows that fit the input limit and
// combines each window with one call. Items that do not fit on their own
// are re-chunked first. A window left with a single item that is already
// summary sized is carried to the next level unchanged, where it pairs
// with its neighbour; summarising it alone would not shrink anything.
func (s *Summarizer) reduceLevel(
	ctx context.Context,
	id string,
	items []string,
	combine func(ctx context.Context, joined string) (string, error),
) ([]string, error) {
	fitted, err := s.splitOversized(ctx, id, items)
	if err != nil {
		return nil, err
	}

	windows := s.windows(fitted)
	out := make([]string, len(windows))
	err = forEachConcurrent(ctx, s.cfg.ConcurrencyLimit, len(windows), func(ctx context.Context, i int) error {
		if w := windows[i]; len(w) == 1 && s.cfg.SizeUnit.Measure(w[0]) <= s.cfg.MaxSummarySize {
			out[i] = w[0]
			return nil
		}
		text, err := combine(ctx, strings.Join(windows[i], summarySeparator))
		if err != nil {
			return err
		}
		out[i] = text
		return nil
	})
	if err != nil {
		return nil, s.asSummarizationError(id, "reduce summaries", err)
	}

	return out, nil
}

// splitOversized replaces items larger than the input limit with their chunks.
func (s *Summarizer) splitOversized(ctx context.Context, id string, items []string) ([]string, error) {
	out := make([]string, 0, len(items))
	for i, item := range items {
		if s.cfg.SizeUnit.Measure(item) <= s.cfg.MaxChunkSize {
			out = append(out, item)
			continue
		}
		chunks, err := s.chunker.ChunkText(ctx, fmt.Sprintf("%s/reduce-%d", id, i), item)
		if err != nil {
			return nil, err
		}
		for _, c := range chunks {
			out = append(out, c.PromptText())
		}
	}
	return out, nil
}

// windows greedily groups consecutive items whose joined size fits the input limit.
func (s *Summarizer) windows(items []string) [][]string {
	var (
		out     [][]string
		current []string
	)
	for _, item := range items {
		candidate := append(append([]string(nil), current...), item)
		if len(current) > 0 && !s.fitsWindow(candidate) {
			out = append(out, current)
			current = []string{item}
			continue
		}
		current = candidate
	}
	if len(current) > 0 {
		out = append(out, current)
	}
	return out
}

// fitsWindow reports whether items fit in one reduction call.
func (s *Summarizer) fitsWindow(items []string) bool {
	return s.cfg.SizeUnit.Measure(strings.Join(items, summarySeparator)) <= s.cfg.MaxChunkSize
}

// complete issues one completion with retries.
// Final failures are summarization errors.
func (s *Summarizer) complete(ctx context.Context, id, prompt string) (string, error) {
	opts := driven.CompletionOptions{
		MaxOutputSize: s.cfg.SizeUnit.Tokens(s.cfg.MaxSummarySize),
		Temperature:   s.cfg.Temperature,
	}

	attempts := s.cfg.MaxRetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		text, err := s.call(ctx, prompt, opts)
		if err == nil {
			text = strings.TrimSpace(text)
			if text != "" {
				if attempt > 1 {
					logger.Debug("summarizer: %s succeeded on attempt %d", id, attempt)
				}
				return text, nil
			}
			err = fmt.Errorf("%w: empty completion", domain.ErrUnrecoverable)
		}
		lastErr = err

		if ctx.Err() != nil || !domain.IsTransient(err) || attempt == attempts {
			return "", domain.NewSummarizationError(id,
				fmt.Sprintf("completion failed after %d attempt(s)", attempt), err)
		}

		delay := s.retryDelay(attempt, err)
		logger.Warn("summarizer: %s attempt %d/%d failed (%v), retrying in %s", id, attempt, attempts, err, delay)
		if err := s.sleep(ctx, delay); err != nil {
			return "", domain.NewSummarizationError(id, "retry interrupted", err)
		}
	}

	return "", domain.NewSummarizationError(id, "completion failed", lastErr)
}

// call passes one completion through the gate.
func (s *Summarizer) call(ctx context.Context, prompt string, opts driven.CompletionOptions) (string, error) {
	if s.llm == nil {
		return "", fmt.Errorf("%w: no completion service configured", domain.ErrLLMUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	select {
	case s.gate <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-s.gate }()

	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}

	return s.llm.Complete(ctx, prompt, opts)
}

// retryDelay returns the backoff delay, raised to a Retry-After hint.
func (s *Summarizer) retryDelay(attempt int, err error) time.Duration {
	delay := backoffDelay(s.cfg.BackoffBase, attempt, s.jitter)

	var ra *domain.RetryAfterError
	if errors.As(err, &ra) && ra.After > delay {
		delay = ra.After
		if delay > maxRetryAfter {
			delay = maxRetryAfter
		}
	}
	return delay
}

// asSummarizationError keeps pipeline errors and wraps anything else.
func (s *Summarizer) asSummarizationError(id, reason string, err error) error {
	if _, ok := domain.KindOf(err); ok {
		return err
	}
	return domain.NewSummarizationError(id, reason, err)
}

// promptContext returns the metadata placed in prompts.
func promptContext(doc *domain.Document) (title, date, docType string) {
	title = doc.Metadata.Title
	if title == "" {
		title = doc.ID
	}
	date = undatedLabel
	if doc.Dated() {
		date = doc.Metadata.PublishedAt.Format("2006-01-02")
	}
	docType = doc.Metadata.DocType
	if docType == "" {
		docType = undatedLabel
	}
	return title, date, docType
}

func nonEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item) != "" {
			out = append(out, strings.TrimSpace(item))
		}
	}
	return out
}
