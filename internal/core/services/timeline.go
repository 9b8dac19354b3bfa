package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/tijdlijn/internal/core/domain"
	"github.com/custodia-labs/tijdlijn/internal/core/ports/driven"
	"github.com/custodia-labs/tijdlijn/internal/core/ports/driving"
	"github.com/custodia-labs/tijdlijn/internal/logger"
)

// Ensure TimelineService implements the interface.
var _ driving.TimelineService = (*TimelineService)(nil)

// timelineSummarizer is the part of the Summarizer the builder uses.
type timelineSummarizer interface {
	SummarizeDocument(ctx context.Context, doc *domain.Document) (string, error)
	ReduceTimelineEntry(ctx context.Context, caseID, period string, summaries []string) (string, error)
	DescribeTimeline(ctx context.Context, timeline domain.Timeline) (string, error)
}

// BuildResult is the outcome of building or updating a timeline.
type BuildResult struct {
	// Timeline is the assembled timeline.
	Timeline domain.Timeline

	// Failures lists periods whose entry could not be recomputed. The
	// previous entry is kept for those periods when there was one.
	Failures []domain.EntryFailure

	// Summarized holds documents that had no summary and were summarised
	// during the build. Callers persist them.
	Summarized []domain.Document
}

// TimelineBuilder groups dated documents into timeline entries and reduces
// each group's summaries into an entry summary.
type TimelineBuilder struct {
	summarizer  timelineSummarizer
	granularity domain.DateGranularity
	describe    bool
	concurrency int
	now         func() time.Time
}

// NewTimelineBuilder creates a timeline builder.
func NewTimelineBuilder(summarizer timelineSummarizer, cfg domain.PipelineConfig) *TimelineBuilder {
	granularity := cfg.DateGranularity
	if !granularity.IsValid() {
		granularity = domain.GranularityDay
	}
	return &TimelineBuilder{
		summarizer:  summarizer,
		granularity: granularity,
		describe:    cfg.DescribeTimeline,
		concurrency: cfg.ConcurrencyLimit,
		now:         time.Now,
	}
}

// Granularity returns the date grouping used for entries.
func (b *TimelineBuilder) Granularity() domain.DateGranularity {
	return b.granularity
}

// Build assembles the timeline of a case from its documents. Undated
// documents are left out. When previous is given, its entries stand in
// for periods that fail to reduce and its description is kept when a new
// one cannot be generated.
//
// Only cancellation is returned as an error; entry failures are reported
// in the result.
func (b *TimelineBuilder) Build(
	ctx context.Context,
	caseID string,
	docs []domain.Document,
	previous *domain.Timeline,
) (*BuildResult, error) {
	groups := b.group(docs)
	periods := make([]string, 0, len(groups))
	for period := range groups {
		periods = append(periods, period)
	}
	sort.Strings(periods)

	computed, err := b.computeEntries(ctx, caseID, groups, periods)
	if err != nil {
		return nil, err
	}

	result := &BuildResult{
		Timeline: domain.Timeline{
			CaseID:      caseID,
			Granularity: b.granularity,
			GeneratedAt: b.now().UTC(),
		},
	}
	if previous != nil && previous.Granularity == b.granularity {
		result.Timeline.Description = previous.Description
	}

	for _, period := range periods {
		c := computed[period]
		result.Summarized = append(result.Summarized, c.summarized...)
		if c.err == nil {
			result.Timeline.Entries = append(result.Timeline.Entries, c.entry)
			continue
		}

		result.Failures = append(result.Failures, domain.EntryFailure{Period: period, Reason: c.err.Error()})
		if previous != nil && previous.Granularity == b.granularity {
			if old, ok := previous.Entry(period); ok {
				logger.Warn("timeline: case %s keeps previous entry %s: %v", caseID, period, c.err)
				result.Timeline.Entries = append(result.Timeline.Entries, old)
				continue
			}
		}
		logger.Warn("timeline: case %s omits entry %s: %v", caseID, period, c.err)
	}
	domain.SortEntries(result.Timeline.Entries)

	b.refreshDescription(ctx, &result.Timeline)

	return result, nil
}

// UpdateEntries recomputes the entries for the given periods from docs and
// carries every other entry of base over unchanged. A period without dated
// documents is removed. The first entry failure is returned as an error and
// base is left as it was.
func (b *TimelineBuilder) UpdateEntries(
	ctx context.Context,
	base domain.Timeline,
	docs []domain.Document,
	periods ...string,
) (*BuildResult, error) {
	groups := b.group(docs)
	computed, err := b.computeEntries(ctx, base.CaseID, groups, periods)
	if err != nil {
		return nil, err
	}

	result := &BuildResult{Timeline: base}
	result.Timeline.Granularity = b.granularity
	for _, period := range periods {
		if _, ok := groups[period]; !ok {
			logger.Debug("timeline: case %s entry %s has no documents left", base.CaseID, period)
			result.Timeline = result.Timeline.WithoutEntry(period)
			continue
		}

		c := computed[period]
		result.Summarized = append(result.Summarized, c.summarized...)
		if c.err != nil {
			return result, c.err
		}
		result.Timeline = result.Timeline.WithEntry(c.entry)
	}
	result.Timeline.GeneratedAt = b.now().UTC()

	b.refreshDescription(ctx, &result.Timeline)

	return result, nil
}

// group buckets dated documents by period, ordered by date then id.
func (b *TimelineBuilder) group(docs []domain.Document) map[string][]domain.Document {
	groups := make(map[string][]domain.Document)
	for _, doc := range docs {
		if !doc.Dated() {
			continue
		}
		period := b.granularity.Period(*doc.Metadata.PublishedAt)
		groups[period] = append(groups[period], doc)
	}
	for _, group := range groups {
		sort.SliceStable(group, func(i, j int) bool {
			di, dj := *group[i].Metadata.PublishedAt, *group[j].Metadata.PublishedAt
			if !di.Equal(dj) {
				return di.Before(dj)
			}
			return group[i].ID < group[j].ID
		})
	}
	return groups
}

// computedEntry is the outcome for one period.
type computedEntry struct {
	entry      domain.TimelineEntry
	summarized []domain.Document
	err        error
}

// computeEntries reduces the requested periods concurrently.
// Entry failures are recorded per period; only cancellation is returned.
func (b *TimelineBuilder) computeEntries(
	ctx context.Context,
	caseID string,
	groups map[string][]domain.Document,
	periods []string,
) (map[string]computedEntry, error) {
	var mu sync.Mutex
	out := make(map[string]computedEntry, len(periods))

	err := forEachConcurrent(ctx, b.concurrency, len(periods), func(ctx context.Context, i int) error {
		period := periods[i]
		group, ok := groups[period]
		if !ok {
			return nil
		}
		c := b.computeEntry(ctx, caseID, period, group)
		mu.Lock()
		out[period] = c
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

// computeEntry builds one entry, summarising documents that lack a summary.
func (b *TimelineBuilder) computeEntry(
	ctx context.Context,
	caseID, period string,
	group []domain.Document,
) computedEntry {
	var c computedEntry

	summaries := make([]string, 0, len(group))
	ids := make([]string, 0, len(group))
	for _, doc := range group {
		ids = append(ids, doc.ID)
		if doc.Summary != "" {
			summaries = append(summaries, doc.Summary)
			continue
		}
		if doc.Status.Stage == domain.StageFailed {
			c.err = domain.NewSummarizationError(doc.ID,
				fmt.Sprintf("document failed at %s: %s", doc.Status.FailedStage, doc.Status.Reason), nil)
			return c
		}

		logger.Debug("timeline: summarising document %s for entry %s", doc.ID, period)
		summary, err := b.summarizer.SummarizeDocument(ctx, &doc)
		if err != nil {
			c.err = err
			return c
		}
		now := b.now().UTC()
		summarized := doc.WithSummary(summary, now).WithStatus(domain.Status{Stage: domain.StageSummarized, UpdatedAt: now})
		c.summarized = append(c.summarized, summarized)
		summaries = append(summaries, summary)
	}

	summary, err := b.summarizer.ReduceTimelineEntry(ctx, caseID, period, summaries)
	if err != nil {
		c.err = err
		return c
	}

	sort.Strings(ids)
	c.entry = domain.TimelineEntry{
		Period:      period,
		Date:        b.granularity.Truncate(*group[0].Metadata.PublishedAt),
		DocumentIDs: ids,
		Summary:     summary,
	}
	return c
}

// refreshDescription regenerates the description when enabled, keeping
// the previous one on failure.
func (b *TimelineBuilder) refreshDescription(ctx context.Context, timeline *domain.Timeline) {
	if !b.describe || len(timeline.Entries) == 0 {
		return
	}
	description, err := b.summarizer.DescribeTimeline(ctx, *timeline)
	if err != nil {
		logger.Warn("timeline: description for case %s not refreshed: %v", timeline.CaseID, err)
		return
	}
	timeline.Description = description
}

// TimelineService provides read access to stored timelines.
type TimelineService struct {
	repo driven.TimelineRepository
}

// NewTimelineService creates a timeline service.
func NewTimelineService(repo driven.TimelineRepository) *TimelineService {
	return &TimelineService{repo: repo}
}

// Get returns the timeline of a case.
func (s *TimelineService) Get(ctx context.Context, caseID string) (*domain.Timeline, error) {
	if caseID == "" {
		return nil, fmt.Errorf("%w: case id is required", domain.ErrInvalidInput)
	}
	timeline, err := s.repo.GetTimeline(ctx, caseID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("timeline %s: %w", caseID, err)
		}
		return nil, domain.NewRepositoryError(domain.StageNone, "", "get timeline "+caseID, err)
	}
	return timeline, nil
}

// List returns all stored timelines.
func (s *TimelineService) List(ctx context.Context) ([]domain.Timeline, error) {
	timelines, err := s.repo.ListTimelines(ctx)
	if err != nil {
		return nil, domain.NewRepositoryError(domain.StageNone, "", "list timelines", err)
	}
	return timelines, nil
}
