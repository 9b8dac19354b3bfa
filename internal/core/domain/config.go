package domain

import (
	"fmt"
	"time"
)

// Default pipeline configuration values.
const (
	DefaultMaxChunkSize      = 4000
	DefaultChunkOverlap      = 200
	DefaultMaxSummarySize    = 1000
	DefaultMaxRetryAttempts  = 3
	DefaultBackoffBase       = 2 * time.Second
	DefaultConcurrencyLimit  = 4
	DefaultRepositoryRetries = 3
	DefaultTemperature       = 0.3
)

// SummarySeparator joins summaries in one reduction input.
const SummarySeparator = "\n\n"

// PipelineConfig is passed to the processor and summarizer at construction.
type PipelineConfig struct {
	// MaxChunkSize is the largest chunk, and the largest reduction input,
	// in SizeUnit.
	MaxChunkSize int

	// ChunkOverlap is the fixed amount of text carried into the next chunk.
	ChunkOverlap int

	// MaxRetryAttempts bounds the attempts for one completion call.
	MaxRetryAttempts int

	// BackoffBase is the first retry delay; later delays double.
	BackoffBase time.Duration

	// ConcurrencyLimit bounds both the document worker pool and the number
	// of in-flight completion calls.
	ConcurrencyLimit int

	// DateGranularity groups documents into timeline entries.
	DateGranularity DateGranularity

	// SizeUnit is the unit for MaxChunkSize, ChunkOverlap and MaxSummarySize.
	SizeUnit SizeUnit

	// MaxSummarySize is the output size requested from the completion service.
	MaxSummarySize int

	// Temperature is the sampling temperature for completions.
	Temperature float64

	// RequestsPerMinute caps completion calls. Zero means unlimited.
	RequestsPerMinute int

	// RepositoryRetries is the fixed number of attempts for repository calls.
	RepositoryRetries int

	// DescribeTimeline enables the generated timeline introduction.
	DescribeTimeline bool
}

// DefaultPipelineConfig returns the default pipeline configuration.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		MaxChunkSize:      DefaultMaxChunkSize,
		ChunkOverlap:      DefaultChunkOverlap,
		MaxRetryAttempts:  DefaultMaxRetryAttempts,
		BackoffBase:       DefaultBackoffBase,
		ConcurrencyLimit:  DefaultConcurrencyLimit,
		DateGranularity:   GranularityDay,
		SizeUnit:          SizeUnitChars,
		MaxSummarySize:    DefaultMaxSummarySize,
		Temperature:       DefaultTemperature,
		RepositoryRetries: DefaultRepositoryRetries,
		DescribeTimeline:  true,
	}
}

// ValidateChunking checks the size configuration.
// Failures are chunking errors: no document could ever be split.
func (c PipelineConfig) ValidateChunking() error {
	switch {
	case c.MaxChunkSize <= 0:
		return NewChunkingError(fmt.Sprintf("max chunk size must be positive, got %d", c.MaxChunkSize))
	case c.ChunkOverlap < 0:
		return NewChunkingError(fmt.Sprintf("chunk overlap must not be negative, got %d", c.ChunkOverlap))
	case c.ChunkOverlap >= c.MaxChunkSize:
		return NewChunkingError(fmt.Sprintf("chunk overlap %d must be smaller than max chunk size %d",
			c.ChunkOverlap, c.MaxChunkSize))
	case !c.SizeUnit.IsValid():
		return NewChunkingError(fmt.Sprintf("unknown size unit %q", c.SizeUnit))
	}
	return nil
}

// Validate checks the whole configuration.
func (c PipelineConfig) Validate() error {
	if err := c.ValidateChunking(); err != nil {
		return err
	}
	// Two summaries and their separator must fit one reduction input,
	// otherwise a reduction level cannot shrink the number of items.
	if pair := 2*c.MaxSummarySize + c.SizeUnit.Measure(SummarySeparator); c.MaxSummarySize <= 0 || pair > c.MaxChunkSize {
		return NewChunkingError(fmt.Sprintf("max summary size %d must be positive and two summaries (%d %s) must fit max chunk size %d",
			c.MaxSummarySize, pair, c.SizeUnit, c.MaxChunkSize))
	}
	if c.MaxRetryAttempts < 1 {
		return fmt.Errorf("%w: max retry attempts must be at least 1", ErrInvalidInput)
	}
	if c.BackoffBase < 0 {
		return fmt.Errorf("%w: backoff base must not be negative", ErrInvalidInput)
	}
	if c.ConcurrencyLimit < 1 {
		return fmt.Errorf("%w: concurrency limit must be at least 1", ErrInvalidInput)
	}
	if !c.DateGranularity.IsValid() {
		return fmt.Errorf("%w: unknown date granularity %q", ErrInvalidInput, c.DateGranularity)
	}
	if c.RequestsPerMinute < 0 {
		return fmt.Errorf("%w: requests per minute must not be negative", ErrInvalidInput)
	}
	if c.RepositoryRetries < 1 {
		return fmt.Errorf("%w: repository retries must be at least 1", ErrInvalidInput)
	}
	return nil
}
