package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown provider or content type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrLLMUnavailable indicates the completion service is not configured.
	// Summarisation is disabled without it.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrInvalidTransition indicates an illegal processing state change.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrUndated indicates a document without a resolvable publication date.
	ErrUndated = errors.New("document has no resolvable date")

	// ErrCancelled indicates a run was stopped before all documents were processed.
	ErrCancelled = errors.New("run cancelled")

	// Content Errors.

	// ErrEmptyContent indicates the document has no extractable text.
	ErrEmptyContent = errors.New("empty content")

	// ErrUndecodable indicates the content is not valid UTF-8 text.
	ErrUndecodable = errors.New("content is not valid UTF-8")

	// Completion Errors.

	// ErrRateLimited indicates the completion API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrTimeout indicates the completion call timed out or the provider was unreachable.
	ErrTimeout = errors.New("timeout")

	// ErrUnrecoverable indicates a completion failure that retrying cannot fix
	// (authentication, malformed prompt, unknown model).
	ErrUnrecoverable = errors.New("unrecoverable completion error")
)

// IsTransient reports whether a completion error may succeed on retry.
func IsTransient(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTimeout)
}

// RetryAfterError carries a provider's hint for when to retry.
type RetryAfterError struct {
	After time.Duration
	Err   error
}

// Error implements error.
func (e *RetryAfterError) Error() string {
	return fmt.Sprintf("%v (retry after %s)", e.Err, e.After)
}

// Unwrap returns the wrapped error.
func (e *RetryAfterError) Unwrap() error {
	return e.Err
}

// ErrorKind tags pipeline failures.
type ErrorKind string

// Pipeline error kinds.
const (
	// KindParsing means the content is unusable.
	KindParsing ErrorKind = "parsing"

	// KindChunking means the configuration produces no valid split. Fatal for a run.
	KindChunking ErrorKind = "chunking"

	// KindSummarization means the completion service failed after retries.
	KindSummarization ErrorKind = "summarization"

	// KindRepository means storage was unreachable or rejected the operation.
	KindRepository ErrorKind = "repository"
)

// Sentinels for matching pipeline errors by kind with errors.Is.
var (
	ErrParsing       = &PipelineError{Kind: KindParsing}
	ErrChunking      = &PipelineError{Kind: KindChunking}
	ErrSummarization = &PipelineError{Kind: KindSummarization}
	ErrRepository    = &PipelineError{Kind: KindRepository}
)

// PipelineError is a tagged pipeline failure with its context.
type PipelineError struct {
	// Kind classifies the failure.
	Kind ErrorKind

	// Stage is the processing stage that was attempted, if any.
	Stage Stage

	// DocumentID identifies the affected document, if any.
	DocumentID string

	// Reason is a human readable description.
	Reason string

	// Err is the underlying cause.
	Err error
}

// Error implements error.
func (e *PipelineError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(" error")
	if e.DocumentID != "" {
		b.WriteString(" [")
		b.WriteString(e.DocumentID)
		b.WriteString("]")
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Is matches any PipelineError of the same kind, so the kind sentinels
// work with errors.Is.
func (e *PipelineError) Is(target error) bool {
	t, ok := target.(*PipelineError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// NewParsingError reports unusable content.
func NewParsingError(docID, reason string, err error) *PipelineError {
	return &PipelineError{Kind: KindParsing, Stage: StageParsed, DocumentID: docID, Reason: reason, Err: err}
}

// NewChunkingError reports a configuration that cannot produce chunks.
func NewChunkingError(reason string) *PipelineError {
	return &PipelineError{Kind: KindChunking, Stage: StageChunked, Reason: reason}
}

// NewSummarizationError reports a completion failure after retries.
func NewSummarizationError(docID, reason string, err error) *PipelineError {
	return &PipelineError{Kind: KindSummarization, Stage: StageSummarized, DocumentID: docID, Reason: reason, Err: err}
}

// NewRepositoryError reports a storage failure during stage.
func NewRepositoryError(stage Stage, docID, reason string, err error) *PipelineError {
	return &PipelineError{Kind: KindRepository, Stage: stage, DocumentID: docID, Reason: reason, Err: err}
}

// KindOf returns the kind of the first PipelineError in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return "", false
}

// StageOf returns the stage recorded on the first PipelineError in err's chain,
// or fallback when none is recorded.
func StageOf(err error, fallback Stage) Stage {
	var pe *PipelineError
	if errors.As(err, &pe) && pe.Stage != StageNone {
		return pe.Stage
	}
	return fallback
}
