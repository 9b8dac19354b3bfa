package domain

import (
	"fmt"
	"time"
)

// Stage is a step in the per-document processing state machine.
//
//	FETCHED -> PARSED -> CHUNKED -> SUMMARIZED -> PERSISTED
//
// Any stage may move to FAILED. PERSISTED and FAILED are terminal for a run;
// a later run starts again from FETCHED.
type Stage string

// Processing stages.
const (
	StageNone       Stage = ""
	StageFetched    Stage = "fetched"
	StageParsed     Stage = "parsed"
	StageChunked    Stage = "chunked"
	StageSummarized Stage = "summarized"
	StagePersisted  Stage = "persisted"
	StageFailed     Stage = "failed"
)

// stageOrder gives the position of each non-failure stage.
var stageOrder = map[Stage]int{
	StageNone:       0,
	StageFetched:    1,
	StageParsed:     2,
	StageChunked:    3,
	StageSummarized: 4,
	StagePersisted:  5,
}

// IsValid returns true if the stage is recognised.
func (s Stage) IsValid() bool {
	if s == StageFailed {
		return true
	}
	_, ok := stageOrder[s]
	return ok
}

// IsTerminal reports whether the stage ends a run for the document.
func (s Stage) IsTerminal() bool {
	return s == StagePersisted || s == StageFailed
}

// CanAdvanceTo reports whether next is a legal transition from s.
func (s Stage) CanAdvanceTo(next Stage) bool {
	if next == StageFailed {
		return s != StageFailed
	}
	if next == StageFetched {
		// Every run re-enters the machine from FETCHED.
		return true
	}
	cur, ok := stageOrder[s]
	if !ok {
		return false
	}
	n, ok := stageOrder[next]
	return ok && n == cur+1
}

// String returns the string representation.
func (s Stage) String() string {
	if s == StageNone {
		return "new"
	}
	return string(s)
}

// Status is a document's position in the state machine.
type Status struct {
	// Stage is the current stage.
	Stage Stage

	// FailedStage is the stage that was being attempted when the document failed.
	FailedStage Stage

	// Reason describes the failure.
	Reason string

	// UpdatedAt is when the status last changed.
	UpdatedAt time.Time
}

// Advance returns the status after moving to next.
func (s Status) Advance(next Stage, at time.Time) (Status, error) {
	if !s.Stage.CanAdvanceTo(next) {
		return s, fmt.Errorf("%w: cannot move from %s to %s", ErrInvalidTransition, s.Stage, next)
	}
	return Status{Stage: next, UpdatedAt: at}, nil
}

// Fail returns a FAILED status recording the attempted stage and reason.
func (s Status) Fail(attempted Stage, reason string, at time.Time) Status {
	return Status{
		Stage:       StageFailed,
		FailedStage: attempted,
		Reason:      reason,
		UpdatedAt:   at,
	}
}

// SkippedDocument records a document that was not processed in a run.
type SkippedDocument struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// FailedDocument records a document that reached FAILED in a run.
type FailedDocument struct {
	ID     string `json:"id"`
	Stage  Stage  `json:"stage"`
	Reason string `json:"reason"`
}

// EntryFailure records a timeline entry that could not be recomputed.
type EntryFailure struct {
	Period string `json:"period"`
	Reason string `json:"reason"`
}

// Skip reasons reported in batch runs.
const (
	SkipUnchanged = "content unchanged since last summary"
	SkipUndated   = "no resolvable publication date"
	SkipCancelled = "run cancelled before the document was started"
)

// BatchReport summarises a batch run over one case.
type BatchReport struct {
	RunID         string            `json:"run_id"`
	CaseID        string            `json:"case_id"`
	Succeeded     []string          `json:"succeeded"`
	Skipped       []SkippedDocument `json:"skipped"`
	Failed        []FailedDocument  `json:"failed"`
	EntryFailures []EntryFailure    `json:"entry_failures,omitempty"`
	Cancelled     bool              `json:"cancelled"`
	TimelineBuilt bool              `json:"timeline_built"`
	StartedAt     time.Time         `json:"started_at"`
	FinishedAt    time.Time         `json:"finished_at"`
}

// Total returns the number of documents accounted for in the report.
func (r BatchReport) Total() int {
	return len(r.Succeeded) + len(r.Skipped) + len(r.Failed)
}

// HasFailures reports whether any document or entry failed.
func (r BatchReport) HasFailures() bool {
	return len(r.Failed) > 0 || len(r.EntryFailures) > 0
}

// DocumentResult is the outcome of processing a single document.
type DocumentResult struct {
	Document Document
	Skipped  bool
	Reason   string
}
