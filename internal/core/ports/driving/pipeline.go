package driving

import (
	"context"

	"github.com/custodia-labs/tijdlijn/internal/core/domain"
)

// PipelineService drives documents through summarisation and builds timelines.
type PipelineService interface {
	// RunCase processes every document of a case and rebuilds its timeline.
	// Per-document failures are reported, not returned; only configuration
	// defects and cancellation before any work produce an error.
	RunCase(ctx context.Context, caseID string) (*domain.BatchReport, error)

	// RunAll runs every case in the corpus.
	RunAll(ctx context.Context) ([]domain.BatchReport, error)

	// ProcessDocument runs a single document through the pipeline without
	// touching its timeline.
	ProcessDocument(ctx context.Context, documentID string) (*domain.DocumentResult, error)

	// UpdateDocument re-summarises one document and recomputes only the
	// timeline entry that contains it.
	UpdateDocument(ctx context.Context, caseID, documentID string) (*domain.Timeline, error)
}
