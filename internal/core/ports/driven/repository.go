package driven

import (
	"context"

	"github.com/custodia-labs/tijdlijn/internal/core/domain"
)

// DocumentRepository persists documents.
// Lookups of unknown ids return domain.ErrNotFound.
type DocumentRepository interface {
	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// StoreDocument creates or replaces a document.
	StoreDocument(ctx context.Context, doc domain.Document) error

	// ListDocuments returns all documents of a case ordered by publication date,
	// undated documents last.
	ListDocuments(ctx context.Context, caseID string) ([]domain.Document, error)

	// ListCaseIDs returns every case with at least one document, sorted.
	ListCaseIDs(ctx context.Context) ([]string, error)
}

// TimelineRepository persists timelines.
type TimelineRepository interface {
	// GetTimeline retrieves the timeline of a case.
	GetTimeline(ctx context.Context, caseID string) (*domain.Timeline, error)

	// StoreTimeline creates or replaces a timeline with all its entries.
	StoreTimeline(ctx context.Context, timeline domain.Timeline) error

	// ListTimelines returns all stored timelines, sorted by case ID.
	ListTimelines(ctx context.Context) ([]domain.Timeline, error)
}

// Repository combines document and timeline persistence.
type Repository interface {
	DocumentRepository
	TimelineRepository
}
