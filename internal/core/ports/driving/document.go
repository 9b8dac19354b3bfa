package driving

import (
	"context"

	"github.com/custodia-labs/tijdlijn/internal/core/domain"
	"github.com/custodia-labs/tijdlijn/internal/core/ports/driven"
)

// DocumentService manages stored documents and ingestion of scraped records.
type DocumentService interface {
	// Get retrieves a document by ID.
	Get(ctx context.Context, documentID string) (*domain.Document, error)

	// ListByCase returns all documents of a case.
	ListByCase(ctx context.Context, caseID string) ([]domain.Document, error)

	// ListCases returns all case IDs.
	ListCases(ctx context.Context) ([]string, error)

	// Ingest normalises and stores one scraped record.
	// Returns the stored document and whether its content or metadata changed.
	Ingest(ctx context.Context, raw domain.RawDocument) (*domain.Document, bool, error)

	// Import ingests every record a connector yields.
	Import(ctx context.Context, conn driven.Connector) (*domain.IngestReport, error)

	// Watch ingests records as the connector reports them and calls onChange
	// for each stored document that changed. Blocks until ctx is cancelled.
	Watch(ctx context.Context, conn driven.Connector, onChange func(domain.Document)) error
}
