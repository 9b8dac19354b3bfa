package driven

import (
	"context"

	"github.com/custodia-labs/tijdlijn/internal/core/domain"
)

// Connector reads scraped records produced by the external scraper.
type Connector interface {
	// Type returns the connector type identifier.
	Type() string

	// Validate checks the connector is ready (e.g., the inbox path exists).
	Validate(ctx context.Context) error

	// FullSync reads all records.
	// Returns channels for documents and errors; both are closed when done.
	FullSync(ctx context.Context) (<-chan domain.RawDocument, <-chan error)

	// Watch listens for new or changed records until ctx is cancelled.
	Watch(ctx context.Context) (<-chan domain.RawDocumentChange, error)

	// Close releases resources.
	Close() error
}
