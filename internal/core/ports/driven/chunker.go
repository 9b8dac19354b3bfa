package driven

import (
	"context"

	"github.com/custodia-labs/tijdlijn/internal/core/domain"
)

// Chunker splits document content into an ordered sequence of bounded chunks.
// The result is deterministic for identical content and configuration.
type Chunker interface {
	// Chunk splits the document content.
	// Returns a parsing error for unusable content and a chunking error
	// when the configuration cannot produce a valid split.
	Chunk(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error)

	// ChunkText splits free text, such as an oversized summary, using the
	// same strategy. The id is used to derive chunk ids.
	ChunkText(ctx context.Context, id, text string) ([]domain.Chunk, error)
}
