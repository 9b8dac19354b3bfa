package driving

import (
	"context"

	"github.com/custodia-labs/tijdlijn/internal/core/domain"
)

// TimelineService provides read access to stored timelines.
type TimelineService interface {
	// Get returns the timeline of a case.
	Get(ctx context.Context, caseID string) (*domain.Timeline, error)

	// List returns all stored timelines.
	List(ctx context.Context) ([]domain.Timeline, error)
}
