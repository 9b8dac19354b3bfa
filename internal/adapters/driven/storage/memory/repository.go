package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/tijdlijn/internal/core/domain"
	"github.com/custodia-labs/tijdlijn/internal/core/ports/driven"
)

// Ensure Repository implements the interface.
var _ driven.Repository = (*Repository)(nil)

// Repository is an in-memory implementation of driven.Repository.
// Values are copied on the way in and out, so callers never share state
// with the store.
type Repository struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
	timelines map[string]domain.Timeline
}

// NewRepository creates a new in-memory repository.
func NewRepository() *Repository {
	return &Repository{
		documents: make(map[string]domain.Document),
		timelines: make(map[string]domain.Timeline),
	}
}

// ==================== Documents ====================

// GetDocument retrieves a document by ID.
func (r *Repository) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := copyDocument(doc)
	return &out, nil
}

// StoreDocument creates or replaces a document.
func (r *Repository) StoreDocument(_ context.Context, doc domain.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.documents[doc.ID] = copyDocument(doc)
	return nil
}

// ListDocuments returns the documents of a case by publication date,
// undated documents last, ties broken by ID.
func (r *Repository) ListDocuments(_ context.Context, caseID string) ([]domain.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var docs []domain.Document
	for _, doc := range r.documents {
		if doc.Metadata.CaseID == caseID {
			docs = append(docs, copyDocument(doc))
		}
	}
	sort.Slice(docs, func(i, j int) bool {
		a, b := docs[i], docs[j]
		switch {
		case a.Dated() && !b.Dated():
			return true
		case !a.Dated() && b.Dated():
			return false
		case a.Dated() && b.Dated() && !a.Metadata.PublishedAt.Equal(*b.Metadata.PublishedAt):
			return a.Metadata.PublishedAt.Before(*b.Metadata.PublishedAt)
		}
		return a.ID < b.ID
	})
	return docs, nil
}

// ListCaseIDs returns every case with at least one document, sorted.
func (r *Repository) ListCaseIDs(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var ids []string
	for _, doc := range r.documents {
		id := doc.Metadata.CaseID
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// ==================== Timelines ====================

// GetTimeline retrieves the timeline of a case.
func (r *Repository) GetTimeline(_ context.Context, caseID string) (*domain.Timeline, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	timeline, ok := r.timelines[caseID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := copyTimeline(timeline)
	return &out, nil
}

// StoreTimeline creates or replaces a timeline.
func (r *Repository) StoreTimeline(_ context.Context, timeline domain.Timeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timelines[timeline.CaseID] = copyTimeline(timeline)
	return nil
}

// ListTimelines returns all stored timelines, sorted by case ID.
func (r *Repository) ListTimelines(_ context.Context) ([]domain.Timeline, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Timeline, 0, len(r.timelines))
	for _, timeline := range r.timelines {
		out = append(out, copyTimeline(timeline))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CaseID < out[j].CaseID })
	return out, nil
}

func copyDocument(doc domain.Document) domain.Document {
	out := doc
	if doc.Metadata.PublishedAt != nil {
		t := *doc.Metadata.PublishedAt
		out.Metadata.PublishedAt = &t
	}
	if doc.Metadata.Extra != nil {
		out.Metadata.Extra = make(map[string]string, len(doc.Metadata.Extra))
		for k, v := range doc.Metadata.Extra {
			out.Metadata.Extra[k] = v
		}
	}
	return out
}

func copyTimeline(timeline domain.Timeline) domain.Timeline {
	out := timeline
	out.Entries = make([]domain.TimelineEntry, len(timeline.Entries))
	for i, e := range timeline.Entries {
		e.DocumentIDs = append([]string(nil), e.DocumentIDs...)
		out.Entries[i] = e
	}
	return out
}
