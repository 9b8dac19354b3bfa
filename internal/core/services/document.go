package services

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/tijdlijn/internal/core/domain"
	"github.com/custodia-labs/tijdlijn/internal/core/ports/driven"
	"github.com/custodia-labs/tijdlijn/internal/core/ports/driving"
	"github.com/custodia-labs/tijdlijn/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// documentNamespace derives stable ids for records that carry none.
var documentNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("tijdlijn:document"))

// publishedLayouts are tried in order when a date arrives as text.
var publishedLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-01-2006",
}

// DocumentService manages stored documents and turns scraped records into them.
type DocumentService struct {
	repo     driven.DocumentRepository
	registry driven.NormaliserRegistry
	now      func() time.Time
}

// NewDocumentService creates a new document service.
func NewDocumentService(repo driven.DocumentRepository, registry driven.NormaliserRegistry) *DocumentService {
	return &DocumentService{
		repo:     repo,
		registry: registry,
		now:      time.Now,
	}
}

// Get retrieves a document by ID.
func (s *DocumentService) Get(ctx context.Context, documentID string) (*domain.Document, error) {
	if documentID == "" {
		return nil, fmt.Errorf("%w: document id is required", domain.ErrInvalidInput)
	}
	return s.repo.GetDocument(ctx, documentID)
}

// ListByCase returns all documents of a case.
func (s *DocumentService) ListByCase(ctx context.Context, caseID string) ([]domain.Document, error) {
	if caseID == "" {
		return nil, fmt.Errorf("%w: case id is required", domain.ErrInvalidInput)
	}
	return s.repo.ListDocuments(ctx, caseID)
}

// ListCases returns all case IDs.
func (s *DocumentService) ListCases(ctx context.Context) ([]string, error) {
	return s.repo.ListCaseIDs(ctx)
}

// Ingest normalises one record and stores it. The returned flag is false
// when the stored document already had the same content and metadata.
// Records that cannot be turned into a document fail with a parsing error.
func (s *DocumentService) Ingest(ctx context.Context, raw domain.RawDocument) (*domain.Document, bool, error) {
	normaliser, err := s.registry.Get(raw.MIMEType)
	if err != nil {
		return nil, false, domain.NewParsingError(raw.URI, "no normaliser for "+raw.MIMEType, err)
	}
	result, err := normaliser.Normalise(ctx, &raw)
	if err != nil {
		if errors.Is(err, domain.ErrParsing) {
			return nil, false, err
		}
		return nil, false, domain.NewParsingError(raw.URI, "normalise", err)
	}

	meta := metadataFromRecord(raw, result.Title)
	if meta.CaseID == "" {
		return nil, false, domain.NewParsingError(raw.URI, "record has no case id", domain.ErrInvalidInput)
	}
	id := recordID(raw)
	now := s.now().UTC()

	existing, err := s.repo.GetDocument(ctx, id)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		doc := domain.Document{
			ID:        id,
			Metadata:  meta,
			Content:   result.Content,
			Status:    domain.Status{Stage: domain.StageFetched, UpdatedAt: now},
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.repo.StoreDocument(ctx, doc); err != nil {
			return nil, false, domain.NewRepositoryError(domain.StageFetched, id, "store document", err)
		}
		return &doc, true, nil

	case err != nil:
		return nil, false, domain.NewRepositoryError(domain.StageFetched, id, "get document", err)
	}

	if existing.Content == result.Content && sameMetadata(existing.Metadata, meta) {
		return existing, false, nil
	}

	doc := existing.WithContent(result.Content, now)
	doc.Metadata = meta
	if err := s.repo.StoreDocument(ctx, doc); err != nil {
		return nil, false, domain.NewRepositoryError(domain.StageFetched, id, "store document", err)
	}
	return &doc, true, nil
}

// Import ingests every record the connector yields. Records that fail to
// parse are reported as rejected; connector and repository failures abort.
func (s *DocumentService) Import(ctx context.Context, conn driven.Connector) (*domain.IngestReport, error) {
	if err := conn.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate %s connector: %w", conn.Type(), err)
	}

	report := &domain.IngestReport{Rejected: make(map[string]string)}
	docsCh, errsCh := conn.FullSync(ctx)

	logger.Info("Importing records from %s connector", conn.Type())
	for docsCh != nil || errsCh != nil {
		select {
		case <-ctx.Done():
			return report, ctx.Err()

		case err, ok := <-errsCh:
			if !ok {
				errsCh = nil
				continue
			}
			var perr *domain.PipelineError
			if errors.As(err, &perr) && perr.Kind == domain.KindParsing {
				report.Rejected[perr.DocumentID] = err.Error()
				logger.Warn("Rejected %s: %v", perr.DocumentID, err)
				continue
			}
			return report, fmt.Errorf("connector error: %w", err)

		case raw, ok := <-docsCh:
			if !ok {
				docsCh = nil
				continue
			}
			logger.Debug("Ingesting: %s", raw.URI)
			doc, changed, err := s.Ingest(ctx, raw)
			switch {
			case errors.Is(err, domain.ErrParsing):
				report.Rejected[raw.URI] = err.Error()
				logger.Warn("Rejected %s: %v", raw.URI, err)
			case err != nil:
				return report, err
			case changed:
				report.Stored = append(report.Stored, doc.ID)
			default:
				report.Unchanged = append(report.Unchanged, doc.ID)
			}
		}
	}

	logger.Info("Import complete: %d stored, %d unchanged, %d rejected",
		len(report.Stored), len(report.Unchanged), len(report.Rejected))
	return report, nil
}

// Watch ingests records as the connector reports them until ctx is
// cancelled. onChange is called for every stored document that changed.
// Deleted record files leave their documents in place.
func (s *DocumentService) Watch(ctx context.Context, conn driven.Connector, onChange func(domain.Document)) error {
	changesCh, err := conn.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch %s connector: %w", conn.Type(), err)
	}

	logger.Info("Watching %s connector for changes", conn.Type())
	for {
		select {
		case <-ctx.Done():
			return nil

		case change, ok := <-changesCh:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watch %s connector: change stream closed", conn.Type())
			}
			if change.Type == domain.ChangeDeleted {
				logger.Info("Record file removed: %s (stored documents kept)", change.URI)
				continue
			}
			for _, raw := range change.Documents {
				doc, changed, err := s.Ingest(ctx, raw)
				switch {
				case errors.Is(err, domain.ErrParsing):
					logger.Warn("Rejected %s: %v", raw.URI, err)
				case err != nil:
					return err
				case changed:
					logger.Info("Stored %s (%s)", doc.ID, change.Type)
					if onChange != nil {
						onChange(*doc)
					}
				default:
					logger.Debug("Unchanged: %s", doc.ID)
				}
			}
		}
	}
}

// recordID returns the record's own id, or one derived from its url, its
// title or where it was read from, in that order.
func recordID(raw domain.RawDocument) string {
	if id := metaString(raw.Metadata, domain.MetaID); id != "" {
		return id
	}
	key := metaString(raw.Metadata, domain.MetaURL)
	if key == "" {
		key = metaString(raw.Metadata, domain.MetaTitle)
	}
	if key == "" {
		key = raw.URI
	}
	return uuid.NewSHA1(documentNamespace, []byte(key)).String()
}

// metadataFromRecord maps canonical record keys onto document metadata.
// Unknown keys become extra metadata.
func metadataFromRecord(raw domain.RawDocument, bodyTitle string) domain.DocumentMetadata {
	meta := domain.DocumentMetadata{
		Title:        metaString(raw.Metadata, domain.MetaTitle),
		PublishedAt:  parsePublished(raw.Metadata[domain.MetaPublished]),
		DocType:      metaString(raw.Metadata, domain.MetaDocType),
		CaseID:       metaString(raw.Metadata, domain.MetaCaseID),
		Organisation: metaString(raw.Metadata, domain.MetaOrganisation),
		SourceURI:    metaString(raw.Metadata, domain.MetaURL),
	}
	if meta.Title == "" {
		meta.Title = bodyTitle
	}
	if meta.SourceURI == "" {
		meta.SourceURI = raw.URI
	}

	known := map[string]bool{
		domain.MetaID: true, domain.MetaTitle: true, domain.MetaPublished: true,
		domain.MetaDocType: true, domain.MetaCaseID: true, domain.MetaOrganisation: true,
		domain.MetaURL: true,
	}
	keys := make([]string, 0, len(raw.Metadata))
	for key := range raw.Metadata {
		if !known[key] {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		if v := metaString(raw.Metadata, key); v != "" {
			if meta.Extra == nil {
				meta.Extra = make(map[string]string)
			}
			meta.Extra[key] = v
		}
	}
	return meta
}

// parsePublished resolves a publication date, or nil when it cannot.
// The wall clock is kept as published and re-expressed in UTC, so a
// bulletin published just after midnight stays on its own calendar day
// once stored.
func parsePublished(v any) *time.Time {
	switch x := v.(type) {
	case time.Time:
		if x.IsZero() {
			return nil
		}
		t := wallClock(x)
		return &t
	case *time.Time:
		if x == nil {
			return nil
		}
		return parsePublished(*x)
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range publishedLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				t = wallClock(t)
				return &t
			}
		}
	}
	return nil
}

// wallClock returns t's calendar date and clock time in UTC, dropping its offset.
func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

func metaString(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func sameMetadata(a, b domain.DocumentMetadata) bool {
	if a.Title != b.Title || a.DocType != b.DocType || a.CaseID != b.CaseID ||
		a.SourceURI != b.SourceURI || a.Organisation != b.Organisation {
		return false
	}
	if (a.PublishedAt == nil) != (b.PublishedAt == nil) {
		return false
	}
	if a.PublishedAt != nil && !a.PublishedAt.Equal(*b.PublishedAt) {
		return false
	}
	return maps.Equal(a.Extra, b.Extra)
}
