package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/tijdlijn/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/tijdlijn/internal/core/domain"
	"github.com/custodia-labs/tijdlijn/internal/core/ports/driven"
)

// DatabaseFile is the name of the database inside the data directory.
const DatabaseFile = "tijdlijn.db"

// Ensure Store implements the interface.
var _ driven.Repository = (*Store)(nil)

var builder = sq.StatementBuilder.PlaceholderFormat(sq.Question)

var documentColumns = []string{
	"id", "case_id", "title", "published_at", "doc_type", "source_uri",
	"organisation", "extra", "content", "fingerprint", "summary",
	"stage", "failed_stage", "status_reason", "status_updated_at",
	"created_at", "updated_at",
}

// Store is a SQLite-backed document and timeline repository.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.tijdlijn/data/tijdlijn.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".tijdlijn", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)

	// WAL lets readers (the MCP server, CLI queries) run beside a watch process.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Documents ====================

// GetDocument retrieves a document by ID.
func (s *Store) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	query, args, err := builder.Select(documentColumns...).
		From("documents").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building document query: %w", err)
	}

	doc, err := scanDocument(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	return doc, nil
}

// StoreDocument creates or replaces a document.
func (s *Store) StoreDocument(ctx context.Context, doc domain.Document) error {
	extra := doc.Metadata.Extra
	if extra == nil {
		extra = map[string]string{}
	}
	extraJSON, err := json.Marshal(extra)
	if err != nil {
		return fmt.Errorf("marshalling extra metadata: %w", err)
	}

	var updates []string
	for _, col := range documentColumns[1:] {
		updates = append(updates, col+" = excluded."+col)
	}

	query, args, err := builder.Insert("documents").
		Columns(documentColumns...).
		Values(
			doc.ID, doc.Metadata.CaseID, doc.Metadata.Title, nullTime(doc.Metadata.PublishedAt),
			doc.Metadata.DocType, doc.Metadata.SourceURI, doc.Metadata.Organisation,
			string(extraJSON), doc.Content, doc.Fingerprint, doc.Summary,
			string(doc.Status.Stage), string(doc.Status.FailedStage), doc.Status.Reason,
			nullTimeValue(doc.Status.UpdatedAt), doc.CreatedAt.UTC(), doc.UpdatedAt.UTC(),
		).
		Suffix("ON CONFLICT(id) DO UPDATE SET " + strings.Join(updates, ", ")).
		ToSql()
	if err != nil {
		return fmt.Errorf("building document upsert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// ListDocuments returns all documents of a case ordered by publication date,
// undated documents last, ties broken by ID.
func (s *Store) ListDocuments(ctx context.Context, caseID string) ([]domain.Document, error) {
	query, args, err := builder.Select(documentColumns...).
		From("documents").
		Where(sq.Eq{"case_id": caseID}).
		OrderBy("published_at IS NULL", "published_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building documents query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

// ListCaseIDs returns every case with at least one document, sorted.
func (s *Store) ListCaseIDs(ctx context.Context) ([]string, error) {
	query, args, err := builder.Select("DISTINCT case_id").
		From("documents").
		Where(sq.NotEq{"case_id": ""}).
		OrderBy("case_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building case query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying cases: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning case: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating cases: %w", err)
	}
	return ids, nil
}

// ==================== Timelines ====================

// GetTimeline retrieves the timeline of a case with its entries.
func (s *Store) GetTimeline(ctx context.Context, caseID string) (*domain.Timeline, error) {
	query, args, err := builder.Select("case_id", "granularity", "description", "generated_at").
		From("timelines").
		Where(sq.Eq{"case_id": caseID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building timeline query: %w", err)
	}

	timeline, err := scanTimeline(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning timeline: %w", err)
	}

	entries, err := s.loadEntries(ctx, caseID)
	if err != nil {
		return nil, err
	}
	timeline.Entries = entries
	return timeline, nil
}

// StoreTimeline creates or replaces a timeline. Entries are replaced as a
// whole inside one transaction.
func (s *Store) StoreTimeline(ctx context.Context, timeline domain.Timeline) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	query, args, err := builder.Insert("timelines").
		Columns("case_id", "granularity", "description", "generated_at").
		Values(timeline.CaseID, string(timeline.Granularity), timeline.Description, timeline.GeneratedAt.UTC()).
		Suffix(`ON CONFLICT(case_id) DO UPDATE SET
			granularity = excluded.granularity,
			description = excluded.description,
			generated_at = excluded.generated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("building timeline upsert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("saving timeline: %w", err)
	}

	query, args, err = builder.Delete("timeline_entries").
		Where(sq.Eq{"case_id": timeline.CaseID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building entry delete: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("clearing timeline entries: %w", err)
	}

	if len(timeline.Entries) > 0 {
		insert := builder.Insert("timeline_entries").
			Columns("case_id", "period", "date", "summary", "document_ids")
		for _, e := range timeline.Entries {
			ids := e.DocumentIDs
			if ids == nil {
				ids = []string{}
			}
			idsJSON, err := json.Marshal(ids)
			if err != nil {
				return fmt.Errorf("marshalling document ids: %w", err)
			}
			insert = insert.Values(timeline.CaseID, e.Period, e.Date.UTC(), e.Summary, string(idsJSON))
		}
		query, args, err = insert.ToSql()
		if err != nil {
			return fmt.Errorf("building entry insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("saving timeline entries: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing timeline: %w", err)
	}
	return nil
}

// ListTimelines returns all stored timelines, sorted by case ID.
func (s *Store) ListTimelines(ctx context.Context) ([]domain.Timeline, error) {
	query, args, err := builder.Select("case_id", "granularity", "description", "generated_at").
		From("timelines").
		OrderBy("case_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building timelines query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying timelines: %w", err)
	}

	var timelines []domain.Timeline
	for rows.Next() {
		timeline, err := scanTimeline(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning timeline: %w", err)
		}
		timelines = append(timelines, *timeline)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterating timelines: %w", err)
	}
	rows.Close()

	for i := range timelines {
		entries, err := s.loadEntries(ctx, timelines[i].CaseID)
		if err != nil {
			return nil, err
		}
		timelines[i].Entries = entries
	}
	return timelines, nil
}

func (s *Store) loadEntries(ctx context.Context, caseID string) ([]domain.TimelineEntry, error) {
	query, args, err := builder.Select("period", "date", "summary", "document_ids").
		From("timeline_entries").
		Where(sq.Eq{"case_id": caseID}).
		OrderBy("date", "period").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building entries query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying timeline entries: %w", err)
	}
	defer rows.Close()

	entries := []domain.TimelineEntry{}
	for rows.Next() {
		var e domain.TimelineEntry
		var idsJSON string
		if err := rows.Scan(&e.Period, &e.Date, &e.Summary, &idsJSON); err != nil {
			return nil, fmt.Errorf("scanning timeline entry: %w", err)
		}
		if err := json.Unmarshal([]byte(idsJSON), &e.DocumentIDs); err != nil {
			return nil, fmt.Errorf("unmarshalling document ids: %w", err)
		}
		e.Date = e.Date.UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating timeline entries: %w", err)
	}
	return entries, nil
}

// ==================== Scanning ====================

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*domain.Document, error) {
	var doc domain.Document
	var extraJSON, stage, failedStage string
	var publishedAt, statusUpdatedAt sql.NullTime
	err := row.Scan(
		&doc.ID, &doc.Metadata.CaseID, &doc.Metadata.Title, &publishedAt,
		&doc.Metadata.DocType, &doc.Metadata.SourceURI, &doc.Metadata.Organisation,
		&extraJSON, &doc.Content, &doc.Fingerprint, &doc.Summary,
		&stage, &failedStage, &doc.Status.Reason, &statusUpdatedAt,
		&doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	var extra map[string]string
	if err := json.Unmarshal([]byte(extraJSON), &extra); err != nil {
		return nil, fmt.Errorf("unmarshalling extra metadata: %w", err)
	}
	if len(extra) > 0 {
		doc.Metadata.Extra = extra
	}

	if publishedAt.Valid {
		t := publishedAt.Time.UTC()
		doc.Metadata.PublishedAt = &t
	}
	doc.Status.Stage = domain.Stage(stage)
	doc.Status.FailedStage = domain.Stage(failedStage)
	if statusUpdatedAt.Valid {
		doc.Status.UpdatedAt = statusUpdatedAt.Time.UTC()
	}
	doc.CreatedAt = doc.CreatedAt.UTC()
	doc.UpdatedAt = doc.UpdatedAt.UTC()
	return &doc, nil
}

func scanTimeline(row scanner) (*domain.Timeline, error) {
	var timeline domain.Timeline
	var granularity string
	if err := row.Scan(&timeline.CaseID, &granularity, &timeline.Description, &timeline.GeneratedAt); err != nil {
		return nil, err
	}
	timeline.Granularity = domain.DateGranularity(granularity)
	timeline.GeneratedAt = timeline.GeneratedAt.UTC()
	return &timeline, nil
}

// nullTime converts an optional time into a nullable column value.
func nullTime(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.UTC()
}

func nullTimeValue(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}
