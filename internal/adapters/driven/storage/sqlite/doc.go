// Package sqlite provides the SQLite implementation of the document and
// timeline repository.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. Queries are built with squirrel.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// Documents carry their metadata, summary and processing status in one row.
// Timeline entries live in their own table and are replaced as a whole each
// time a timeline is stored.
//
// # Data Location
//
// By default, the database is stored at ~/.tijdlijn/data/tijdlijn.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
