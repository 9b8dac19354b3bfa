package domain

// RawDocument is a scraped record before normalisation.
// It is the connector's output and the input to ingestion.
type RawDocument struct {
	// URI is where the record was read from (file path or source URL).
	URI string

	// MIMEType is the content type of Content (e.g., "text/html").
	MIMEType string

	// Content is the raw document body.
	Content []byte

	// Metadata holds the scraped metadata fields.
	Metadata map[string]any
}

// ChangeType represents the type of document change.
type ChangeType int

const (
	// ChangeCreated indicates a new document.
	ChangeCreated ChangeType = iota

	// ChangeUpdated indicates a modified document.
	ChangeUpdated

	// ChangeDeleted indicates a removed document.
	ChangeDeleted
)

// String returns the string representation.
func (c ChangeType) String() string {
	switch c {
	case ChangeCreated:
		return "created"
	case ChangeUpdated:
		return "updated"
	case ChangeDeleted:
		return "deleted"
	default:
		return unknownDescription
	}
}

// RawDocumentChange represents a change event from a connector watch.
type RawDocumentChange struct {
	// Type is the kind of change.
	Type ChangeType

	// Documents are the records read from the changed file.
	// Empty for deletions.
	Documents []RawDocument

	// URI is the changed location.
	URI string
}

// IngestReport summarises an ingestion pass.
type IngestReport struct {
	// Stored lists ids of documents created or whose content changed.
	Stored []string

	// Unchanged lists ids of documents whose content was already stored.
	Unchanged []string

	// Rejected maps record URIs to the reason they could not be ingested.
	Rejected map[string]string
}

// Canonical RawDocument metadata keys. Connectors map their source field
// names onto these; any other keys are kept as extra metadata.
const (
	MetaID           = "id"
	MetaTitle        = "title"
	MetaPublished    = "published"
	MetaDocType      = "type"
	MetaCaseID       = "case_id"
	MetaOrganisation = "organisation"
	MetaURL          = "url"
)
