package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
	"unicode/utf8"
)

// DocumentMetadata holds the structured fields published with a document.
type DocumentMetadata struct {
	// Title is the document title as published.
	Title string

	// PublishedAt is the publication date. Nil when it could not be resolved.
	PublishedAt *time.Time

	// DocType is the kind of document (e.g. "Kamerstuk", "Besluit").
	DocType string

	// CaseID groups documents into one timeline.
	CaseID string

	// SourceURI is where the document was retrieved from.
	SourceURI string

	// Organisation is the publishing body.
	Organisation string

	// Extra holds any additional source fields.
	Extra map[string]string
}

// Document represents a bulletin document moving through the pipeline.
// Documents are values: helpers return modified copies, leaving the
// receiver untouched.
type Document struct {
	// ID is the stable document identifier.
	ID string

	// Metadata holds the published fields.
	Metadata DocumentMetadata

	// Content is the extracted text.
	Content string

	// Fingerprint is the content fingerprint recorded when the summary was persisted.
	// Empty until the document has been processed once.
	Fingerprint string

	// Summary is the generated document summary, empty until summarised.
	Summary string

	// Status tracks the document's position in the processing state machine.
	Status Status

	// CreatedAt is when the document was first ingested.
	CreatedAt time.Time

	// UpdatedAt is when the document was last modified.
	UpdatedAt time.Time
}

// CaseID returns the grouping key of the document.
func (d Document) CaseID() string {
	return d.Metadata.CaseID
}

// Dated reports whether the document has a resolvable publication date.
func (d Document) Dated() bool {
	return d.Metadata.PublishedAt != nil && !d.Metadata.PublishedAt.IsZero()
}

// ContentFingerprint returns the fingerprint of the current content.
func (d Document) ContentFingerprint() string {
	return Fingerprint(d.Content)
}

// Unchanged reports whether the document was persisted with a summary for
// exactly its current content.
func (d Document) Unchanged() bool {
	return d.Status.Stage == StagePersisted &&
		d.Summary != "" &&
		d.Fingerprint != "" &&
		d.Fingerprint == d.ContentFingerprint()
}

// WithSummary returns a copy carrying the summary and the fingerprint of the
// content it was generated from.
func (d Document) WithSummary(summary string, at time.Time) Document {
	out := d.clone()
	out.Summary = summary
	out.Fingerprint = d.ContentFingerprint()
	out.UpdatedAt = at
	return out
}

// WithStatus returns a copy in the given processing status.
func (d Document) WithStatus(status Status) Document {
	out := d.clone()
	out.Status = status
	if !status.UpdatedAt.IsZero() {
		out.UpdatedAt = status.UpdatedAt
	}
	return out
}

// WithContent returns a copy with new content. The previous summary and
// fingerprint are kept so a later run can detect the change.
func (d Document) WithContent(content string, at time.Time) Document {
	out := d.clone()
	out.Content = content
	out.UpdatedAt = at
	return out
}

// clone copies the document including its reference-typed fields.
func (d Document) clone() Document {
	out := d
	if d.Metadata.PublishedAt != nil {
		t := *d.Metadata.PublishedAt
		out.Metadata.PublishedAt = &t
	}
	if d.Metadata.Extra != nil {
		out.Metadata.Extra = make(map[string]string, len(d.Metadata.Extra))
		for k, v := range d.Metadata.Extra {
			out.Metadata.Extra[k] = v
		}
	}
	return out
}

// Fingerprint returns the hex encoded SHA-256 of content.
func Fingerprint(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// ValidateContent checks that content can be used as extracted text.
func ValidateContent(content string) error {
	if !utf8.ValidString(content) {
		return ErrUndecodable
	}
	if strings.TrimSpace(content) == "" {
		return ErrEmptyContent
	}
	return nil
}
