package driven

import (
	"context"

	"github.com/custodia-labs/tijdlijn/internal/core/domain"
)

// Normaliser extracts readable text from a raw document body.
// Each normaliser handles specific MIME types (e.g., HTML, plain text).
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// Normalise returns the extracted text and any metadata found in the body
	// (such as a title). Fails with a parsing error when no text can be extracted.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)
}

// NormaliseResult contains the output of normalisation.
type NormaliseResult struct {
	// Content is the extracted text.
	Content string

	// Title is a title found in the body, empty if none.
	Title string
}

// NormaliserRegistry selects the normaliser for a MIME type.
type NormaliserRegistry interface {
	// Register adds a normaliser.
	Register(n Normaliser)

	// Get returns the normaliser for the MIME type, falling back to plain text.
	Get(mimeType string) (Normaliser, error)
}
