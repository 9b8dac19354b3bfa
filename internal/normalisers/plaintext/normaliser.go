package plaintext

import (
	"context"
	"strings"

	"github.com/custodia-labs/tijdlijn/internal/core/domain"
	"github.com/custodia-labs/tijdlijn/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// byteOrderMark is stripped from the start of the content.
const byteOrderMark = "\ufeff"

// Normaliser handles plain text documents. It is the registry fallback.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		"text/plain",
		"text/csv",
		"application/json",
		"application/xml",
		"text/xml",
	}
}

// Normalise returns the text with line endings unified and trailing
// whitespace removed. The content must be valid UTF-8.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	content := strings.TrimPrefix(string(raw.Content), byteOrderMark)
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	if err := domain.ValidateContent(content); err != nil {
		return nil, domain.NewParsingError(raw.URI, "text unusable", err)
	}

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}

	return &driven.NormaliseResult{
		Content: strings.TrimSpace(strings.Join(lines, "\n")),
	}, nil
}
