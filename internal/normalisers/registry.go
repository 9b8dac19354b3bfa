package normalisers

import (
	"fmt"
	"mime"
	"strings"
	"sync"

	"github.com/custodia-labs/tijdlijn/internal/core/domain"
	"github.com/custodia-labs/tijdlijn/internal/core/ports/driven"
	"github.com/custodia-labs/tijdlijn/internal/normalisers/docx"
	"github.com/custodia-labs/tijdlijn/internal/normalisers/html"
	"github.com/custodia-labs/tijdlijn/internal/normalisers/markdown"
	"github.com/custodia-labs/tijdlijn/internal/normalisers/plaintext"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry maps MIME types to normalisers.
type Registry struct {
	mu       sync.RWMutex
	byType   map[string]driven.Normaliser
	fallback driven.Normaliser
}

// NewRegistry creates an empty registry with the given fallback.
// A nil fallback makes unknown MIME types an error.
func NewRegistry(fallback driven.Normaliser) *Registry {
	return &Registry{
		byType:   make(map[string]driven.Normaliser),
		fallback: fallback,
	}
}

// Default returns a registry with the built-in normalisers: HTML,
// Markdown, DOCX and plain text (also the fallback).
func Default() *Registry {
	text := plaintext.New()
	r := NewRegistry(text)
	r.Register(text)
	r.Register(html.New())
	r.Register(markdown.New())
	r.Register(docx.New())
	return r
}

// Register adds a normaliser for each of its MIME types, replacing any
// earlier registration.
func (r *Registry) Register(n driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range n.SupportedMIMETypes() {
		r.byType[baseType(t)] = n
	}
}

// Get returns the normaliser for mimeType. Parameters such as charset are
// ignored; an empty type is treated as plain text.
func (r *Registry) Get(mimeType string) (driven.Normaliser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if n, ok := r.byType[baseType(mimeType)]; ok {
		return n, nil
	}
	if r.fallback != nil {
		return r.fallback, nil
	}
	return nil, fmt.Errorf("%w: no normaliser for %q", domain.ErrUnsupportedType, mimeType)
}

// baseType lowercases a MIME type and drops its parameters.
func baseType(mimeType string) string {
	if mimeType == "" {
		return "text/plain"
	}
	if t, _, err := mime.ParseMediaType(mimeType); err == nil {
		return t
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}
