package markdown

import (
	"context"
	"regexp"
	"strings"

	"github.com/custodia-labs/tijdlijn/internal/core/domain"
	"github.com/custodia-labs/tijdlijn/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles Markdown documents.
type Normaliser struct{}

// New creates a new Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

// Normalise strips Markdown formatting. The title is the first level-one
// heading, if any.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	text := strings.ReplaceAll(string(raw.Content), "\r\n", "\n")
	if err := domain.ValidateContent(text); err != nil {
		return nil, domain.NewParsingError(raw.URI, "markdown unusable", err)
	}

	content := stripMarkdown(text)
	if content == "" {
		return nil, domain.NewParsingError(raw.URI, "markdown has no text", domain.ErrEmptyContent)
	}

	return &driven.NormaliseResult{
		Content: content,
		Title:   extractTitle(text),
	}, nil
}

// Pre-compiled regular expressions for Markdown stripping.
var (
	codeFence     = regexp.MustCompile("(?s)```[^\\n]*\\n(.*?)```")
	inlineCode    = regexp.MustCompile("`([^`]+)`")
	images        = regexp.MustCompile(`!\[([^\]]*)\]\([^)]+\)`)
	links         = regexp.MustCompile(`\[([^\]]+)\]\(([^)\s]+)[^)]*\)`)
	headings      = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	strong        = regexp.MustCompile(`(\*\*|\*)([^\s*](?:[^*]*?[^\s*])?)(\*\*|\*)`)
	underline     = regexp.MustCompile(`(?m)(^|[^\p{L}\p{N}_])__?([^\s_](?:[^_]*?[^\s_])?)__?([^\p{L}\p{N}_]|$)`)
	blockquote    = regexp.MustCompile(`(?m)^>\s?`)
	rule          = regexp.MustCompile(`(?m)^[ \t]*([-*_][ \t]*){3,}$`)
	listMarker    = regexp.MustCompile(`(?m)^[ \t]*[-*+][ \t]+`)
	numberedList  = regexp.MustCompile(`(?m)^[ \t]*\d+[.)][ \t]+`)
	multiNewlines = regexp.MustCompile(`\n{3,}`)
	trailingSpace = regexp.MustCompile(`(?m)[ \t]+$`)
)

// extractTitle returns the first level-one heading.
func extractTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "#"))
		}
	}
	return ""
}

// stripMarkdown removes common markdown formatting. Fenced code keeps its
// body and links keep their target after the text.
func stripMarkdown(content string) string {
	content = codeFence.ReplaceAllString(content, "$1")
	content = inlineCode.ReplaceAllString(content, "$1")
	content = images.ReplaceAllString(content, "$1")
	content = links.ReplaceAllString(content, "$1 ($2)")
	content = headings.ReplaceAllString(content, "")
	content = rule.ReplaceAllString(content, "")
	content = strong.ReplaceAllString(content, "$2")
	content = underline.ReplaceAllString(content, "$1$2$3")
	content = blockquote.ReplaceAllString(content, "")
	content = listMarker.ReplaceAllString(content, "")
	content = numberedList.ReplaceAllString(content, "")
	content = trailingSpace.ReplaceAllString(content, "")
	content = multiNewlines.ReplaceAllString(content, "\n\n")

	return strings.TrimSpace(content)
}
