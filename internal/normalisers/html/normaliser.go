package html

import (
	"bytes"
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/custodia-labs/tijdlijn/internal/core/domain"
	"github.com/custodia-labs/tijdlijn/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

const (
	// removed elements never carry document text.
	removed = "script, style, noscript, template, svg, iframe, head"

	// paragraphs are separated by a blank line.
	paragraphs = "p, div, section, article, header, footer, main, aside, table, " +
		"blockquote, pre, ul, ol, dl, h1, h2, h3, h4, h5, h6"

	// lines end with a single newline.
	lines = "li, tr, dt, dd, br, hr"
)

// Break markers are private-use runes inserted around block elements so
// they survive whitespace collapsing of the page text.
const (
	paragraphMark = '\uE000'
	lineMark      = '\uE001'
)

// Normaliser handles HTML documents.
type Normaliser struct{}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// Normalise extracts the text of an HTML page. The title comes from the
// <title> element, or the first <h1> when there is none.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw.Content))
	if err != nil {
		return nil, domain.NewParsingError(raw.URI, "parse html", err)
	}

	title := collapse(doc.Find("title").First().Text())
	if title == "" {
		title = collapse(doc.Find("h1").First().Text())
	}

	doc.Find(removed).Remove()
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		text := collapse(a.Text())
		if !keepHref(href, text) {
			return
		}
		if text == "" {
			a.SetText(href)
			return
		}
		a.SetText(text + " (" + href + ")")
	})
	doc.Find(paragraphs).Each(func(_ int, s *goquery.Selection) {
		s.BeforeHtml(string(paragraphMark))
		s.AfterHtml(string(paragraphMark))
	})
	doc.Find(lines).Each(func(_ int, s *goquery.Selection) {
		s.AfterHtml(string(lineMark))
	})

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}
	content := tidy(root.Text())
	if content == "" {
		return nil, domain.NewParsingError(raw.URI, "html has no text", domain.ErrEmptyContent)
	}

	return &driven.NormaliseResult{
		Content: content,
		Title:   title,
	}, nil
}

// keepHref reports whether a link target adds information to its text.
func keepHref(href, text string) bool {
	href = strings.TrimSpace(href)
	switch {
	case href == "", href == text:
		return false
	case strings.HasPrefix(href, "#"), strings.HasPrefix(strings.ToLower(href), "javascript:"):
		return false
	}
	return true
}

// collapse joins whitespace runs into single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// tidy collapses source whitespace and turns break markers into newlines,
// keeping at most one blank line between blocks.
func tidy(text string) string {
	var (
		out     strings.Builder
		segment strings.Builder
		pending string
	)
	flush := func() {
		s := collapse(segment.String())
		segment.Reset()
		if s == "" {
			return
		}
		if out.Len() > 0 {
			out.WriteString(pending)
		}
		out.WriteString(s)
		pending = ""
	}

	for _, r := range text {
		switch r {
		case paragraphMark:
			flush()
			pending = "\n\n"
		case lineMark:
			flush()
			if pending == "" {
				pending = "\n"
			}
		default:
			segment.WriteRune(r)
		}
	}
	flush()

	return out.String()
}
