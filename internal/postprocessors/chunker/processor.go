// Package chunker splits document content into bounded chunks at natural
// boundaries: paragraphs first, then sentences, then whitespace.
package chunker

import (
	"context"
	"fmt"
	"regexp"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/tijdlijn/internal/core/domain"
	"github.com/custodia-labs/tijdlijn/internal/core/ports/driven"
	"github.com/custodia-labs/tijdlijn/internal/logger"
)

// Ensure Processor implements the interface.
var _ driven.Chunker = (*Processor)(nil)

// DefaultChunkSize is the default maximum chunk size.
const DefaultChunkSize = domain.DefaultMaxChunkSize

// DefaultChunkOverlap is the default overlap carried between chunks.
const DefaultChunkOverlap = domain.DefaultChunkOverlap

// chunkNamespace seeds deterministic chunk ids.
var chunkNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("tijdlijn:chunk"))

// paragraphBreak matches a blank line, possibly containing spaces.
var paragraphBreak = regexp.MustCompile(`\n[ \t\r\f\v]*\n`)

// Processor splits content into chunks no larger than the configured size.
// It implements the Chunker interface.
type Processor struct {
	chunkSize int
	overlap   int
	unit      domain.SizeUnit
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the maximum chunk size.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		p.chunkSize = size
	}
}

// WithOverlap sets the amount of text carried into the next chunk.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		p.overlap = overlap
	}
}

// WithSizeUnit sets the unit sizes are measured in.
func WithSizeUnit(unit domain.SizeUnit) Option {
	return func(p *Processor) {
		p.unit = unit
	}
}

// New creates a new chunker processor with the given options.
// The configuration is checked when chunking; see Validate.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
		unit:      domain.SizeUnitChars,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// FromConfig creates a processor from the pipeline configuration.
func FromConfig(cfg domain.PipelineConfig) *Processor {
	return New(
		WithChunkSize(cfg.MaxChunkSize),
		WithOverlap(cfg.ChunkOverlap),
		WithSizeUnit(cfg.SizeUnit),
	)
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Validate returns a chunking error when the configuration cannot split anything.
func (p *Processor) Validate() error {
	return domain.PipelineConfig{
		MaxChunkSize: p.chunkSize,
		ChunkOverlap: p.overlap,
		SizeUnit:     p.unit,
	}.ValidateChunking()
}

// Chunk splits the document content into chunks.
func (p *Processor) Chunk(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, domain.NewParsingError("", "document is nil", domain.ErrInvalidInput)
	}
	chunks, err := p.ChunkText(ctx, doc.ID, doc.Content)
	if err != nil {
		return nil, err
	}

	truncated := 0
	for i := range chunks {
		if chunks[i].Truncated {
			truncated++
		}
	}
	if truncated > 0 {
		logger.Warn("chunker: document %s has %d chunk(s) cut inside an oversized token", doc.ID, truncated)
	}
	logger.Debug("chunker: document %s split into %d chunk(s)", doc.ID, len(chunks))

	return chunks, nil
}

// ChunkText splits free text into chunks, deriving chunk ids from id.
func (p *Processor) ChunkText(ctx context.Context, id, text string) ([]domain.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := domain.ValidateContent(text); err != nil {
		return nil, domain.NewParsingError(id, "content cannot be chunked", err)
	}

	budget := p.chunkSize - p.overlap
	units := p.units(text, budget)

	var (
		chunks []domain.Chunk
		cur    unit
		open   bool
	)
	flush := func() {
		chunks = append(chunks, p.makeChunk(id, text, cur, len(chunks), chunks))
	}

	for _, u := range units {
		if open && p.fits(text[cur.start:u.end], budget) {
			cur.end = u.end
			cur.truncated = cur.truncated || u.truncated
			continue
		}
		if open {
			flush()
		}
		cur = u
		open = true
	}
	if open {
		flush()
	}

	return chunks, nil
}

// unit is a trimmed span of the content that is never split further.
type unit struct {
	start, end int
	truncated  bool
}

// makeChunk builds the chunk for span u, carrying overlap from the previous chunk.
func (p *Processor) makeChunk(id, content string, u unit, index int, prev []domain.Chunk) domain.Chunk {
	chunk := domain.Chunk{
		ID:         uuid.NewSHA1(chunkNamespace, []byte(fmt.Sprintf("%s#%d", id, index))).String(),
		DocumentID: id,
		Index:      index,
		Text:       content[u.start:u.end],
		Start:      u.start,
		End:        u.end,
		Truncated:  u.truncated,
	}

	if index > 0 && p.overlap > 0 {
		chunk.Overlap = p.tail(prev[index-1].Text, p.overlap)
		for chunk.Overlap != "" && p.unit.Measure(chunk.PromptText()) > p.chunkSize {
			chunk.Overlap = dropLeadingWord(chunk.Overlap)
		}
	}
	chunk.Size = p.unit.Measure(chunk.PromptText())

	return chunk
}

// units breaks content into spans no larger than budget, preferring
// paragraph, then sentence, then word boundaries. Words that are larger
// than budget on their own are cut and flagged.
func (p *Processor) units(content string, budget int) []unit {
	var out []unit
	for _, para := range paragraphSpans(content) {
		if p.fits(content[para.start:para.end], budget) {
			out = append(out, para)
			continue
		}
		for _, sent := range sentenceSpans(content, para) {
			if p.fits(content[sent.start:sent.end], budget) {
				out = append(out, sent)
				continue
			}
			for _, word := range wordSpans(content, sent) {
				if p.fits(content[word.start:word.end], budget) {
					out = append(out, word)
					continue
				}
				out = append(out, p.cut(content, word, budget)...)
			}
		}
	}
	return out
}

// cut splits an oversized word into the longest pieces that fit.
func (p *Processor) cut(content string, word unit, budget int) []unit {
	var out []unit
	start := word.start
	for start < word.end {
		n := p.fitPrefix(content[start:word.end], budget)
		out = append(out, unit{start: start, end: start + n, truncated: true})
		start += n
	}
	return out
}

// fits reports whether s is within budget.
func (p *Processor) fits(s string, budget int) bool {
	return p.unit.Measure(s) <= budget
}

// fitPrefix returns the byte length of the longest prefix of s within
// budget. At least one rune is always returned.
func (p *Processor) fitPrefix(s string, budget int) int {
	offsets := runeOffsets(s)
	lo, hi := 1, len(offsets)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if p.fits(s[:offsets[mid]], budget) {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return offsets[lo]
}

// tail returns the longest suffix of text within limit, moved forward to a
// word start when one is available.
func (p *Processor) tail(text string, limit int) string {
	offsets := runeOffsets(text)
	n := len(offsets) - 1
	lo, hi := 0, n
	for lo < hi {
		mid := (lo + hi) / 2
		if p.fits(text[offsets[mid]:], limit) {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	start := offsets[lo]
	if start == 0 || start >= len(text) {
		return text[start:]
	}

	prev, _ := utf8.DecodeLastRuneInString(text[:start])
	if unicode.IsSpace(prev) {
		return trimLeft(text[start:])
	}
	for i, r := range text[start:] {
		if unicode.IsSpace(r) {
			if aligned := trimLeft(text[start+i:]); aligned != "" {
				return aligned
			}
			break
		}
	}
	return text[start:]
}

// runeOffsets returns the byte offset of every rune boundary in s,
// including len(s).
func runeOffsets(s string) []int {
	offsets := make([]int, 0, len(s)+1)
	for i := range s {
		offsets = append(offsets, i)
	}
	return append(offsets, len(s))
}

// paragraphSpans splits content at blank lines.
func paragraphSpans(content string) []unit {
	var out []unit
	start := 0
	for _, br := range paragraphBreak.FindAllStringIndex(content, -1) {
		out = appendTrimmed(out, content, start, br[0])
		start = br[1]
	}
	return appendTrimmed(out, content, start, len(content))
}

// sentenceSpans splits a span after sentence terminators followed by whitespace.
func sentenceSpans(content string, within unit) []unit {
	var out []unit
	start := within.start
	for i := within.start; i < within.end-1; i++ {
		switch content[i] {
		case '.', '!', '?':
			if isSpaceByte(content[i+1]) {
				out = appendTrimmed(out, content, start, i+1)
				start = i + 1
			}
		}
	}
	return appendTrimmed(out, content, start, within.end)
}

// wordSpans splits a span at whitespace.
func wordSpans(content string, within unit) []unit {
	var out []unit
	start := -1
	for i, r := range content[within.start:within.end] {
		pos := within.start + i
		if unicode.IsSpace(r) {
			if start >= 0 {
				out = append(out, unit{start: start, end: pos})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = pos
		}
	}
	if start >= 0 {
		out = append(out, unit{start: start, end: within.end})
	}
	return out
}

// appendTrimmed appends content[start:end] without surrounding whitespace,
// skipping it when nothing remains.
func appendTrimmed(out []unit, content string, start, end int) []unit {
	for start < end {
		r, size := utf8.DecodeRuneInString(content[start:end])
		if !unicode.IsSpace(r) {
			break
		}
		start += size
	}
	for end > start {
		r, size := utf8.DecodeLastRuneInString(content[start:end])
		if !unicode.IsSpace(r) {
			break
		}
		end -= size
	}
	if start >= end {
		return out
	}
	return append(out, unit{start: start, end: end})
}

// dropLeadingWord removes the first word of s, or its first rune when s
// has no whitespace.
func dropLeadingWord(s string) string {
	for i, r := range s {
		if unicode.IsSpace(r) {
			return trimLeft(s[i:])
		}
	}
	_, size := utf8.DecodeRuneInString(s)
	return s[size:]
}

func trimLeft(s string) string {
	for i, r := range s {
		if !unicode.IsSpace(r) {
			return s[i:]
		}
	}
	return ""
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r' || b == '\f' || b == '\v'
}
