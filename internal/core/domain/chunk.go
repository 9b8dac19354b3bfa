package domain

import "unicode/utf8"

// Chunk is a bounded fragment of a document's content.
//
// Text is the chunk's own span of the document content: joining the Text of
// all chunks in Index order reproduces the content up to the whitespace at
// chunk boundaries. Overlap is context carried over from the previous chunk
// and is sent to the completion service ahead of Text.
type Chunk struct {
	// ID is a deterministic identifier derived from document ID and index.
	ID string

	// DocumentID is the owning document.
	DocumentID string

	// Index is the 0-based position within the document.
	Index int

	// Text is the chunk's own span of content.
	Text string

	// Overlap is the trailing text of the previous chunk.
	Overlap string

	// Size is the size of Overlap plus Text in the configured size unit.
	Size int

	// Start and End are the byte offsets of Text within the document content.
	Start int
	End   int

	// Truncated is set when the chunk boundary cuts through a single token
	// that did not fit the size limit on its own.
	Truncated bool
}

// PromptText returns the text sent to the completion service for this chunk.
func (c Chunk) PromptText() string {
	if c.Overlap == "" {
		return c.Text
	}
	return c.Overlap + " " + c.Text
}

// SizeUnit is the unit in which chunk and summary sizes are measured.
type SizeUnit string

// Supported size units.
const (
	// SizeUnitChars measures size in Unicode code points.
	SizeUnitChars SizeUnit = "chars"

	// SizeUnitTokens estimates size in tokens (four characters per token).
	SizeUnitTokens SizeUnit = "tokens"
)

// charsPerToken is the rough character-to-token ratio used for estimates.
const charsPerToken = 4

// IsValid returns true if the unit is recognised.
func (u SizeUnit) IsValid() bool {
	return u == SizeUnitChars || u == SizeUnitTokens
}

// Measure returns the size of s in this unit.
func (u SizeUnit) Measure(s string) int {
	n := utf8.RuneCountInString(s)
	if u == SizeUnitTokens {
		return (n + charsPerToken - 1) / charsPerToken
	}
	return n
}

// Tokens converts a size in this unit to an approximate token count.
func (u SizeUnit) Tokens(size int) int {
	if u == SizeUnitTokens {
		return size
	}
	return (size + charsPerToken - 1) / charsPerToken
}

// String returns the string representation.
func (u SizeUnit) String() string {
	return string(u)
}
