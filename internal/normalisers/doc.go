// Package normalisers provides implementations of the Normaliser interface
// for the formats bulletin records arrive in. Each normaliser knows how to
// extract text from a specific MIME type; the Registry picks one per record
// and falls back to plain text.
package normalisers
