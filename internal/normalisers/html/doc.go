// Package html provides a Normaliser implementation for HTML bulletin pages.
// It extracts readable text with goquery, dropping scripts and styles,
// keeping paragraph breaks and writing link targets after their text so
// references to other publications survive summarisation.
package html
