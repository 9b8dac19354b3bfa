// Package docx provides a Normaliser implementation for Word documents
// attached to bulletin records. It reads the paragraphs of
// word/document.xml and the title from docProps/core.xml.
package docx
