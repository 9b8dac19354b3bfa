package driven

// PromptStore provides access to completion prompt templates.
// Implementations may load prompts from files, embed them in the binary,
// or fetch them from a remote configuration service.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return a sensible default
	// or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names used throughout the application.
// These constants define the contract between prompt consumers and providers.
const (
	// PromptChunkSummary summarises one chunk of a document.
	// Placeholders: title, date, document type, chunk text (all %s).
	PromptChunkSummary = "chunk_summary"

	// PromptDocumentReduce combines chunk summaries into a document summary.
	// Placeholders: title, date, document type, summaries (all %s).
	PromptDocumentReduce = "document_reduce"

	// PromptEntryReduce combines document summaries sharing a date.
	// Placeholders: case, date, summaries (all %s).
	PromptEntryReduce = "entry_reduce"

	// PromptTimelineDescription writes an introduction over all entries.
	// Placeholders: case, entry summaries (all %s).
	PromptTimelineDescription = "timeline_description"
)
