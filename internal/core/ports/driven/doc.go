// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - DocumentRepository: Document persistence and per-case listing
//   - TimelineRepository: Timeline persistence
//   - Chunker: Splits document content into bounded chunks
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - CompletionService: Text generation. Without it, summarisation and
//     timeline runs fail with domain.ErrLLMUnavailable.
//   - PromptStore: Customisable prompts. Without it, embedded defaults are used.
//   - Connector, Normaliser: Only needed for ingesting scraped records.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
