// Package domain defines the core business entities for Tijdlijn.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A published bulletin document with metadata and summary
//   - Chunk: A bounded text fragment sized for the completion service
//   - Timeline: The dated entries assembled for one case
//   - PipelineConfig: Sizing, retry and concurrency configuration
//   - PipelineError: The tagged error taxonomy of the pipeline
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
