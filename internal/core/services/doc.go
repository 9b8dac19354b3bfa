// Package services implements the driving port interfaces.
// Services contain the pipeline logic (chunk summarisation, map-reduce,
// timeline assembly, batch orchestration) and call driven ports (adapters)
// for completion, storage and chunking.
//
// Services are pure Go with no CGO.
package services
