// Package domain defines the core business entities for ragbase.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A source document supplied for ingestion
//   - Chunk: A bounded text segment derived from a document
//   - Record: An embedded chunk persisted in the knowledge store
//   - Hit: A ranked similarity search result
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
