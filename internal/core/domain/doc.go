// Package domain defines the core business entities for ragcell.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Chunk: A bounded, provenance-tagged fragment of source text
//   - RawDocument: Plain text extracted from a file, before chunking
//   - ScoredChunk: A retrieved chunk with its similarity to the query
//   - CollectionInfo: Summary of one persisted collection
//   - StreamToken: One increment of a streamed answer
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
