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
//   - DocumentLoader: Extracts plain text from files on disk
//   - EmbeddingService: Generates vector embeddings
//   - ChunkStore: Chunk and vector persistence per collection
//   - VectorSearcher: Cosine-similarity candidate retrieval
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - GenerationService: Streams grounded answers. Without it only
//     retrieval is available, not answering.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
