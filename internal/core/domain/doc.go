// Package domain defines the core business entities for ragdesk.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - RawDocument: An uploaded reference document before extraction
//   - Document / Chunk: Intermediate text produced during ingestion
//   - Passage: A retrievable unit of text owned by one corpus version
//   - CorpusVersion: A trained corpus for a model key
//   - ChatLogEntry: One recorded question/answer exchange
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
