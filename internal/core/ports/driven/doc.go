// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - EmbeddingService: Turns passages and queries into vectors
//   - Normaliser / NormaliserRegistry: Extracts text from uploaded documents
//   - PostProcessor / PostProcessorPipeline: Chunks extracted text
//   - VectorIndex: Inner-product search over unit vectors
//   - CorpusStore: Per-version passages, vectors and index on disk
//   - VersionStore: The persisted version registry record
//   - ChatLogStore: The append-only chat/feedback log
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - LLMService: Without it, chat replies carry a placeholder message.
//   - Transcriber: Without it, transcription yields "(no transcript)".
//   - Translator: Without it, text passes through untranslated.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
