package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrPayloadTooLarge indicates input over its size limit.
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrUnsupportedType indicates no normaliser handles a document type.
	ErrUnsupportedType = errors.New("unsupported type")

	// Corpus Errors.

	// ErrNotTrained indicates a model has no active corpus version.
	// Retrieval treats this as an empty, non-fatal result.
	ErrNotTrained = errors.New("model not trained")

	// ErrVersionNotFound indicates an unknown (model, version) pair.
	ErrVersionNotFound = errors.New("version not found")

	// ErrCorruptIndex indicates persisted passage, vector and index counts disagree.
	// The affected version refuses to serve until it is re-ingested.
	ErrCorruptIndex = errors.New("corrupt index")

	// ErrStorageWrite indicates a temp-file write or atomic replace failed.
	// The store remains at its last committed state.
	ErrStorageWrite = errors.New("storage write failed")

	// ErrNotReady indicates background initialisation has not completed.
	ErrNotReady = errors.New("not ready")

	// Collaborator Errors.

	// ErrCollaboratorUnavailable indicates an embedding, LLM, speech or
	// translation call failed, timed out or returned an unexpected shape.
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Training and retrieval are disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrUnauthorized indicates a missing or wrong admin token.
	ErrUnauthorized = errors.New("unauthorized")
)
