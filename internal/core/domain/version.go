package domain

import (
	"fmt"
	"regexp"
	"time"
)

// DefaultVersion is the version label meaning "whatever is active".
const DefaultVersion = "default"

// CorpusVersion is one trained corpus for a model key.
// At most one version per model key is active at a time.
type CorpusVersion struct {
	// ModelKey is the logical model this corpus serves.
	ModelKey string `json:"model"`

	// VersionID identifies the version within its model.
	VersionID string `json:"version"`

	// Description is free text supplied at training time.
	Description string `json:"description,omitempty"`

	// CreatedAt is when ingestion completed.
	CreatedAt time.Time `json:"created_at"`

	// Files lists the uploaded document names in ingestion order.
	Files []string `json:"files"`

	// Active marks the version serving queries for ModelKey.
	Active bool `json:"active"`

	// PassageCount is the number of passages (and vectors) in the corpus.
	PassageCount int `json:"passages"`

	// Dimensions is the embedding vector size.
	Dimensions int `json:"dimensions"`

	// EmbeddingModel names the model that produced the vectors.
	EmbeddingModel string `json:"embedding_model,omitempty"`
}

// Key returns the "model/version" identifier.
func (v CorpusVersion) Key() string {
	return v.ModelKey + "/" + v.VersionID
}

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ValidateKey checks that a model key or version id is safe to use as a
// single path component.
func ValidateKey(kind, key string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("%w: %s %q must match %s", ErrInvalidInput, kind, key, keyPattern.String())
	}
	return nil
}

// CorpusManifest records the shape of a persisted corpus.
// It is written alongside the corpus files and checked on load.
type CorpusManifest struct {
	ModelKey       string    `json:"model"`
	VersionID      string    `json:"version"`
	Passages       int       `json:"passages"`
	Dimensions     int       `json:"dimensions"`
	EmbeddingModel string    `json:"embedding_model,omitempty"`
	Files          []string  `json:"files"`
	CreatedAt      time.Time `json:"created_at"`
}
