package domain

// DefaultTopK is the number of passages retrieved when the caller gives none.
const DefaultTopK = 4

// DefaultContextBudget bounds the concatenated context in characters.
const DefaultContextBudget = 3500

// RetrievalOptions configures a retrieval query.
type RetrievalOptions struct {
	// TopK is the maximum number of passages. Zero means DefaultTopK.
	TopK int

	// Version pins a specific version. Empty or DefaultVersion means active.
	Version string
}

// RetrievalResult is the outcome of a retrieval query.
// An untrained model yields an empty result with NotTrained set, not an error.
type RetrievalResult struct {
	ModelKey string `json:"model"`

	// VersionID is the version that served the query, if any.
	VersionID string `json:"version,omitempty"`

	Passages []ScoredPassage `json:"passages"`

	// Context is the concatenated passage text truncated to the budget.
	Context string `json:"context"`

	NotTrained bool `json:"not_trained"`

	// Warnings lists degraded collaborator calls. Empty on full success.
	Warnings []string `json:"warnings,omitempty"`
}

// Empty reports whether no passages were returned.
func (r RetrievalResult) Empty() bool {
	return len(r.Passages) == 0
}

// ChatRequest is one question submitted to the chat service.
type ChatRequest struct {
	UserID   string
	ModelKey string
	Feature  string
	Version  string
	Question string

	// Language is the user's language. Empty or "en" skips translation.
	Language string
}

// ChatResponse is the reply to a ChatRequest.
type ChatResponse struct {
	Entry    ChatLogEntry
	Reply    string
	Warnings []string
}
