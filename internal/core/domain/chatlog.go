package domain

import (
	"sort"
	"strings"
	"time"
)

// Feedback values recognised by the UI. Any other string is stored verbatim.
const (
	FeedbackNone     = "none"
	FeedbackPositive = "positive"
	FeedbackNegative = "negative"
)

// Features select the system prompt used for an exchange.
const (
	FeatureRAG  = "rag"
	FeatureLoRA = "lora"
)

// ChatLogEntry records one question/answer exchange.
// Feedback is the only field mutated after creation.
type ChatLogEntry struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"ts"`
	UserID    string    `json:"user_id"`
	ModelKey  string    `json:"model"`
	Feature   string    `json:"feature,omitempty"`
	Version   string    `json:"version,omitempty"`
	Question  string    `json:"question"`
	Answer    string    `json:"reply"`
	Feedback  string    `json:"feedback,omitempty"`
}

// NormaliseFeedback maps the "none" sentinel to the empty value.
func NormaliseFeedback(value string) string {
	v := strings.TrimSpace(value)
	if strings.EqualFold(v, FeedbackNone) {
		return ""
	}
	return v
}

// FeedbackKey locates an entry either by id or by timestamp.
type FeedbackKey struct {
	ID        int64
	Timestamp time.Time
}

// Matches reports whether the key selects the entry.
func (k FeedbackKey) Matches(e ChatLogEntry) bool {
	if k.ID != 0 {
		return e.ID == k.ID
	}
	return !k.Timestamp.IsZero() && e.Timestamp.Equal(k.Timestamp)
}

// IsZero reports whether the key selects nothing.
func (k FeedbackKey) IsZero() bool {
	return k.ID == 0 && k.Timestamp.IsZero()
}

// DefaultLogLimit bounds log listings when no limit is given.
const DefaultLogLimit = 1000

// LogFilter narrows a chat log listing.
type LogFilter struct {
	// ModelKey matches case-insensitively. Empty matches all.
	ModelKey string

	// Feedback matches exactly; "none" matches entries without feedback.
	Feedback string

	// UserID matches exactly. Empty matches all.
	UserID string

	Skip  int
	Limit int
}

// Match reports whether the entry passes the filter's predicates.
// Skip and Limit are applied by the caller after sorting.
func (f LogFilter) Match(e ChatLogEntry) bool {
	if f.ModelKey != "" && !strings.EqualFold(f.ModelKey, e.ModelKey) {
		return false
	}
	if f.Feedback != "" {
		if strings.EqualFold(f.Feedback, FeedbackNone) {
			if e.Feedback != "" {
				return false
			}
		} else if f.Feedback != e.Feedback {
			return false
		}
	}
	if f.UserID != "" && f.UserID != e.UserID {
		return false
	}
	return true
}

// EffectiveLimit returns Limit or DefaultLogLimit when unset.
func (f LogFilter) EffectiveLimit() int {
	if f.Limit <= 0 {
		return DefaultLogLimit
	}
	return f.Limit
}

// ApplyLogFilter returns the entries matching f, newest first (ties by
// higher id first), after Skip and Limit. The input is not modified.
func ApplyLogFilter(entries []ChatLogEntry, f LogFilter) []ChatLogEntry {
	matched := make([]ChatLogEntry, 0, len(entries))
	for _, e := range entries {
		if f.Match(e) {
			matched = append(matched, e)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].Timestamp.Equal(matched[j].Timestamp) {
			return matched[i].Timestamp.After(matched[j].Timestamp)
		}
		return matched[i].ID > matched[j].ID
	})

	skip := max(f.Skip, 0)
	if skip >= len(matched) {
		return []ChatLogEntry{}
	}
	matched = matched[skip:]
	if limit := f.EffectiveLimit(); len(matched) > limit {
		matched = matched[:limit]
	}
	return matched
}
