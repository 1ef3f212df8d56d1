package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
)

// Ensure ChatLogStore implements the interface.
var _ driven.ChatLogStore = (*ChatLogStore)(nil)

// ChatLogStore is an in-memory chat log. Contents are lost on Close.
type ChatLogStore struct {
	mu      sync.RWMutex
	seq     int64
	entries []domain.ChatLogEntry
	now     func() time.Time
}

// NewChatLogStore creates an empty chat log.
func NewChatLogStore() *ChatLogStore {
	return &ChatLogStore{now: func() time.Time { return time.Now().UTC() }}
}

// Append assigns the next id and stores the entry.
func (s *ChatLogStore) Append(_ context.Context, entry domain.ChatLogEntry) (domain.ChatLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	entry.ID = s.seq
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now()
	}
	entry.Feedback = domain.NormaliseFeedback(entry.Feedback)
	s.entries = append(s.entries, entry)
	return entry, nil
}

// SetFeedback updates the first entry matching key.
func (s *ChatLogStore) SetFeedback(_ context.Context, key domain.FeedbackKey, feedback string) (domain.ChatLogEntry, error) {
	if key.IsZero() {
		return domain.ChatLogEntry{}, fmt.Errorf("%w: feedback needs an id or timestamp", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.entries {
		if key.Matches(s.entries[i]) {
			s.entries[i].Feedback = domain.NormaliseFeedback(feedback)
			return s.entries[i], nil
		}
	}
	return domain.ChatLogEntry{}, domain.ErrNotFound
}

// Get returns one entry by id.
func (s *ChatLogStore) Get(_ context.Context, id int64) (*domain.ChatLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entries {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, domain.ErrNotFound
}

// List returns matching entries, newest first.
func (s *ChatLogStore) List(_ context.Context, filter domain.LogFilter) ([]domain.ChatLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.ApplyLogFilter(s.entries, filter), nil
}

// Count returns the number of entries.
func (s *ChatLogStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

// Close discards all entries.
func (s *ChatLogStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	return nil
}
