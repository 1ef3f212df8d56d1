package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
	"github.com/custodia-labs/ragdesk/internal/logger"
)

// Ensure ChatLogStore implements the interface.
var _ driven.ChatLogStore = (*ChatLogStore)(nil)

// ChatLogFile is the log record name inside the data directory.
const ChatLogFile = "chatlog.json"

// chatLogDoc is the on-disk shape of the chat log.
type chatLogDoc struct {
	Seq  int64                 `json:"seq"`
	Logs []domain.ChatLogEntry `json:"logs"`

	// stamp identifies the file version the doc was read from or written as.
	stamp fileStamp
}

// fileStamp identifies one version of a file. Atomic replacement gives every
// write a new inode, so SameFile tells versions apart even within one mtime tick.
type fileStamp struct {
	info os.FileInfo
}

func (a fileStamp) same(b fileStamp) bool {
	if a.info == nil || b.info == nil {
		return a.info == nil && b.info == nil
	}
	return os.SameFile(a.info, b.info) &&
		a.info.ModTime().Equal(b.info.ModTime()) &&
		a.info.Size() == b.info.Size()
}

// ChatLogStore keeps the chat log in one JSON file.
//
// Writers serialise on mu and on a lock file shared with other processes,
// re-read chatlog.json, and publish a new immutable snapshot only after the
// file has been replaced. Readers never block: they use the snapshot and
// re-read the file only when another process has replaced it.
type ChatLogStore struct {
	mu       sync.Mutex
	path     string
	snapshot atomic.Pointer[chatLogDoc]
	now      func() time.Time
}

// NewChatLogStore opens (or creates on first write) <dataDir>/chatlog.json.
func NewChatLogStore(dataDir string) (*ChatLogStore, error) {
	s := &ChatLogStore{
		path: filepath.Join(dataDir, ChatLogFile),
		now:  func() time.Time { return time.Now().UTC() },
	}

	doc, err := s.read()
	if err != nil {
		return nil, fmt.Errorf("open chat log: %w", err)
	}
	s.snapshot.Store(doc)
	return s, nil
}

// read loads the persisted log. A missing file is an empty log.
func (s *ChatLogStore) read() (*chatLogDoc, error) {
	doc := &chatLogDoc{stamp: s.stat()}
	if _, err := ReadJSON(s.path, doc); err != nil {
		return nil, err
	}
	for _, e := range doc.Logs {
		if e.ID > doc.Seq {
			doc.Seq = e.ID
		}
	}
	return doc, nil
}

func (s *ChatLogStore) stat() fileStamp {
	info, err := os.Stat(s.path)
	if err != nil {
		return fileStamp{}
	}
	return fileStamp{info: info}
}

// current returns the snapshot, first re-reading the file when it was
// replaced since the snapshot was taken.
func (s *ChatLogStore) current() *chatLogDoc {
	cur := s.snapshot.Load()
	if s.stat().same(cur.stamp) {
		return cur
	}
	doc, err := s.read()
	if err != nil {
		logger.Warn("re-read chat log: %v", err)
		return cur
	}
	s.snapshot.CompareAndSwap(cur, doc)
	return doc
}

// mutate runs a read-modify-write cycle on the persisted log under both
// locks. change returns the new state, or an error to abandon the cycle.
func (s *ChatLogStore) mutate(ctx context.Context, change func(cur *chatLogDoc) (*chatLogDoc, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return withFileLock(ctx, s.path, func() error {
		cur, err := s.read()
		if err != nil {
			return fmt.Errorf("%w: read chat log: %v", domain.ErrStorageWrite, err)
		}
		next, err := change(cur)
		if err != nil {
			return err
		}
		if err := WriteJSONAtomic(s.path, next); err != nil {
			return err
		}
		next.stamp = s.stat()
		s.snapshot.Store(next)
		return nil
	})
}

// Append assigns the next id and persists the entry.
func (s *ChatLogStore) Append(ctx context.Context, entry domain.ChatLogEntry) (domain.ChatLogEntry, error) {
	err := s.mutate(ctx, func(cur *chatLogDoc) (*chatLogDoc, error) {
		next := &chatLogDoc{
			Seq:  cur.Seq + 1,
			Logs: make([]domain.ChatLogEntry, len(cur.Logs), len(cur.Logs)+1),
		}
		copy(next.Logs, cur.Logs)

		entry.ID = next.Seq
		if entry.Timestamp.IsZero() {
			entry.Timestamp = s.now()
		}
		entry.Feedback = domain.NormaliseFeedback(entry.Feedback)
		next.Logs = append(next.Logs, entry)
		return next, nil
	})
	if err != nil {
		return domain.ChatLogEntry{}, err
	}
	return entry, nil
}

// SetFeedback updates the feedback of the first entry matching key.
func (s *ChatLogStore) SetFeedback(ctx context.Context, key domain.FeedbackKey, feedback string) (domain.ChatLogEntry, error) {
	var updated domain.ChatLogEntry
	err := s.mutate(ctx, func(cur *chatLogDoc) (*chatLogDoc, error) {
		pos := -1
		for i, e := range cur.Logs {
			if key.Matches(e) {
				pos = i
				break
			}
		}
		if pos < 0 {
			return nil, domain.ErrNotFound
		}

		next := &chatLogDoc{Seq: cur.Seq, Logs: make([]domain.ChatLogEntry, len(cur.Logs))}
		copy(next.Logs, cur.Logs)
		next.Logs[pos].Feedback = domain.NormaliseFeedback(feedback)
		updated = next.Logs[pos]
		return next, nil
	})
	if err != nil {
		return domain.ChatLogEntry{}, err
	}
	return updated, nil
}

// Get returns one entry by id.
func (s *ChatLogStore) Get(_ context.Context, id int64) (*domain.ChatLogEntry, error) {
	for _, e := range s.current().Logs {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, domain.ErrNotFound
}

// List returns matching entries, newest first.
func (s *ChatLogStore) List(_ context.Context, filter domain.LogFilter) ([]domain.ChatLogEntry, error) {
	return domain.ApplyLogFilter(s.current().Logs, filter), nil
}

// Count returns the number of entries.
func (s *ChatLogStore) Count(_ context.Context) (int, error) {
	return len(s.current().Logs), nil
}

// Path returns the log file location.
func (s *ChatLogStore) Path() string {
	return s.path
}

// Close is a no-op; every mutation is already on disk.
func (s *ChatLogStore) Close() error {
	return nil
}
