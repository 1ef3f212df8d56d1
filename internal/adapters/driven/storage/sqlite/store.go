package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/ragdesk/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
)

// DatabaseFile is the database name inside the data directory.
const DatabaseFile = "chatlog.db"

// Store is a SQLite-backed chat log.
type Store struct {
	db   *sql.DB
	path string

	// mu serialises writers.
	mu  sync.Mutex
	now func() time.Time
}

// Ensure Store implements the interface.
var _ driven.ChatLogStore = (*Store)(nil)

// NewStore opens (creating if needed) <dataDir>/chatlog.db and applies
// pending migrations.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("%w: data directory is required", domain.ErrInvalidInput)
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
		now:  func() time.Time { return time.Now().UTC() },
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_chatlog.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

const selectColumns = `id, ts_ns, user_id, model, feature, version, question, reply, feedback`

// Append assigns the next id and persists the entry.
func (s *Store) Append(ctx context.Context, entry domain.ChatLogEntry) (domain.ChatLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now()
	}
	entry.Feedback = domain.NormaliseFeedback(entry.Feedback)

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_logs (ts_ns, user_id, model, feature, version, question, reply, feedback)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.Timestamp.UnixNano(), entry.UserID, entry.ModelKey, entry.Feature, entry.Version,
		entry.Question, entry.Answer, entry.Feedback)
	if err != nil {
		return domain.ChatLogEntry{}, fmt.Errorf("%w: inserting chat log: %v", domain.ErrStorageWrite, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return domain.ChatLogEntry{}, fmt.Errorf("reading chat log id: %w", err)
	}
	entry.ID = id
	entry.Timestamp = time.Unix(0, entry.Timestamp.UnixNano()).UTC()
	return entry, nil
}

// SetFeedback updates the feedback of the first entry matching key.
func (s *Store) SetFeedback(ctx context.Context, key domain.FeedbackKey, feedback string) (domain.ChatLogEntry, error) {
	if key.IsZero() {
		return domain.ChatLogEntry{}, fmt.Errorf("%w: feedback needs an id or timestamp", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var row *sql.Row
	if key.ID != 0 {
		row = s.db.QueryRowContext(ctx,
			`SELECT `+selectColumns+` FROM chat_logs WHERE id = ?`, key.ID)
	} else {
		row = s.db.QueryRowContext(ctx,
			`SELECT `+selectColumns+` FROM chat_logs WHERE ts_ns = ? ORDER BY id LIMIT 1`,
			key.Timestamp.UnixNano())
	}
	entry, err := scanEntry(row)
	if err != nil {
		return domain.ChatLogEntry{}, err
	}

	entry.Feedback = domain.NormaliseFeedback(feedback)
	if _, err := s.db.ExecContext(ctx,
		`UPDATE chat_logs SET feedback = ? WHERE id = ?`, entry.Feedback, entry.ID); err != nil {
		return domain.ChatLogEntry{}, fmt.Errorf("%w: updating feedback: %v", domain.ErrStorageWrite, err)
	}
	return entry, nil
}

// Get returns one entry by id.
func (s *Store) Get(ctx context.Context, id int64) (*domain.ChatLogEntry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM chat_logs WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// List returns matching entries, newest first.
func (s *Store) List(ctx context.Context, filter domain.LogFilter) ([]domain.ChatLogEntry, error) {
	var (
		where []string
		args  []any
	)
	if filter.ModelKey != "" {
		where = append(where, "model = ? COLLATE NOCASE")
		args = append(args, filter.ModelKey)
	}
	if filter.Feedback != "" {
		where = append(where, "feedback = ?")
		args = append(args, domain.NormaliseFeedback(filter.Feedback))
	}
	if filter.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, filter.UserID)
	}

	query := `SELECT ` + selectColumns + ` FROM chat_logs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY ts_ns DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, filter.EffectiveLimit(), max(filter.Skip, 0))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chat logs: %w", err)
	}
	defer rows.Close()

	entries := []domain.ChatLogEntry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Count returns the number of entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chat_logs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chat logs: %w", err)
	}
	return n, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (domain.ChatLogEntry, error) {
	var (
		e    domain.ChatLogEntry
		tsNs int64
	)
	err := row.Scan(&e.ID, &tsNs, &e.UserID, &e.ModelKey, &e.Feature, &e.Version,
		&e.Question, &e.Answer, &e.Feedback)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ChatLogEntry{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.ChatLogEntry{}, fmt.Errorf("scanning chat log: %w", err)
	}
	e.Timestamp = time.Unix(0, tsNs).UTC()
	return e, nil
}
