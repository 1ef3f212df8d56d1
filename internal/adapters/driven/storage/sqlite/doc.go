// Package sqlite provides a SQLite-backed chat log.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// The database is stored at <data dir>/chatlog.db.
//
// # Thread Safety
//
// Writes are serialised by a mutex so ids are assigned in commit order.
// Reads go straight to the database and run concurrently in WAL mode.
package sqlite
