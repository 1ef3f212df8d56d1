// Package file provides filesystem implementations of the ragdesk stores.
//
// Every record is a whole file replaced atomically: the new state is written
// to a temporary file in the same directory, synced, and renamed over the
// previous one. A crash mid-write leaves either the old or the new file.
//
// Adapters:
//   - VersionStore: versions.json, the corpus version registry record
//   - ChatLogStore: chatlog.json, the append-only chat/feedback log
//   - CorpusStore: models/<model>/<version>/ directories
package file
