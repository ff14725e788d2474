// Package storage keeps a journal of trigger firings.
//
// The journal is observational: the schedule itself is never persisted and
// is rebuilt from configuration on every start.
//
// Drivers:
//   - "file": JSON lines, compacted in place
//   - "sqlite": SQLite database file (build tag sqlite)
package storage
