// Package sqlite provides an SQLite-backed index snapshot store.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Documents and index records are stored with an explicit
// sequence column so a loaded snapshot keeps insertion order. Vectors are stored
// as little-endian float32 blobs, an exact round trip.
//
// # Data Location
//
// By default, the database is stored at ~/.docchat/data/index.db
//
// # Thread Safety
//
// All operations are thread-safe. Save replaces the snapshot inside a single
// transaction.
package sqlite
