// Package sqlite provides the durable record store backed by SQLite.
//
// A single database file holds documents and their embedding records.
// Vectors are stored as little-endian float32 blobs; the in-memory
// vector index is rebuilt from this store at startup. Schema changes
// ship as embedded SQL migrations applied in version order.
package sqlite
