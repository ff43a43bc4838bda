// Package ledger implements the tourism verification chain.
//
// Guides, handicraft products, artisans and bookings are recorded as links
// of a hash chain. Each record's hash covers its id, canonical JSON payload,
// the predecessor's hash and its timestamp, so rewriting a stored payload is
// detectable via Verify or VerifyStored.
//
// Three implementations of the Store interface are provided:
//   - MemoryStore: in-process, for testing and development.
//   - PostgresStore: durable, backed by pgx.
//   - SQLStore: gorm with embedded SQLite, for single-node deployments.
package ledger
