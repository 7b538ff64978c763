// Package journal records registry lifecycle events in SQLite.
//
// The journal is an append-only log. Every dispatched event becomes one row
// stamped with a sequence number from a logical clock, so entries read back
// in the order they were dispatched no matter how fast they arrived.
//
// # Ordering
//
//   - seq INTEGER is the only ordering key; wall time is never stored
//   - every query ends in ORDER BY seq ASC
//
// # Payloads
//
// Event properties are stored as canonical JSON: object keys sorted by
// UTF-16 code units, strings NFC normalized, no HTML escaping. Two equal
// events always produce byte-identical payloads.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - a single connection, SQLite allows one writer
package journal
