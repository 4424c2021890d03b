// Package store keeps a SQLite journal of enumeration runs and their hits.
//
// Every run is identified by a UUIDv7, so identifiers sort by creation time.
// A run is created before its workers start, gains hits while it runs and is
// finished with its outcome. Recording the same position twice for a run is a
// no-op, which keeps retried workers from duplicating hits.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
