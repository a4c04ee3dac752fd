// Package store provides SQLite-backed durable storage for the River VM.
//
// The store holds:
//   - Principals and their signer keys (verification lookups)
//   - Channels, items, submissions and responses (handler state)
//   - Messages: the append-only audit log, keyed by content id
//   - URI info: metadata placeholders created alongside items
//
// # Idempotency
//
// Every record is keyed by the content id of the message that created it,
// and every insert uses ON CONFLICT DO NOTHING. Re-committing byte-identical
// message data is therefore a no-op.
//
// # Status transitions
//
// A submission leaves Pending through a single compare-and-set UPDATE
// (WHERE status = 0). The affected row count tells the caller whether it
// won the transition.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//   - One open connection: transactions are serialized
//
// Requester ids and timestamps are stored as decimal TEXT so the full
// unsigned 64-bit range survives.
package store
