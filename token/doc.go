// Package token defines the portable token record: a genesis, an ordered
// transfer chain, the current ownership state and an optional pending
// transfer descriptor.
//
// The in-memory Record always carries both the current state and every
// transaction's source state. Compaction of duplicated state is confined to
// the codec package.
package token
