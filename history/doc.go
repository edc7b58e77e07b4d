// Package history bounds and serves recent conversation turns.
//
// A Window is a FIFO of at most L turns: appending beyond L evicts the
// oldest turns first, and snapshots are chronological copies. Stores keep
// one window per session id. MemoryStore serves a single process;
// RedisStore shares windows between processes using a capped Redis list
// per session.
package history
