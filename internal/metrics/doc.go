// Package metrics provides lock-free counters for engine
// observability.
//
// Counters are stored in cache-line-padded uint64 slots and
// incremented atomically, so the write path is allocation-free and
// safe under concurrent logins. The package performs no I/O; callers
// read [Metrics.Snapshot] and export however they like.
package metrics
