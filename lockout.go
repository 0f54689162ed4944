package authcore

import (
	"hash/fnv"
	"sync"
	"time"
)

// LockoutTracker counts failed login attempts per identifier inside a
// sliding window and reports when an identifier is locked out. The
// engine tracks usernames and, optionally, client IPs as independent
// identifiers.
type LockoutTracker interface {
	// RecordFailure notes one failure at the current time and returns
	// true when this failure triggers (or extends observation of) an
	// active lockout.
	RecordFailure(identifier string) bool
	// RecordSuccess clears the identifier's failure history.
	RecordSuccess(identifier string)
	// IsLocked reports whether the identifier is currently locked.
	IsLocked(identifier string) bool
}

type noopLockoutTracker struct{}

func (noopLockoutTracker) RecordFailure(string) bool { return false }
func (noopLockoutTracker) RecordSuccess(string)      {}
func (noopLockoutTracker) IsLocked(string) bool      { return false }

const lockoutShards = 64

type lockoutEntry struct {
	failures    []time.Time
	lockedUntil time.Time
}

type lockoutShard struct {
	mu      sync.Mutex
	entries map[string]*lockoutEntry
}

// slidingLockoutTracker is the in-memory LockoutTracker. Expired
// lockouts and stale failure timestamps are pruned lazily on access,
// so an idle identifier recovers without any background work.
type slidingLockoutTracker struct {
	maxFailures int
	window      time.Duration
	duration    time.Duration
	now         func() time.Time

	shards [lockoutShards]*lockoutShard
}

func newSlidingLockoutTracker(cfg LockoutConfig, now func() time.Time) *slidingLockoutTracker {
	t := &slidingLockoutTracker{
		maxFailures: cfg.MaxFailures,
		window:      cfg.Window,
		duration:    cfg.Duration,
		now:         now,
	}
	for i := range t.shards {
		t.shards[i] = &lockoutShard{entries: make(map[string]*lockoutEntry)}
	}
	return t
}

func (t *slidingLockoutTracker) shard(identifier string) *lockoutShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(identifier))
	return t.shards[h.Sum32()%lockoutShards]
}

func (t *slidingLockoutTracker) RecordFailure(identifier string) bool {
	now := t.now()
	s := t.shard(identifier)
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[identifier]
	if !ok {
		entry = &lockoutEntry{}
		s.entries[identifier] = entry
	}

	if now.Before(entry.lockedUntil) {
		return true
	}

	entry.prune(now.Add(-t.window))
	entry.failures = append(entry.failures, now)

	if len(entry.failures) >= t.maxFailures {
		entry.lockedUntil = now.Add(t.duration)
		entry.failures = nil
		return true
	}
	return false
}

func (t *slidingLockoutTracker) RecordSuccess(identifier string) {
	s := t.shard(identifier)
	s.mu.Lock()
	delete(s.entries, identifier)
	s.mu.Unlock()
}

func (t *slidingLockoutTracker) IsLocked(identifier string) bool {
	now := t.now()
	s := t.shard(identifier)
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[identifier]
	if !ok {
		return false
	}

	if now.Before(entry.lockedUntil) {
		return true
	}

	// Lockout expired; drop the entry if nothing recent remains.
	entry.lockedUntil = time.Time{}
	entry.prune(now.Add(-t.window))
	if len(entry.failures) == 0 {
		delete(s.entries, identifier)
	}
	return false
}

func (e *lockoutEntry) prune(cutoff time.Time) {
	kept := e.failures[:0]
	for _, ts := range e.failures {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	e.failures = kept
}
