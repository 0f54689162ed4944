package authcore

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func testLockoutConfig() LockoutConfig {
	return LockoutConfig{
		Enabled:     true,
		MaxFailures: 5,
		Window:      time.Minute,
		Duration:    15 * time.Minute,
	}
}

func newTestTracker() (*slidingLockoutTracker, *fakeClock) {
	clock := newFakeClock()
	return newSlidingLockoutTracker(testLockoutConfig(), clock.Now), clock
}

func TestLockoutThreshold(t *testing.T) {
	tracker, _ := newTestTracker()

	for i := 0; i < 4; i++ {
		if tracker.RecordFailure("alice") {
			t.Fatalf("failure %d must not lock", i+1)
		}
	}
	if tracker.IsLocked("alice") {
		t.Fatal("four failures must not lock")
	}

	if !tracker.RecordFailure("alice") {
		t.Fatal("fifth failure must lock")
	}
	if !tracker.IsLocked("alice") {
		t.Fatal("expected locked after fifth failure")
	}
}

func TestLockoutSuccessClears(t *testing.T) {
	tracker, _ := newTestTracker()

	for i := 0; i < 4; i++ {
		tracker.RecordFailure("alice")
	}
	tracker.RecordSuccess("alice")

	for i := 0; i < 4; i++ {
		if tracker.RecordFailure("alice") {
			t.Fatalf("failure %d after reset must not lock", i+1)
		}
	}
}

func TestLockoutWindowSlides(t *testing.T) {
	tracker, clock := newTestTracker()

	for i := 0; i < 4; i++ {
		tracker.RecordFailure("alice")
	}

	// The old failures age out of the one-minute window.
	clock.Advance(61 * time.Second)

	if tracker.RecordFailure("alice") {
		t.Fatal("failure after window expiry must not lock")
	}
}

func TestLockoutLazyExpiry(t *testing.T) {
	tracker, clock := newTestTracker()

	for i := 0; i < 5; i++ {
		tracker.RecordFailure("alice")
	}
	if !tracker.IsLocked("alice") {
		t.Fatal("expected locked")
	}

	clock.Advance(15*time.Minute + time.Second)

	if tracker.IsLocked("alice") {
		t.Fatal("lock must expire")
	}
	// Expired state was removed entirely; the counter starts fresh.
	if tracker.RecordFailure("alice") {
		t.Fatal("first failure after expiry must not lock")
	}
}

func TestLockoutFailureDuringLockKeepsLock(t *testing.T) {
	tracker, _ := newTestTracker()

	for i := 0; i < 5; i++ {
		tracker.RecordFailure("alice")
	}
	if !tracker.RecordFailure("alice") {
		t.Fatal("failure during lock must report locked")
	}
}

func TestLockoutIdentifiersIndependent(t *testing.T) {
	tracker, _ := newTestTracker()

	for i := 0; i < 5; i++ {
		tracker.RecordFailure("alice")
	}
	if tracker.IsLocked("bob") {
		t.Fatal("bob must be unaffected")
	}
}

func TestLockoutConcurrentAccess(t *testing.T) {
	tracker, _ := newTestTracker()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			id := fmt.Sprintf("user-%d", g%4)
			for i := 0; i < 100; i++ {
				tracker.RecordFailure(id)
				tracker.IsLocked(id)
				tracker.RecordSuccess(id)
			}
		}(g)
	}
	wg.Wait()
}

func TestNoopTracker(t *testing.T) {
	var tracker LockoutTracker = noopLockoutTracker{}

	for i := 0; i < 100; i++ {
		if tracker.RecordFailure("alice") {
			t.Fatal("noop tracker must never lock")
		}
	}
	if tracker.IsLocked("alice") {
		t.Fatal("noop tracker must never report locked")
	}
}
