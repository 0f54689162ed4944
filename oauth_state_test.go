package authcore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kmorrell/authcore/kv"
)

func newTestStateManager(t *testing.T) (*stateManager, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	store := kv.NewMemory(kv.WithNowFunc(clock.Now))
	t.Cleanup(store.Close)
	return newStateManager(store, 10*time.Minute, clock.Now), clock
}

func TestStateSingleUse(t *testing.T) {
	manager, _ := newTestStateManager(t)
	ctx := context.Background()

	state, err := manager.Issue(ctx, "google", "/after")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	record, err := manager.Consume(ctx, state, "google")
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if record.ReturnURL != "/after" {
		t.Fatalf("ReturnURL = %q, want /after", record.ReturnURL)
	}

	if _, err := manager.Consume(ctx, state, "google"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("second Consume = %v, want ErrInvalidState", err)
	}
}

func TestStateProviderMismatchConsumes(t *testing.T) {
	manager, _ := newTestStateManager(t)
	ctx := context.Background()

	state, err := manager.Issue(ctx, "google", "")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := manager.Consume(ctx, state, "github"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("mismatched Consume = %v, want ErrInvalidState", err)
	}
	// The mismatch burned the token.
	if _, err := manager.Consume(ctx, state, "google"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("replay after mismatch = %v, want ErrInvalidState", err)
	}
}

func TestStateExpiry(t *testing.T) {
	manager, clock := newTestStateManager(t)
	ctx := context.Background()

	state, err := manager.Issue(ctx, "google", "")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	clock.Advance(10*time.Minute + time.Second)

	if _, err := manager.Consume(ctx, state, "google"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expired Consume = %v, want ErrInvalidState", err)
	}
}

func TestStateUnknownAndEmpty(t *testing.T) {
	manager, _ := newTestStateManager(t)
	ctx := context.Background()

	if _, err := manager.Consume(ctx, "never-issued", "google"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("unknown Consume = %v, want ErrInvalidState", err)
	}
	if _, err := manager.Consume(ctx, "", "google"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("empty Consume = %v, want ErrInvalidState", err)
	}
}

func TestStateTokensUnique(t *testing.T) {
	manager, _ := newTestStateManager(t)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 32; i++ {
		state, err := manager.Issue(ctx, "google", "")
		if err != nil {
			t.Fatalf("Issue: %v", err)
		}
		if seen[state] {
			t.Fatal("duplicate state token")
		}
		seen[state] = true
	}
}

func TestStateRecordRoundTrip(t *testing.T) {
	record := &oauthStateRecord{
		Provider:  "google",
		ReturnURL: "/return?next=%2Fdeep",
		ExpiresAt: 1750000000,
	}

	encoded, err := encodeOAuthStateRecord(record)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := decodeOAuthStateRecord(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if *decoded != *record {
		t.Fatalf("round trip mismatch: %+v != %+v", decoded, record)
	}
}

func TestStateRecordRejectsCorruption(t *testing.T) {
	record := &oauthStateRecord{Provider: "google", ExpiresAt: 1750000000}
	encoded, err := encodeOAuthStateRecord(record)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	cases := map[string][]byte{
		"empty":         {},
		"bad version":   append([]byte{99}, encoded[1:]...),
		"truncated":     encoded[:len(encoded)-1],
		"only version":  {stateRecordVersionV1},
		"no provider": func() []byte {
			empty, _ := encodeOAuthStateRecord(&oauthStateRecord{Provider: "", ExpiresAt: 1})
			return empty
		}(),
	}
	for name, data := range cases {
		if _, err := decodeOAuthStateRecord(data); err == nil {
			t.Errorf("%s: expected decode error", name)
		}
	}
}
