package authcore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kmorrell/authcore/kv"
)

type failingStore struct{ err error }

func (s *failingStore) Put(context.Context, string, []byte, time.Duration) error {
	return s.err
}
func (s *failingStore) Get(context.Context, string) ([]byte, error)    { return nil, s.err }
func (s *failingStore) GetDel(context.Context, string) ([]byte, error) { return nil, s.err }
func (s *failingStore) Delete(context.Context, string) error           { return s.err }

func TestRevocationListRoundTrip(t *testing.T) {
	clock := newFakeClock()
	store := kv.NewMemory(kv.WithNowFunc(clock.Now))
	t.Cleanup(store.Close)

	list := NewRevocationList(store)
	ctx := context.Background()

	revoked, err := list.IsRevoked(ctx, "jti-1")
	if err != nil {
		t.Fatalf("IsRevoked: %v", err)
	}
	if revoked {
		t.Fatal("fresh jti must not be revoked")
	}

	if err := list.Revoke(ctx, "jti-1", time.Hour); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	revoked, err = list.IsRevoked(ctx, "jti-1")
	if err != nil {
		t.Fatalf("IsRevoked: %v", err)
	}
	if !revoked {
		t.Fatal("expected revoked")
	}
}

func TestRevocationEntryLapsesWithToken(t *testing.T) {
	clock := newFakeClock()
	store := kv.NewMemory(kv.WithNowFunc(clock.Now))
	t.Cleanup(store.Close)

	list := NewRevocationList(store)
	ctx := context.Background()

	if err := list.Revoke(ctx, "jti-1", time.Hour); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	clock.Advance(61 * time.Minute)

	revoked, err := list.IsRevoked(ctx, "jti-1")
	if err != nil {
		t.Fatalf("IsRevoked: %v", err)
	}
	if revoked {
		t.Fatal("entry must lapse with the token it blacklists")
	}
}

func TestRevocationStoreFailureSurfaces(t *testing.T) {
	storeErr := errors.New("store down")
	list := NewRevocationList(&failingStore{err: storeErr})

	// The codec relies on this error to fail closed.
	if _, err := list.IsRevoked(context.Background(), "jti-1"); !errors.Is(err, storeErr) {
		t.Fatalf("IsRevoked = %v, want store error", err)
	}
}
