package authcore

import (
	"context"
	"errors"
	"time"

	"github.com/kmorrell/authcore/kv"
)

const revocationKeyPrefix = "rvk"

// RevocationList is the token denylist, backed by any kv.Store. Each
// revoked jti is stored for the token's remaining lifetime; once the
// token would have expired anyway the entry lapses with it.
//
// It implements [token.Revoker].
type RevocationList struct {
	store kv.Store
}

// NewRevocationList wraps store as a revocation list.
func NewRevocationList(store kv.Store) *RevocationList {
	return &RevocationList{store: store}
}

func (r *RevocationList) key(jti string) string {
	return revocationKeyPrefix + ":" + jti
}

// Revoke marks jti as revoked for ttl.
func (r *RevocationList) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	return r.store.Put(ctx, r.key(jti), []byte{1}, ttl)
}

// IsRevoked reports whether jti is on the list. Store failures are
// returned so the codec can fail closed.
func (r *RevocationList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	_, err := r.store.Get(ctx, r.key(jti))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
