package oauth

import (
	"context"

	"golang.org/x/oauth2"
)

// Profile is the normalized identity returned by every provider. The
// reconciler only ever sees this shape, so adding a provider never
// touches reconciliation.
type Profile struct {
	// Subject is the provider's stable unique identifier for the user.
	Subject string
	// Email is the verified email address reported by the provider.
	Email string
	// Name is the display name, possibly empty.
	Name string
}

// IdentityProvider abstracts one external OAuth provider. All methods
// except Name perform network I/O and honor the context deadline.
type IdentityProvider interface {
	// Name returns the provider key used in state tokens and user
	// records, e.g. "google".
	Name() string

	// AuthorizationURL builds the provider's consent page URL with the
	// given anti-CSRF state token embedded.
	AuthorizationURL(state string) string

	// Exchange trades an authorization code for a provider token.
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)

	// FetchProfile retrieves the normalized profile for tok.
	FetchProfile(ctx context.Context, tok *oauth2.Token) (*Profile, error)

	// Revoke revokes tok on the provider side. Best effort; callers
	// proceed with local logout regardless of the outcome.
	Revoke(ctx context.Context, tok *oauth2.Token) error
}
