package authcore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/kmorrell/authcore/oauth"
)

// reconciler maps a verified external profile to a local user record.
// Email is the sole reconciliation key: an existing account with the
// same email is linked to the external identity, otherwise a new
// account is created with a username derived from the email local part.
type reconciler struct {
	users       UserStore
	defaultRole string
}

func (r *reconciler) Reconcile(ctx context.Context, profile *oauth.Profile, provider string) (UserRecord, bool, error) {
	email := strings.ToLower(strings.TrimSpace(profile.Email))
	if email == "" {
		return UserRecord{}, false, errors.New("profile has no email")
	}

	user, err := r.users.FindByEmail(ctx, email)
	if err == nil {
		return r.link(ctx, user, provider, profile.Subject)
	}
	if !errors.Is(err, ErrUserNotFound) {
		return UserRecord{}, false, err
	}

	user, err = r.create(ctx, email, provider, profile.Subject)
	if err != nil {
		// A concurrent completion of the same flow may have created
		// the account between the lookup and the insert.
		if errors.Is(err, ErrDuplicateUser) {
			existing, findErr := r.users.FindByEmail(ctx, email)
			if findErr == nil {
				return r.link(ctx, existing, provider, profile.Subject)
			}
		}
		return UserRecord{}, false, err
	}
	return user, true, nil
}

// link records the provider binding on an existing account. Linking is
// idempotent; an account already bound to this provider is returned
// unchanged.
func (r *reconciler) link(ctx context.Context, user UserRecord, provider, subject string) (UserRecord, bool, error) {
	if user.OAuthProvider == provider && user.OAuthSubject == subject {
		return user, false, nil
	}

	user.OAuthProvider = provider
	user.OAuthSubject = subject
	if err := r.users.Update(ctx, user); err != nil {
		return UserRecord{}, false, err
	}
	return user, false, nil
}

func (r *reconciler) create(ctx context.Context, email, provider, subject string) (UserRecord, error) {
	username, err := r.freeUsername(ctx, usernameFromEmail(email))
	if err != nil {
		return UserRecord{}, err
	}

	return r.users.Create(ctx, CreateUserInput{
		ID:            uuid.NewString(),
		Username:      username,
		Email:         email,
		Role:          r.defaultRole,
		Active:        true,
		OAuthProvider: provider,
		OAuthSubject:  subject,
	})
}

// freeUsername appends _2, _3, ... until the candidate is unclaimed.
// The suffixes are deterministic so retried flows land on the same
// name.
func (r *reconciler) freeUsername(ctx context.Context, base string) (string, error) {
	candidate := base
	for i := 2; ; i++ {
		_, err := r.users.FindByUsername(ctx, candidate)
		if errors.Is(err, ErrUserNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		candidate = fmt.Sprintf("%s_%d", base, i)
	}
}

// usernameFromEmail lowercases the local part and strips everything
// outside [a-z0-9._-].
func usernameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	local = strings.ToLower(local)

	var b strings.Builder
	for _, c := range local {
		switch {
		case c >= 'a' && c <= 'z',
			c >= '0' && c <= '9',
			c == '.', c == '_', c == '-':
			b.WriteRune(c)
		}
	}
	if b.Len() == 0 {
		return "user"
	}
	return b.String()
}
