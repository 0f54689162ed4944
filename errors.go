package authcore

import "errors"

var (
	// ErrInvalidCredentials covers every credential login failure:
	// unknown username, wrong password, inactive account. Callers
	// cannot distinguish the cases.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked is returned while a lockout window is active on
	// the username.
	ErrAccountLocked = errors.New("account temporarily locked")
	// ErrTooManyAttempts is returned while a lockout window is active
	// on the caller's IP address.
	ErrTooManyAttempts = errors.New("too many attempts")
	// ErrUnauthenticated is returned by Required when no valid,
	// unrevoked access token identifies an active user.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden is returned when an authenticated caller fails a
	// role or permission check.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidToken is the public face of every token verification
	// failure: expired, bad signature, wrong kind, malformed, revoked.
	ErrInvalidToken = errors.New("invalid token")
	// ErrUnsupportedProvider is returned when an OAuth flow names a
	// provider the engine was not built with.
	ErrUnsupportedProvider = errors.New("unsupported oauth provider")
	// ErrInvalidState is returned by CompleteOAuth for any state token
	// problem: missing, expired, already used, or bound to a different
	// provider.
	ErrInvalidState = errors.New("invalid oauth state")
	// ErrProviderUnavailable is returned when the external provider
	// rejects the code exchange or profile fetch.
	ErrProviderUnavailable = errors.New("oauth provider unavailable")
	// ErrUserNotFound is the UserStore contract for missing records.
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicateUser is the UserStore contract for unique-constraint
	// violations on username or email.
	ErrDuplicateUser = errors.New("user already exists")
	// ErrPasswordPolicy is returned when a new password fails the
	// strength policy.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrPasswordReuse is returned when a password change submits the
	// current password as the new one.
	ErrPasswordReuse = errors.New("new password must be different from current password")
	// ErrAccountCreationDisabled is returned by CreateAccount when the
	// feature is switched off.
	ErrAccountCreationDisabled = errors.New("account creation disabled")
	// ErrAccountCreationInvalid is returned for malformed account
	// creation input.
	ErrAccountCreationInvalid = errors.New("invalid account creation request")
	// ErrAccountRoleInvalid is returned when a requested role is not
	// registered.
	ErrAccountRoleInvalid = errors.New("invalid account role")
	// ErrEngineNotReady is returned when an operation is invoked on a
	// nil or closed engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
