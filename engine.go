package authcore

import (
	"context"
	"errors"
	"log/slog"

	internalaudit "github.com/kmorrell/authcore/internal/audit"
	"github.com/kmorrell/authcore/kv"
	"github.com/kmorrell/authcore/oauth"
	"github.com/kmorrell/authcore/password"
	"github.com/kmorrell/authcore/permission"
	"github.com/kmorrell/authcore/token"
)

// Engine is the authentication and authorization core. Build one with
// [Builder]; all fields are fixed at Build time and every method is
// safe for concurrent use.
type Engine struct {
	config      Config
	registry    *permission.Registry
	roleManager *permission.RoleManager
	users       UserStore
	codec       *token.Codec
	revocations *RevocationList
	userLockout LockoutTracker
	ipLockout   LockoutTracker
	states      *stateManager
	providers   map[string]oauth.IdentityProvider
	reconciler  *reconciler
	hasher      *password.Hasher
	dummyHash   string
	store       kv.Store
	ownsStore   bool
	clock       Clock
	logger      *slog.Logger
	audit       *internalaudit.Dispatcher
	metrics     *Metrics
}

// Close flushes the audit dispatcher and, when the engine owns its
// backing store, closes that too.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
	if e.ownsStore {
		if closer, ok := e.store.(interface{ Close() }); ok {
			closer.Close()
		}
	}
}

// AuditDropped reports how many audit events were discarded because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of all counters. Empty when metrics
// are disabled.
func (e *Engine) MetricsSnapshot() map[MetricID]uint64 {
	if e == nil || e.metrics == nil {
		return map[MetricID]uint64{}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Login authenticates a username/password pair and issues a token pair.
// Unknown users, wrong passwords and inactive accounts all fail with
// ErrInvalidCredentials. An active lockout fails before any hashing
// work: ErrAccountLocked for the username, ErrTooManyAttempts for the
// caller's IP.
func (e *Engine) Login(ctx context.Context, username, pass string) (TokenPair, error) {
	if e == nil || e.hasher == nil {
		return TokenPair{}, ErrEngineNotReady
	}

	ip := clientIPFromContext(ctx)

	if e.userLockout.IsLocked(username) {
		e.metricInc(MetricLoginLocked)
		e.emitAudit(ctx, auditEventLoginLocked, false, "", username, "", ErrAccountLocked, func() map[string]string {
			return map[string]string{"identifier": username}
		})
		return TokenPair{}, ErrAccountLocked
	}
	if ip != "" && e.ipLockout.IsLocked(lockoutIPKey(ip)) {
		e.metricInc(MetricLoginLocked)
		e.emitAudit(ctx, auditEventLoginLocked, false, "", username, "", ErrTooManyAttempts, func() map[string]string {
			return map[string]string{"identifier": ip}
		})
		return TokenPair{}, ErrTooManyAttempts
	}

	if username == "" || pass == "" {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", username, "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{"reason": "empty_credentials"}
		})
		return TokenPair{}, ErrInvalidCredentials
	}

	user, err := e.users.FindByUsername(ctx, username)
	if err != nil || !user.Active || user.PasswordHash == "" {
		// Burn a hash verification anyway so absent users cost the
		// same as wrong passwords.
		e.hasher.Verify(pass, e.dummyHash)
		e.recordLoginFailure(ctx, username, ip, "user_unavailable")
		return TokenPair{}, ErrInvalidCredentials
	}

	if !e.hasher.Verify(pass, user.PasswordHash) {
		e.recordLoginFailure(ctx, username, ip, "password_mismatch")
		return TokenPair{}, ErrInvalidCredentials
	}

	e.userLockout.RecordSuccess(username)
	if ip != "" {
		e.ipLockout.RecordSuccess(lockoutIPKey(ip))
	}

	user.LastLogin = e.clock.Now()
	if err := e.users.Update(ctx, user); err != nil {
		// Last-login bookkeeping must not block the login itself.
		e.logger.Warn("last login update failed", "user_id", user.ID, "error", err)
	}

	pair, err := e.issuePair(user)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.ID, username, "", err, func() map[string]string {
			return map[string]string{"reason": "token_issue"}
		})
		return TokenPair{}, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.ID, username, "", nil, nil)
	return pair, nil
}

func (e *Engine) recordLoginFailure(ctx context.Context, username, ip, reason string) {
	locked := e.userLockout.RecordFailure(username)
	if ip != "" {
		if e.ipLockout.RecordFailure(lockoutIPKey(ip)) {
			locked = true
		}
	}

	e.metricInc(MetricLoginFailure)
	if locked {
		e.metricInc(MetricLoginLocked)
	}
	e.logger.Debug("login failed", "username", username, "reason", reason, "locked", locked)
	e.emitAudit(ctx, auditEventLoginFailure, false, "", username, "", ErrInvalidCredentials, func() map[string]string {
		metadata := map[string]string{"reason": reason}
		if locked {
			metadata["locked"] = "true"
		}
		return metadata
	})
}

// lockoutIPKey namespaces client addresses so they can never collide
// with usernames in the tracker.
func lockoutIPKey(ip string) string {
	return "ip:" + ip
}

// Refresh exchanges a valid refresh token for a new access token. Role
// and permissions are re-read from the user record, not taken from the
// refresh token, so a role change applies on the next exchange. Any
// verification or lookup failure surfaces as ErrInvalidToken.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if e == nil || e.codec == nil {
		return "", ErrEngineNotReady
	}

	claims, err := e.codec.Verify(ctx, refreshToken, token.KindRefresh)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.logger.Debug("refresh rejected", "reason", refreshFailureReason(err))
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", "", "", ErrInvalidToken, func() map[string]string {
			return map[string]string{"reason": refreshFailureReason(err)}
		})
		return "", ErrInvalidToken
	}

	user, err := e.users.FindByID(ctx, claims.Subject)
	if err != nil || !user.Active {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, claims.Subject, claims.Username, "", ErrInvalidToken, func() map[string]string {
			return map[string]string{"reason": "user_unavailable"}
		})
		return "", ErrInvalidToken
	}

	access, _, err := e.codec.IssueAccess(user.ID, user.Username, user.Role, e.rolePermissions(user.Role))
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, user.ID, user.Username, "", err, func() map[string]string {
			return map[string]string{"reason": "token_issue"}
		})
		return "", err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, user.ID, user.Username, "", nil, nil)
	return access, nil
}

func refreshFailureReason(err error) string {
	switch {
	case errors.Is(err, token.ErrExpired):
		return "expired"
	case errors.Is(err, token.ErrRevoked):
		return "revoked"
	case errors.Is(err, token.ErrWrongKind):
		return "wrong_kind"
	case errors.Is(err, token.ErrSignature):
		return "bad_signature"
	default:
		return "malformed"
	}
}

// Logout revokes whichever of the two tokens are present. Revocation
// failures are logged and counted but never surfaced; logout always
// succeeds from the caller's point of view.
func (e *Engine) Logout(ctx context.Context, accessToken, refreshToken string) {
	if e == nil || e.codec == nil {
		return
	}

	for _, raw := range []string{accessToken, refreshToken} {
		if raw == "" {
			continue
		}
		if err := e.codec.Revoke(ctx, raw); err != nil {
			e.metricInc(MetricRevokeFailed)
			e.logger.Warn("token revocation failed during logout", "error", err)
			continue
		}
		e.metricInc(MetricTokenRevoked)
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, "", "", "", nil, nil)
}

// issuePair signs an access/refresh pair for user. Both login paths
// (password and OAuth) converge here.
func (e *Engine) issuePair(user UserRecord) (TokenPair, error) {
	access, _, err := e.codec.IssueAccess(user.ID, user.Username, user.Role, e.rolePermissions(user.Role))
	if err != nil {
		return TokenPair{}, err
	}
	refresh, _, err := e.codec.IssueRefresh(user.ID, user.Username)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (e *Engine) rolePermissions(role string) []string {
	permissions, ok := e.roleManager.Permissions(role)
	if !ok {
		return nil
	}
	return permissions
}
