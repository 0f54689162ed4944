package authcore

import (
	"context"

	"github.com/kmorrell/authcore/token"
)

// Optional resolves raw into a UserContext when possible. Any failure
// (no token, bad token, revoked, unknown or inactive user) yields nil;
// callers use it for endpoints that merely personalize when a valid
// session is present.
func (e *Engine) Optional(ctx context.Context, raw string) *UserContext {
	uc, err := e.Required(ctx, raw)
	if err != nil {
		return nil
	}
	return uc
}

// Required resolves raw into a UserContext or fails with
// ErrUnauthenticated. Inactive users are rejected the same way as
// nonexistent ones; the error never says which check failed.
func (e *Engine) Required(ctx context.Context, raw string) (*UserContext, error) {
	if e == nil || e.codec == nil {
		return nil, ErrEngineNotReady
	}
	if raw == "" {
		return nil, ErrUnauthenticated
	}

	claims, err := e.codec.Verify(ctx, raw, token.KindAccess)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	user, err := e.users.FindByID(ctx, claims.Subject)
	if err != nil || !user.Active {
		return nil, ErrUnauthenticated
	}

	return &UserContext{
		UserID:      user.ID,
		Username:    user.Username,
		Role:        claims.Role,
		Permissions: claims.Permissions,
	}, nil
}

// RequireRole enforces that uc carries role. The admin role satisfies
// every role check.
func (e *Engine) RequireRole(ctx context.Context, uc *UserContext, role string) error {
	if uc == nil {
		return ErrUnauthenticated
	}
	if uc.Role == RoleAdmin || uc.Role == role {
		return nil
	}

	e.metricInc(MetricAuthorizationDenied)
	e.emitAudit(ctx, auditEventAuthorizationDenied, false, uc.UserID, uc.Username, "", ErrForbidden, func() map[string]string {
		return map[string]string{"required_role": role, "role": uc.Role}
	})
	return ErrForbidden
}

// RequirePermission enforces that uc carries the named permission, with
// the same admin bypass as RequireRole.
func (e *Engine) RequirePermission(ctx context.Context, uc *UserContext, permission string) error {
	if uc == nil {
		return ErrUnauthenticated
	}
	if uc.HasPermission(permission) {
		return nil
	}

	e.metricInc(MetricAuthorizationDenied)
	e.emitAudit(ctx, auditEventAuthorizationDenied, false, uc.UserID, uc.Username, "", ErrForbidden, func() map[string]string {
		return map[string]string{"required_permission": permission, "role": uc.Role}
	})
	return ErrForbidden
}
