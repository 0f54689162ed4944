package authcore

import (
	"context"
	"errors"
)

const (
	auditEventLoginSuccess          = "login_success"
	auditEventLoginFailure          = "login_failure"
	auditEventLoginLocked           = "login_locked"
	auditEventRefreshSuccess        = "refresh_success"
	auditEventRefreshInvalid        = "refresh_invalid"
	auditEventLogout                = "logout"
	auditEventOAuthStart            = "oauth_start"
	auditEventOAuthSuccess          = "oauth_success"
	auditEventOAuthFailure          = "oauth_failure"
	auditEventOAuthStateRejected    = "oauth_state_rejected"
	auditEventAccountCreated        = "account_created"
	auditEventAccountLinked         = "account_linked"
	auditEventPasswordChangeSuccess = "password_change_success"
	auditEventPasswordChangeFailure = "password_change_failure"
	auditEventAuthorizationDenied   = "authorization_denied"
)

// AuditErrorCode is the stable machine-readable error label attached to
// audit events. The set is closed; sinks can switch on it without
// parsing error strings.
type AuditErrorCode string

const (
	auditErrInvalidCredentials  AuditErrorCode = "invalid_credentials"
	auditErrAccountLocked       AuditErrorCode = "account_locked"
	auditErrTooManyAttempts     AuditErrorCode = "too_many_attempts"
	auditErrUnauthenticated     AuditErrorCode = "unauthenticated"
	auditErrForbidden           AuditErrorCode = "forbidden"
	auditErrInvalidToken        AuditErrorCode = "invalid_token"
	auditErrUnsupportedProvider AuditErrorCode = "unsupported_provider"
	auditErrInvalidState        AuditErrorCode = "invalid_state"
	auditErrProviderUnavailable AuditErrorCode = "provider_unavailable"
	auditErrUserNotFound        AuditErrorCode = "user_not_found"
	auditErrDuplicate           AuditErrorCode = "duplicate"
	auditErrPasswordPolicy      AuditErrorCode = "password_policy"
	auditErrPasswordReuse       AuditErrorCode = "password_reuse"
	auditErrAccountCreation     AuditErrorCode = "account_creation_rejected"
	auditErrInternal            AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	username string,
	provider string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: e.clock.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		Username:  username,
		Provider:  provider,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrAccountLocked):
		return auditErrAccountLocked
	case errors.Is(err, ErrTooManyAttempts):
		return auditErrTooManyAttempts
	case errors.Is(err, ErrUnauthenticated):
		return auditErrUnauthenticated
	case errors.Is(err, ErrForbidden):
		return auditErrForbidden
	case errors.Is(err, ErrInvalidToken):
		return auditErrInvalidToken
	case errors.Is(err, ErrUnsupportedProvider):
		return auditErrUnsupportedProvider
	case errors.Is(err, ErrInvalidState):
		return auditErrInvalidState
	case errors.Is(err, ErrProviderUnavailable):
		return auditErrProviderUnavailable
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrDuplicateUser):
		return auditErrDuplicate
	case errors.Is(err, ErrPasswordPolicy):
		return auditErrPasswordPolicy
	case errors.Is(err, ErrPasswordReuse):
		return auditErrPasswordReuse
	case errors.Is(err, ErrAccountCreationDisabled),
		errors.Is(err, ErrAccountCreationInvalid),
		errors.Is(err, ErrAccountRoleInvalid):
		return auditErrAccountCreation
	default:
		return auditErrInternal
	}
}
