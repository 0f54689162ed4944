package authcore

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/kmorrell/authcore/password"
)

// CreateAccount registers a new password-authenticated user. Role may
// be empty to take the configured default; a non-empty role must be
// registered with the role manager. Username and email are normalized
// to lowercase before storage.
func (e *Engine) CreateAccount(ctx context.Context, username, email, pass, role string) (UserRecord, error) {
	if e == nil || e.hasher == nil {
		return UserRecord{}, ErrEngineNotReady
	}
	if !e.config.Account.Enabled {
		return UserRecord{}, ErrAccountCreationDisabled
	}

	username = strings.ToLower(strings.TrimSpace(username))
	email = strings.ToLower(strings.TrimSpace(email))
	if username == "" || email == "" || !strings.Contains(email, "@") || pass == "" {
		return UserRecord{}, ErrAccountCreationInvalid
	}

	if role == "" {
		role = e.config.Account.DefaultRole
	}
	if _, ok := e.roleManager.Permissions(role); !ok {
		e.emitAudit(ctx, auditEventAccountCreated, false, "", username, "", ErrAccountRoleInvalid, func() map[string]string {
			return map[string]string{"role": role}
		})
		return UserRecord{}, ErrAccountRoleInvalid
	}

	if e.config.Account.RequireStrong && !password.IsStrong(pass) {
		return UserRecord{}, ErrPasswordPolicy
	}

	hash, err := e.hasher.Hash(pass)
	if err != nil {
		return UserRecord{}, err
	}

	user, err := e.users.Create(ctx, CreateUserInput{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
	})
	if err != nil {
		e.emitAudit(ctx, auditEventAccountCreated, false, "", username, "", err, nil)
		return UserRecord{}, err
	}

	e.metricInc(MetricUserCreated)
	e.emitAudit(ctx, auditEventAccountCreated, true, user.ID, user.Username, "", nil, nil)
	return user, nil
}

// ChangePassword replaces the user's password after verifying the
// current one. The new password must differ from the old and, when the
// policy is enabled, pass the strength check. Existing tokens stay
// valid; revoke them separately if the change should end sessions.
func (e *Engine) ChangePassword(ctx context.Context, userID, oldPass, newPass string) error {
	if e == nil || e.hasher == nil {
		return ErrEngineNotReady
	}

	user, err := e.users.FindByID(ctx, userID)
	if err != nil {
		return ErrUserNotFound
	}

	if user.PasswordHash == "" || !e.hasher.Verify(oldPass, user.PasswordHash) {
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, user.ID, user.Username, "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{"reason": "old_password_mismatch"}
		})
		return ErrInvalidCredentials
	}

	if oldPass == newPass {
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, user.ID, user.Username, "", ErrPasswordReuse, nil)
		return ErrPasswordReuse
	}
	if e.config.Account.RequireStrong && !password.IsStrong(newPass) {
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, user.ID, user.Username, "", ErrPasswordPolicy, nil)
		return ErrPasswordPolicy
	}

	hash, err := e.hasher.Hash(newPass)
	if err != nil {
		return err
	}

	user.PasswordHash = hash
	if err := e.users.Update(ctx, user); err != nil {
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, user.ID, user.Username, "", err, nil)
		return err
	}

	e.metricInc(MetricPasswordChanged)
	e.emitAudit(ctx, auditEventPasswordChangeSuccess, true, user.ID, user.Username, "", nil, nil)
	return nil
}
