package authcore

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/kmorrell/authcore/internal/audit"
	internalmetrics "github.com/kmorrell/authcore/internal/metrics"
)

// Built-in role names. RoleAdmin passes every role and permission
// check; the others carry whatever permission sets the deployment
// registers for them.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
	RoleGuest = "guest"
)

// UserRecord is the full account record exchanged with the UserStore.
type UserRecord struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         string
	Active       bool

	// OAuthProvider and OAuthSubject link the record to an external
	// identity. Both empty for password-only accounts.
	OAuthProvider string
	OAuthSubject  string

	LastLogin time.Time
}

// CreateUserInput is the input for [UserStore.Create]. ID is assigned
// by the engine before the call.
type CreateUserInput struct {
	ID            string
	Username      string
	Email         string
	PasswordHash  string
	Role          string
	Active        bool
	OAuthProvider string
	OAuthSubject  string
}

// UserStore is the interface callers implement to integrate their user
// database.
//
// Lookup methods return [ErrUserNotFound] (possibly wrapped) when no
// record matches. Create and Update return [ErrDuplicateUser] on
// unique-constraint violations for username or email.
type UserStore interface {
	FindByUsername(ctx context.Context, username string) (UserRecord, error)
	FindByEmail(ctx context.Context, email string) (UserRecord, error)
	FindByID(ctx context.Context, id string) (UserRecord, error)
	Create(ctx context.Context, input CreateUserInput) (UserRecord, error)
	Update(ctx context.Context, record UserRecord) error
}

// TokenPair is the result of a successful login or federated login.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// UserContext is the request-scoped identity resolved from an access
// token. Permissions reflect the role snapshot at token issue time.
type UserContext struct {
	UserID      string
	Username    string
	Role        string
	Permissions []string
}

// HasPermission reports whether the context carries the named
// permission. The admin role implicitly carries all of them.
func (u *UserContext) HasPermission(permission string) bool {
	if u == nil {
		return false
	}
	if u.Role == RoleAdmin {
		return true
	}
	for _, p := range u.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// Clock abstracts time for the engine so expiry and lockout behavior
// is testable. Production code uses the system clock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit
// dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to
// an [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer
// capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// MetricID identifies a specific counter in the in-process metrics
// system.
type MetricID = internalmetrics.MetricID

const (
	MetricLoginSuccess        = internalmetrics.MetricLoginSuccess
	MetricLoginFailure        = internalmetrics.MetricLoginFailure
	MetricLoginLocked         = internalmetrics.MetricLoginLocked
	MetricRefreshSuccess      = internalmetrics.MetricRefreshSuccess
	MetricRefreshFailure      = internalmetrics.MetricRefreshFailure
	MetricLogout              = internalmetrics.MetricLogout
	MetricTokenRevoked        = internalmetrics.MetricTokenRevoked
	MetricRevokeFailed        = internalmetrics.MetricRevokeFailed
	MetricOAuthStarted        = internalmetrics.MetricOAuthStarted
	MetricOAuthSuccess        = internalmetrics.MetricOAuthSuccess
	MetricOAuthFailure        = internalmetrics.MetricOAuthFailure
	MetricStateRejected       = internalmetrics.MetricStateRejected
	MetricUserCreated         = internalmetrics.MetricUserCreated
	MetricUserLinked          = internalmetrics.MetricUserLinked
	MetricPasswordChanged     = internalmetrics.MetricPasswordChanged
	MetricAuthorizationDenied = internalmetrics.MetricAuthorizationDenied
)

// Metrics holds the engine's atomic counters.
type Metrics = internalmetrics.Metrics
