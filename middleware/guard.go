package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	authcore "github.com/kmorrell/authcore"
)

type userContextKey struct{}

// UserFromContext returns the UserContext injected by a guard, or false
// when the request was not guarded (or OptionalAuth found no session).
func UserFromContext(ctx context.Context) (*authcore.UserContext, bool) {
	uc, ok := ctx.Value(userContextKey{}).(*authcore.UserContext)
	return uc, ok && uc != nil
}

// Guard rejects requests without a valid bearer access token. On
// success the resolved UserContext is injected into the request
// context.
func Guard(engine *authcore.Engine) func(http.Handler) http.Handler {
	return guard(engine, "", "")
}

// GuardRole is Guard plus a role requirement.
func GuardRole(engine *authcore.Engine, role string) func(http.Handler) http.Handler {
	return guard(engine, role, "")
}

// GuardPermission is Guard plus a permission requirement.
func GuardPermission(engine *authcore.Engine, permission string) func(http.Handler) http.Handler {
	return guard(engine, "", permission)
}

func guard(engine *authcore.Engine, role, permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := WithRequestIP(r)

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			uc, err := engine.Required(ctx, token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			if role != "" {
				if err := engine.RequireRole(ctx, uc, role); err != nil {
					http.Error(w, "forbidden", http.StatusForbidden)
					return
				}
			}
			if permission != "" {
				if err := engine.RequirePermission(ctx, uc, permission); err != nil {
					http.Error(w, "forbidden", http.StatusForbidden)
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, userContextKey{}, uc)))
		})
	}
}

// OptionalAuth resolves a bearer token when one is present but never
// rejects the request. Handlers check UserFromContext.
func OptionalAuth(engine *authcore.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithRequestIP(r)

			if engine != nil {
				if token, ok := bearerToken(r.Header.Get("Authorization")); ok {
					if uc := engine.Optional(ctx, token); uc != nil {
						ctx = context.WithValue(ctx, userContextKey{}, uc)
					}
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithRequestIP attaches the request's remote address to its context so
// the engine can track per-IP lockouts and audit the caller.
func WithRequestIP(r *http.Request) context.Context {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if host == "" {
		return r.Context()
	}
	return authcore.WithClientIP(r.Context(), host)
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
