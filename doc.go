// Package authcore is a token-based authentication and authorization
// engine: password logins with sliding-window lockout, JWT access and
// refresh tokens with revocation, federated OAuth logins with one-time
// anti-CSRF state, and role/permission checks over the resulting
// request context.
//
// The package is designed for concurrent server workloads: Engine
// methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder],
// [Config], and value types ([TokenPair], [UserContext], [UserRecord]).
// Token signing lives in the token sub-package, password hashing in
// password, provider adapters in oauth, and the TTL key-value contract
// backing revocation and state storage in kv. Audit dispatch and
// metrics live under internal/ and surface only through type aliases.
//
// # Storage
//
// The engine needs one TTL key-value store for revoked token ids and
// OAuth state. The default is a process-local in-memory store, correct
// for a single instance; multi-instance deployments pass a Redis
// client (or any [kv.Store]) so revocation and state consumption are
// shared.
//
// # External collaborators
//
// Callers supply a [UserStore] over their user database and, for
// federated login, one [oauth.IdentityProvider] per supported
// provider. The engine never defines a wire format; transport layers
// serialize the returned tokens, contexts, and errors themselves.
package authcore
