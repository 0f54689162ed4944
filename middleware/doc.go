// Package middleware exposes HTTP adapters over the authcore Engine.
//
// # Guards
//
//   - [Guard] — requires a valid bearer access token.
//   - [GuardRole] / [GuardPermission] — Guard plus an authorization
//     check.
//   - [OptionalAuth] — resolves a session when present, never rejects.
//
// Each guard reads the Authorization header, attaches the caller's IP
// to the request context, delegates to the Engine, and injects the
// resolved [authcore.UserContext] for handlers to read through
// [UserFromContext].
//
// This package translates HTTP semantics into Engine calls; it makes no
// authentication or authorization decisions of its own.
package middleware
