// Package permission holds the startup-time permission registry and
// role-to-permission mapping used by authorization checks.
//
// Both structures are populated while the engine is being built and
// frozen before any request-path code sees them, so reads never need
// more than a shared lock. This package is a pure in-memory data
// structure with no I/O.
package permission
