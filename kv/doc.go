// Package kv defines the TTL key-value contract shared by the token
// revocation list and the OAuth state manager, together with an
// in-memory implementation for single-process deployments and a
// Redis-backed implementation for shared ones.
package kv
