// Package oauth defines the external identity provider abstraction and
// the Google implementation.
//
// Providers normalize whatever the remote service returns into a
// [Profile] of subject, email and display name, so the reconciliation
// layer never deals with provider-specific payloads.
package oauth
