// Package token issues and verifies the signed bearer tokens used by
// the authentication engine.
//
// Tokens come in two kinds. Access tokens carry the subject's role and
// permission snapshot and are short-lived. Refresh tokens carry
// identity only and are exchanged for fresh access tokens, so a role
// change takes effect on the next exchange without invalidating the
// session.
//
// Every issued token gets a unique jti. Verification consults a
// [Revoker] denylist after the signature and claim checks, and fails
// closed when the denylist cannot be reached.
package token
