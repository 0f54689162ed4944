package internal

import (
	"crypto/rand"
	"encoding/base64"
)

const (
	stateTokenSize    = 32
	signingSecretSize = 32
)

// NewStateToken returns a fresh URL-safe anti-CSRF state token with
// 256 bits of entropy.
func NewStateToken() (string, error) {
	var raw [stateTokenSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// NewSigningSecret returns a random 32-byte HS256 secret. Used as the
// development fallback when no secret is configured.
func NewSigningSecret() ([]byte, error) {
	secret := make([]byte, signingSecretSize)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	return secret, nil
}
