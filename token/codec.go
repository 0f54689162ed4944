package token

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind distinguishes the two token families. An access token carries
// the caller's role and permission snapshot; a refresh token carries
// identity only and is exchanged for a fresh access token.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// SigningMethod selects the JWT signature algorithm.
type SigningMethod string

const (
	MethodHS256   SigningMethod = "hs256"
	MethodEd25519 SigningMethod = "ed25519"
)

var (
	// ErrMalformed is returned when the token cannot be parsed or its
	// registered claims do not match the codec configuration.
	ErrMalformed = errors.New("token: malformed token")

	// ErrSignature is returned when the signature does not verify.
	ErrSignature = errors.New("token: invalid signature")

	// ErrExpired is returned when the token is past its expiry.
	ErrExpired = errors.New("token: token expired")

	// ErrWrongKind is returned when a valid token of one kind is
	// presented where the other kind is required.
	ErrWrongKind = errors.New("token: wrong token kind")

	// ErrRevoked is returned when the token appears on the revocation
	// list, or when the list cannot be consulted. Revocation checks
	// fail closed.
	ErrRevoked = errors.New("token: token revoked")
)

// Revoker is the denylist consulted on every Verify. The revocation
// list package implements it on top of a kv.Store.
type Revoker interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Claims is the JWT payload for both token kinds. Refresh tokens leave
// Role and Permissions empty; the engine re-derives them at exchange
// time so a role change takes effect on the next refresh.
type Claims struct {
	Username    string   `json:"username"`
	Role        string   `json:"role,omitempty"`
	Permissions []string `json:"perms,omitempty"`
	Kind        Kind     `json:"kind"`
	jwt.RegisteredClaims
}

// Config holds the signing material and claim policy for a Codec.
type Config struct {
	SigningMethod SigningMethod
	// Secret is the HS256 key. Ignored for ed25519.
	Secret []byte
	// PrivateKey and PublicKey hold the ed25519 key pair, raw or PEM.
	PrivateKey []byte
	PublicKey  []byte

	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string
	Audience   string
	Leeway     time.Duration
}

// Codec issues, verifies and revokes signed tokens. Safe for
// concurrent use.
type Codec struct {
	config  Config
	revoked Revoker
	now     func() time.Time

	signKey   interface{}
	verifyKey interface{}
}

// NewCodec validates cfg and returns a Codec. revoked must not be nil;
// pass a no-op implementation to disable revocation. now overrides the
// clock for tests; nil means time.Now.
func NewCodec(cfg Config, revoked Revoker, now func() time.Time) (*Codec, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token: TTLs must be positive")
	}
	if cfg.RefreshTTL < cfg.AccessTTL {
		return nil, errors.New("token: refresh TTL must not be shorter than access TTL")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("token: leeway out of range")
	}
	if revoked == nil {
		return nil, errors.New("token: revoker must not be nil")
	}
	if now == nil {
		now = time.Now
	}

	c := &Codec{config: cfg, revoked: revoked, now: now}

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.Secret) < 32 {
			return nil, errors.New("token: hs256 secret must be at least 32 bytes")
		}
		c.signKey = cfg.Secret
		c.verifyKey = cfg.Secret
	case MethodEd25519:
		priv, err := parseEdPrivateKey(cfg.PrivateKey)
		if err != nil {
			return nil, err
		}
		pub, err := parseEdPublicKey(cfg.PublicKey)
		if err != nil {
			return nil, err
		}
		c.signKey = priv
		c.verifyKey = pub
	default:
		return nil, errors.New("token: unsupported signing method")
	}

	return c, nil
}

// IssueAccess signs an access token carrying the caller's role and
// permission snapshot. Returns the compact token and its jti.
func (c *Codec) IssueAccess(userID, username, role string, permissions []string) (string, string, error) {
	return c.issue(Claims{
		Username:    username,
		Role:        role,
		Permissions: permissions,
		Kind:        KindAccess,
	}, userID, c.config.AccessTTL)
}

// IssueRefresh signs a refresh token carrying identity only.
func (c *Codec) IssueRefresh(userID, username string) (string, string, error) {
	return c.issue(Claims{
		Username: username,
		Kind:     KindRefresh,
	}, userID, c.config.RefreshTTL)
}

func (c *Codec) issue(claims Claims, userID string, ttl time.Duration) (string, string, error) {
	now := c.now()
	jti := uuid.NewString()

	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        jti,
		Subject:   userID,
		Issuer:    c.config.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	if c.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{c.config.Audience}
	}

	signed, err := jwt.NewWithClaims(c.method(), claims).SignedString(c.signKey)
	if err != nil {
		return "", "", err
	}
	return signed, jti, nil
}

// Verify parses raw, checks its signature and registered claims,
// requires it to be of the given kind, and consults the revocation
// list. The returned error is one of the package sentinels; revocation
// wins over every other property of an otherwise valid token.
func (c *Codec) Verify(ctx context.Context, raw string, kind Kind) (*Claims, error) {
	claims, err := c.parse(raw, true)
	if err != nil {
		return nil, err
	}

	if claims.Kind != kind {
		return nil, ErrWrongKind
	}

	revoked, err := c.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRevoked, err)
	}
	if revoked {
		return nil, ErrRevoked
	}

	return claims, nil
}

// Revoke places raw on the denylist for its remaining lifetime. The
// signature must verify, but an already expired token is accepted and
// simply ignored; there is nothing left to deny.
func (c *Codec) Revoke(ctx context.Context, raw string) error {
	claims, err := c.parse(raw, false)
	if err != nil {
		return err
	}
	if claims.ExpiresAt == nil {
		return ErrMalformed
	}

	remaining := claims.ExpiresAt.Time.Sub(c.now())
	if remaining <= 0 {
		return nil
	}

	return c.revoked.Revoke(ctx, claims.ID, remaining)
}

func (c *Codec) parse(raw string, validateTime bool) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{c.method().Alg()}),
		jwt.WithTimeFunc(c.now),
	}
	if c.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(c.config.Leeway))
	}
	if c.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(c.config.Issuer))
	}
	if c.config.Audience != "" {
		options = append(options, jwt.WithAudience(c.config.Audience))
	}
	if !validateTime {
		options = append(options, jwt.WithoutClaimsValidation())
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return c.verifyKey, nil
	})
	if err != nil {
		return nil, mapParseError(err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.ID == "" {
		return nil, ErrMalformed
	}
	return claims, nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrSignatureInvalid):
		return ErrSignature
	default:
		return ErrMalformed
	}
}

func (c *Codec) method() jwt.SigningMethod {
	switch c.config.SigningMethod {
	case MethodEd25519:
		return jwt.SigningMethodEdDSA
	default:
		return jwt.SigningMethodHS256
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("token: invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("token: invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("token: invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("token: invalid ed25519 public key type")
	}
	return edKey, nil
}
