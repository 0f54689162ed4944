package authcore

import (
	"errors"
	"time"

	"github.com/kmorrell/authcore/password"
	"github.com/kmorrell/authcore/token"
)

// Config is the full engine configuration. Zero values are filled in
// from DefaultConfig by the Builder; set only what differs.
type Config struct {
	Token    TokenConfig
	Password password.Config
	Lockout  LockoutConfig
	OAuth    OAuthConfig
	Account  AccountConfig
	Audit    AuditConfig
	Metrics  MetricsConfig

	// ProductionMode tightens validation: a signing secret (or key
	// pair) must be supplied explicitly instead of being generated.
	ProductionMode bool
}

// TokenConfig holds the signing material and token lifetimes.
type TokenConfig struct {
	SigningMethod token.SigningMethod
	// Secret is the HS256 key. Leave empty in development to have the
	// builder generate an ephemeral one.
	Secret []byte
	// PrivateKey and PublicKey hold the ed25519 pair, raw or PEM.
	PrivateKey []byte
	PublicKey  []byte

	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string
	Audience   string
	Leeway     time.Duration
}

// LockoutConfig tunes the sliding-window failed-login tracker.
type LockoutConfig struct {
	Enabled bool
	// MaxFailures within Window triggers a lockout.
	MaxFailures int
	Window      time.Duration
	// Duration is how long a triggered lockout lasts.
	Duration time.Duration
	// TrackClientIP additionally tracks failures per client IP, so a
	// distributed guessing attack locks the source address without
	// affecting the targeted account from elsewhere.
	TrackClientIP bool
}

// OAuthConfig tunes the federated login flow.
type OAuthConfig struct {
	// StateTTL bounds how long an authorization redirect may take
	// before its state token expires.
	StateTTL time.Duration
}

// AccountConfig tunes account creation and password policy.
type AccountConfig struct {
	Enabled     bool
	DefaultRole string
	// RequireStrong enforces the password strength policy on account
	// creation and password change.
	RequireStrong bool
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the baseline configuration: HS256 tokens with
// a 60m access TTL and 30d refresh TTL, 5-failure lockout over a
// 1-minute window with a 15-minute lock, 10-minute OAuth state TTL,
// and Argon2id password hashing.
func DefaultConfig() Config {
	return Config{
		Token: TokenConfig{
			SigningMethod: token.MethodHS256,
			AccessTTL:     60 * time.Minute,
			RefreshTTL:    30 * 24 * time.Hour,
			Issuer:        "authcore",
			Audience:      "authcore",
			Leeway:        30 * time.Second,
		},
		Password: password.DefaultConfig(),
		Lockout: LockoutConfig{
			Enabled:       true,
			MaxFailures:   5,
			Window:        time.Minute,
			Duration:      15 * time.Minute,
			TrackClientIP: true,
		},
		OAuth: OAuthConfig{
			StateTTL: 10 * time.Minute,
		},
		Account: AccountConfig{
			Enabled:       true,
			DefaultRole:   RoleUser,
			RequireStrong: true,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.Secret = cloneBytes(cfg.Token.Secret)
	out.Token.PrivateKey = cloneBytes(cfg.Token.PrivateKey)
	out.Token.PublicKey = cloneBytes(cfg.Token.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate checks cross-field consistency. Signing material is checked
// by the token codec at build time; ProductionMode additionally
// requires it to be supplied here.
func (c *Config) Validate() error {
	if c.Token.AccessTTL <= 0 {
		return errors.New("Token AccessTTL must be > 0")
	}
	if c.Token.RefreshTTL <= 0 {
		return errors.New("Token RefreshTTL must be > 0")
	}
	if c.Token.RefreshTTL < c.Token.AccessTTL {
		return errors.New("Token RefreshTTL must be >= AccessTTL")
	}

	switch c.Token.SigningMethod {
	case token.MethodHS256, token.MethodEd25519:
	default:
		return errors.New("unsupported token signing method")
	}

	if c.Lockout.Enabled {
		if c.Lockout.MaxFailures <= 0 {
			return errors.New("Lockout MaxFailures must be > 0")
		}
		if c.Lockout.Window <= 0 {
			return errors.New("Lockout Window must be > 0")
		}
		if c.Lockout.Duration <= 0 {
			return errors.New("Lockout Duration must be > 0")
		}
	}

	if c.OAuth.StateTTL <= 0 {
		return errors.New("OAuth StateTTL must be > 0")
	}

	if c.Account.Enabled && c.Account.DefaultRole == "" {
		return errors.New("Account DefaultRole is required when account creation is enabled")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	if c.ProductionMode {
		switch c.Token.SigningMethod {
		case token.MethodHS256:
			if len(c.Token.Secret) < 32 {
				return errors.New("ProductionMode requires an hs256 secret of at least 32 bytes")
			}
		case token.MethodEd25519:
			if len(c.Token.PrivateKey) == 0 || len(c.Token.PublicKey) == 0 {
				return errors.New("ProductionMode requires an ed25519 key pair")
			}
		}
		if c.Token.AccessTTL > 24*time.Hour {
			return errors.New("ProductionMode requires Token AccessTTL <= 24h")
		}
	}

	return nil
}
