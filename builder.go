package authcore

import (
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kmorrell/authcore/internal"
	internalaudit "github.com/kmorrell/authcore/internal/audit"
	internalmetrics "github.com/kmorrell/authcore/internal/metrics"
	"github.com/kmorrell/authcore/kv"
	"github.com/kmorrell/authcore/oauth"
	"github.com/kmorrell/authcore/password"
	"github.com/kmorrell/authcore/permission"
	"github.com/kmorrell/authcore/token"
)

const redisKeyPrefix = "authcore"

// Builder assembles an Engine. Configure with the With* methods, then
// call Build exactly once. The zero Builder is not usable; start with
// New.
type Builder struct {
	config Config

	store kv.Store
	redis redis.UniversalClient

	permissions []string
	roles       map[string][]string

	users     UserStore
	providers map[string]oauth.IdentityProvider
	auditSink AuditSink
	clock     Clock
	logger    *slog.Logger

	built bool
}

// New returns a Builder preloaded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config:    DefaultConfig(),
		providers: make(map[string]oauth.IdentityProvider),
	}
}

// WithConfig replaces the entire configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithUserStore sets the user database adapter. Required.
func (b *Builder) WithUserStore(store UserStore) *Builder {
	b.users = store
	return b
}

// WithStore sets the TTL key-value store backing revocation entries and
// OAuth state. Without one, Build creates a process-local in-memory
// store, which is only correct for single-instance deployments.
func (b *Builder) WithStore(store kv.Store) *Builder {
	b.store = store
	return b
}

// WithRedis is shorthand for WithStore over a Redis client.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithProvider registers an OAuth identity provider under its Name.
func (b *Builder) WithProvider(p oauth.IdentityProvider) *Builder {
	if p != nil {
		b.providers[p.Name()] = p
	}
	return b
}

// WithPermissions sets the full permission vocabulary. Roles may only
// reference permissions listed here.
func (b *Builder) WithPermissions(perms []string) *Builder {
	b.permissions = perms
	return b
}

// WithRoles sets the role-to-permission mapping.
func (b *Builder) WithRoles(r map[string][]string) *Builder {
	b.roles = r
	return b
}

// WithClock overrides the time source. Tests use this to drive token
// expiry and lockout windows deterministically.
func (b *Builder) WithClock(clock Clock) *Builder {
	b.clock = clock
	return b
}

// WithLogger sets the structured logger. Defaults to slog.Default.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets the destination for audit events. Only consulted
// when Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// Build validates the configuration and assembles the Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.users == nil {
		return nil, errors.New("user store required")
	}
	if len(b.roles) == 0 {
		return nil, errors.New("roles must be provided")
	}

	clock := b.clock
	if clock == nil {
		clock = systemClock{}
	}
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	store := b.store
	ownsStore := false
	if store == nil && b.redis != nil {
		store = kv.NewRedis(b.redis, redisKeyPrefix)
	}
	if store == nil {
		store = kv.NewMemory(
			kv.WithNowFunc(clock.Now),
			kv.WithSweepInterval(time.Minute),
		)
		ownsStore = true
	}

	if cfg.Token.SigningMethod == token.MethodHS256 && len(cfg.Token.Secret) == 0 {
		// Validate already rejected this in ProductionMode.
		secret, err := internal.NewSigningSecret()
		if err != nil {
			return nil, err
		}
		cfg.Token.Secret = secret
		logger.Warn("no signing secret configured, generated an ephemeral one; tokens will not survive a restart")
	}

	registry := permission.NewRegistry()
	for _, p := range b.permissions {
		if err := registry.Register(p); err != nil {
			return nil, err
		}
	}
	registry.Freeze()

	roleManager := permission.NewRoleManager(registry)
	for roleName, permList := range b.roles {
		if err := roleManager.RegisterRole(roleName, permList); err != nil {
			return nil, err
		}
	}
	roleManager.Freeze()

	if cfg.Account.Enabled {
		if _, ok := roleManager.Permissions(cfg.Account.DefaultRole); !ok {
			return nil, errors.New("Account DefaultRole is not a registered role")
		}
	}

	revocations := NewRevocationList(store)

	codec, err := token.NewCodec(token.Config{
		SigningMethod: cfg.Token.SigningMethod,
		Secret:        cloneBytes(cfg.Token.Secret),
		PrivateKey:    cloneBytes(cfg.Token.PrivateKey),
		PublicKey:     cloneBytes(cfg.Token.PublicKey),
		AccessTTL:     cfg.Token.AccessTTL,
		RefreshTTL:    cfg.Token.RefreshTTL,
		Issuer:        cfg.Token.Issuer,
		Audience:      cfg.Token.Audience,
		Leeway:        cfg.Token.Leeway,
	}, revocations, clock.Now)
	if err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(cfg.Password)
	if err != nil {
		return nil, err
	}

	// Hashed throwaway used to equalize the cost of logins against
	// unknown usernames.
	throwaway, err := internal.NewStateToken()
	if err != nil {
		return nil, err
	}
	dummyHash, err := hasher.Hash(throwaway)
	if err != nil {
		return nil, err
	}

	var userLockout, ipLockout LockoutTracker = noopLockoutTracker{}, noopLockoutTracker{}
	if cfg.Lockout.Enabled {
		userLockout = newSlidingLockoutTracker(cfg.Lockout, clock.Now)
		if cfg.Lockout.TrackClientIP {
			ipLockout = newSlidingLockoutTracker(cfg.Lockout, clock.Now)
		}
	}

	engine := &Engine{
		config:      cfg,
		registry:    registry,
		roleManager: roleManager,
		users:       b.users,
		codec:       codec,
		revocations: revocations,
		userLockout: userLockout,
		ipLockout:   ipLockout,
		states:      newStateManager(store, cfg.OAuth.StateTTL, clock.Now),
		providers:   b.providers,
		reconciler:  &reconciler{users: b.users, defaultRole: cfg.Account.DefaultRole},
		hasher:      hasher,
		dummyHash:   dummyHash,
		store:       store,
		ownsStore:   ownsStore,
		clock:       clock,
		logger:      logger,
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
		metrics: internalmetrics.New(cfg.Metrics.Enabled),
	}

	b.built = true

	return engine, nil
}
