package identity

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/feedbackloop/identity/audit"
	"github.com/feedbackloop/identity/internal/rate"
	"github.com/feedbackloop/identity/metrics"
	"github.com/feedbackloop/identity/notify"
	"github.com/feedbackloop/identity/password"
	"github.com/feedbackloop/identity/token"
)

// Builder assembles an [Engine]. Configure it during initialization, call
// Build once, and discard it.
type Builder struct {
	config Config
	users  UserStore
	resets ResetTokenStore
	redis  redis.UniversalClient

	auditSink audit.Sink
	notifier  notify.Sender
	logger    *zap.Logger

	built bool
}

// New returns a builder preloaded with [DefaultConfig].
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithStores wires the user and reset-token stores. Both are required.
func (b *Builder) WithStores(users UserStore, resets ResetTokenStore) *Builder {
	b.users = users
	b.resets = resets
	return b
}

// WithRedis enables attempt throttling. Without a client every throttle
// check passes.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAuditSink sets the destination for audit events. Effective only when
// Config.Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink audit.Sink) *Builder {
	b.auditSink = sink
	return b
}

// WithNotifier sets the password-reset delivery transport. Defaults to a
// no-op sender.
func (b *Builder) WithNotifier(sender notify.Sender) *Builder {
	b.notifier = sender
	return b
}

func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// Build validates the configuration, constructs every subsystem, and
// returns the engine. A builder can only be used once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	b.built = true

	if b.users == nil || b.resets == nil {
		return nil, errors.New("user and reset-token stores required")
	}
	if err := b.config.Validate(); err != nil {
		return nil, err
	}

	hasher, err := password.NewArgon2(password.Config{
		Memory:      b.config.Password.Memory,
		Time:        b.config.Password.Time,
		Parallelism: b.config.Password.Parallelism,
		SaltLength:  b.config.Password.SaltLength,
		KeyLength:   b.config.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	tokens, err := token.NewManager(token.Config{
		TTL:           b.config.Token.TTL,
		SigningMethod: token.SigningMethod(b.config.Token.SigningMethod),
		Secret:        b.config.Token.Secret,
		PrivateKey:    b.config.Token.PrivateKey,
		PublicKey:     b.config.Token.PublicKey,
		Issuer:        b.config.Token.Issuer,
		Leeway:        b.config.Token.Leeway,
	})
	if err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if b.redis != nil {
		limiter = rate.New(b.redis, rate.Config{
			MaxLoginAttempts:     b.config.Security.MaxLoginAttempts,
			LoginCooldown:        b.config.Security.LoginCooldown,
			MaxTwoFactorAttempts: b.config.Security.MaxTwoFactorAttempts,
			TwoFactorCooldown:    b.config.Security.TwoFactorCooldown,
			MaxResetAttempts:     b.config.Security.MaxResetAttempts,
			ResetCooldown:        b.config.Security.ResetCooldown,
		})
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	notifier := b.notifier
	if notifier == nil {
		notifier = notify.NoOpSender{}
	}

	return &Engine{
		config:  b.config,
		users:   b.users,
		resets:  b.resets,
		hasher:  hasher,
		tokens:  tokens,
		totp:    newTOTPManager(b.config.TOTP),
		limiter: limiter,
		auditor: audit.NewDispatcher(audit.Config{
			Enabled:    b.config.Audit.Enabled,
			BufferSize: b.config.Audit.BufferSize,
			DropIfFull: b.config.Audit.DropIfFull,
		}, b.auditSink),
		metrics:  metrics.New(metrics.Config{Enabled: b.config.Metrics.Enabled}),
		notifier: notifier,
		logger:   logger,
		clock:    time.Now,
	}, nil
}
