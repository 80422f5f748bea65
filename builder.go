package authgate

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/authgate-io/authgate/internal/rate"
	"github.com/authgate-io/authgate/password"
	"github.com/authgate-io/authgate/store"
)

// Builder assembles an [Engine]. A Builder is single-use; Build
// returns an error on reuse.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	store   store.Store
	mailers []Mailer
	hasher  Hasher
	logger  *zap.Logger
	sink    AuditSink
	clock   func() time.Time

	built bool
}

// New returns a Builder preloaded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the full configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithStore sets the persistence backend. Required.
func (b *Builder) WithStore(s store.Store) *Builder {
	b.store = s
	return b
}

// WithRedis sets the shared counter backend for the rate limiter.
// Without it the limiter runs on its in-process fallback only.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithMailers sets the ordered delivery chain: the first channel is
// primary, later channels are fallbacks.
func (b *Builder) WithMailers(mailers ...Mailer) *Builder {
	b.mailers = mailers
	return b
}

// WithHasher overrides the default Argon2id password hasher.
func (b *Builder) WithHasher(h Hasher) *Builder {
	b.hasher = h
	return b
}

// WithLogger sets the diagnostics logger. Defaults to zap.NewNop.
func (b *Builder) WithLogger(l *zap.Logger) *Builder {
	b.logger = l
	return b
}

// WithAuditSink attaches an async mirror for stored audit events.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.sink = sink
	return b
}

// WithClock overrides the engine's time source. Test hook; all expiry
// math runs off this clock in UTC.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	if b.store == nil {
		return nil, errors.New("store required")
	}
	if err := b.config.Validate(); err != nil {
		return nil, err
	}

	hasher := b.hasher
	if hasher == nil {
		var err error
		hasher, err = password.NewArgon2(password.Config{
			Memory:      b.config.Password.Memory,
			Time:        b.config.Password.Time,
			Parallelism: b.config.Password.Parallelism,
			SaltLength:  b.config.Password.SaltLength,
			KeyLength:   b.config.Password.KeyLength,
		})
		if err != nil {
			return nil, err
		}
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	clock := b.clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}

	var limiter *rate.Limiter
	if b.config.RateLimit.Enabled {
		limiter = rate.New(b.redis, rate.Config{
			Limit:  b.config.RateLimit.Limit,
			Window: b.config.RateLimit.Window,
		})
		limiter.SetClock(clock)
	}

	e := &Engine{
		config:     b.config,
		store:      b.store,
		limiter:    limiter,
		mailers:    b.mailers,
		hasher:     hasher,
		metrics:    NewMetrics(b.config.Metrics),
		dispatcher: newAuditDispatcher(b.config.Audit, b.sink),
		log:        logger,
		now:        clock,
	}

	b.built = true
	return e, nil
}
