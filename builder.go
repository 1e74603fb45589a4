package goSession

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goSession/cache"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/signing"
	"github.com/MrEthical07/goSession/store"
	"github.com/MrEthical07/goSession/token"
)

// Builder defines a public type used by goSession APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	tokenStore      store.CredentialStore
	cacheClient     cache.Cache
	signingProvider signing.Provider
	identity        IdentityProvider
	auditSink       AuditSink

	built bool
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig may return an error when input validation, dependency calls, or security checks fail.
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore describes the withstore operation and its observable behavior.
//
// WithStore may return an error when input validation, dependency calls, or security checks fail.
// WithStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithStore(s store.CredentialStore) *Builder {
	b.tokenStore = s
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
//
// WithRedis may return an error when input validation, dependency calls, or security checks fail.
// WithRedis does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithCache describes the withcache operation and its observable behavior.
//
// WithCache may return an error when input validation, dependency calls, or security checks fail.
// WithCache does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithCache(c cache.Cache) *Builder {
	b.cacheClient = c
	return b
}

// WithSigningProvider describes the withsigningprovider operation and its observable behavior.
//
// WithSigningProvider may return an error when input validation, dependency calls, or security checks fail.
// WithSigningProvider does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithSigningProvider(p signing.Provider) *Builder {
	b.signingProvider = p
	return b
}

// WithIdentityProvider describes the withidentityprovider operation and its observable behavior.
//
// WithIdentityProvider may return an error when input validation, dependency calls, or security checks fail.
// WithIdentityProvider does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithIdentityProvider(p IdentityProvider) *Builder {
	b.identity = p
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink may return an error when input validation, dependency calls, or security checks fail.
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled may return an error when input validation, dependency calls, or security checks fail.
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
//
// WithLatencyHistograms may return an error when input validation, dependency calls, or security checks fail.
// WithLatencyHistograms does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.tokenStore == nil {
		return nil, errors.New("credential store required")
	}
	if b.identity == nil {
		return nil, errors.New("identity provider required")
	}
	if b.signingProvider == nil && len(cfg.Token.PrivateKey) == 0 {
		return nil, errors.New("signing provider or static keys required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cacheClient := b.cacheClient
	if cacheClient == nil && b.redis != nil {
		cacheClient = cache.NewRedis(b.redis, "gs")
	}

	if (cfg.Throttle.EnableRotateThrottle || cfg.Throttle.EnableIssueThrottle) && b.redis == nil {
		return nil, errors.New("throttles require redis client")
	}

	provider := b.signingProvider
	if provider == nil {
		provider = signing.NewStaticProvider(signing.Material{
			Method:     signing.Method(cfg.Token.SigningMethod),
			KeyID:      cfg.Token.KeyID,
			PrivateKey: cloneBytes(cfg.Token.PrivateKey),
			PublicKey:  cloneBytes(cfg.Token.PublicKey),
			Issuer:     cfg.Token.Issuer,
			Audience:   cfg.Token.Audience,
		})
	}

	holder := signing.NewHolder(provider, cfg.Token.SigningKeyTTL)

	manager, err := token.NewManager(holder, token.Config{
		AccessTTL: cfg.Token.AccessTTL,
		Leeway:    cfg.Token.Leeway,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:       cloneConfig(cfg),
		tokenStore:   b.tokenStore,
		cacheClient:  cacheClient,
		signing:      holder,
		tokenManager: manager,
		identity:     b.identity,
	}

	if b.redis != nil {
		engine.rateLimiter = rate.New(b.redis, rate.Config{
			EnableIssueThrottle:    cfg.Throttle.EnableIssueThrottle,
			EnableRotateThrottle:   cfg.Throttle.EnableRotateThrottle,
			MaxIssueAttempts:       cfg.Throttle.MaxIssueAttempts,
			IssueCooldownDuration:  cfg.Throttle.IssueCooldownDuration,
			MaxRotateAttempts:      cfg.Throttle.MaxRotateAttempts,
			RotateCooldownDuration: cfg.Throttle.RotateCooldownDuration,
		})
	}

	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)
	holder.OnRefresh(func() { engine.metricInc(MetricSigningKeyRefresh) })
	engine.claimsCache = newClaimsCache(
		cacheClient,
		b.identity,
		cfg.Claims,
		cfg.Retry,
		func() { engine.metricInc(MetricClaimsCacheHit) },
		func() { engine.metricInc(MetricClaimsCacheMiss) },
	)
	engine.blockStatus = newBlockStatusCache(
		cacheClient,
		b.tokenStore,
		cfg.BlockStatus,
		cfg.Retry,
		func() { engine.metricInc(MetricBlockStatusCacheHit) },
		func() { engine.metricInc(MetricBlockStatusCacheMiss) },
		func() { engine.metricInc(MetricBlockStatusDegraded) },
	)

	b.built = true

	return engine, nil
}
