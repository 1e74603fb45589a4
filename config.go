package goSession

import (
	"errors"
	"time"
)

// Config defines a public type used by goSession APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Token       TokenConfig
	Sessions    SessionsConfig
	Claims      ClaimsCacheConfig
	BlockStatus BlockStatusConfig
	Throttle    ThrottleConfig
	Timeouts    TimeoutsConfig
	Retry       RetryConfig
	SoftChecks  SoftChecksConfig
	Audit       AuditConfig
	Metrics     MetricsConfig
	Security    SecurityConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig defines a public type used by goSession APIs.
//
// TokenConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TokenConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod string // "ed25519" (default), "hs256" optional
	PrivateKey    []byte
	PublicKey     []byte
	KeyID         string
	Issuer        string
	Audience      string
	SigningKeyTTL time.Duration
	Leeway        time.Duration
}

/*
====================================
SESSIONS CONFIG
====================================
*/

// SessionsConfig defines a public type used by goSession APIs.
//
// SessionsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SessionsConfig struct {
	MaxActivePerUser int
}

// ClaimsCacheConfig defines a public type used by goSession APIs.
//
// ClaimsCacheConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ClaimsCacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Prefix  string
}

// BlockStatusConfig defines a public type used by goSession APIs.
//
// BlockStatusConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type BlockStatusConfig struct {
	Enabled  bool
	TTL      time.Duration
	FailOpen bool
}

// ThrottleConfig defines a public type used by goSession APIs.
//
// ThrottleConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ThrottleConfig struct {
	EnableIssueThrottle    bool
	EnableRotateThrottle   bool
	MaxIssueAttempts       int
	IssueCooldownDuration  time.Duration
	MaxRotateAttempts      int
	RotateCooldownDuration time.Duration
}

// TimeoutsConfig defines a public type used by goSession APIs.
//
// TimeoutsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TimeoutsConfig struct {
	Store time.Duration
	Cache time.Duration
}

// RetryConfig defines a public type used by goSession APIs.
//
// RetryConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// SoftChecksConfig defines a public type used by goSession APIs.
//
// SoftChecksConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SoftChecksConfig struct {
	DetectIPChange        bool
	DetectUserAgentChange bool
}

// AuditConfig defines a public type used by goSession APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by goSession APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig defines a public type used by goSession APIs.
//
// SecurityConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SecurityConfig struct {
	ProductionMode          bool
	EnforceSingleUse        bool
	EnforceReuseDetection   bool
	EnableBlockStatusChecks bool
	MaxClockSkew            time.Duration
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig describes the defaultconfig operation and its observable behavior.
//
// DefaultConfig may return an error when input validation, dependency calls, or security checks fail.
// DefaultConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
			SigningMethod: "ed25519",
			SigningKeyTTL: 5 * time.Minute,
			Leeway:        0,
		},
		Sessions: SessionsConfig{
			MaxActivePerUser: 5,
		},
		Claims: ClaimsCacheConfig{
			Enabled: true,
			TTL:     30 * time.Minute,
			Prefix:  "gsc",
		},
		BlockStatus: BlockStatusConfig{
			Enabled:  true,
			TTL:      10 * time.Minute,
			FailOpen: true,
		},
		Throttle: ThrottleConfig{
			EnableIssueThrottle:    false,
			EnableRotateThrottle:   true,
			MaxIssueAttempts:       10,
			IssueCooldownDuration:  15 * time.Minute,
			MaxRotateAttempts:      20,
			RotateCooldownDuration: 1 * time.Minute,
		},
		Timeouts: TimeoutsConfig{
			Store: 3 * time.Second,
			Cache: 1 * time.Second,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   50 * time.Millisecond,
		},
		SoftChecks: SoftChecksConfig{
			DetectIPChange:        false,
			DetectUserAgentChange: false,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Security: SecurityConfig{
			ProductionMode:          false,
			EnforceSingleUse:        true,
			EnforceReuseDetection:   true,
			EnableBlockStatusChecks: true,
			MaxClockSkew:            30 * time.Second,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
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

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// Token
	if c.Token.AccessTTL <= 0 {
		return errors.New("Token AccessTTL must be > 0")
	}
	if c.Token.RefreshTTL <= 0 {
		return errors.New("Token RefreshTTL must be > 0")
	}
	if c.Token.RefreshTTL < c.Token.AccessTTL {
		return errors.New("Token RefreshTTL must be >= AccessTTL")
	}

	if c.Token.SigningMethod != "ed25519" && c.Token.SigningMethod != "hs256" {
		return errors.New("unsupported Token signing method")
	}

	if c.Token.SigningMethod == "ed25519" && len(c.Token.PrivateKey) == 0 {
		return errors.New("ed25519 requires PrivateKey")
	}
	if c.Token.SigningMethod == "ed25519" && len(c.Token.PublicKey) == 0 {
		return errors.New("ed25519 requires PublicKey")
	}
	if c.Token.SigningMethod == "hs256" && len(c.Token.PrivateKey) == 0 {
		return errors.New("hs256 requires PrivateKey")
	}
	if c.Token.SigningKeyTTL < 0 {
		return errors.New("Token SigningKeyTTL must be >= 0")
	}
	if c.Token.Leeway < 0 || c.Token.Leeway > 2*time.Minute {
		return errors.New("Token Leeway must be between 0 and 2m")
	}

	// Sessions
	if c.Sessions.MaxActivePerUser < 0 {
		return errors.New("Sessions MaxActivePerUser must be >= 0")
	}

	// Claims cache
	if c.Claims.Enabled {
		if c.Claims.TTL <= 0 {
			return errors.New("Claims TTL must be > 0 when claims cache is enabled")
		}
		if c.Claims.TTL > c.Token.RefreshTTL {
			return errors.New("Claims TTL must be <= Token RefreshTTL")
		}
	}

	// Block status
	if c.BlockStatus.Enabled && c.BlockStatus.TTL <= 0 {
		return errors.New("BlockStatus TTL must be > 0 when block status cache is enabled")
	}

	// Throttle
	if c.Throttle.EnableRotateThrottle {
		if c.Throttle.MaxRotateAttempts <= 0 {
			return errors.New("MaxRotateAttempts must be > 0 when rotate throttle is enabled")
		}
		if c.Throttle.RotateCooldownDuration <= 0 {
			return errors.New("RotateCooldownDuration must be > 0 when rotate throttle is enabled")
		}
	}
	if c.Throttle.EnableIssueThrottle {
		if c.Throttle.MaxIssueAttempts <= 0 {
			return errors.New("MaxIssueAttempts must be > 0 when issue throttle is enabled")
		}
		if c.Throttle.IssueCooldownDuration <= 0 {
			return errors.New("IssueCooldownDuration must be > 0 when issue throttle is enabled")
		}
	}

	// Timeouts
	if c.Timeouts.Store <= 0 {
		return errors.New("Timeouts Store must be > 0")
	}
	if c.Timeouts.Cache <= 0 {
		return errors.New("Timeouts Cache must be > 0")
	}

	// Retry
	if c.Retry.MaxAttempts <= 0 {
		return errors.New("Retry MaxAttempts must be > 0")
	}
	if c.Retry.BaseDelay <= 0 {
		return errors.New("Retry BaseDelay must be > 0")
	}

	// Audit
	if c.Audit.Enabled {
		if c.Audit.BufferSize <= 0 {
			return errors.New("Audit BufferSize must be > 0 when audit is enabled")
		}
	}

	// Security
	if !c.Security.EnforceSingleUse {
		return errors.New("EnforceSingleUse must be true")
	}
	if !c.Security.EnforceReuseDetection {
		return errors.New("EnforceReuseDetection must be true")
	}
	if c.Security.MaxClockSkew < 0 {
		return errors.New("Security MaxClockSkew must be >= 0")
	}

	if c.Security.ProductionMode {
		if c.Token.AccessTTL > 15*time.Minute {
			return errors.New("ProductionMode requires Token AccessTTL <= 15m")
		}
		if c.Token.RefreshTTL > 30*24*time.Hour {
			return errors.New("ProductionMode requires Token RefreshTTL <= 30d")
		}
		if c.Token.SigningMethod == "hs256" && len(c.Token.PrivateKey) < 32 {
			return errors.New("ProductionMode requires hs256 key length >= 256 bits")
		}
		if c.Sessions.MaxActivePerUser <= 0 {
			return errors.New("ProductionMode requires Sessions MaxActivePerUser > 0")
		}
		if !c.Throttle.EnableRotateThrottle {
			return errors.New("ProductionMode requires rotate throttle")
		}
		if !c.Security.EnableBlockStatusChecks {
			return errors.New("ProductionMode requires block status checks")
		}
	}

	return nil
}
