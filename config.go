package swad

import (
	"fmt"
	"time"

	"github.com/MrEthical07/swad/internal/limiters"
	"github.com/MrEthical07/swad/internal/rate"
	"github.com/MrEthical07/swad/session"
)

// Config is the complete gateway configuration. It is read once at startup
// and treated as immutable afterwards.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Session   SessionConfig   `yaml:"session"`
	Login     LoginConfig     `yaml:"login"`
	Checkers  []CheckerConfig `yaml:"checkers"`
	Realms    []RealmConfig   `yaml:"realms"`
	Password  PasswordConfig  `yaml:"password"`
	Assertion AssertionConfig `yaml:"assertion"`
	Audit     AuditConfig     `yaml:"audit"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig controls the HTTP surface.
type ServerConfig struct {
	Listen            string        `yaml:"listen"`
	LoginRoute        string        `yaml:"login_route"`
	TrustedProxies    int           `yaml:"trusted_proxies"`
	SecureCookies     bool          `yaml:"secure_cookies"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

// LimitConfig is one (window, max events) rate limit tier.
type LimitConfig struct {
	Seconds uint16 `yaml:"seconds"`
	Limit   uint16 `yaml:"limit"`
}

// SessionConfig controls session lifetime and creation throttling.
type SessionConfig struct {
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
	MaxAge        time.Duration `yaml:"max_age"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	CreateLimits  []LimitConfig `yaml:"create_limits"`
}

// LoginConfig holds realm-independent login settings.
type LoginConfig struct {
	DefaultRealm string `yaml:"default_realm"`
	// FailLimits apply to realms without their own fail_limits.
	FailLimits []LimitConfig `yaml:"fail_limits"`
}

// CheckerConfig instantiates one named credentials checker.
type CheckerConfig struct {
	Name  string   `yaml:"name"`
	Class string   `yaml:"class"`
	Args  []string `yaml:"args"`
}

// RealmConfig maps a realm to its ordered checker list.
type RealmConfig struct {
	Name       string        `yaml:"name"`
	Checkers   []string      `yaml:"checkers"`
	FailLimits []LimitConfig `yaml:"fail_limits"`
}

// PasswordConfig holds argon2id parameters for hashes produced by the CLI.
type PasswordConfig struct {
	Memory      uint32 `yaml:"memory"`
	Time        uint32 `yaml:"time"`
	Parallelism uint8  `yaml:"parallelism"`
	SaltLength  uint32 `yaml:"salt_length"`
	KeyLength   uint32 `yaml:"key_length"`
}

// AssertionConfig controls identity assertions handed to upstream services.
type AssertionConfig struct {
	Enabled       bool          `yaml:"enabled"`
	SigningMethod string        `yaml:"signing_method"`
	TTL           time.Duration `yaml:"ttl"`
	Issuer        string        `yaml:"issuer"`
	Audience      string        `yaml:"audience"`
	KeyFile       string        `yaml:"key_file"`

	PrivateKey []byte `yaml:"-"`
	PublicKey  []byte `yaml:"-"`
}

// AuditConfig controls async audit dispatch.
type AuditConfig struct {
	Enabled    bool   `yaml:"enabled"`
	BufferSize int    `yaml:"buffer_size"`
	DropIfFull bool   `yaml:"drop_if_full"`
	Sink       string `yaml:"sink"`
}

// MetricsConfig controls in-process counters and their export.
type MetricsConfig struct {
	Enabled                 bool   `yaml:"enabled"`
	EnableLatencyHistograms bool   `yaml:"enable_latency_histograms"`
	Path                    string `yaml:"path"`
}

// LogConfig selects the zap logger flavor.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns a configuration with every tunable set. It
// configures no checkers and no realms.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Listen:            ":8080",
			LoginRoute:        "/login",
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   15 * time.Second,
		},
		Session: SessionConfig{
			IdleTimeout:   session.DefaultIdleTimeout,
			MaxAge:        session.DefaultMaxAge,
			SweepInterval: session.DefaultSweepInterval,
			CreateLimits:  limitConfigs(limiters.DefaultSessionCreationTiers),
		},
		Login: LoginConfig{
			DefaultRealm: DefaultRealm,
			FailLimits:   limitConfigs(limiters.DefaultLoginTiers),
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Assertion: AssertionConfig{
			SigningMethod: "ed25519",
			TTL:           time.Minute,
			Issuer:        "swad",
		},
		Audit: AuditConfig{
			BufferSize: 1024,
			DropIfFull: true,
			Sink:       "zap",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func limitConfigs(tiers []rate.Tier) []LimitConfig {
	out := make([]LimitConfig, 0, len(tiers))
	for _, t := range tiers {
		out = append(out, LimitConfig{Seconds: t.Seconds, Limit: t.Limit})
	}
	return out
}

func tiers(limits []LimitConfig) []rate.Tier {
	if len(limits) == 0 {
		return nil
	}
	out := make([]rate.Tier, 0, len(limits))
	for _, l := range limits {
		out = append(out, rate.Tier{Seconds: l.Seconds, Limit: l.Limit})
	}
	return out
}

func validateLimits(what string, limits []LimitConfig) error {
	if len(limits) == 0 {
		return nil
	}
	if err := (rate.Opts{Tiers: tiers(limits)}).Validate(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, what, err)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...)
}

// Validate checks the configuration for values the gateway cannot run with.
// Realms referencing unknown checkers are not an error; Build logs them.
func (c *Config) Validate() error {
	// Server
	if c.Server.LoginRoute == "" || c.Server.LoginRoute[0] != '/' {
		return invalid("server login_route must start with '/'")
	}
	if c.Server.TrustedProxies < 0 {
		return invalid("server trusted_proxies must be >= 0")
	}

	// Session
	if c.Session.IdleTimeout <= 0 {
		return invalid("session idle_timeout must be > 0")
	}
	if c.Session.MaxAge <= 0 {
		return invalid("session max_age must be > 0")
	}
	if c.Session.SweepInterval <= 0 {
		return invalid("session sweep_interval must be > 0")
	}
	if err := validateLimits("session create_limits", c.Session.CreateLimits); err != nil {
		return err
	}

	// Login
	if c.Login.DefaultRealm == "" {
		return invalid("login default_realm must not be empty")
	}
	if err := validateLimits("login fail_limits", c.Login.FailLimits); err != nil {
		return err
	}

	// Checkers
	seen := make(map[string]struct{}, len(c.Checkers))
	for i, chk := range c.Checkers {
		if chk.Name == "" {
			return invalid("checker %d has no name", i)
		}
		if chk.Class == "" {
			return invalid("checker %q has no class", chk.Name)
		}
		if _, dup := seen[chk.Name]; dup {
			return invalid("checker %q defined twice", chk.Name)
		}
		seen[chk.Name] = struct{}{}
	}

	// Realms
	realms := make(map[string]struct{}, len(c.Realms))
	for i, r := range c.Realms {
		if r.Name == "" {
			return invalid("realm %d has no name", i)
		}
		if _, dup := realms[r.Name]; dup {
			return invalid("realm %q defined twice", r.Name)
		}
		realms[r.Name] = struct{}{}
		if err := validateLimits("realm "+r.Name+" fail_limits", r.FailLimits); err != nil {
			return err
		}
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return invalid("password memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return invalid("password time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return invalid("password parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return invalid("password salt_length must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return invalid("password key_length must be >= 16")
	}

	// Assertion
	if c.Assertion.Enabled {
		if c.Assertion.TTL <= 0 {
			return invalid("assertion ttl must be > 0")
		}
		switch c.Assertion.SigningMethod {
		case "ed25519", "hs256":
		default:
			return invalid("unsupported assertion signing_method %q", c.Assertion.SigningMethod)
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return invalid("audit buffer_size must be > 0")
	}
	switch c.Audit.Sink {
	case "", "zap", "json", "none":
	default:
		return invalid("unknown audit sink %q", c.Audit.Sink)
	}

	// Log
	switch c.Log.Format {
	case "", "json", "console":
	default:
		return invalid("unknown log format %q", c.Log.Format)
	}

	return nil
}

func cloneConfig(c Config) Config {
	out := c
	out.Session.CreateLimits = append([]LimitConfig(nil), c.Session.CreateLimits...)
	out.Login.FailLimits = append([]LimitConfig(nil), c.Login.FailLimits...)
	out.Checkers = make([]CheckerConfig, len(c.Checkers))
	for i, chk := range c.Checkers {
		chk.Args = append([]string(nil), chk.Args...)
		out.Checkers[i] = chk
	}
	out.Realms = make([]RealmConfig, len(c.Realms))
	for i, r := range c.Realms {
		r.Checkers = append([]string(nil), r.Checkers...)
		r.FailLimits = append([]LimitConfig(nil), r.FailLimits...)
		out.Realms[i] = r
	}
	out.Assertion.PrivateKey = append([]byte(nil), c.Assertion.PrivateKey...)
	out.Assertion.PublicKey = append([]byte(nil), c.Assertion.PublicKey...)
	return out
}
