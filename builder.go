package swad

import (
	"fmt"
	"io"
	"os"

	"github.com/thejerf/abtime"
	"go.uber.org/zap"

	"github.com/MrEthical07/swad/internal/audit"
	"github.com/MrEthical07/swad/jwt"
	"github.com/MrEthical07/swad/session"
)

// CheckerFactory instantiates a checker class from its configured
// arguments. The cred package's Open has this shape.
type CheckerFactory func(class string, args []string) (CredentialsChecker, error)

// Builder collects configuration and collaborators and produces a
// [Gateway]. A builder can be used once.
type Builder struct {
	config   Config
	checkers map[string]CredentialsChecker
	factory  CheckerFactory

	logger      *zap.Logger
	clock       abtime.AbstractTime
	auditSink   AuditSink
	auditWriter io.Writer

	err   error
	built bool
}

// New returns a builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config:   DefaultConfig(),
		checkers: make(map[string]CredentialsChecker),
	}
}

// WithConfig replaces the configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithChecker registers chk under name in addition to the checkers listed
// in the configuration.
func (b *Builder) WithChecker(name string, chk CredentialsChecker) *Builder {
	if _, dup := b.checkers[name]; dup && b.err == nil {
		b.err = fmt.Errorf("%w: %q", ErrDuplicateChecker, name)
	}
	b.checkers[name] = chk
	return b
}

// WithCheckerFactory sets the factory used for configured checkers.
func (b *Builder) WithCheckerFactory(f CheckerFactory) *Builder {
	b.factory = f
	return b
}

// WithLogger sets the logger. The default discards everything.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock sets the time source of limiters, session expiry and the sweeper.
func (b *Builder) WithClock(clock abtime.AbstractTime) *Builder {
	b.clock = clock
	return b
}

// WithAuditSink overrides the configured audit sink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithAuditWriter sets the destination of the json audit sink. The default
// is standard output.
func (b *Builder) WithAuditWriter(w io.Writer) *Builder {
	b.auditWriter = w
	return b
}

// WithMetricsEnabled toggles the counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the login latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, instantiates configured checkers and
// assembles the gateway. Realms naming unregistered checkers are logged
// once per (realm, checker) and otherwise accepted.
func (b *Builder) Build() (*Gateway, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}
	if b.err != nil {
		return nil, b.err
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := b.clock
	if clock == nil {
		clock = abtime.NewRealTime()
	}

	checkers, err := b.openCheckers(cfg.Checkers)
	if err != nil {
		return nil, err
	}

	registry := newRegistry(cfg, checkers)
	for _, u := range registry.Unresolved() {
		logger.Warn("realm references unknown checker",
			zap.String("realm", u.Realm),
			zap.String("checker", u.Checker),
		)
	}

	gw := &Gateway{
		config:   cfg,
		registry: registry,
		metrics:  NewMetrics(cfg.Metrics),
		logger:   logger,
		clock:    clock,
	}

	gw.sessions = session.NewStore(session.Config{
		IdleTimeout:   cfg.Session.IdleTimeout,
		MaxAge:        cfg.Session.MaxAge,
		SweepInterval: cfg.Session.SweepInterval,
		CreateLimits:  tiers(cfg.Session.CreateLimits),
		Clock:         clock,
		Logger:        logger,
		OnExpire: func(n int) {
			gw.metrics.Add(MetricSessionExpired, uint64(n))
		},
		OnSweep: func(int) {
			gw.metrics.Inc(MetricSweepRun)
		},
	})

	sink := b.auditSink
	if sink == nil {
		w := b.auditWriter
		if w == nil {
			w = os.Stdout
		}
		sink = auditSinkFor(cfg.Audit, logger, w)
	}
	gw.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, sink, clock.Now)

	if cfg.Assertion.Enabled {
		jm, err := jwt.NewManager(jwt.Config{
			TTL:           cfg.Assertion.TTL,
			SigningMethod: jwt.SigningMethod(cfg.Assertion.SigningMethod),
			PrivateKey:    cfg.Assertion.PrivateKey,
			PublicKey:     cfg.Assertion.PublicKey,
			Issuer:        cfg.Assertion.Issuer,
			Audience:      cfg.Assertion.Audience,
			Now:           clock.Now,
		})
		if err != nil {
			gw.audit.Close()
			_ = registry.Close()
			return nil, fmt.Errorf("%w: assertion: %v", ErrInvalidConfig, err)
		}
		gw.assertions = jm
	}

	b.built = true
	return gw, nil
}

func (b *Builder) openCheckers(configured []CheckerConfig) (map[string]CredentialsChecker, error) {
	out := make(map[string]CredentialsChecker, len(b.checkers)+len(configured))
	for name, chk := range b.checkers {
		out[name] = chk
	}

	var opened []CredentialsChecker
	fail := func(err error) (map[string]CredentialsChecker, error) {
		for _, chk := range opened {
			_ = chk.Close()
		}
		return nil, err
	}

	for _, cc := range configured {
		if _, dup := out[cc.Name]; dup {
			return fail(fmt.Errorf("%w: %q", ErrDuplicateChecker, cc.Name))
		}
		if b.factory == nil {
			return fail(fmt.Errorf("%w: %q: no checker factory", ErrCheckerClass, cc.Name))
		}
		chk, err := b.factory(cc.Class, cc.Args)
		if err != nil {
			return fail(fmt.Errorf("%w: %q (%s): %v", ErrCheckerClass, cc.Name, cc.Class, err))
		}
		opened = append(opened, chk)
		out[cc.Name] = chk
	}
	return out, nil
}

// UnknownCheckers lists every (realm, checker) pair of cfg that no entry of
// cfg.Checkers or extra defines. check-config reports it.
func UnknownCheckers(cfg Config, extra ...string) []UnresolvedChecker {
	known := make(map[string]CredentialsChecker, len(cfg.Checkers)+len(extra))
	for _, cc := range cfg.Checkers {
		known[cc.Name] = nil
	}
	for _, name := range extra {
		known[name] = nil
	}
	return newRegistry(cfg, known).Unresolved()
}
