package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/thejerf/abtime"
	"go.uber.org/zap"

	"github.com/MrEthical07/swad/internal"
	"github.com/MrEthical07/swad/internal/limiters"
	"github.com/MrEthical07/swad/internal/rate"
)

const (
	// CookieName is the cookie carrying the session identifier.
	CookieName = "PSW_SID"

	DefaultIdleTimeout   = time.Hour
	DefaultMaxAge        = 12 * time.Hour
	DefaultSweepInterval = 15 * time.Minute

	// SweepTickerID identifies the background sweep ticker on abtime clocks.
	SweepTickerID = 0x5e55

	shardCount        = 256
	maxCreateAttempts = 16
)

var (
	// ErrRateLimited is returned by Create when the client exceeded its
	// session creation budget.
	ErrRateLimited = errors.New("session creation rate limited")
	// ErrIDExhausted is returned when no unique identifier could be generated.
	ErrIDExhausted = errors.New("session id generation failed")
)

// Config tunes a [Store].
type Config struct {
	IdleTimeout   time.Duration
	MaxAge        time.Duration
	SweepInterval time.Duration
	CreateLimits  []rate.Tier

	Clock  abtime.AbstractTime
	Logger *zap.Logger

	// OnExpire is called with the number of sessions removed by expiry.
	OnExpire func(n int)
	// OnSweep is called after every sweep that ran.
	OnSweep func(removed int)
}

type shard struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// Store is a concurrent in-memory session table.
type Store struct {
	cfg     Config
	clock   abtime.AbstractTime
	logger  *zap.Logger
	limiter *limiters.SessionCreation
	shards  [shardCount]shard

	sweepMu   sync.Mutex
	lastSweep time.Time
}

// NewStore builds a Store, filling zero config values with defaults.
func NewStore(cfg Config) *Store {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultMaxAge
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = abtime.NewRealTime()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	s := &Store{
		cfg:     cfg,
		clock:   cfg.Clock,
		logger:  cfg.Logger.Named("session"),
		limiter: limiters.NewSessionCreation(cfg.CreateLimits, cfg.Clock),
	}
	for i := range s.shards {
		s.shards[i].sessions = make(map[string]*Session)
	}
	s.lastSweep = s.clock.Now()
	return s
}

func (s *Store) shard(id string) *shard {
	return &s.shards[xxhash.Sum64String(id)%shardCount]
}

func (s *Store) expired(sess *Session, now time.Time) bool {
	return sess.expired(now, s.cfg.IdleTimeout, s.cfg.MaxAge)
}

func (s *Store) reportExpired(n int) {
	if n > 0 && s.cfg.OnExpire != nil {
		s.cfg.OnExpire(n)
	}
}

// Get returns the live session for id and refreshes its last access time.
// Expired sessions are removed and reported as absent.
func (s *Store) Get(id string) (*Session, bool) {
	if s == nil || !internal.ValidSessionID(id) {
		return nil, false
	}
	now := s.clock.Now()
	sh := s.shard(id)

	sh.mu.Lock()
	sess, ok := sh.sessions[id]
	if !ok {
		sh.mu.Unlock()
		return nil, false
	}
	if s.expired(sess, now) {
		delete(sh.sessions, id)
		sh.mu.Unlock()
		sess.destroy()
		s.reportExpired(1)
		return nil, false
	}
	sh.mu.Unlock()

	sess.touch(now)
	return sess, true
}

// Create inserts a new session for clientAddr, subject to the creation limit.
func (s *Store) Create(clientAddr string) (*Session, error) {
	if !s.limiter.Allow(clientAddr) {
		s.logger.Info("session creation rate limited", zap.String("client_addr", clientAddr))
		return nil, ErrRateLimited
	}

	now := s.clock.Now()
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		id, err := internal.NewSessionID()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIDExhausted, err)
		}
		sh := s.shard(id)
		sh.mu.Lock()
		if _, taken := sh.sessions[id]; taken {
			sh.mu.Unlock()
			continue
		}
		sess := newSession(id, now)
		sh.sessions[id] = sess
		sh.mu.Unlock()
		return sess, nil
	}
	return nil, ErrIDExhausted
}

// Remove destroys the session with id if present.
func (s *Store) Remove(id string) bool {
	sh := s.shard(id)
	sh.mu.Lock()
	sess, ok := sh.sessions[id]
	delete(sh.sessions, id)
	sh.mu.Unlock()
	if ok {
		sess.destroy()
	}
	return ok
}

// Sweep removes every expired session. It runs at most once per sweep
// interval and reports how many sessions it removed and whether it ran.
func (s *Store) Sweep() (int, bool) {
	now := s.clock.Now()

	s.sweepMu.Lock()
	if now.Sub(s.lastSweep) < s.cfg.SweepInterval {
		s.sweepMu.Unlock()
		return 0, false
	}
	s.lastSweep = now
	s.sweepMu.Unlock()

	removed := 0
	var doomed []*Session
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for id, sess := range sh.sessions {
			if s.expired(sess, now) {
				delete(sh.sessions, id)
				doomed = append(doomed, sess)
			}
		}
		sh.mu.Unlock()

		for _, sess := range doomed {
			sess.destroy()
		}
		removed += len(doomed)
		doomed = doomed[:0]
	}

	s.logger.Debug("session sweep", zap.Int("removed", removed))
	s.reportExpired(removed)
	if s.cfg.OnSweep != nil {
		s.cfg.OnSweep(removed)
	}
	return removed, true
}

// Run sweeps on every tick of the sweep interval until ctx is done.
func (s *Store) Run(ctx context.Context) {
	ticker := s.clock.NewTicker(s.cfg.SweepInterval, SweepTickerID)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Channel():
			s.Sweep()
		}
	}
}

// Len returns the number of stored sessions, expired or not.
func (s *Store) Len() int {
	n := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		n += len(sh.sessions)
		sh.mu.Unlock()
	}
	return n
}

// Close destroys every session.
func (s *Store) Close() {
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		sessions := sh.sessions
		sh.sessions = make(map[string]*Session)
		sh.mu.Unlock()

		for _, sess := range sessions {
			sess.destroy()
		}
	}
}

// CreateLimits returns the effective session creation tiers.
func (s *Store) CreateLimits() []rate.Tier {
	return s.limiter.Tiers()
}
