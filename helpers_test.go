package swad

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/thejerf/abtime"
	"go.uber.org/zap"

	"github.com/MrEthical07/swad/session"
)

type fakeUser struct {
	password string
	realname string
}

type fakeChecker struct {
	mu     sync.Mutex
	users  map[string]fakeUser
	err    error
	calls  int
	closed bool
}

func newFakeChecker(users map[string]fakeUser) *fakeChecker {
	return &fakeChecker{users: users}
}

func (c *fakeChecker) Check(_ context.Context, username, password string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return "", false, c.err
	}
	u, ok := c.users[username]
	if !ok || u.password != password {
		return "", false, nil
	}
	return u.realname, true, nil
}

func (c *fakeChecker) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeChecker) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

var errBackendDown = errors.New("backend down")

func testClock() *abtime.ManualTime {
	return abtime.NewManualAtTime(time.Unix(1_700_000_000, 0).UTC())
}

func testConfig(realms ...RealmConfig) Config {
	cfg := DefaultConfig()
	cfg.Realms = realms
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	return cfg
}

type testEnv struct {
	gw    *Gateway
	clock *abtime.ManualTime
}

func newTestEnv(t *testing.T, cfg Config, checkers map[string]CredentialsChecker, opts ...func(*Builder)) *testEnv {
	t.Helper()
	clock := testClock()
	b := New().WithConfig(cfg).WithClock(clock).WithLogger(zap.NewNop())
	for name, chk := range checkers {
		b.WithChecker(name, chk)
	}
	for _, opt := range opts {
		opt(b)
	}
	gw, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(func() { _ = gw.Close() })
	return &testEnv{gw: gw, clock: clock}
}

var addrSeq struct {
	mu sync.Mutex
	n  int
}

// newSession creates a session from a fresh client address so tests never
// trip the creation limit by accident.
func (e *testEnv) newSession(t *testing.T) *session.Session {
	t.Helper()
	addrSeq.mu.Lock()
	addrSeq.n++
	n := addrSeq.n
	addrSeq.mu.Unlock()

	sess, err := e.gw.CreateSession(context.Background(), "10.0.0."+strconv.Itoa(n))
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	return sess
}
