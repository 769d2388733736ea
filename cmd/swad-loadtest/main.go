// Command swad-loadtest drives an in-process gateway with concurrent session
// churn and logins against a Redis-backed checker.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	swad "github.com/MrEthical07/swad"
	"github.com/MrEthical07/swad/cred"
	"github.com/MrEthical07/swad/password"
)

const userPassword = "load-test-password"

var errLookup = errors.New("created session not found")

func main() {
	var (
		users       = flag.Int("users", 64, "number of users to seed")
		clients     = flag.Int("clients", 2048, "distinct client addresses for session churn")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 20000, "operations per phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "swad:loadtest:", "user key prefix")
	)
	flag.Parse()

	if *users <= 0 || *clients <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "users, clients, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	// Cheap parameters keep the run about the gateway, not argon2.
	hasher, err := password.NewArgon2(password.Config{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	if err != nil {
		fmt.Fprintf(os.Stderr, "argon2 init: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("seeding %d users...\n", *users)
	startSeed := time.Now()
	encoded, err := hasher.Hash(userPassword)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash failed: %v\n", err)
		os.Exit(1)
	}
	for i := 0; i < *users; i++ {
		key := *prefix + userName(i)
		if err := client.HSet(ctx, key, "hash", encoded, "name", fmt.Sprintf("Load User %d", i)).Err(); err != nil {
			fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	cfg := swad.DefaultConfig()
	cfg.Realms = []swad.RealmConfig{{Name: swad.DefaultRealm, Checkers: []string{"redis"}}}
	gw, err := swad.New().
		WithConfig(cfg).
		WithChecker("redis", cred.NewRedis(client, *prefix, hasher)).
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "gateway build: %v\n", err)
		os.Exit(1)
	}
	defer gw.Close()

	churnStats := runSessionPhase(ctx, gw, *clients, *ops, *concurrency)
	loginStats := runLoginPhase(ctx, gw, *users, *ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("sessions", churnStats)
	printStats("login", loginStats)

	snap := gw.MetricsSnapshot()
	fmt.Printf("counters: created=%d rate_limited=%d login_ok=%d login_invalid=%d login_blocked=%d active=%d\n",
		snap.Counters[swad.MetricSessionCreated],
		snap.Counters[swad.MetricSessionRateLimited],
		snap.Counters[swad.MetricLoginSuccess],
		snap.Counters[swad.MetricLoginInvalid],
		snap.Counters[swad.MetricLoginBlocked],
		gw.ActiveSessions(),
	)
}

// runSessionPhase creates sessions from a pool of client addresses and looks
// them up again, exercising the creation limiter and the sharded store.
func runSessionPhase(ctx context.Context, gw *swad.Gateway, clients, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				addr := clientAddr(r.Intn(clients))
				t0 := time.Now()
				sess, err := gw.CreateSession(ctx, addr)
				if err == nil {
					_, ok := gw.Sessions().Get(sess.ID())
					if !ok {
						err = errLookup
					}
				}
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

// runLoginPhase logs users in on one session per worker. Every tenth attempt
// uses a wrong password so the failure throttle takes part.
func runLoginPhase(ctx context.Context, gw *swad.Gateway, users, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			sess, err := gw.CreateSession(ctx, fmt.Sprintf("198.18.%d.%d", worker/256, worker%256))
			if err != nil {
				fmt.Fprintf(os.Stderr, "worker %d: %v\n", worker, err)
				return
			}
			auth := gw.Authenticator(sess, "")
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*6151))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				pw := userPassword
				if i%10 == 9 {
					pw = "wrong"
				}
				t0 := time.Now()
				res := auth.Login(ctx, userName(r.Intn(users)), pw)
				d := time.Since(t0)
				if res != swad.LoginOK {
					atomic.AddInt64(&failures, 1)
				}
				if i%50 == 0 {
					auth.Logout(ctx)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

func userName(i int) string {
	return fmt.Sprintf("user%04d", i)
}

func clientAddr(i int) string {
	return fmt.Sprintf("10.%d.%d.%d", (i>>16)&0xff, (i>>8)&0xff, i&0xff)
}
