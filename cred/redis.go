package cred

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/swad/password"
)

// DefaultRedisPrefix prefixes usernames to form hash keys.
const DefaultRedisPrefix = "swad:user:"

// Redis checks credentials stored as hashes with fields "hash" (argon2id
// PHC) and optionally "name".
type Redis struct {
	client redis.UniversalClient
	prefix string
	hasher *password.Argon2
	owned  bool
}

// DialRedis connects to addr, a host:port pair or a redis:// URL.
func DialRedis(addr, prefix string, hasher *password.Argon2) (*Redis, error) {
	var opts *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("%w: redis url: %v", ErrArgs, err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr}
	}
	r := NewRedis(redis.NewClient(opts), prefix, hasher)
	r.owned = true
	return r, nil
}

// NewRedis wraps an existing client. Close does not close it.
func NewRedis(client redis.UniversalClient, prefix string, hasher *password.Argon2) *Redis {
	return &Redis{client: client, prefix: prefix, hasher: hasher}
}

func (r *Redis) Check(ctx context.Context, username, pw string) (string, bool, error) {
	fields, err := r.client.HGetAll(ctx, r.prefix+username).Result()
	if err != nil {
		return "", false, fmt.Errorf("redis lookup: %w", err)
	}
	hash, ok := fields["hash"]
	if !ok {
		return "", r.hasher.VerifyAbsent(pw), nil
	}
	match, err := r.hasher.Verify(pw, hash)
	if err != nil {
		return "", false, fmt.Errorf("stored hash for %q: %w", username, err)
	}
	if !match {
		return "", false, nil
	}
	return fields["name"], true, nil
}

func (r *Redis) Close() error {
	if !r.owned {
		return nil
	}
	return r.client.Close()
}
