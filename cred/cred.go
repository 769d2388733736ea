package cred

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/MrEthical07/swad/password"
)

var (
	// ErrUnknownClass is returned by Open for an unsupported class name.
	ErrUnknownClass = errors.New("unknown checker class")
	// ErrArgs is returned when a class receives the wrong arguments.
	ErrArgs = errors.New("invalid checker arguments")
)

// Checker verifies credentials against one backend.
type Checker interface {
	Check(ctx context.Context, username, password string) (realname string, ok bool, err error)
	Close() error
}

// Options carries collaborators shared by checker classes.
type Options struct {
	// Hasher verifies stored argon2id hashes. A default one is built when nil.
	Hasher *password.Argon2
	Logger *zap.Logger

	// PAMHelper is the helper executable of the pam class.
	PAMHelper string
	// PAMHelperArgs are passed to the helper after argv[0].
	PAMHelperArgs []string
	// LookupGECOS returns the GECOS field of a system account. It defaults
	// to an os/user lookup.
	LookupGECOS func(username string) (string, bool)
}

// DefaultHasherConfig is used for dummy verification when Options.Hasher is nil.
var DefaultHasherConfig = password.Config{
	Memory:      64 * 1024,
	Time:        3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

func (o Options) withDefaults() (Options, error) {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Hasher == nil {
		h, err := password.NewArgon2(DefaultHasherConfig)
		if err != nil {
			return o, err
		}
		o.Hasher = h
	}
	if o.PAMHelper == "" {
		o.PAMHelper = DefaultPAMHelper
	}
	if o.LookupGECOS == nil {
		o.LookupGECOS = lookupGECOS
	}
	return o, nil
}

func wantArgs(class string, args []string, lo, hi int) error {
	if len(args) < lo || len(args) > hi {
		if lo == hi {
			return fmt.Errorf("%w: %s takes %d argument(s), got %d", ErrArgs, class, lo, len(args))
		}
		return fmt.Errorf("%w: %s takes %d to %d arguments, got %d", ErrArgs, class, lo, hi, len(args))
	}
	return nil
}

// Open instantiates the checker class named class.
//
//	pam      [service]
//	file     [path]
//	redis    [addr-or-url, key-prefix?]
//	postgres [dsn, query?]
func Open(class string, args []string, opts Options) (Checker, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	logger := opts.Logger.Named("cred").With(zap.String("class", class))

	switch strings.ToLower(class) {
	case "pam":
		if err := wantArgs(class, args, 1, 1); err != nil {
			return nil, err
		}
		return NewPAM(args[0], opts)
	case "file":
		if err := wantArgs(class, args, 1, 1); err != nil {
			return nil, err
		}
		return NewFile(args[0], opts.Hasher, logger)
	case "redis":
		if err := wantArgs(class, args, 1, 2); err != nil {
			return nil, err
		}
		prefix := DefaultRedisPrefix
		if len(args) == 2 {
			prefix = args[1]
		}
		return DialRedis(args[0], prefix, opts.Hasher)
	case "postgres":
		if err := wantArgs(class, args, 1, 2); err != nil {
			return nil, err
		}
		query := DefaultPostgresQuery
		if len(args) == 2 {
			query = args[1]
		}
		return DialPostgres(args[0], query, opts.Hasher)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownClass, class)
	}
}
