package password

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16

	// DefaultMinLength applies to Hash when Config.MinLength is zero.
	DefaultMinLength = 8
	// MaxPasswordBytes bounds the input accepted by Hash and Verify.
	MaxPasswordBytes = 1024
)

var (
	ErrPasswordTooShort = errors.New("password too short")
	ErrPasswordTooLong  = errors.New("password too long")
)

// Config holds argon2id parameters.
type Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	MinLength   int
}

// Argon2 hashes and verifies passwords with argon2id.
type Argon2 struct {
	config Config
	dummy  PHC
}

// NewArgon2 validates cfg and precomputes the dummy hash used by
// [Argon2.VerifyAbsent].
func NewArgon2(cfg Config) (*Argon2, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if cfg.MinLength <= 0 {
		cfg.MinLength = DefaultMinLength
	}

	a := &Argon2{config: cfg}
	salt, err := a.salt()
	if err != nil {
		return nil, err
	}
	a.dummy = a.derive([]byte("swad-dummy-password"), salt)
	return a, nil
}

func (a *Argon2) salt() ([]byte, error) {
	salt := make([]byte, a.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}
	return salt, nil
}

func (a *Argon2) derive(password, salt []byte) PHC {
	return PHC{
		Memory:      a.config.Memory,
		Time:        a.config.Time,
		Parallelism: a.config.Parallelism,
		Salt:        salt,
		Key: argon2.IDKey(password, salt,
			a.config.Time, a.config.Memory, a.config.Parallelism, a.config.KeyLength),
	}
}

// Hash returns the PHC encoding of password. Bytes are used as given.
func (a *Argon2) Hash(password string) (string, error) {
	if len(password) < a.config.MinLength {
		return "", fmt.Errorf("%w: need at least %d bytes", ErrPasswordTooShort, a.config.MinLength)
	}
	if len(password) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	salt, err := a.salt()
	if err != nil {
		return "", err
	}
	return a.derive([]byte(password), salt).String(), nil
}

// Verify reports whether password matches encoded, using the parameters
// stored in encoded.
func (a *Argon2) Verify(password, encoded string) (bool, error) {
	if len(password) > MaxPasswordBytes {
		return false, ErrPasswordTooLong
	}
	p, err := ParsePHC(encoded)
	if err != nil {
		return false, err
	}
	computed := argon2.IDKey([]byte(password), p.Salt, p.Time, p.Memory, p.Parallelism, uint32(len(p.Key)))
	return subtle.ConstantTimeCompare(computed, p.Key) == 1, nil
}

// VerifyAbsent spends the same work as a real verification and always
// reports false. Checkers call it for unknown usernames.
func (a *Argon2) VerifyAbsent(password string) bool {
	if len(password) > MaxPasswordBytes {
		password = password[:MaxPasswordBytes]
	}
	computed := argon2.IDKey([]byte(password), a.dummy.Salt,
		a.dummy.Time, a.dummy.Memory, a.dummy.Parallelism, uint32(len(a.dummy.Key)))
	_ = subtle.ConstantTimeCompare(computed, a.dummy.Key)
	return false
}

// NeedsRehash reports whether encoded was produced with weaker parameters
// than the configured ones.
func (a *Argon2) NeedsRehash(encoded string) (bool, error) {
	p, err := ParsePHC(encoded)
	if err != nil {
		return false, err
	}
	return a.config.Memory > p.Memory ||
		a.config.Time > p.Time ||
		a.config.Parallelism > p.Parallelism ||
		a.config.KeyLength != uint32(len(p.Key)), nil
}

func validateConfig(cfg Config) error {
	if cfg.Memory < minMemoryKB {
		return errors.New("password memory must be >= 8192 KB")
	}
	if cfg.Time < minTimeCost {
		return errors.New("password time must be >= 1")
	}
	if cfg.Parallelism < minParallelism {
		return errors.New("password parallelism must be >= 1")
	}
	if cfg.SaltLength < minSaltLength {
		return errors.New("password salt length must be >= 16")
	}
	if cfg.KeyLength < minKeyLength {
		return errors.New("password key length must be >= 16")
	}
	return nil
}
