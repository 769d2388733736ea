package password

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const algorithmID = "argon2id"

// ErrMalformedHash is returned for strings that are not argon2id PHC hashes.
var ErrMalformedHash = errors.New("malformed argon2id hash")

// PHC is a decoded argon2id hash string.
type PHC struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	Salt        []byte
	Key         []byte
}

func malformed(what string) error {
	return fmt.Errorf("%w: %s", ErrMalformedHash, what)
}

// String encodes p as $argon2id$v=19$m=..,t=..,p=..$salt$key.
func (p PHC) String() string {
	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		p.Memory,
		p.Time,
		p.Parallelism,
		base64.RawStdEncoding.EncodeToString(p.Salt),
		base64.RawStdEncoding.EncodeToString(p.Key),
	)
}

// decodeB64 accepts both padded and unpadded standard base64, since both
// appear in PHC strings produced by common tools.
func decodeB64(s string) ([]byte, error) {
	if strings.HasSuffix(s, "=") {
		return base64.StdEncoding.DecodeString(s)
	}
	return base64.RawStdEncoding.DecodeString(s)
}

// ParsePHC decodes an argon2id PHC string.
func ParsePHC(encoded string) (PHC, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return PHC{}, malformed("format")
	}
	if parts[1] != algorithmID {
		return PHC{}, malformed("algorithm")
	}

	version, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v="))
	if err != nil || !strings.HasPrefix(parts[2], "v=") {
		return PHC{}, malformed("version")
	}
	if version != argon2.Version {
		return PHC{}, malformed("unsupported version")
	}

	var p PHC
	if err := p.parseParams(parts[3]); err != nil {
		return PHC{}, err
	}

	if p.Salt, err = decodeB64(parts[4]); err != nil || len(p.Salt) < int(minSaltLength) {
		return PHC{}, malformed("salt")
	}
	if p.Key, err = decodeB64(parts[5]); err != nil || len(p.Key) < int(minKeyLength) {
		return PHC{}, malformed("key")
	}
	return p, nil
}

func (p *PHC) parseParams(part string) error {
	var seen [3]bool
	pairs := strings.Split(part, ",")
	if len(pairs) != 3 {
		return malformed("parameters")
	}
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return malformed("parameter entry")
		}
		switch k {
		case "m":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil || n < uint64(minMemoryKB) {
				return malformed("memory")
			}
			p.Memory, seen[0] = uint32(n), true
		case "t":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil || n < uint64(minTimeCost) {
				return malformed("time")
			}
			p.Time, seen[1] = uint32(n), true
		case "p":
			n, err := strconv.ParseUint(v, 10, 8)
			if err != nil || n < uint64(minParallelism) {
				return malformed("parallelism")
			}
			p.Parallelism, seen[2] = uint8(n), true
		default:
			return malformed("unknown parameter " + k)
		}
	}
	if !seen[0] || !seen[1] || !seen[2] {
		return malformed("missing parameters")
	}
	return nil
}
