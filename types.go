package swad

import "context"

// DefaultRealm is used when a request names no realm.
const DefaultRealm = "SWAD"

// AuthInfoKey is the session property holding per-realm authentication state.
const AuthInfoKey = "swad_authinfo"

// CredentialsChecker verifies a username and password against one backend.
// Implementations must be safe for concurrent use and may block.
//
// A backend error is reported through err; the authenticator logs it and
// treats the checker as having rejected the credentials.
type CredentialsChecker interface {
	Check(ctx context.Context, username, password string) (realname string, ok bool, err error)
	Close() error
}

// User is the result of a successful login. It is never mutated after
// creation; silent login stores an independent copy.
type User struct {
	Username string
	Realname string
	Checker  string
}

// DisplayName returns the real name, falling back to the username.
func (u User) DisplayName() string {
	if u.Realname != "" {
		return u.Realname
	}
	return u.Username
}

// LoginResult is the three-way outcome of a login attempt.
type LoginResult uint8

const (
	// LoginInvalid means no checker accepted the credentials.
	LoginInvalid LoginResult = iota
	// LoginOK means a checker accepted the credentials.
	LoginOK
	// LoginBlocked means the username exceeded the failure limit.
	LoginBlocked
)

func (r LoginResult) String() string {
	switch r {
	case LoginOK:
		return "ok"
	case LoginBlocked:
		return "blocked"
	default:
		return "invalid"
	}
}

// Err maps the result to nil, [ErrInvalidCredentials] or [ErrLoginBlocked].
func (r LoginResult) Err() error {
	switch r {
	case LoginOK:
		return nil
	case LoginBlocked:
		return ErrLoginBlocked
	default:
		return ErrInvalidCredentials
	}
}
