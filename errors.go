package swad

import "errors"

var (
	// ErrInvalidConfig wraps every Config.Validate failure.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrInvalidCredentials is what LoginInvalid maps to.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrLoginBlocked is what LoginBlocked maps to.
	ErrLoginBlocked = errors.New("login rate limited")
	// ErrUnknownRealm is returned when a realm name has no configuration.
	ErrUnknownRealm = errors.New("unknown realm")
	// ErrNoCheckers is returned when a realm lists no checkers.
	ErrNoCheckers = errors.New("realm has no checkers")
	// ErrDuplicateChecker is returned by the builder for a repeated checker name.
	ErrDuplicateChecker = errors.New("duplicate checker")
	// ErrBuilderUsed is returned when Build is called twice.
	ErrBuilderUsed = errors.New("builder already used")
	// ErrSessionRateLimited is returned when a client exceeded its session creation budget.
	ErrSessionRateLimited = errors.New("session creation rate limited")
	// ErrSessionIDExhausted is returned when no unique session id could be generated.
	ErrSessionIDExhausted = errors.New("session id generation failed")
	// ErrCheckerClass is returned when a configured checker cannot be instantiated.
	ErrCheckerClass = errors.New("cannot instantiate checker")
	// ErrNotAuthenticated is returned for operations that need a logged-in user.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrAssertionDisabled is returned by IssueAssertion when no signer is configured.
	ErrAssertionDisabled = errors.New("identity assertion disabled")
)
