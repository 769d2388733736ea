package swad

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/MrEthical07/swad/internal/rate"
)

// Realm is one configured authentication domain. It is immutable once the
// registry is built.
type Realm struct {
	Name string
	// Checkers are tried in order on login.
	Checkers []string

	failTiers []rate.Tier
}

// Trusts reports whether checker appears in the realm's checker list.
func (r *Realm) Trusts(checker string) bool {
	return r != nil && slices.Contains(r.Checkers, checker)
}

// FailLimits returns the login failure tiers in effect for the realm.
func (r *Realm) FailLimits() []LimitConfig {
	if r == nil {
		return nil
	}
	return limitConfigs(r.failTiers)
}

// UnresolvedChecker is a realm entry naming a checker that is not registered.
type UnresolvedChecker struct {
	Realm   string
	Checker string
}

// Registry maps checker names to checkers and realm names to realms. It is
// populated once by the builder and read without locking afterwards.
type Registry struct {
	checkers map[string]CredentialsChecker
	realms   map[string]*Realm
}

func newRegistry(cfg Config, checkers map[string]CredentialsChecker) *Registry {
	r := &Registry{
		checkers: make(map[string]CredentialsChecker, len(checkers)),
		realms:   make(map[string]*Realm, len(cfg.Realms)),
	}
	for name, chk := range checkers {
		r.checkers[name] = chk
	}

	defaults := tiers(cfg.Login.FailLimits)
	for _, rc := range cfg.Realms {
		realm := &Realm{
			Name:      rc.Name,
			Checkers:  append([]string(nil), rc.Checkers...),
			failTiers: tiers(rc.FailLimits),
		}
		if len(realm.failTiers) == 0 {
			realm.failTiers = defaults
		}
		r.realms[rc.Name] = realm
	}
	return r
}

// Realm returns the realm named name.
func (r *Registry) Realm(name string) (*Realm, bool) {
	if r == nil {
		return nil, false
	}
	realm, ok := r.realms[name]
	return realm, ok
}

// Checker returns the checker registered as name.
func (r *Registry) Checker(name string) (CredentialsChecker, bool) {
	if r == nil {
		return nil, false
	}
	chk, ok := r.checkers[name]
	return chk, ok
}

// RealmNames returns all realm names, sorted.
func (r *Registry) RealmNames() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.realms))
	for name := range r.realms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckerNames returns all registered checker names, sorted.
func (r *Registry) CheckerNames() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.checkers))
	for name := range r.checkers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Unresolved lists every (realm, checker) pair whose checker is not
// registered, ordered by realm then list position.
func (r *Registry) Unresolved() []UnresolvedChecker {
	var out []UnresolvedChecker
	for _, name := range r.RealmNames() {
		for _, chk := range r.realms[name].Checkers {
			if _, ok := r.checkers[chk]; !ok {
				out = append(out, UnresolvedChecker{Realm: name, Checker: chk})
			}
		}
	}
	return out
}

// Close releases every checker and joins their errors.
func (r *Registry) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	for _, name := range r.CheckerNames() {
		if err := r.checkers[name].Close(); err != nil {
			errs = append(errs, fmt.Errorf("close checker %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
