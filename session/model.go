package session

import (
	"sync"
	"sync/atomic"
	"time"
)

// Destructor releases a property value when it is replaced, removed, or its
// session is destroyed.
type Destructor func(value any)

type property struct {
	value   any
	destroy Destructor
}

func (p property) release() {
	if p.destroy != nil {
		p.destroy(p.value)
	}
}

// Session is one client's server-side state. The identifier is immutable.
type Session struct {
	id      string
	created time.Time
	access  atomic.Int64

	mu        sync.Mutex
	props     map[string]property
	referrer  string
	destroyed bool
}

func newSession(id string, now time.Time) *Session {
	s := &Session{id: id, created: now, props: make(map[string]property)}
	s.access.Store(now.UnixNano())
	return s
}

// ID returns the bearer identifier.
func (s *Session) ID() string { return s.id }

// Created returns the creation time.
func (s *Session) Created() time.Time { return s.created }

// LastAccess returns the time of the most recent lookup.
func (s *Session) LastAccess() time.Time {
	return time.Unix(0, s.access.Load())
}

func (s *Session) touch(now time.Time) {
	s.access.Store(now.UnixNano())
}

func (s *Session) expired(now time.Time, idle, maxAge time.Duration) bool {
	if now.Sub(s.LastAccess()) > idle {
		return true
	}
	return now.Sub(s.created) > maxAge
}

// Get returns the property stored under key.
func (s *Session) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.props[key]
	return p.value, ok
}

// Set stores value under key. The previous value's destructor runs first.
// A nil value with a nil destructor removes the key.
func (s *Session) Set(key string, value any, destroy Destructor) {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		property{value, destroy}.release()
		return
	}
	old, had := s.props[key]
	if value == nil && destroy == nil {
		delete(s.props, key)
	} else {
		s.props[key] = property{value: value, destroy: destroy}
	}
	s.mu.Unlock()

	if had {
		old.release()
	}
}

// Delete removes key, running its destructor.
func (s *Session) Delete(key string) {
	s.Set(key, nil, nil)
}

// LoadOrStore returns the value under key, creating it with create when
// absent. create runs under the session lock and must not touch the session.
func (s *Session) LoadOrStore(key string, create func() (any, Destructor)) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.props[key]; ok {
		return p.value
	}
	value, destroy := create()
	if !s.destroyed {
		s.props[key] = property{value: value, destroy: destroy}
	}
	return value
}

// Referrer returns the path of the last HTML page served to this session.
func (s *Session) Referrer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.referrer
}

// SetReferrer records path as the last HTML page served.
func (s *Session) SetReferrer(path string) {
	s.mu.Lock()
	s.referrer = path
	s.mu.Unlock()
}

func (s *Session) destroy() {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	s.destroyed = true
	props := s.props
	s.props = map[string]property{}
	s.mu.Unlock()

	for _, p := range props {
		p.release()
	}
}
