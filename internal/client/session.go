// Package client is the consumer side of the REST API: it holds the session,
// classifies error responses, normalizes AI payloads at the boundary and
// guards against responses that arrive for a context the user has left.
package client

import (
	"errors"
	"sync"
)

// ErrStaleContext is returned for a response whose meeting or conversation is
// no longer active. Callers drop it silently.
var ErrStaleContext = errors.New("response belongs to an inactive context")

// SessionContext carries the bearer token and the active meeting or
// conversation. One is created at start-up and handed to every layer that
// talks to the server.
type SessionContext struct {
	mu     sync.RWMutex
	token  string
	active string
	gen    uint64
}

func NewSessionContext(token string) *SessionContext {
	return &SessionContext{token: token}
}

func (s *SessionContext) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *SessionContext) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// Clear drops the token, on logout or when the server rejects it.
func (s *SessionContext) Clear() {
	s.SetToken("")
}

// Activate makes key the active context. Every call starts a new generation,
// so re-activating the same key still invalidates guards taken before it.
func (s *SessionContext) Activate(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = key
	s.gen++
}

// Active returns the active context key.
func (s *SessionContext) Active() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Guard captures the active context at request start.
func (s *SessionContext) Guard() Guard {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Guard{session: s, key: s.active, gen: s.gen}
}

// Guard remembers which context a request was issued for.
type Guard struct {
	session *SessionContext
	key     string
	gen     uint64
}

func (g Guard) Key() string {
	return g.key
}

// Check returns ErrStaleContext if the context changed since the guard was taken.
func (g Guard) Check() error {
	g.session.mu.RLock()
	defer g.session.mu.RUnlock()
	if g.session.gen != g.gen {
		return ErrStaleContext
	}
	return nil
}
