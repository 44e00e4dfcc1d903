package server

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/umputun/newsdigest/pkg/setup"
)

// idle sessions are dropped after this period
const sessionTTL = 24 * time.Hour

// session is a single chat, steps of one session are serialized
type session struct {
	stepMu sync.Mutex

	mu      sync.Mutex // guards state and touched
	state   setup.State
	touched time.Time
}

// sessionStore keeps conversation states by session id
type sessionStore struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

func newSessionStore(ttl time.Duration) *sessionStore {
	return &sessionStore{ttl: ttl, now: time.Now, sessions: map[string]*session{}}
}

// add stores the state under a new id and drops expired sessions
func (s *sessionStore) add(st setup.State) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, sess := range s.sessions {
		sess.mu.Lock()
		expired := now.Sub(sess.touched) > s.ttl
		sess.mu.Unlock()
		if expired {
			delete(s.sessions, id)
		}
	}

	id := uuid.NewString()
	s.sessions[id] = &session{state: st, touched: now}
	return id
}

// get returns the session by id
func (s *sessionStore) get(id string) (*session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// remove deletes the session, returns false if it doesn't exist
func (s *sessionStore) remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// stages counts sessions per conversation stage
func (s *sessionStore) stages() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := map[string]int{}
	for _, sess := range s.sessions {
		sess.mu.Lock()
		res[sess.state.Stage.String()]++
		sess.mu.Unlock()
	}
	return res
}

// update runs fn on the session state under the session lock and stores the result
func (sess *session) update(now time.Time, fn func(setup.State) setup.State) setup.State {
	sess.stepMu.Lock()
	defer sess.stepMu.Unlock()

	next := fn(sess.snapshot())

	sess.mu.Lock()
	sess.state = next
	sess.touched = now
	sess.mu.Unlock()
	return next
}

// snapshot returns the current state
func (sess *session) snapshot() setup.State {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.state
}
