package sandbox

import (
	"sync"
	"time"
)

// State is the lifecycle state of a sandbox session.
// Transitions: Created → Active → Closed. Closed is absorbing.
type State int

const (
	// StateCreated means the session exists locally but the remote side
	// is not connected yet.
	StateCreated State = iota

	// StateActive means the remote sandbox is connected and can run code.
	StateActive

	// StateClosed means the session was released. Terminal.
	StateClosed
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is one isolated remote execution session, exclusively owned by
// the workflow run that requested it. Safe for concurrent inspection; code
// execution is serialized by the manager.
type Session struct {
	// ID is the local session identifier.
	ID string

	// Owner is the user the session was created for.
	Owner string

	// CreatedAt records when the session was provisioned.
	CreatedAt time.Time

	mu       sync.Mutex
	state    State
	remoteID string
	closedAt time.Time
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Active reports whether the session can run code.
func (s *Session) Active() bool {
	return s.State() == StateActive
}

// ClosedAt returns when the session reached Closed (zero if it has not).
func (s *Session) ClosedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closedAt
}

// activate moves Created → Active and records the remote identifier.
func (s *Session) activate(remoteID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateCreated {
		s.state = StateActive
		s.remoteID = remoteID
	}
}

// close moves the session to Closed and returns the remote ID exactly
// once. The second return is false if the session was already closed, so
// release paths are naturally idempotent.
func (s *Session) close() (remoteID string, first bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return "", false
	}
	s.state = StateClosed
	s.closedAt = time.Now()
	return s.remoteID, true
}

// remote returns the remote ID when the session is Active.
func (s *Session) remote() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return "", false
	}
	return s.remoteID, true
}
