// Package sandbox manages the lifecycle of remote code-execution sessions.
// The manager is the single choke point for the most leak-prone resource in
// the system: gate before create, release on every exit.
package sandbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"chatnerd/internal/logging"
)

// Output is the result of one code execution.
type Output struct {
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
}

// Client is the injected sandbox RPC transport. The manager owns session
// lifecycle state only, never the wire protocol.
type Client interface {
	// Connect provisions a remote sandbox and returns its identifier.
	Connect(ctx context.Context) (remoteID string, err error)

	// Execute runs code in the remote sandbox.
	Execute(ctx context.Context, remoteID, code string) (Output, error)

	// Close tears down the remote sandbox.
	Close(ctx context.Context, remoteID string) error
}

// Gate is the quota capability the manager consults before and during a
// session. Satisfied by *quota.Manager. Admission goes through Reserve,
// the atomic claim: concurrent executions for one user at the quota
// boundary must not all slip past a stale read.
type Gate interface {
	RequireElevatedTier(ctx context.Context, userID string) error
	CheckRateLimit(ctx context.Context, userID string) error
	Reserve(ctx context.Context, userID string) error
	Refund(ctx context.Context, userID string) error
}

// Config holds the sandbox timeouts.
type Config struct {
	// ExecTimeout bounds one remote code execution.
	ExecTimeout time.Duration

	// TeardownTimeout bounds the remote close during release. Past it the
	// session is closed locally and flagged as a leak candidate.
	TeardownTimeout time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		ExecTimeout:     2 * time.Minute,
		TeardownTimeout: 10 * time.Second,
	}
}

// Manager creates, drives and tears down sandbox sessions.
type Manager struct {
	client Client
	gate   Gate
	cfg    Config

	// execMu serializes code execution per session; the session is not
	// safe for concurrent use by design.
	execMu sync.Map // session ID → *sync.Mutex
}

// New builds a session manager.
func New(client Client, gate Gate, cfg Config) *Manager {
	if cfg.ExecTimeout <= 0 {
		cfg.ExecTimeout = DefaultConfig().ExecTimeout
	}
	if cfg.TeardownTimeout <= 0 {
		cfg.TeardownTimeout = DefaultConfig().TeardownTimeout
	}
	return &Manager{client: client, gate: gate, cfg: cfg}
}

// Create gates the caller (tier, then rate limit) and provisions a remote
// sandbox. The rate check here is a cheap read-only pre-check that stops
// exhausted users before the expensive provisioning call; the binding
// admission is the atomic reserve inside Execute. Provisioning is retried
// exactly once before failing with ErrUnavailable. On success the session
// is Active and must eventually be passed to Release on every exit path.
func (m *Manager) Create(ctx context.Context, userID string) (*Session, error) {
	if err := m.gate.RequireElevatedTier(ctx, userID); err != nil {
		return nil, err
	}
	if err := m.gate.CheckRateLimit(ctx, userID); err != nil {
		return nil, err
	}

	sess := &Session{
		ID:        uuid.NewString(),
		Owner:     userID,
		CreatedAt: time.Now(),
	}

	remoteID, err := m.client.Connect(ctx)
	if err != nil {
		logging.SandboxDebug("provisioning failed, retrying once: %v", err)
		remoteID, err = m.client.Connect(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	sess.activate(remoteID)
	logging.Sandbox("session %s active (owner=%s remote=%s)", sess.ID, userID, remoteID)
	return sess, nil
}

// Execute runs code in an Active session. Executions on the same session
// are serialized. One quota unit is reserved atomically before the remote
// call and refunded if the execution fails, so a successful run nets
// exactly one unit and the counter can never pass the daily limit.
func (m *Manager) Execute(ctx context.Context, sess *Session, code string) (Output, error) {
	if sess == nil {
		return Output{}, fmt.Errorf("%w: nil session", ErrInvalidSessionState)
	}

	lock := m.sessionLock(sess.ID)
	lock.Lock()
	defer lock.Unlock()

	remoteID, ok := sess.remote()
	if !ok {
		return Output{}, fmt.Errorf("%w: session %s is %s, want active", ErrInvalidSessionState, sess.ID, sess.State())
	}

	if err := m.gate.Reserve(ctx, sess.Owner); err != nil {
		return Output{}, err
	}

	execCtx, cancel := context.WithTimeout(ctx, m.cfg.ExecTimeout)
	defer cancel()

	out, err := m.client.Execute(execCtx, remoteID, code)
	if err != nil {
		// Nothing was consumed remotely; give the unit back.
		if rbErr := m.gate.Refund(context.WithoutCancel(ctx), sess.Owner); rbErr != nil {
			logging.Quota("usage refund failed for user=%s: %v", sess.Owner, rbErr)
		}
		return Output{}, fmt.Errorf("sandbox execution failed: %w", err)
	}

	logging.SandboxDebug("session %s executed %d bytes of code", sess.ID, len(code))
	return out, nil
}

// Release moves the session to Closed and tears down the remote sandbox
// under the teardown timeout. Idempotent: the second and later calls are
// no-ops. The teardown context is detached from the caller's so an abort
// cannot cancel its own cleanup; if the remote close fails or times out
// the session is still Closed locally and the divergence is logged as a
// leak candidate for external cleanup.
func (m *Manager) Release(ctx context.Context, sess *Session) error {
	if sess == nil {
		return nil
	}

	remoteID, first := sess.close()
	if !first {
		return nil
	}
	m.execMu.Delete(sess.ID)

	if remoteID == "" {
		// Never reached Active; nothing remote to tear down.
		logging.Sandbox("session %s closed (never activated)", sess.ID)
		return nil
	}

	teardownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.TeardownTimeout)
	defer cancel()

	if err := m.client.Close(teardownCtx, remoteID); err != nil {
		logging.SandboxWarn("leak candidate: session %s remote=%s close failed: %v", sess.ID, remoteID, err)
		return nil
	}

	logging.Sandbox("session %s released (owner=%s)", sess.ID, sess.Owner)
	return nil
}

func (m *Manager) sessionLock(id string) *sync.Mutex {
	lock, _ := m.execMu.LoadOrStore(id, &sync.Mutex{})
	return lock.(*sync.Mutex)
}
