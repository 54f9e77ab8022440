package workflow

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"chatnerd/internal/logging"
	"chatnerd/internal/sandbox"
	"chatnerd/internal/tier"
	"chatnerd/internal/tools"
)

// SandboxManager is the sandbox capability a run consumes. Satisfied by
// *sandbox.Manager.
type SandboxManager interface {
	Create(ctx context.Context, userID string) (*sandbox.Session, error)
	Execute(ctx context.Context, sess *sandbox.Session, code string) (sandbox.Output, error)
	Release(ctx context.Context, sess *sandbox.Session) error
}

// ToolCall names one tool invocation in a parallel batch.
type ToolCall struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args,omitempty"`
}

// Run is the per-instance execution context handed to task handlers. It
// owns at most one sandbox session at a time and records every tool
// result as streamed intermediate state.
type Run struct {
	// ID identifies this run in logs and responses.
	ID string

	// UserID is the caller the run executes for.
	UserID string

	// Tier is the caller's resolved subscription tier; every tool
	// invocation is access-checked against it.
	Tier tier.Tier

	invoker *tools.Invoker
	sandbox SandboxManager

	mu       sync.Mutex
	session  *sandbox.Session
	released bool
	results  []*tools.Result
}

// AvailableTools lists the descriptors this run's tier may invoke.
func (r *Run) AvailableTools() []tools.Descriptor {
	return r.invoker.Registry().Available(r.Tier)
}

// InvokeTool runs one tool under the caller's tier. The result is
// recorded even on failure so supervisors can inspect partial progress.
func (r *Run) InvokeTool(ctx context.Context, id string, args map[string]any) (*tools.Result, error) {
	result, err := r.invoker.Invoke(ctx, id, r.Tier, args)
	r.record(result)
	return result, err
}

// InvokeParallel runs independent tool calls concurrently. Per-call
// failures are captured in their Result slots and never cancel the batch;
// only context cancellation stops it early. Results match input order.
func (r *Run) InvokeParallel(ctx context.Context, calls []ToolCall) ([]*tools.Result, error) {
	results := make([]*tools.Result, len(calls))

	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		i, call := i, call
		g.Go(func() error {
			res, _ := r.invoker.Invoke(gctx, call.Tool, r.Tier, call.Args)
			results[i] = res
			return gctx.Err()
		})
	}
	err := g.Wait()

	for _, res := range results {
		r.record(res)
	}
	return results, err
}

// RunCode executes code in this run's sandbox session, creating it on
// first use. A run owns exactly one session at a time; repeated calls
// reuse it and the manager serializes the actual executions.
func (r *Run) RunCode(ctx context.Context, code string) (sandbox.Output, error) {
	sess, err := r.ensureSession(ctx)
	if err != nil {
		return sandbox.Output{}, err
	}
	return r.sandbox.Execute(ctx, sess, code)
}

func (r *Run) ensureSession(ctx context.Context) (*sandbox.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		// The run was stopped or aborted; creating a session now would
		// leak it past the release path.
		return nil, context.Canceled
	}
	if r.session != nil {
		return r.session, nil
	}
	sess, err := r.sandbox.Create(ctx, r.UserID)
	if err != nil {
		return nil, err
	}
	logging.WorkflowDebug("run %s acquired sandbox session %s", r.ID, sess.ID)
	r.session = sess
	return sess, nil
}

// Session returns the currently held sandbox session, if any.
func (r *Run) Session() *sandbox.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session
}

// Results returns the tool results recorded so far, in completion order.
func (r *Run) Results() []*tools.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*tools.Result, len(r.results))
	copy(out, r.results)
	return out
}

func (r *Run) record(res *tools.Result) {
	if res == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

// releaseSession tears down the held session, if any. Idempotent; safe on
// every exit path including abort.
func (r *Run) releaseSession(ctx context.Context) {
	r.mu.Lock()
	sess := r.session
	r.session = nil
	r.released = true
	r.mu.Unlock()

	if sess == nil {
		return
	}
	if err := r.sandbox.Release(ctx, sess); err != nil {
		logging.WorkflowError("run %s failed to release session %s: %v", r.ID, sess.ID, err)
	}
}

// RunCodeRunner adapts a Run to the tools.CodeRunner interface so the
// code_execute builtin routes through this run's single session.
type RunCodeRunner struct {
	Run *Run
}

// RunCode implements tools.CodeRunner.
func (a RunCodeRunner) RunCode(ctx context.Context, code string) (string, string, error) {
	out, err := a.Run.RunCode(ctx, code)
	if err != nil {
		return "", "", err
	}
	return out.Stdout, out.Stderr, nil
}
