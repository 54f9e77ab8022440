// Package workflow implements the message-driven task runner that executes
// one tool-augmented AI turn. A supervising process drives a Runner through
// tagged control messages; the runner owns the run's tool access, its
// single sandbox session, and guarantees session release on every exit
// path, including aborts and handler panics.
package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"chatnerd/internal/logging"
	"chatnerd/internal/tier"
	"chatnerd/internal/tools"
)

// Config wires one workflow instance.
type Config struct {
	// UserID is the caller this instance runs for.
	UserID string

	// Tiers resolves the caller's subscription tier at START time.
	// A lookup failure downgrades the run to Free (fail closed).
	Tiers tier.Lookup

	// Registry is the shared tool catalogue.
	Registry *tools.Registry

	// Reader backs the web_read builtin.
	Reader tools.PageReader

	// Sandbox backs code_execute and owns remote teardown.
	Sandbox SandboxManager

	// Factory turns a START payload into the run body.
	Factory Factory

	// BuildInvoker optionally overrides how the per-run dispatch table is
	// built. Defaults to the builtin catalogue bound to Reader and the
	// run's sandbox session.
	BuildInvoker func(run *Run) (*tools.Invoker, error)
}

// Runner is one logical workflow instance. It reads control messages from
// an inbound channel and writes tagged responses to an outbound one; no
// memory is shared with the supervisor. Terminal states are final: a new
// START needs a new Runner.
type Runner struct {
	cfg Config

	cmds  chan Message
	resps chan Response
	done  chan struct{}

	// loop-owned; never touched outside the loop goroutine.
	state   RunState
	run     *Run
	cancel  context.CancelFunc
	runDone chan error
}

// NewRunner builds an idle workflow instance.
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("workflow: registry is required")
	}
	if cfg.Sandbox == nil {
		return nil, fmt.Errorf("workflow: sandbox manager is required")
	}
	if cfg.Factory == nil {
		return nil, fmt.Errorf("workflow: run factory is required")
	}
	if cfg.Tiers == nil {
		cfg.Tiers = tier.Static(tier.Free)
	}
	return &Runner{
		cfg:   cfg,
		cmds:  make(chan Message),
		resps: make(chan Response, 8),
		done:  make(chan struct{}),
	}, nil
}

// Start launches the control loop. The loop exits when the instance
// reaches a terminal state or ctx is canceled.
func (r *Runner) Start(ctx context.Context) {
	go r.loop(ctx)
}

// Send posts a control message to the instance. Blocks if the loop is
// busy; returns false once the loop has terminated.
func (r *Runner) Send(msg Message) bool {
	select {
	case r.cmds <- msg:
		return true
	case <-r.done:
		return false
	}
}

// Responses returns the outbound response channel. It is closed when the
// instance terminates. The supervisor must keep draining it: the channel
// is buffered, but once the buffer is full the control loop blocks on the
// next response until the supervisor reads, by the same backpressure rule
// it applies to the supervisor via Send.
func (r *Runner) Responses() <-chan Response {
	return r.resps
}

// Wait blocks until the control loop has fully terminated.
func (r *Runner) Wait() {
	<-r.done
}

func (r *Runner) loop(ctx context.Context) {
	defer close(r.done)
	defer close(r.resps)

	for {
		select {
		case msg := <-r.cmds:
			if terminal := r.handle(ctx, msg); terminal {
				return
			}
		case err := <-r.runDone:
			// Natural run completion with no STOP/ABORT in flight.
			r.finish(ctx, err)
			return
		case <-ctx.Done():
			logging.Workflow("supervisor context canceled; aborting instance")
			r.abort(Message{Type: MsgAbortWorkflow}, false)
			return
		}
	}
}

// handle processes one control message. Returns true when the instance
// reached a terminal state.
func (r *Runner) handle(ctx context.Context, msg Message) bool {
	logging.WorkflowDebug("control message: %s (state=%s)", msg.Type, r.state)

	switch msg.Type {
	case MsgStartWorkflow:
		if r.state != StateIdle {
			// Single-run instance: a second START is protocol drift,
			// acknowledged but ignored.
			r.respond(Response{Type: RespUnknownMessage, Data: msg})
			return false
		}
		return r.start(ctx, msg)

	case MsgStopWorkflow:
		if r.state != StateRunning {
			r.respond(Response{Type: RespUnknownMessage, Data: msg})
			return false
		}
		r.stop(ctx)
		return true

	case MsgAbortWorkflow:
		r.abort(msg, true)
		return true

	default:
		// Unknown messages keep the loop alive; acknowledge and move on.
		r.respond(Response{Type: RespUnknownMessage, Data: msg})
		return false
	}
}

func (r *Runner) start(ctx context.Context, msg Message) bool {
	runFn, err := r.cfg.Factory(msg.Payload)
	if err != nil {
		logging.WorkflowError("start rejected: %v", err)
		r.state = StateAborted
		r.respond(Response{Type: RespWorkflowAborted, Data: map[string]any{"error": err.Error()}})
		return true
	}

	callerTier, err := r.cfg.Tiers.UserTier(ctx, r.cfg.UserID)
	if err != nil {
		logging.WorkflowError("tier lookup failed for %s, downgrading to %s: %v", r.cfg.UserID, tier.Free, err)
		callerTier = tier.Free
	}

	run := &Run{
		ID:      uuid.NewString(),
		UserID:  r.cfg.UserID,
		Tier:    callerTier,
		sandbox: r.cfg.Sandbox,
	}

	invoker, err := r.buildInvoker(run)
	if err != nil {
		logging.WorkflowError("invoker wiring failed: %v", err)
		r.state = StateAborted
		r.respond(Response{Type: RespWorkflowAborted, Data: map[string]any{"error": err.Error()}})
		return true
	}
	run.invoker = invoker

	runCtx, cancel := context.WithCancel(ctx)
	r.run = run
	r.cancel = cancel
	r.runDone = make(chan error, 1)
	r.state = StateRunning

	go func() {
		r.runDone <- safeRun(runCtx, runFn, run)
	}()

	logging.Workflow("run %s started (user=%s tier=%s)", run.ID, run.UserID, run.Tier)
	r.respond(Response{Type: RespWorkflowStarted, Data: msg.Payload})
	return false
}

// stop halts the run gracefully: cancel, wait for the handler to unwind,
// release the sandbox, then answer. The response is only emitted once no
// session is held.
func (r *Runner) stop(ctx context.Context) {
	r.cancel()
	err := <-r.runDone
	if err != nil && !isCanceled(err) {
		logging.WorkflowDebug("run %s finished with error during stop: %v", r.run.ID, err)
	}

	r.run.releaseSession(ctx)
	r.state = StateStopped
	logging.Workflow("run %s stopped", r.run.ID)
	r.respond(Response{Type: RespWorkflowStopped})
}

// abort halts immediately without waiting for in-flight tool calls. The
// sandbox release is best-effort and bounded by the manager's teardown
// timeout; the run goroutine drains into the buffered runDone channel.
func (r *Runner) abort(msg Message, respond bool) {
	if r.cancel != nil {
		r.cancel()
	}
	if r.run != nil {
		r.run.releaseSession(context.Background())
		logging.Workflow("run %s aborted", r.run.ID)
	}
	r.state = StateAborted
	if respond {
		r.respond(Response{Type: RespWorkflowAborted, Data: msg.Payload})
	}
}

// finish handles natural run completion: success maps to a stop outcome,
// a handler error or panic to an aborted one. Either way the session is
// released before the supervisor hears about it.
func (r *Runner) finish(ctx context.Context, err error) {
	r.cancel()
	r.run.releaseSession(ctx)

	if err != nil {
		logging.WorkflowError("run %s failed: %v", r.run.ID, err)
		r.state = StateAborted
		r.respond(Response{Type: RespWorkflowAborted, Data: map[string]any{"error": err.Error()}})
		return
	}

	logging.Workflow("run %s completed", r.run.ID)
	r.state = StateStopped
	r.respond(Response{Type: RespWorkflowStopped})
}

func (r *Runner) respond(resp Response) {
	r.resps <- resp
}

func (r *Runner) buildInvoker(run *Run) (*tools.Invoker, error) {
	if r.cfg.BuildInvoker != nil {
		return r.cfg.BuildInvoker(run)
	}
	handlers := tools.BuiltinHandlers(tools.BuiltinDeps{
		Reader: r.cfg.Reader,
		Code:   RunCodeRunner{Run: run},
	})
	return tools.NewInvoker(r.cfg.Registry, handlers)
}

// safeRun executes the run body and converts panics into errors so a
// broken handler lands on the aborted path instead of killing the loop.
func safeRun(ctx context.Context, fn RunFunc, run *Run) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("workflow handler panic: %v", p)
		}
	}()
	return fn(ctx, run)
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
