package tools

import (
	"context"
	"fmt"
	"time"

	"chatnerd/internal/logging"
	"chatnerd/internal/tier"
)

// Invoker binds the catalogue to a dispatch table of handlers. It enforces
// tier access on every call so no caller can route around the registry.
type Invoker struct {
	registry *Registry
	handlers map[string]HandlerFunc
}

// NewInvoker builds an invoker. Every handler key must name a registered
// tool; a handler for an unknown tool is a wiring bug.
func NewInvoker(registry *Registry, handlers map[string]HandlerFunc) (*Invoker, error) {
	for id := range handlers {
		if _, ok := registry.GetByID(id); !ok {
			return nil, fmt.Errorf("%w: handler bound for unregistered tool %s", ErrToolNotFound, id)
		}
	}
	return &Invoker{registry: registry, handlers: handlers}, nil
}

// Registry returns the catalogue the invoker dispatches for.
func (inv *Invoker) Registry() *Registry {
	return inv.registry
}

// Invoke runs a tool on behalf of a caller at the given tier. The returned
// Result is always non-nil so callers can log timing for failures too.
func (inv *Invoker) Invoke(ctx context.Context, id string, t tier.Tier, args map[string]any) (*Result, error) {
	start := time.Now()

	fail := func(err error) (*Result, error) {
		return &Result{ToolID: id, Err: err, DurationMs: time.Since(start).Milliseconds()}, err
	}

	d, ok := inv.registry.GetByID(id)
	if !ok {
		return fail(fmt.Errorf("%w: %s", ErrToolNotFound, id))
	}
	if !t.AtLeast(d.MinTier) {
		logging.Tools("access denied: tool=%s caller_tier=%s min_tier=%s", id, t, d.MinTier)
		return fail(fmt.Errorf("%w: %s needs %s", ErrToolAccessDenied, id, d.MinTier))
	}

	handler, ok := inv.handlers[id]
	if !ok {
		return fail(fmt.Errorf("%w: %s", ErrHandlerMissing, id))
	}

	logging.ToolsDebug("invoking tool %s", id)
	output, err := handler(ctx, args)
	elapsed := time.Since(start)
	logging.ToolsDebug("tool %s completed in %v (success=%v)", id, elapsed, err == nil)

	return &Result{
		ToolID:     id,
		Output:     output,
		Err:        err,
		DurationMs: elapsed.Milliseconds(),
	}, err
}
