package workflow

import (
	"context"
	"fmt"
)

// RunFunc is the type-erased body of one workflow run. The Run argument
// carries the caller identity, the tool invoker bound to the caller's
// tier, and the single owned sandbox session.
type RunFunc func(ctx context.Context, run *Run) error

// Task binds an event shape E and a context shape C to a handler. It is a
// pure description: constructing one performs no execution, and
// instantiation produces a runnable unit with no hidden mutable state
// beyond what C declares.
type Task[E, C any] struct {
	name    string
	handler func(ctx context.Context, event E, state *C, run *Run) error
}

// NewTask validates and wraps a typed handler. Purely a contract
// establishment; nothing runs until a Runner starts an instance.
func NewTask[E, C any](name string, handler func(ctx context.Context, event E, state *C, run *Run) error) (Task[E, C], error) {
	if name == "" {
		return Task[E, C]{}, fmt.Errorf("task name cannot be empty")
	}
	if handler == nil {
		return Task[E, C]{}, fmt.Errorf("task %q: handler cannot be nil", name)
	}
	return Task[E, C]{name: name, handler: handler}, nil
}

// Name returns the task name.
func (t Task[E, C]) Name() string { return t.name }

// Instantiate binds the task to a concrete event and a fresh context
// value, yielding the RunFunc a Runner executes. Each instantiation owns
// its own C; runs never share task state.
func (t Task[E, C]) Instantiate(event E) RunFunc {
	return func(ctx context.Context, run *Run) error {
		var state C
		return t.handler(ctx, event, &state, run)
	}
}

// Factory builds a RunFunc from a START_WORKFLOW payload. It is how a
// Runner turns the supervisor's payload into an executable run; a factory
// error aborts the instance before anything executes.
type Factory func(payload any) (RunFunc, error)
