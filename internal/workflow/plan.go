package workflow

import (
	"context"
	"encoding/json"
	"fmt"

	"chatnerd/internal/logging"
)

// Plan is the default START payload: an explicit list of tool calls. The
// chat layer compiles a model turn into a Plan; the CLI builds one from
// flags.
type Plan struct {
	// Steps are the tool calls to perform.
	Steps []ToolCall `json:"steps"`

	// Parallel runs all steps concurrently instead of in order. Only
	// valid when the steps are independent (no sandbox serialization
	// needed between them).
	Parallel bool `json:"parallel,omitempty"`
}

// PlanFactory turns a Plan payload into a run body. Accepts a Plan value,
// a *Plan, or any JSON-shaped payload (map/[]byte) that decodes into one.
// Per-step tool failures are recorded and skipped; the run continues
// without that tool's result.
func PlanFactory(payload any) (RunFunc, error) {
	plan, err := decodePlan(payload)
	if err != nil {
		return nil, err
	}
	if len(plan.Steps) == 0 {
		return nil, fmt.Errorf("plan has no steps")
	}

	return func(ctx context.Context, run *Run) error {
		if plan.Parallel {
			_, err := run.InvokeParallel(ctx, plan.Steps)
			return err
		}
		for _, step := range plan.Steps {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if _, err := run.InvokeTool(ctx, step.Tool, step.Args); err != nil {
				logging.Workflow("run %s: tool %s failed, continuing: %v", run.ID, step.Tool, err)
			}
		}
		return nil
	}, nil
}

func decodePlan(payload any) (Plan, error) {
	switch p := payload.(type) {
	case Plan:
		return p, nil
	case *Plan:
		if p == nil {
			return Plan{}, fmt.Errorf("nil plan payload")
		}
		return *p, nil
	case []byte:
		var plan Plan
		if err := json.Unmarshal(p, &plan); err != nil {
			return Plan{}, fmt.Errorf("invalid plan payload: %w", err)
		}
		return plan, nil
	default:
		// Round-trip generic JSON shapes (map[string]any from a decoded
		// envelope) through encoding/json.
		raw, err := json.Marshal(payload)
		if err != nil {
			return Plan{}, fmt.Errorf("unsupported plan payload %T: %w", payload, err)
		}
		var plan Plan
		if err := json.Unmarshal(raw, &plan); err != nil {
			return Plan{}, fmt.Errorf("invalid plan payload: %w", err)
		}
		return plan, nil
	}
}
