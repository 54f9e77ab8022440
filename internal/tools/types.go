// Package tools provides the static tool catalogue for AI workflow turns.
//
// Descriptors are plain data records gated by a minimum subscription tier;
// executable handlers live in a separate dispatch table (the Invoker) so the
// shared catalogue never embeds closures.
//
// Architecture:
//
//	Tier → Registry.Available() → Invoker.Invoke() → HandlerFunc
package tools

import (
	"context"
	"strings"

	"chatnerd/internal/tier"
)

// Descriptor describes one invocable tool. Immutable after registry
// construction; consumers receive copies.
type Descriptor struct {
	// ID is the unique identifier, e.g. "web_read".
	ID string

	// Name is the human-readable title shown in tool listings.
	Name string

	// Description explains what the tool does, for LLM tool calling.
	Description string

	// MinTier is the lowest subscription tier allowed to invoke the tool.
	MinTier tier.Tier

	// Keywords aid semantic retrieval of the tool.
	Keywords []string

	// Examples are sample invocations used for retrieval and few-shot
	// prompting.
	Examples []string
}

// Validate checks the descriptor is well-formed.
func (d *Descriptor) Validate() error {
	if d.ID == "" {
		return ErrToolIDEmpty
	}
	return nil
}

// DescriptionText flattens name, description, keywords and examples into a
// single retrievable blob for downstream embedding/search.
func (d *Descriptor) DescriptionText() string {
	var sb strings.Builder
	sb.WriteString(d.Name)
	sb.WriteString(": ")
	sb.WriteString(d.Description)
	if len(d.Keywords) > 0 {
		sb.WriteString("\nKeywords: ")
		sb.WriteString(strings.Join(d.Keywords, ", "))
	}
	for _, ex := range d.Examples {
		sb.WriteString("\nExample: ")
		sb.WriteString(ex)
	}
	return sb.String()
}

// ToolDescription pairs a tool ID with its flattened description text.
type ToolDescription struct {
	ID   string
	Text string
}

// HandlerFunc executes a tool invocation. Handlers receive already
// access-checked calls; they own argument validation.
type HandlerFunc func(ctx context.Context, args map[string]any) (string, error)

// Result wraps one tool invocation outcome with timing metadata.
type Result struct {
	// ToolID identifies which tool ran.
	ToolID string

	// Output is the string result from the handler.
	Output string

	// Err is set if the handler failed.
	Err error

	// DurationMs is how long the invocation took.
	DurationMs int64
}

// IsSuccess returns true if the tool executed without error.
func (r *Result) IsSuccess() bool {
	return r.Err == nil
}
