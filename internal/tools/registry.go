package tools

import (
	"fmt"

	"chatnerd/internal/logging"
	"chatnerd/internal/tier"
)

// Registry holds the tool catalogue. It is built once at startup and never
// mutated afterwards, so reads need no locking.
type Registry struct {
	order []Descriptor
	byID  map[string]int
}

// NewRegistry builds a registry from descriptors. Duplicate or empty IDs
// are construction errors; a broken catalogue should fail the boot, not a
// chat turn.
func NewRegistry(descriptors ...Descriptor) (*Registry, error) {
	r := &Registry{
		order: make([]Descriptor, 0, len(descriptors)),
		byID:  make(map[string]int, len(descriptors)),
	}

	for _, d := range descriptors {
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("invalid tool: %w", err)
		}
		if _, exists := r.byID[d.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTool, d.ID)
		}
		r.byID[d.ID] = len(r.order)
		r.order = append(r.order, d)
		logging.ToolsDebug("registered tool %s (min_tier=%s)", d.ID, d.MinTier)
	}

	logging.Tools("tool registry built: %d tools", len(r.order))
	return r, nil
}

// GetByID returns the descriptor for an ID.
func (r *Registry) GetByID(id string) (Descriptor, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Descriptor{}, false
	}
	return r.order[i], true
}

// Available returns every descriptor the given tier may invoke, in
// registration order. The zero tier (Free) yields the public subset.
func (r *Registry) Available(t tier.Tier) []Descriptor {
	result := make([]Descriptor, 0, len(r.order))
	for _, d := range r.order {
		if t.AtLeast(d.MinTier) {
			result = append(result, d)
		}
	}
	return result
}

// HasAccess reports whether the tier may invoke the tool. Unknown IDs are
// denied (fail closed).
func (r *Registry) HasAccess(id string, t tier.Tier) bool {
	d, ok := r.GetByID(id)
	if !ok {
		return false
	}
	return t.AtLeast(d.MinTier)
}

// Descriptions returns one flattened text blob per tool, in registration
// order. Order is stable across calls so downstream embedding caches stay
// valid.
func (r *Registry) Descriptions() []ToolDescription {
	result := make([]ToolDescription, 0, len(r.order))
	for _, d := range r.order {
		result = append(result, ToolDescription{ID: d.ID, Text: d.DescriptionText()})
	}
	return result
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	return len(r.order)
}
