package tools

import "errors"

// Tool catalogue errors.
var (
	// ErrToolNotFound is returned when no descriptor matches an ID.
	ErrToolNotFound = errors.New("tool not found")

	// ErrToolIDEmpty is returned when a descriptor has no ID.
	ErrToolIDEmpty = errors.New("tool id cannot be empty")

	// ErrDuplicateTool is returned when two descriptors share an ID.
	ErrDuplicateTool = errors.New("tool id already registered")

	// ErrToolAccessDenied is returned when the caller's tier is below the
	// tool's minimum tier.
	ErrToolAccessDenied = errors.New("tool requires a higher subscription tier")

	// ErrHandlerMissing is returned when a descriptor has no handler bound
	// in the dispatch table.
	ErrHandlerMissing = errors.New("no handler bound for tool")

	// ErrMissingArg is returned when a required argument is absent.
	ErrMissingArg = errors.New("missing required argument")
)
