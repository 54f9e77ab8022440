package sandbox

import "errors"

// Sandbox lifecycle errors.
var (
	// ErrUnavailable is returned when remote provisioning fails after the
	// single retry. Transient; the caller may surface it as such.
	ErrUnavailable = errors.New("sandbox provisioning unavailable")

	// ErrInvalidSessionState is returned when an operation is issued on a
	// session outside the ACTIVE state. Programmer/protocol error; fatal
	// to the current tool call only.
	ErrInvalidSessionState = errors.New("invalid sandbox session state")
)
