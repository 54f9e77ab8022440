package workflow

// MessageType tags an inbound control message from the supervisor.
type MessageType string

const (
	MsgStartWorkflow MessageType = "START_WORKFLOW"
	MsgStopWorkflow  MessageType = "STOP_WORKFLOW"
	MsgAbortWorkflow MessageType = "ABORT_WORKFLOW"
)

// ResponseType tags an outbound response to the supervisor.
type ResponseType string

const (
	RespWorkflowStarted ResponseType = "WORKFLOW_STARTED"
	RespWorkflowStopped ResponseType = "WORKFLOW_STOPPED"
	RespWorkflowAborted ResponseType = "WORKFLOW_ABORTED"
	RespUnknownMessage  ResponseType = "UNKNOWN_MESSAGE"
)

// Message is the control envelope a supervising process sends to a
// workflow instance. Unrecognized types are acknowledged, never fatal.
type Message struct {
	Type    MessageType    `json:"type"`
	Data    map[string]any `json:"data,omitempty"`
	Payload any            `json:"payload,omitempty"`
}

// Response is the tagged reply emitted by the workflow instance.
type Response struct {
	Type ResponseType `json:"type"`
	Data any          `json:"data,omitempty"`
}

// RunState is the lifecycle state of one workflow instance.
type RunState int

const (
	StateIdle RunState = iota
	StateRunning
	StateStopped
	StateAborted
)

// String returns the state name.
func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state is final. A new START after a
// terminal state requires a fresh instance.
func (s RunState) Terminal() bool {
	return s == StateStopped || s == StateAborted
}
