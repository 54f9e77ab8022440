package logging

// Per-category printf helpers. Info-level helpers carry the category
// name; Debug variants are for high-volume traces.

// Boot logs startup events.
func Boot(format string, args ...any) { Get(CategoryBoot).Infof(format, args...) }

// Tools logs tool dispatch events.
func Tools(format string, args ...any) { Get(CategoryTools).Infof(format, args...) }

// ToolsDebug traces tool dispatch internals.
func ToolsDebug(format string, args ...any) { Get(CategoryTools).Debugf(format, args...) }

// Quota logs quota decisions.
func Quota(format string, args ...any) { Get(CategoryQuota).Infof(format, args...) }

// QuotaDebug traces counter reads and reserves.
func QuotaDebug(format string, args ...any) { Get(CategoryQuota).Debugf(format, args...) }

// Sandbox logs session lifecycle transitions.
func Sandbox(format string, args ...any) { Get(CategorySandbox).Infof(format, args...) }

// SandboxDebug traces sandbox RPC calls.
func SandboxDebug(format string, args ...any) { Get(CategorySandbox).Debugf(format, args...) }

// SandboxWarn logs recoverable sandbox trouble (leak candidates).
func SandboxWarn(format string, args ...any) { Get(CategorySandbox).Warnf(format, args...) }

// Reader logs completed fetch batches.
func Reader(format string, args ...any) { Get(CategoryReader).Infof(format, args...) }

// ReaderDebug traces individual fetches.
func ReaderDebug(format string, args ...any) { Get(CategoryReader).Debugf(format, args...) }

// Workflow logs control-loop transitions.
func Workflow(format string, args ...any) { Get(CategoryWorkflow).Infof(format, args...) }

// WorkflowDebug traces message handling.
func WorkflowDebug(format string, args ...any) { Get(CategoryWorkflow).Debugf(format, args...) }

// WorkflowError logs run failures.
func WorkflowError(format string, args ...any) { Get(CategoryWorkflow).Errorf(format, args...) }
