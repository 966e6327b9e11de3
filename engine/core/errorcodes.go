package core

// Error codes for core.Error, corresponding to the five failure categories
// the engine distinguishes: a malformed document or step configuration, a
// template/action-target reference that doesn't resolve, a dispatch-level
// failure from a module invocation, a blocking operation exceeding its
// deadline, and a Remote Delegator failure.
const (
	CodeValidation = "validation_error"
	CodeResolution = "resolution_error"
	CodeDispatch   = "dispatch_error"
	CodeTimeout    = "timeout_error"
	CodeDelegation = "delegation_error"
)
