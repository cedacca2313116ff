package kstatemachine

import "fmt"

// ErrorCode represents specific error conditions in the state machine
type ErrorCode int

const (
	// No error occurred
	ErrCodeNone ErrorCode = iota
	// Operation violated the machine usage contract
	ErrCodeUsage
	// Machine is not in the running state
	ErrCodeNotStarted
	// Machine is already running
	ErrCodeAlreadyStarted
	// Reentrant event submission rejected by the pending-event policy
	ErrCodePendingEvent
	// Structural mutation attempted after the machine started
	ErrCodeStructureFrozen
	// Listener registered twice
	ErrCodeDuplicateListener
	// Machine configuration is invalid
	ErrCodeInvalidConfiguration
	// A data state was entered without a compatible data-carrying event
	ErrCodeDataBinding
	// State was not found
	ErrCodeStateNotFound
)

// UsageError represents a violation of the machine's usage contract, such as
// processing events before Start or reentrant submission under the default
// pending-event policy
type UsageError struct {
	Code      ErrorCode
	Operation string
	Message   string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("usage error during %s: %s", e.Operation, e.Message)
}

// NewUsageError creates a new usage error
func NewUsageError(code ErrorCode, operation, message string) *UsageError {
	return &UsageError{
		Code:      code,
		Operation: operation,
		Message:   message,
	}
}

// NewNotStartedError creates a usage error for operations requiring a running
// machine
func NewNotStartedError(operation string) *UsageError {
	return &UsageError{
		Code:      ErrCodeNotStarted,
		Operation: operation,
		Message:   "state machine is not started",
	}
}

// ConfigurationError represents an invalid machine structure detected at
// build time
type ConfigurationError struct {
	Component string
	Issue     string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Issue)
}

// NewConfigurationError creates a new configuration error
func NewConfigurationError(component, issue string) *ConfigurationError {
	return &ConfigurationError{
		Component: component,
		Issue:     issue,
	}
}

// DataBindingError is raised during sequencing when a data-carrying state is
// entered without a compatible data-carrying event providing its payload
type DataBindingError struct {
	StateName string
	Message   string
}

func (e *DataBindingError) Error() string {
	return fmt.Sprintf("data binding error entering '%s': %s", e.StateName, e.Message)
}

// NewDataBindingError creates a new data binding error
func NewDataBindingError(stateName, message string) *DataBindingError {
	return &DataBindingError{
		StateName: stateName,
		Message:   message,
	}
}

// StateError represents state lookup and state condition errors
type StateError struct {
	Code      ErrorCode
	StateName string
	Message   string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("state error [%s]: %s", e.StateName, e.Message)
}

// NewStateNotFoundError creates a new state not found error
func NewStateNotFoundError(stateName string) *StateError {
	return &StateError{
		Code:      ErrCodeStateNotFound,
		StateName: stateName,
		Message:   fmt.Sprintf("state '%s' not found", stateName),
	}
}

// IsUsageError checks if an error is a UsageError
func IsUsageError(err error) bool {
	_, ok := err.(*UsageError)
	return ok
}

// IsConfigurationError checks if an error is a ConfigurationError
func IsConfigurationError(err error) bool {
	_, ok := err.(*ConfigurationError)
	return ok
}

// IsDataBindingError checks if an error is a DataBindingError
func IsDataBindingError(err error) bool {
	_, ok := err.(*DataBindingError)
	return ok
}

// IsStateError checks if an error is a StateError
func IsStateError(err error) bool {
	_, ok := err.(*StateError)
	return ok
}

// GetErrorCode returns the error code for known error types
func GetErrorCode(err error) ErrorCode {
	switch e := err.(type) {
	case *UsageError:
		return e.Code
	case *StateError:
		return e.Code
	case *ConfigurationError:
		return ErrCodeInvalidConfiguration
	case *DataBindingError:
		return ErrCodeDataBinding
	default:
		return ErrCodeNone
	}
}
