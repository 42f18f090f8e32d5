package schema

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest indicates a malformed request payload.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrBufferNotFound indicates a requested buffer does not exist.
	ErrBufferNotFound = errors.New("buffer not found")
	// ErrNoBuffers indicates the workspace is empty.
	ErrNoBuffers = errors.New("no buffers")
	// ErrInvalidTarget indicates an empty or malformed target database name.
	ErrInvalidTarget = errors.New("invalid target")
	// ErrTargetNotFound indicates a database that is not part of the navigation tree.
	ErrTargetNotFound = errors.New("database not found")
	// ErrInvalidURI indicates a connection string that is empty or has an unsupported scheme.
	ErrInvalidURI = errors.New("invalid connection uri")
	// ErrSaveNameRequired indicates a save was requested without a name.
	ErrSaveNameRequired = errors.New("connection name is required")
	// ErrSavedNameExists indicates a saved connection with the same name exists.
	ErrSavedNameExists = errors.New("saved connection name already exists")
	// ErrSavedConnectionNotFound indicates a saved connection id is unknown.
	ErrSavedConnectionNotFound = errors.New("saved connection not found")
	// ErrConnectionNotFound indicates a connection id is unknown to the backend.
	ErrConnectionNotFound = errors.New("client not found")
	// ErrBackendUnavailable indicates no backend is configured.
	ErrBackendUnavailable = errors.New("backend not configured")
	// ErrNotConnected indicates an operation that needs a connection ran without one.
	ErrNotConnected = errors.New("not connected")
)

// ConnectionError reports an unreachable or invalid target. It is shown to the
// user as a persistent notification and never terminates the workspace.
type ConnectionError struct {
	Op      string
	Message string
	Err     error
}

func (e *ConnectionError) Error() string {
	if e == nil {
		return "connection error"
	}
	return describe("connection", e.Op, e.Message, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ExecutionError reports a script that failed remotely. Message carries the
// backend's text verbatim.
type ExecutionError struct {
	Op      string
	Message string
	Err     error
}

func (e *ExecutionError) Error() string {
	if e == nil {
		return "execution error"
	}
	return describe("execution", e.Op, e.Message, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ConfigurationError reports a request rejected before any backend call.
type ConfigurationError struct {
	Op      string
	Message string
	Err     error
}

func (e *ConfigurationError) Error() string {
	if e == nil {
		return "configuration error"
	}
	return describe("configuration", e.Op, e.Message, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewConnectionError wraps err as a ConnectionError for op.
func NewConnectionError(op string, err error) *ConnectionError {
	return &ConnectionError{Op: op, Err: err}
}

// NewExecutionError wraps err as an ExecutionError, keeping its text as the message.
func NewExecutionError(op string, err error) *ExecutionError {
	e := &ExecutionError{Op: op, Err: err}
	if err != nil {
		e.Message = err.Error()
	}
	return e
}

// NewConfigurationError wraps err as a ConfigurationError for op.
func NewConfigurationError(op string, err error) *ConfigurationError {
	return &ConfigurationError{Op: op, Err: err}
}

func describe(kind, op, message string, err error) string {
	if message != "" {
		return message
	}
	if err != nil {
		return err.Error()
	}
	if op != "" {
		return fmt.Sprintf("%s %s failed", kind, op)
	}
	return kind + " error"
}
