// Package errors provides typed error handling for the darkwing supervisor.
//
// This package defines domain-specific error types that enable better error
// classification, debugging, and user feedback. All errors support the standard
// errors.Is() and errors.As() functions for error inspection.
package errors

import (
	"errors"
	"fmt"
)

// ErrorKind represents the category of an error.
type ErrorKind int

const (
	// ErrConfig indicates a problem with a Context, Container config, or
	// OCI spec that prevents a container from being prepared at all.
	ErrConfig ErrorKind = iota
	// ErrRuntimeInvocation indicates the runc subprocess could not be
	// invoked, or returned a non-zero exit status.
	ErrRuntimeInvocation
	// ErrStateConflict indicates an operation was attempted against a
	// container in the wrong lifecycle state, or a stale lock/pidfile
	// conflicted with a new creation attempt.
	ErrStateConflict
	// ErrChildProtocol indicates the console-socket or stdio handshake
	// with the runtime's child process did not follow the expected
	// protocol (missing SCM_RIGHTS, malformed payload, premature close).
	ErrChildProtocol
	// ErrTransientIO indicates a recoverable I/O failure (an interrupted
	// syscall, a pipe that would block) that callers should retry.
	ErrTransientIO
	// ErrShutdownRace indicates teardown observed a container or fd that
	// had already been torn down by a concurrent signal handler or reaper.
	ErrShutdownRace
)

// String returns a human-readable name for the error kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrConfig:
		return "config error"
	case ErrRuntimeInvocation:
		return "runtime invocation error"
	case ErrStateConflict:
		return "state conflict"
	case ErrChildProtocol:
		return "child protocol error"
	case ErrTransientIO:
		return "transient I/O error"
	case ErrShutdownRace:
		return "shutdown race"
	default:
		return "unknown error"
	}
}

// ContainerError represents an error that occurred during a container operation.
type ContainerError struct {
	// Op is the operation that failed (e.g., "create", "start", "exec").
	Op string
	// Container is the container ID, if applicable.
	Container string
	// Err is the underlying error.
	Err error
	// Kind is the error classification.
	Kind ErrorKind
	// Detail provides additional context about the error.
	Detail string
}

// Error returns the error message.
func (e *ContainerError) Error() string {
	if e == nil {
		return "<nil>"
	}

	var msg string
	if e.Container != "" {
		msg = fmt.Sprintf("container %s: ", e.Container)
	}
	if e.Op != "" {
		msg += fmt.Sprintf("%s: ", e.Op)
	}
	if e.Detail != "" {
		msg += e.Detail
	} else {
		msg += e.Kind.String()
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *ContainerError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether the error matches the target.
// It matches if the target is a *ContainerError with the same Kind; it does
// not inspect the underlying error itself (errors.Is reaches that through
// Unwrap).
func (e *ContainerError) Is(target error) bool {
	if e == nil {
		return target == nil
	}
	if t, ok := target.(*ContainerError); ok {
		return e.Kind == t.Kind
	}
	return false
}

// New creates a new ContainerError with the given kind.
func New(kind ErrorKind, op string, detail string) *ContainerError {
	return &ContainerError{
		Op:     op,
		Kind:   kind,
		Detail: detail,
	}
}

// Wrap wraps an error with container context.
func Wrap(err error, kind ErrorKind, op string) *ContainerError {
	return &ContainerError{
		Op:   op,
		Err:  err,
		Kind: kind,
	}
}

// WrapWithContainer wraps an error with container context and ID.
func WrapWithContainer(err error, kind ErrorKind, op string, containerID string) *ContainerError {
	return &ContainerError{
		Op:        op,
		Container: containerID,
		Err:       err,
		Kind:      kind,
	}
}

// WrapWithDetail wraps an error with additional detail.
func WrapWithDetail(err error, kind ErrorKind, op string, detail string) *ContainerError {
	return &ContainerError{
		Op:     op,
		Err:    err,
		Kind:   kind,
		Detail: detail,
	}
}

// IsKind checks if an error is of a specific kind.
func IsKind(err error, kind ErrorKind) bool {
	var cerr *ContainerError
	if errors.As(err, &cerr) {
		return cerr.Kind == kind
	}
	return false
}

// GetKind returns the error kind if the error is a ContainerError.
func GetKind(err error) (ErrorKind, bool) {
	var cerr *ContainerError
	if errors.As(err, &cerr) {
		return cerr.Kind, true
	}
	return 0, false
}

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
)
