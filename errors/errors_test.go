package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorKind_String(t *testing.T) {
	tests := []struct {
		kind     ErrorKind
		expected string
	}{
		{ErrConfig, "config error"},
		{ErrRuntimeInvocation, "runtime invocation error"},
		{ErrStateConflict, "state conflict"},
		{ErrChildProtocol, "child protocol error"},
		{ErrTransientIO, "transient I/O error"},
		{ErrShutdownRace, "shutdown race"},
		{ErrorKind(999), "unknown error"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.expected {
				t.Errorf("ErrorKind.String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestContainerError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *ContainerError
		expected string
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: "<nil>",
		},
		{
			name: "full error",
			err: &ContainerError{
				Op:        "create",
				Container: "test-container",
				Kind:      ErrConfig,
				Detail:    "config.json not found",
				Err:       fmt.Errorf("file not found"),
			},
			expected: "container test-container: create: config.json not found: file not found",
		},
		{
			name: "without container",
			err: &ContainerError{
				Op:     "setup",
				Kind:   ErrChildProtocol,
				Detail: "console socket handshake failed",
			},
			expected: "setup: console socket handshake failed",
		},
		{
			name: "kind only",
			err: &ContainerError{
				Kind: ErrTransientIO,
			},
			expected: "transient I/O error",
		},
		{
			name: "with underlying error",
			err: &ContainerError{
				Op:   "mount",
				Kind: ErrRuntimeInvocation,
				Err:  fmt.Errorf("device busy"),
			},
			expected: "mount: runtime invocation error: device busy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("ContainerError.Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestContainerError_Unwrap(t *testing.T) {
	underlying := fmt.Errorf("underlying error")
	err := &ContainerError{
		Op:   "test",
		Kind: ErrShutdownRace,
		Err:  underlying,
	}

	if got := err.Unwrap(); got != underlying {
		t.Errorf("Unwrap() = %v, want %v", got, underlying)
	}

	// Test nil error
	var nilErr *ContainerError
	if got := nilErr.Unwrap(); got != nil {
		t.Errorf("nil.Unwrap() = %v, want nil", got)
	}
}

func TestContainerError_Is(t *testing.T) {
	err1 := &ContainerError{Kind: ErrStateConflict, Op: "test1"}
	err2 := &ContainerError{Kind: ErrStateConflict, Op: "test2"}
	err3 := &ContainerError{Kind: ErrConfig, Op: "test3"}

	// Same kind should match
	if !err1.Is(err2) {
		t.Error("err1.Is(err2) should be true (same kind)")
	}

	// Different kind should not match
	if err1.Is(err3) {
		t.Error("err1.Is(err3) should be false (different kind)")
	}

	// Non-ContainerError should not match
	if err1.Is(fmt.Errorf("some error")) {
		t.Error("err1.Is(fmt.Errorf(...)) should be false")
	}

	// Nil handling
	var nilErr *ContainerError
	if !nilErr.Is(nil) {
		t.Error("nil.Is(nil) should be true")
	}
}

func TestNew(t *testing.T) {
	err := New(ErrConfig, "validate", "container ID is empty")

	if err.Kind != ErrConfig {
		t.Errorf("Kind = %v, want %v", err.Kind, ErrConfig)
	}
	if err.Op != "validate" {
		t.Errorf("Op = %q, want %q", err.Op, "validate")
	}
	if err.Detail != "container ID is empty" {
		t.Errorf("Detail = %q, want %q", err.Detail, "container ID is empty")
	}
}

func TestWrap(t *testing.T) {
	underlying := fmt.Errorf("permission denied")
	err := Wrap(underlying, ErrRuntimeInvocation, "open file")

	if err.Err != underlying {
		t.Error("Wrapped error should preserve underlying error")
	}
	if err.Kind != ErrRuntimeInvocation {
		t.Errorf("Kind = %v, want %v", err.Kind, ErrRuntimeInvocation)
	}
	if err.Op != "open file" {
		t.Errorf("Op = %q, want %q", err.Op, "open file")
	}
}

func TestWrapWithContainer(t *testing.T) {
	underlying := fmt.Errorf("not found")
	err := WrapWithContainer(underlying, ErrStateConflict, "load", "my-container")

	if err.Container != "my-container" {
		t.Errorf("Container = %q, want %q", err.Container, "my-container")
	}
}

func TestWrapWithDetail(t *testing.T) {
	underlying := fmt.Errorf("syscall failed")
	err := WrapWithDetail(underlying, ErrChildProtocol, "filter", "invalid control message")

	if err.Detail != "invalid control message" {
		t.Errorf("Detail = %q, want %q", err.Detail, "invalid control message")
	}
}

func TestIsKind(t *testing.T) {
	err := &ContainerError{Kind: ErrStateConflict}
	wrapped := fmt.Errorf("wrapped: %w", err)

	if !IsKind(err, ErrStateConflict) {
		t.Error("IsKind(err, ErrStateConflict) should be true")
	}
	if !IsKind(wrapped, ErrStateConflict) {
		t.Error("IsKind(wrapped, ErrStateConflict) should be true")
	}
	if IsKind(err, ErrConfig) {
		t.Error("IsKind(err, ErrConfig) should be false")
	}
	if IsKind(fmt.Errorf("plain error"), ErrStateConflict) {
		t.Error("IsKind(plain error, ErrStateConflict) should be false")
	}
}

func TestGetKind(t *testing.T) {
	err := &ContainerError{Kind: ErrRuntimeInvocation}
	wrapped := fmt.Errorf("wrapped: %w", err)

	kind, ok := GetKind(err)
	if !ok || kind != ErrRuntimeInvocation {
		t.Errorf("GetKind(err) = (%v, %v), want (%v, true)", kind, ok, ErrRuntimeInvocation)
	}

	kind, ok = GetKind(wrapped)
	if !ok || kind != ErrRuntimeInvocation {
		t.Errorf("GetKind(wrapped) = (%v, %v), want (%v, true)", kind, ok, ErrRuntimeInvocation)
	}

	_, ok = GetKind(fmt.Errorf("plain error"))
	if ok {
		t.Error("GetKind(plain error) should return false")
	}
}

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  *ContainerError
		kind ErrorKind
	}{
		{"ErrContainerNotFound", ErrContainerNotFound, ErrStateConflict},
		{"ErrContainerExists", ErrContainerExists, ErrStateConflict},
		{"ErrContainerNotRunning", ErrContainerNotRunning, ErrStateConflict},
		{"ErrContainerNotCreated", ErrContainerNotCreated, ErrStateConflict},
		{"ErrStaleLock", ErrStaleLock, ErrStateConflict},
		{"ErrLockHeld", ErrLockHeld, ErrStateConflict},
		{"ErrInvalidContainerID", ErrInvalidContainerID, ErrConfig},
		{"ErrMissingSpec", ErrMissingSpec, ErrConfig},
		{"ErrInvalidSpec", ErrInvalidSpec, ErrConfig},
		{"ErrRuncFailed", ErrRuncFailed, ErrRuntimeInvocation},
		{"ErrConsoleSetup", ErrConsoleSetup, ErrChildProtocol},
		{"ErrConsoleTimeout", ErrConsoleTimeout, ErrChildProtocol},
		{"ErrWouldBlock", ErrWouldBlock, ErrTransientIO},
		{"ErrAlreadyClosed", ErrAlreadyClosed, ErrShutdownRace},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Kind != tt.kind {
				t.Errorf("%s.Kind = %v, want %v", tt.name, tt.err.Kind, tt.kind)
			}
			// Ensure Is() works with sentinel errors
			wrapped := Wrap(fmt.Errorf("underlying"), tt.kind, "test")
			if !errors.Is(wrapped, tt.err) {
				t.Errorf("errors.Is(wrapped, %s) should be true", tt.name)
			}
		})
	}
}

func TestErrorChain(t *testing.T) {
	// Test that error chains work correctly with errors.Is and errors.As
	underlying := fmt.Errorf("file not found")
	err1 := Wrap(underlying, ErrStateConflict, "load spec")
	err2 := fmt.Errorf("container operation failed: %w", err1)

	// errors.Is should find the ContainerError in the chain
	if !errors.Is(err2, ErrContainerNotFound) {
		t.Error("errors.Is should find ErrContainerNotFound in chain")
	}

	// errors.As should extract the ContainerError
	var cerr *ContainerError
	if !errors.As(err2, &cerr) {
		t.Error("errors.As should find ContainerError in chain")
	}
	if cerr.Op != "load spec" {
		t.Errorf("cerr.Op = %q, want %q", cerr.Op, "load spec")
	}

	// Unwrap should work through the chain
	if errors.Unwrap(err1) != underlying {
		t.Error("Unwrap should return underlying error")
	}
}
