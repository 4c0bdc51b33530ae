// Package errors provides predefined sentinel errors for common failure cases.
package errors

// Container lifecycle and state-conflict errors.
var (
	// ErrContainerNotFound indicates the container does not exist in the registry.
	ErrContainerNotFound = &ContainerError{
		Kind:   ErrStateConflict,
		Detail: "container not found",
	}

	// ErrContainerExists indicates the container ID is already in use.
	ErrContainerExists = &ContainerError{
		Kind:   ErrStateConflict,
		Detail: "container already exists",
	}

	// ErrContainerNotRunning indicates the container is not in running state.
	ErrContainerNotRunning = &ContainerError{
		Kind:   ErrStateConflict,
		Detail: "container is not running",
	}

	// ErrContainerNotCreated indicates the container is not in created state.
	ErrContainerNotCreated = &ContainerError{
		Kind:   ErrStateConflict,
		Detail: "container is not in created state",
	}

	// ErrStaleLock indicates a lockfile/pidfile refers to a process that is
	// no longer alive; the caller should reclaim it rather than fail.
	ErrStaleLock = &ContainerError{
		Kind:   ErrStateConflict,
		Detail: "stale lockfile",
	}

	// ErrLockHeld indicates a lockfile/pidfile is held by a live process
	// other than the caller.
	ErrLockHeld = &ContainerError{
		Kind:   ErrStateConflict,
		Detail: "lockfile held by a running process",
	}

	// ErrNoInitProcess indicates there is no init process recorded for the container.
	ErrNoInitProcess = &ContainerError{
		Kind:   ErrStateConflict,
		Detail: "no init process",
	}
)

// Configuration and validation errors.
var (
	// ErrInvalidBundlePath indicates the bundle path is invalid.
	ErrInvalidBundlePath = &ContainerError{
		Kind:   ErrConfig,
		Detail: "invalid bundle path",
	}

	// ErrMissingSpec indicates the config.json is missing.
	ErrMissingSpec = &ContainerError{
		Kind:   ErrConfig,
		Detail: "config.json not found",
	}

	// ErrInvalidSpec indicates the spec is invalid or fails overlay preconditions.
	ErrInvalidSpec = &ContainerError{
		Kind:   ErrConfig,
		Detail: "invalid OCI spec",
	}

	// ErrInvalidContainerID indicates the container ID fails validation.
	ErrInvalidContainerID = &ContainerError{
		Kind:   ErrConfig,
		Detail: "invalid container ID",
	}

	// ErrEmptyContainerID indicates the container ID is empty.
	ErrEmptyContainerID = &ContainerError{
		Kind:   ErrConfig,
		Detail: "container ID cannot be empty",
	}

	// ErrNoProcessArgs indicates no process arguments were specified.
	ErrNoProcessArgs = &ContainerError{
		Kind:   ErrConfig,
		Detail: "no process arguments specified",
	}

	// ErrCapabilityUnknown indicates an unknown capability name was requested.
	ErrCapabilityUnknown = &ContainerError{
		Kind:   ErrConfig,
		Detail: "unknown capability",
	}

	// ErrUnknownMountType indicates a mount entry names a type the overlay
	// does not recognize.
	ErrUnknownMountType = &ContainerError{
		Kind:   ErrConfig,
		Detail: "unknown mount type",
	}
)

// Runtime invocation errors.
var (
	// ErrRuncNotFound indicates the runc binary could not be located.
	ErrRuncNotFound = &ContainerError{
		Kind:   ErrRuntimeInvocation,
		Detail: "runc binary not found",
	}

	// ErrRuncFailed indicates runc exited with a non-zero status.
	ErrRuncFailed = &ContainerError{
		Kind:   ErrRuntimeInvocation,
		Detail: "runc invocation failed",
	}

	// ErrSecretHelperFailed indicates the secrets-decryption helper exited
	// with a non-zero status or timed out.
	ErrSecretHelperFailed = &ContainerError{
		Kind:   ErrRuntimeInvocation,
		Detail: "secret decryption helper failed",
	}
)

// Child-protocol errors (console socket / stdio handshake).
var (
	// ErrConsoleSetup indicates the console-socket handshake failed.
	ErrConsoleSetup = &ContainerError{
		Kind:   ErrChildProtocol,
		Detail: "failed to set up console socket",
	}

	// ErrConsoleTimeout indicates no SCM_RIGHTS payload arrived on the
	// console socket within the accept timeout.
	ErrConsoleTimeout = &ContainerError{
		Kind:   ErrChildProtocol,
		Detail: "timed out waiting for console fd",
	}

	// ErrInvalidSocketPath indicates an invalid console-socket path.
	ErrInvalidSocketPath = &ContainerError{
		Kind:   ErrConfig,
		Detail: "invalid socket path",
	}

	// ErrMalformedControlMessage indicates the SCM_RIGHTS control message
	// could not be parsed.
	ErrMalformedControlMessage = &ContainerError{
		Kind:   ErrChildProtocol,
		Detail: "malformed control message",
	}
)

// Transient I/O errors.
var (
	// ErrPumpInterrupted indicates the I/O pump's select loop was
	// interrupted by a signal and should be retried.
	ErrPumpInterrupted = &ContainerError{
		Kind:   ErrTransientIO,
		Detail: "I/O pump interrupted",
	}

	// ErrWouldBlock indicates a non-blocking operation could not complete
	// immediately and should be retried.
	ErrWouldBlock = &ContainerError{
		Kind:   ErrTransientIO,
		Detail: "operation would block",
	}
)

// Shutdown-race errors.
var (
	// ErrAlreadyClosed indicates a container handle or fd was already
	// closed by a concurrent teardown path.
	ErrAlreadyClosed = &ContainerError{
		Kind:   ErrShutdownRace,
		Detail: "already closed",
	}

	// ErrReapedConcurrently indicates the subreaper observed a pid exit
	// before the owning container's own wait path could record it.
	ErrReapedConcurrently = &ContainerError{
		Kind:   ErrShutdownRace,
		Detail: "process reaped concurrently",
	}
)
