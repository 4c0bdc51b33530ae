// Package container holds the supervisor's in-memory record of a single
// container process: its lifecycle status, owned fds, and I/O pumps. It is
// the Go counterpart of the reference implementation's Container class,
// restricted to executor-facing state (the on-disk config/rundir records
// live in darkwing/config and darkwing/rundir).
package container

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"golang.org/x/sys/unix"

	"darkwing/config"
	"darkwing/errors"
	"darkwing/iopump"
	"darkwing/sysutil"
)

// Status is a lifecycle stage. Only the transitions
// new -> created -> running -> stopped -> removed are legal.
type Status string

const (
	StatusNew      Status = "new"
	StatusCreated  Status = "created"
	StatusRunning  Status = "running"
	StatusStopped  Status = "stopped"
	StatusRemoved  Status = "removed"
)

var statusOrder = map[Status]int{
	StatusNew:     0,
	StatusCreated: 1,
	StatusRunning: 2,
	StatusStopped: 3,
	StatusRemoved: 4,
}

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)

// ValidateID rejects empty, overlong, path-traversing, or otherwise
// unsafe container identifiers.
func ValidateID(id string) error {
	if id == "" {
		return errors.ErrEmptyContainerID
	}
	if len(id) > 1024 {
		return errors.WrapWithDetail(nil, errors.ErrConfig, "validate container id",
			fmt.Sprintf("too long (max 1024 characters): %d", len(id)))
	}
	if !idRegex.MatchString(id) {
		return errors.WrapWithDetail(nil, errors.ErrConfig, "validate container id",
			fmt.Sprintf("%q contains invalid characters", id))
	}
	if id == "." || id == ".." || filepath.Clean(id) != id {
		return errors.WrapWithDetail(nil, errors.ErrConfig, "validate container id",
			fmt.Sprintf("%q is a path-traversal attempt", id))
	}
	return nil
}

// Handle is the executor's live record of one container. The sentinel
// returncode 255 marks a process already reaped by someone else before
// Wait() got to it.
type Handle struct {
	ID          string
	Bundle      string
	RuntimeRoot string
	Config      *config.Container

	mu         sync.Mutex
	status     Status
	pid        int
	returncode *int

	stdin, stdout, stderr *os.File
	ttyFD                 int

	pumps    []*iopump.Pump
	closeFDs []int
	closed   bool
}

// New builds a fresh handle in the "new" status.
func New(id, bundle, runtimeRoot string, cfg *config.Container) *Handle {
	return &Handle{
		ID:          id,
		Bundle:      bundle,
		RuntimeRoot: runtimeRoot,
		Config:      cfg,
		status:      StatusNew,
		ttyFD:       -1,
	}
}

// UseTTY reads through to the underlying config's exec.terminal field.
func (h *Handle) UseTTY() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.Config.Data.Exec.Terminal
}

// SetUseTTY writes through to the underlying config's exec.terminal field.
func (h *Handle) SetUseTTY(v bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Config.Data.Exec.Terminal = v
}

// Status returns the current lifecycle stage.
func (h *Handle) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// TransitionTo advances the handle to next, rejecting anything but the one
// legal successor of the current status.
func (h *Handle) TransitionTo(next Status) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	fi, fok := statusOrder[h.status]
	ti, tok := statusOrder[next]
	if !fok || !tok || ti != fi+1 {
		return errors.WrapWithContainer(nil, errors.ErrStateConflict,
			fmt.Sprintf("%s -> %s is not a legal transition", h.status, next), h.ID)
	}
	h.status = next
	return nil
}

// ResyncStatus sets the handle's status directly to current, bypassing the
// one-step-at-a-time chain TransitionTo enforces. A handle built fresh by a
// standalone CLI invocation carries no transition history of its own: the
// runtime's own state report is the actual source of truth, so a process
// reattaching to an already-created container needs to seed its in-memory
// status from that report rather than replay transitions it never made.
func (h *Handle) ResyncStatus(current Status) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status = current
}

// Pid returns the recorded init pid, 0 if none has been recorded yet.
func (h *Handle) Pid() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pid
}

// SetPid records the init pid once it is known, after a successful create.
func (h *Handle) SetPid(pid int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pid = pid
}

// SetReturncode records rc on the first call only; later calls are no-ops,
// so the first writer (the executor's reaper, or this handle's own Wait)
// wins a race between the two.
func (h *Handle) SetReturncode(rc int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.returncode == nil {
		v := rc
		h.returncode = &v
	}
}

// Returncode returns the recorded exit status, if any.
func (h *Handle) Returncode() (int, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.returncode == nil {
		return 0, false
	}
	return *h.returncode, true
}

// SetStdio records the three stream fds and, if the container uses a tty,
// the extra host-side fd opened for size/termios queries (-1 otherwise).
// The pumps that read/write these streams own closing them; ttyFD is
// closed directly by Close.
func (h *Handle) SetStdio(stdin, stdout, stderr *os.File, ttyFD int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stdin, h.stdout, h.stderr = stdin, stdout, stderr
	h.ttyFD = ttyFD
}

// Stdio returns the three stream fds previously recorded by SetStdio.
func (h *Handle) Stdio() (stdin, stdout, stderr *os.File) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stdin, h.stdout, h.stderr
}

// AddPump registers a started pump as owned by this handle; Close stops and
// joins every registered pump.
func (h *Handle) AddPump(p *iopump.Pump) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pumps = append(h.pumps, p)
}

// AddCloseFD tracks an extra fd (not already owned by a pump) that Close
// must close.
func (h *Handle) AddCloseFD(fd int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closeFDs = append(h.closeFDs, fd)
}

// Wait performs waitpid on the handle's own pid. blocking=false passes
// WNOHANG. A pid already reaped by someone else (ECHILD) is mapped to the
// sentinel returncode 255.
func (h *Handle) Wait(blocking bool) (int, error) {
	h.mu.Lock()
	if h.returncode != nil {
		rc := *h.returncode
		h.mu.Unlock()
		return rc, nil
	}
	pid := h.pid
	h.mu.Unlock()

	if pid <= 0 {
		return 0, errors.WrapWithContainer(nil, errors.ErrStateConflict, "wait", h.ID)
	}

	var ws unix.WaitStatus
	flags := 0
	if !blocking {
		flags = unix.WNOHANG
	}
	waited, err := unix.Wait4(pid, &ws, flags, nil)
	if err != nil {
		if err == unix.ECHILD {
			h.SetReturncode(255)
			return 255, nil
		}
		return 0, fmt.Errorf("waitpid %d: %w", pid, err)
	}
	if waited == 0 {
		return 0, nil
	}

	rc := sysutil.ComputeReturncode(ws)
	h.SetReturncode(rc)
	return rc, nil
}

// Close is idempotent: the first call waits for the init process, stops
// and joins every owned pump, and closes any extra tracked fds. Later
// calls return the already-recorded returncode without touching anything.
// Every close is best-effort: errors are swallowed, matching the teardown
// policy the rest of the executor follows.
func (h *Handle) Close() int {
	h.mu.Lock()
	if h.closed {
		rc := 0
		if h.returncode != nil {
			rc = *h.returncode
		}
		h.mu.Unlock()
		return rc
	}
	h.closed = true
	pumps := h.pumps
	fds := h.closeFDs
	ttyFD := h.ttyFD
	h.mu.Unlock()

	rc, _ := h.Wait(true)

	for _, p := range pumps {
		p.Stop()
	}
	for _, p := range pumps {
		p.Wait()
	}
	for _, fd := range fds {
		unix.Close(fd)
	}
	if ttyFD >= 0 {
		unix.Close(ttyFD)
	}

	return rc
}
