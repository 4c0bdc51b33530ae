// Package executor is the supervisor's event loop: it drives one container
// process from creation through removal, acting as a small init-like
// parent — becoming a subreaper, forwarding signals, pumping stdio, and
// reaping exited children — the Go counterpart of the reference
// implementation's RuncExecutor.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	specs "github.com/opencontainers/runtime-spec/specs-go"
	"golang.org/x/sys/unix"

	"darkwing/container"
	"darkwing/errors"
	"darkwing/iopump"
	"darkwing/logging"
	"darkwing/rundir"
	"darkwing/runc"
	"darkwing/secrets"
	"darkwing/specprep"
	"darkwing/sysutil"
)

// Options configures one Executor for the lifetime of a run_until_complete
// call (or a handful of individually-invoked operations against the same
// context).
type Options struct {
	RuntimeBase string
	ContextName string
	Recreate    bool
	OwnerUID    *int
	OwnerGID    *int

	Runner *runc.Runner

	SecretsHelper secrets.Options

	ConsoleAcceptTimeout time.Duration
	SelectTimeout        time.Duration
	TTYSelectTimeout     time.Duration

	Stdin, Stdout, Stderr *os.File
}

func (o *Options) applyDefaults() {
	if o.ConsoleAcceptTimeout <= 0 {
		o.ConsoleAcceptTimeout = 200 * time.Millisecond
	}
	if o.SelectTimeout <= 0 {
		o.SelectTimeout = 200 * time.Millisecond
	}
	if o.TTYSelectTimeout <= 0 {
		o.TTYSelectTimeout = 100 * time.Millisecond
	}
	if o.Runner == nil {
		o.Runner = &runc.Runner{}
	}
}

// Executor owns exactly one process's worth of host stdio/tty/signal
// state, shared across every container it runs.
type Executor struct {
	opts   Options
	logger *slog.Logger

	stdin, stdout, stderr *os.File
	hostTTY               int
	hostTTYRaw            bool
	savedTTY              *sysutil.RawState

	isSubreaper bool

	mu         sync.Mutex
	containers map[int]*container.Handle
	otherPids  map[int]*int
	closing    bool

	sigCh  chan os.Signal
	abrtCh chan os.Signal
}

// New builds an Executor. logger defaults to the package-level default if
// nil.
func New(opts Options, logger *slog.Logger) *Executor {
	opts.applyDefaults()
	if logger == nil {
		logger = logging.Default()
	}
	e := &Executor{
		opts:       opts,
		logger:     logger,
		hostTTY:    -1,
		containers: make(map[int]*container.Handle),
		otherPids:  make(map[int]*int),
	}
	return e
}

// RunUntilComplete runs the full lifecycle for handle: setup, create,
// start, signal loop, optional removal, teardown. It returns the
// container's returncode (or a process-level fallback: 1 for a lifecycle
// error, the runtime error's own code where one is available).
func (e *Executor) RunUntilComplete(ctx context.Context, handle *container.Handle, remove bool) (int, error) {
	e.setupStdio()
	e.setTTYRaw(handle)
	e.setupSignals()
	e.setSubreaper(true)

	var lifecycleErr error
	returncode := 0

	func() {
		defer func() {
			e.setSubreaper(false)
			e.restoreSignals()
			e.resetTTY()
		}()

		if err := e.CreateContainer(ctx, handle); err != nil {
			lifecycleErr = err
			return
		}

		e.resizeAllTTYs()

		if err := e.StartContainer(ctx, handle); err != nil {
			lifecycleErr = err
			return
		}

		e.processSignals(ctx)

		returncode = e.firstNonZeroReturncode()

		if remove {
			if err := e.RemoveContainer(ctx, handle, false); err != nil {
				lifecycleErr = err
			}
		}
	}()

	handle.Close()
	e.closeStdio()

	if lifecycleErr != nil {
		logging.WithOperation(logging.WithContainer(e.logger, handle.ID), "run_until_complete").
			Error("lifecycle failed", "error", lifecycleErr)
		if kind, ok := errors.GetKind(lifecycleErr); ok && kind == errors.ErrRuntimeInvocation {
			var exitErr *exec.ExitError
			if errors.As(lifecycleErr, &exitErr) {
				return exitErr.ExitCode(), lifecycleErr
			}
		}
		return 1, lifecycleErr
	}
	return returncode, nil
}

func (e *Executor) firstNonZeroReturncode() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, h := range e.containers {
		if rc, ok := h.Returncode(); ok && rc != 0 {
			return rc
		}
	}
	return 0
}

// CreateContainer ensures the runtime dir and locks exist, overlays the
// spec, and invokes the runtime's create subcommand, wiring stdio through
// either a TTY console-socket handshake or plain socketpairs.
func (e *Executor) CreateContainer(ctx context.Context, handle *container.Handle) error {
	e.setupStdio()

	e.mu.Lock()
	closing := e.closing
	e.mu.Unlock()
	if closing {
		return errors.WrapWithContainer(nil, errors.ErrStateConflict, "create: executor is closing", handle.ID)
	}
	if err := handle.TransitionTo(container.StatusCreated); err != nil {
		return err
	}

	dir, err := rundir.Create(
		e.opts.RuntimeBase, e.opts.ContextName, handle.ID,
		handle.Config.Data.Secrets.Target, handle.Config.Data.DNS.Hostname,
		e.opts.OwnerUID, e.opts.OwnerGID, e.opts.Recreate,
	)
	if err != nil {
		return fmt.Errorf("create runtime dir: %w", err)
	}

	if err := dir.AcquireLock(os.Getpid()); err != nil {
		return err
	}

	if err := secrets.Provision(ctx, handle.Config, dir.SecretsPath, e.opts.SecretsHelper); err != nil {
		return err
	}

	var ownerUID32, ownerGID32 *uint32
	if e.opts.OwnerUID != nil {
		v := uint32(*e.opts.OwnerUID)
		ownerUID32 = &v
	}
	if e.opts.OwnerGID != nil {
		v := uint32(*e.opts.OwnerGID)
		ownerGID32 = &v
	}

	policy := specprep.TTYPolicy{}
	if handle.UseTTY() && e.hostTTY < 0 {
		// Host has no terminal at all: clear the container's TTY request
		// rather than let create fail against a console-socket nobody
		// can service.
		policy.ForceTTY = boolPtr(false)
	}

	_, useTTY, err := specprep.Overlay(handle.Bundle, handle.Config, specprep.Options{
		RuntimeMounts: dir.Mounts,
		RuntimeBases:  specprep.VolumeBases{Runtime: dir.VolumesPath},
		OwnerUID:      ownerUID32,
		OwnerGID:      ownerGID32,
		TTY:           policy,
		EnsureMounts:  true,
	})
	if err != nil {
		return err
	}
	handle.SetUseTTY(useTTY)

	runtimeRoot := dir.RuncStateRoot()
	handle.RuntimeRoot = runtimeRoot
	e.opts.Runner.Root = runtimeRoot

	if useTTY {
		if err := e.createWithTTY(ctx, handle, dir); err != nil {
			return err
		}
	} else {
		if err := e.createWithSocketpairs(ctx, handle, dir); err != nil {
			return err
		}
	}

	state, err := e.getContainerState(ctx, handle, true)
	if err != nil {
		return err
	}
	if state.Status != specs.StateCreated {
		return errors.WrapWithContainer(nil, errors.ErrStateConflict,
			fmt.Sprintf("expected created, runtime reports %s", state.Status), handle.ID)
	}

	if err := dir.WritePidfile(handle.Pid()); err != nil {
		return err
	}

	e.mu.Lock()
	e.containers[handle.Pid()] = handle
	e.mu.Unlock()

	return nil
}

func (e *Executor) createWithTTY(ctx context.Context, handle *container.Handle, dir *rundir.Dir) error {
	listener, err := runc.ListenConsole(dir.ConsoleSocketPath())
	if err != nil {
		return err
	}
	defer listener.Close()
	defer os.Remove(dir.ConsoleSocketPath())

	createErrCh := make(chan error, 1)
	go func() {
		createErrCh <- e.opts.Runner.Create(ctx, handle.ID, handle.Bundle, runc.CreateOpts{
			PidFile:       dir.PidfilePath(),
			ConsoleSocket: dir.ConsoleSocketPath(),
		})
	}()

	ptyFD, acceptErr := runc.AcceptConsoleFD(listener, e.opts.ConsoleAcceptTimeout)

	if err := <-createErrCh; err != nil {
		if ptyFD >= 0 {
			unix.Close(ptyFD)
		}
		return err
	}
	if acceptErr != nil {
		return acceptErr
	}

	pid, err := readPidfile(dir)
	if err != nil {
		return err
	}
	handle.SetPid(pid)

	ptyDup, err := sysutil.DupCloexec(ptyFD)
	if err != nil {
		return fmt.Errorf("dup pty fd: %w", err)
	}
	stdin := os.NewFile(uintptr(ptyFD), "pty")
	stdout := os.NewFile(uintptr(ptyDup), "pty")
	stderrDup, err := sysutil.DupCloexec(ptyFD)
	if err != nil {
		return fmt.Errorf("dup pty fd: %w", err)
	}
	stderr := os.NewFile(uintptr(stderrDup), "pty")

	handle.SetStdio(stdin, stdout, stderr, -1)
	return nil
}

func (e *Executor) createWithSocketpairs(ctx context.Context, handle *container.Handle, dir *rundir.Dir) error {
	stdinPair, stdoutPair, stderrPair, err := runc.NewStdioSocketpairs()
	if err != nil {
		return err
	}

	err = e.opts.Runner.Create(ctx, handle.ID, handle.Bundle, runc.CreateOpts{
		PidFile: dir.PidfilePath(),
		Stdin:   stdinPair.Child,
		Stdout:  stdoutPair.Child,
		Stderr:  stderrPair.Child,
	})

	stdinPair.Child.Close()
	stdoutPair.Child.Close()
	stderrPair.Child.Close()

	if err != nil {
		stdinPair.Parent.Close()
		stdoutPair.Parent.Close()
		stderrPair.Parent.Close()
		return err
	}

	pid, err := readPidfile(dir)
	if err != nil {
		return err
	}
	handle.SetPid(pid)
	handle.SetStdio(stdinPair.Parent, stdoutPair.Parent, stderrPair.Parent, -1)
	return nil
}

func readPidfile(dir *rundir.Dir) (int, error) {
	pid, err := dir.ReadPidfile()
	if err != nil {
		return 0, fmt.Errorf("read pidfile after create: %w", err)
	}
	return pid, nil
}

// StartContainer starts the three I/O pumps and invokes the runtime's
// start subcommand, requiring the container's status to transition to
// running.
func (e *Executor) StartContainer(ctx context.Context, handle *container.Handle) error {
	e.setupStdio()

	if handle.Status() != container.StatusCreated {
		return errors.WrapWithContainer(nil, errors.ErrStateConflict, "start requires created", handle.ID)
	}

	timeout := e.opts.SelectTimeout
	if handle.UseTTY() {
		timeout = e.opts.TTYSelectTimeout
	}

	stdin, stdout, stderr := handle.Stdio()
	useTTY := handle.UseTTY()

	if e.stdin != nil && stdin != nil {
		p := iopump.New(int(e.stdin.Fd()), int(stdin.Fd()), useTTY, !useTTY, timeout)
		p.Start()
		handle.AddPump(p)
	}
	if stdout != nil && e.stdout != nil {
		p := iopump.New(int(stdout.Fd()), int(e.stdout.Fd()), false, true, timeout)
		p.Start()
		handle.AddPump(p)
	}
	if stderr != nil && e.stderr != nil {
		p := iopump.New(int(stderr.Fd()), int(e.stderr.Fd()), false, true, timeout)
		p.Start()
		handle.AddPump(p)
	}

	if err := e.opts.Runner.Start(ctx, handle.ID); err != nil {
		return err
	}

	state, err := e.getContainerState(ctx, handle, true)
	if err != nil {
		return err
	}
	if state.Status != specs.StateRunning {
		return errors.WrapWithContainer(nil, errors.ErrStateConflict,
			fmt.Sprintf("expected running, runtime reports %s", state.Status), handle.ID)
	}
	return handle.TransitionTo(container.StatusRunning)
}

// StopContainer sends sig to the container's init process through the
// runtime's kill subcommand. Unlike the reference implementation, which left
// this unimplemented, this supervisor gives it a real API surface: the same
// kind of forwarding RunUntilComplete's signal loop performs, exposed as a
// standalone call for non-interactive use.
func (e *Executor) StopContainer(ctx context.Context, handle *container.Handle, sig int) error {
	pid := handle.Pid()
	if pid <= 0 {
		return errors.WrapWithContainer(nil, errors.ErrStateConflict, "stop: no init process", handle.ID)
	}
	return e.opts.Runner.Kill(ctx, handle.ID, sig, false)
}

// RemoveContainer requires the runtime to report the container stopped,
// deletes its runtime-side state, and drops the pidfile/lockfile/registry
// entries. force skips the stopped check and tells the runtime to tear the
// container down regardless of its current state.
func (e *Executor) RemoveContainer(ctx context.Context, handle *container.Handle, force bool) error {
	if !force {
		state, err := e.getContainerState(ctx, handle, true)
		if err != nil {
			return err
		}
		if state.Status != specs.StateStopped {
			return errors.WrapWithContainer(nil, errors.ErrStateConflict,
				fmt.Sprintf("remove requires stopped, runtime reports %s", state.Status), handle.ID)
		}
	}

	if err := e.opts.Runner.Delete(ctx, handle.ID, force); err != nil {
		return err
	}

	dir, err := e.handleRundir(handle)
	if err == nil {
		dir.ReleaseLock()
		dir.RemovePidfile()
		dir.Remove()
	}

	e.mu.Lock()
	delete(e.containers, handle.Pid())
	e.mu.Unlock()

	if handle.Status() == container.StatusRunning {
		if err := handle.TransitionTo(container.StatusStopped); err != nil {
			return err
		}
	}
	return handle.TransitionTo(container.StatusRemoved)
}

func (e *Executor) handleRundir(handle *container.Handle) (*rundir.Dir, error) {
	return rundir.Create(
		e.opts.RuntimeBase, e.opts.ContextName, handle.ID,
		handle.Config.Data.Secrets.Target, handle.Config.Data.DNS.Hostname,
		e.opts.OwnerUID, e.opts.OwnerGID, false,
	)
}

// getContainerState runs the runtime's state subcommand and, if update is
// set, refreshes handle's pid and lifecycle bookkeeping from the result.
func (e *Executor) getContainerState(ctx context.Context, handle *container.Handle, update bool) (*specs.State, error) {
	state, err := e.opts.Runner.State(ctx, handle.ID)
	if err != nil {
		return nil, err
	}
	if update && state.Pid != 0 {
		handle.SetPid(state.Pid)
	}
	return state, nil
}

func boolPtr(b bool) *bool { return &b }
