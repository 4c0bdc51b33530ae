package executor

import (
	"os"

	"darkwing/container"
	"darkwing/sysutil"
)

// setupStdio normalizes the executor's own stdin/stdout/stderr: nil
// defaults to the process's inherited fds. The first of the three that is
// a terminal becomes the host tty.
func (e *Executor) setupStdio() {
	e.stdin = e.opts.Stdin
	if e.stdin == nil {
		e.stdin = os.Stdin
	}
	e.stdout = e.opts.Stdout
	if e.stdout == nil {
		e.stdout = os.Stdout
	}
	e.stderr = e.opts.Stderr
	if e.stderr == nil {
		e.stderr = os.Stderr
	}

	for _, f := range []*os.File{e.stdin, e.stdout, e.stderr} {
		if sysutil.IsTerminal(int(f.Fd())) {
			e.hostTTY = int(f.Fd())
			e.hostTTYRaw = f == e.stdin
			break
		}
	}
}

// closeStdio closes the executor's own stdio, never closing fds that were
// never ours to begin with (inherited os.Stdin/Stdout/Stderr are left
// alone; only caller-supplied overrides are closed).
func (e *Executor) closeStdio() {
	for _, f := range []*os.File{e.opts.Stdin, e.opts.Stdout, e.opts.Stderr} {
		if f != nil {
			f.Close()
		}
	}
}

// setTTYRaw puts the host tty into raw mode if the container being run
// wants one and the host actually has one on stdin.
func (e *Executor) setTTYRaw(handle *container.Handle) {
	if e.hostTTY < 0 || !e.hostTTYRaw || !handle.UseTTY() {
		return
	}
	saved, err := sysutil.SetRaw(e.hostTTY)
	if err != nil {
		e.logger.Warn("failed to set host tty raw", "error", err)
		return
	}
	e.savedTTY = saved
}

// resetTTY restores the host tty's prior mode, if setTTYRaw changed it.
func (e *Executor) resetTTY() {
	if e.hostTTY < 0 || e.savedTTY == nil {
		return
	}
	sysutil.Restore(e.hostTTY, e.savedTTY)
	e.savedTTY = nil
}

// resizeAllTTYs pushes the host tty's current size to every live
// container that owns its own tty, matching the initial WINCH and any
// later forwarded one.
func (e *Executor) resizeAllTTYs() {
	if e.hostTTY < 0 {
		return
	}
	cols, rows, err := sysutil.GetWinsize(e.hostTTY)
	if err != nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, h := range e.containers {
		if _, done := h.Returncode(); done {
			continue
		}
		stdin, _, _ := h.Stdio()
		if stdin == nil || !h.UseTTY() {
			continue
		}
		sysutil.SetWinsize(int(stdin.Fd()), cols, rows)
	}
}
