package executor

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"

	"darkwing/sysutil"
)

// forwardedSignals are relayed to every live container's init process.
// SIGABRT is deliberately excluded: it is the loop's own escape hatch, not
// a signal the container should see.
var forwardedSignals = []os.Signal{syscall.SIGINT, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT}

// setupSignals installs the channel-based stand-in for the reference
// implementation's wakeup-fd self-pipe. Go's runtime already owns
// sigaction, so os/signal.Notify is the idiomatic equivalent: a buffered
// channel the runtime delivers signal values to, read by the same
// processSignals loop that would otherwise read raw bytes off a pipe.
func (e *Executor) setupSignals() {
	e.sigCh = make(chan os.Signal, 32)
	watched := append(append([]os.Signal{}, forwardedSignals...), syscall.SIGWINCH, syscall.SIGCHLD)
	signal.Notify(e.sigCh, watched...)

	e.abrtCh = make(chan os.Signal, 1)
	signal.Notify(e.abrtCh, syscall.SIGABRT)
}

// restoreSignals stops relaying every signal this executor registered for
// and closes its channels.
func (e *Executor) restoreSignals() {
	if e.sigCh != nil {
		signal.Stop(e.sigCh)
		close(e.sigCh)
		e.sigCh = nil
	}
	if e.abrtCh != nil {
		signal.Stop(e.abrtCh)
		close(e.abrtCh)
		e.abrtCh = nil
	}
}

// setSubreaper toggles PR_SET_CHILD_SUBREAPER, logging but not failing the
// caller on error (a supervisor without subreaper status still functions,
// it just won't adopt orphaned grandchildren).
func (e *Executor) setSubreaper(target bool) {
	if e.isSubreaper == target {
		return
	}
	if err := sysutil.SetSubreaper(target); err != nil {
		e.logger.Warn("set subreaper failed", "target", target, "error", err)
		return
	}
	e.isSubreaper = target
}

// processSignals is the main loop: it blocks on the signal channel,
// handling each delivered signal, until every tracked container has
// exited or the escape hatch fires.
func (e *Executor) processSignals(ctx context.Context) {
	for {
		select {
		case <-e.abrtCh:
			e.logger.Warn("escape-hatch signal received, unwinding")
			return
		case <-ctx.Done():
			return
		case sig, ok := <-e.sigCh:
			if !ok {
				return
			}
			e.handleSignal(sig)
		}

		if e.allContainersExited() {
			e.mu.Lock()
			e.closing = true
			e.mu.Unlock()
			return
		}
	}
}

func (e *Executor) handleSignal(sig os.Signal) {
	switch sig {
	case syscall.SIGCHLD:
		e.reap()
	case syscall.SIGWINCH:
		e.resizeAllTTYs()
	default:
		for _, fwd := range forwardedSignals {
			if sig == fwd {
				e.sendSignal(sig.(syscall.Signal))
				return
			}
		}
	}
}

// sendSignal relays sig to every still-running container's init process.
func (e *Executor) sendSignal(sig syscall.Signal) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for pid, h := range e.containers {
		if _, done := h.Returncode(); !done {
			unix.Kill(pid, sig)
		}
	}
}

// reap drains every reapable child with a non-blocking waitpid loop,
// recording returncodes on tracked containers (first writer wins) and on
// the side-pid registry for anything else this process spawned.
func (e *Executor) reap() {
	for {
		pid, ws, err := sysutil.WaitAnyNoHang()
		if err != nil {
			return
		}
		if pid == 0 {
			return
		}

		rc := sysutil.ComputeReturncode(ws)

		e.mu.Lock()
		h, tracked := e.containers[pid]
		if !tracked {
			if slot, known := e.otherPids[pid]; known && slot == nil {
				v := rc
				e.otherPids[pid] = &v
			}
		}
		e.mu.Unlock()

		if tracked {
			h.SetReturncode(rc)
		}
	}
}

func (e *Executor) allContainersExited() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, h := range e.containers {
		if _, done := h.Returncode(); !done {
			return false
		}
	}
	return true
}
