package sysutil

import "golang.org/x/sys/unix"

// ComputeReturncode converts a waitpid status word into the supervisor's
// returncode convention: the process's exit code if it exited normally, the
// negated signal number if it was killed by a signal, or the (positive)
// stop signal number if it was merely stopped.
func ComputeReturncode(status unix.WaitStatus) int {
	switch {
	case status.Signaled():
		return -int(status.Signal())
	case status.Stopped():
		return int(status.StopSignal())
	default:
		return status.ExitStatus()
	}
}

// WaitAnyNoHang performs a single non-blocking waitpid(-1, WNOHANG), as used
// by the subreaper's drain loop. pid is 0 if no exited child was waiting;
// err is unix.ECHILD once there are no more children at all.
func WaitAnyNoHang() (pid int, status unix.WaitStatus, err error) {
	var ws unix.WaitStatus
	p, err := unix.Wait4(-1, &ws, unix.WNOHANG, nil)
	if err != nil {
		return 0, ws, err
	}
	return p, ws, nil
}
