package runc

import (
	"context"
	stderrors "errors"
	"os"
	"os/exec"

	"darkwing/errors"
)

// Exec runs `runtime exec [-t] [--cwd DIR] ID ARGS...` against an already
// running container, inheriting this process's own stdio, and returns the
// invoked process's exit code. Unlike Create/Start/Delete/Kill, a non-zero
// exit is not itself an invocation failure: the exit code is the caller's
// signal, not ours.
func (r *Runner) Exec(ctx context.Context, id string, args []string, tty bool, cwd string) (int, error) {
	full := []string{"exec"}
	if tty {
		full = append(full, "-t")
	}
	if cwd != "" {
		full = append(full, "--cwd", cwd)
	}
	full = append(full, id)
	full = append(full, args...)

	cmd := r.command(ctx, full...)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if stderrors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return 1, &errors.ContainerError{
		Op: "exec", Container: id, Err: err, Kind: errors.ErrRuntimeInvocation,
	}
}
