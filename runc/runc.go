// Package runc drives the OCI runtime subprocess (runc or a compatible
// binary): create/start/state/delete, the console-socket handshake for
// TTY containers, and parent/child socketpair wiring for non-TTY ones.
package runc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"

	specs "github.com/opencontainers/runtime-spec/specs-go"

	"darkwing/errors"
)

// Runner is a thin client around the runtime's CLI, scoped to one state
// root directory.
type Runner struct {
	// Path is the runtime binary; defaults to "runc" on the PATH.
	Path string
	// Root is passed as --root: the runtime's private state directory.
	Root string
	Debug bool
}

func (r *Runner) binary() string {
	if r.Path != "" {
		return r.Path
	}
	return "runc"
}

func (r *Runner) globalArgs() []string {
	var out []string
	if r.Root != "" {
		out = append(out, "--root", r.Root)
	}
	if r.Debug {
		out = append(out, "--debug")
	}
	return out
}

func (r *Runner) command(ctx context.Context, args ...string) *exec.Cmd {
	full := append(r.globalArgs(), args...)
	return exec.CommandContext(ctx, r.binary(), full...)
}

// CreateOpts carries the per-call options for Create.
type CreateOpts struct {
	PidFile       string
	ConsoleSocket string
	// Stdin/Stdout/Stderr, when set, are the child-side socketpair ends
	// handed to the runtime's own process for the non-TTY case; the
	// container's init process inherits them across the runtime's
	// create/clone.
	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File
}

// Create runs `runtime create --bundle BUNDLE [--console-socket SOCK]
// --pid-file PIDFILE ID`, leaving a detached init process on success.
func (r *Runner) Create(ctx context.Context, id, bundle string, opts CreateOpts) error {
	args := []string{"create", "--bundle", bundle}
	if opts.PidFile != "" {
		args = append(args, "--pid-file", opts.PidFile)
	}
	if opts.ConsoleSocket != "" {
		args = append(args, "--console-socket", opts.ConsoleSocket)
	}
	args = append(args, id)

	cmd := r.command(ctx, args...)
	if opts.Stdin != nil {
		cmd.Stdin = opts.Stdin
	}
	if opts.Stdout != nil {
		cmd.Stdout = opts.Stdout
	}
	if opts.Stderr != nil {
		cmd.Stderr = opts.Stderr
	}
	return r.runOrError(cmd, "create", id)
}

// Start runs `runtime start ID`.
func (r *Runner) Start(ctx context.Context, id string) error {
	return r.runOrError(r.command(ctx, "start", id), "start", id)
}

// Delete runs `runtime delete ID` (force adds --force, for killing a
// still-running container's state out from under it).
func (r *Runner) Delete(ctx context.Context, id string, force bool) error {
	args := []string{"delete"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, id)
	return r.runOrError(r.command(ctx, args...), "delete", id)
}

// Kill runs `runtime kill [--all] ID SIG`. all delivers sig to every
// process in the container's cgroup rather than just its init process.
func (r *Runner) Kill(ctx context.Context, id string, sig int, all bool) error {
	args := []string{"kill"}
	if all {
		args = append(args, "--all")
	}
	args = append(args, id, fmt.Sprintf("%d", sig))
	return r.runOrError(r.command(ctx, args...), "kill", id)
}

// State runs `runtime state ID` and parses the OCI state document from
// stdout.
func (r *Runner) State(ctx context.Context, id string) (*specs.State, error) {
	cmd := r.command(ctx, "state", id)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, &errors.ContainerError{
			Op: "state", Container: id, Err: err,
			Kind: errors.ErrRuntimeInvocation, Detail: stderrText(stderr),
		}
	}

	var st specs.State
	if err := json.Unmarshal(stdout.Bytes(), &st); err != nil {
		return nil, fmt.Errorf("parse state output for %s: %w", id, err)
	}
	return &st, nil
}

func (r *Runner) runOrError(cmd *exec.Cmd, op, id string) error {
	var stderr bytes.Buffer
	if cmd.Stderr == nil {
		cmd.Stderr = &stderr
	}
	if err := cmd.Run(); err != nil {
		return &errors.ContainerError{
			Op: op, Container: id, Err: err,
			Kind: errors.ErrRuntimeInvocation, Detail: stderrText(stderr),
		}
	}
	return nil
}

func stderrText(buf bytes.Buffer) string {
	s := buf.String()
	if s == "" {
		return "runtime invocation failed"
	}
	return s
}
