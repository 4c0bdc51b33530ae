package cmd

import (
	"fmt"
	"os"
	"os/exec"

	stderrors "errors"

	"darkwing/config"
	"darkwing/container"
	"darkwing/errors"
	"darkwing/executor"
	"darkwing/rundir"
	"darkwing/runc"
)

// loadContext loads the named context's record, searching the default
// search path for the calling uid's privilege mode.
func loadContext() (*config.Context, error) {
	uid := os.Geteuid()
	rootless := !config.ProbablyRoot()
	dirs, err := config.SearchDirs(uid, rootless)
	if err != nil {
		return nil, err
	}
	return config.LoadContext(globalContext, dirs)
}

// loadHandle loads the named context and container config and builds the
// in-memory handle the Executor drives. The handle starts with no runtime
// root; CreateContainer fills it in from the runtime dir it creates.
func loadHandle(containerID string) (*config.Context, *container.Handle, error) {
	if err := container.ValidateID(containerID); err != nil {
		return nil, nil, err
	}

	cctx, err := loadContext()
	if err != nil {
		return nil, nil, err
	}

	uid := os.Geteuid()
	rootless := !config.ProbablyRoot()
	dirs, err := config.SearchDirs(uid, rootless)
	if err != nil {
		return nil, nil, err
	}

	cc, err := config.LoadContainer(containerID, cctx.Name, dirs)
	if err != nil {
		return nil, nil, err
	}

	h := container.New(containerID, cc.Data.Storage.Container, "", cc)
	return cctx, h, nil
}

// ownerIDs resolves cctx's rootless owner uid/gid pair, nil for a rootful
// context (where the runtime dir is owned by whoever we're running as).
func ownerIDs(cctx *config.Context) (uid, gid *int) {
	if cctx.Rootless() {
		u, g := cctx.Data.User.UID, cctx.Data.User.GID
		return &u, &g
	}
	return nil, nil
}

func runtimeBaseFor(cctx *config.Context) string {
	if globalRoot != "" {
		return globalRoot
	}
	return cctx.Data.Runtime.Base
}

// runtimeRootFor re-derives a container's runtime dir without recreating
// it and returns the state root its runtime invocations should use as
// --root. Standalone start/state/kill/delete invocations, run as separate
// processes from the one that called create, use this to find the same
// directory create left behind.
func runtimeRootFor(cctx *config.Context, handle *container.Handle) (string, error) {
	uid, gid := ownerIDs(cctx)
	dir, err := rundir.Create(
		runtimeBaseFor(cctx), cctx.Name, handle.ID,
		handle.Config.Data.Secrets.Target, handle.Config.Data.DNS.Hostname,
		uid, gid, false,
	)
	if err != nil {
		return "", err
	}
	return dir.RuncStateRoot(), nil
}

// newExecutor builds an Executor scoped to cctx, honoring a --root override
// and the context's own rootless owner uid/gid.
func newExecutor(cctx *config.Context) *executor.Executor {
	ownerUID, ownerGID := ownerIDs(cctx)
	opts := executor.Options{
		RuntimeBase: runtimeBaseFor(cctx),
		ContextName: cctx.Name,
		OwnerUID:    ownerUID,
		OwnerGID:    ownerGID,
		Runner:      &runc.Runner{Debug: globalDebug},
	}
	return executor.New(opts, nil)
}

// newExecutorWithRoot is newExecutor for a container whose runtime dir
// already exists: the Runner is pre-pointed at its state root, since
// there's no CreateContainer call in this process to set it.
func newExecutorWithRoot(cctx *config.Context, root string) *executor.Executor {
	ownerUID, ownerGID := ownerIDs(cctx)
	opts := executor.Options{
		RuntimeBase: runtimeBaseFor(cctx),
		ContextName: cctx.Name,
		OwnerUID:    ownerUID,
		OwnerGID:    ownerGID,
		Runner:      &runc.Runner{Root: root, Debug: globalDebug},
	}
	return executor.New(opts, nil)
}

// reportFatal prints the one-line "Error for container NAME: MESSAGE" form
// and returns the process exit code: the runtime's own exit code for an
// ErrRuntimeInvocation wrapping an *exec.ExitError, 1 otherwise.
func reportFatal(containerID string, err error) int {
	fmt.Fprintf(os.Stderr, "Error for container %q: %v\n", containerID, err)
	return exitCodeFor(err)
}

// exitOnErr is reportFatal plus the process exit, for RunE bodies that need
// the runtime's own exit code surfaced rather than cobra's generic handling.
func exitOnErr(containerID string, err error) {
	if err != nil {
		os.Exit(reportFatal(containerID, err))
	}
}

func exitCodeFor(err error) int {
	var cerr *errors.ContainerError
	if stderrors.As(err, &cerr) {
		var exitErr *exec.ExitError
		if stderrors.As(cerr.Err, &exitErr) {
			return exitErr.ExitCode()
		}
	}
	return 1
}
