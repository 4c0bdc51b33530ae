package rundir

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"darkwing/errors"
)

// writePidFileAtomic writes pid as decimal ASCII to path via a temp file in
// the same directory plus rename, so a crash never leaves a half-written
// pidfile/lockfile behind.
func writePidFileAtomic(path string, pid int) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".pid-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp pidfile: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.WriteString(strconv.Itoa(pid)); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp pidfile: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp pidfile: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp pidfile: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("chmod temp pidfile: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename pidfile into place: %w", err)
	}

	success = true
	return nil
}

// readPidFile parses a decimal pid out of path, tolerating a trailing
// newline.
func readPidFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse pidfile %s: %w", path, err)
	}
	return pid, nil
}

// processAlive reports whether pid refers to a live process, using
// kill(pid, 0) semantics.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || err == unix.EPERM
}

// WritePidfile records the container's init pid.
func (d *Dir) WritePidfile(pid int) error {
	return writePidFileAtomic(d.PidfilePath(), pid)
}

// ReadPidfile returns the recorded init pid, or an error if none is on
// disk.
func (d *Dir) ReadPidfile() (int, error) {
	return readPidFile(d.PidfilePath())
}

// RemovePidfile removes the pidfile, ignoring a not-exist error.
func (d *Dir) RemovePidfile() error {
	if err := os.Remove(d.PidfilePath()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// AcquireLock claims the lockfile for selfPid. If an existing lockfile
// names a live pid other than selfPid, it returns ErrLockHeld (a
// StateConflictError) without touching the file. A lockfile naming a dead
// pid is treated as stale and silently reclaimed.
func (d *Dir) AcquireLock(selfPid int) error {
	path := d.LockfilePath()

	if existing, err := readPidFile(path); err == nil {
		if existing != selfPid && processAlive(existing) {
			return errors.WrapWithDetail(nil, errors.ErrLockHeld.Kind, "acquire lock",
				fmt.Sprintf("lockfile %s already in use by live pid %d", path, existing))
		}
		// Stale: pid is dead or is ourselves already, reclaim below.
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("read lockfile %s: %w", path, err)
	}

	return writePidFileAtomic(path, selfPid)
}

// ReleaseLock removes the lockfile, ignoring a not-exist error.
func (d *Dir) ReleaseLock() error {
	if err := os.Remove(d.LockfilePath()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
