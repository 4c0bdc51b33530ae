package sysutil

import (
	"fmt"
	"os"
)

// EnsureDir creates path (and parents) with mode if missing, optionally
// chowning it to uid/gid. uid/gid of nil leaves ownership untouched.
func EnsureDir(path string, mode os.FileMode, uid, gid *int) error {
	if err := os.MkdirAll(path, mode); err != nil {
		return fmt.Errorf("mkdir %s: %w", path, err)
	}
	if uid != nil && gid != nil {
		if err := os.Chown(path, *uid, *gid); err != nil {
			return fmt.Errorf("chown %s: %w", path, err)
		}
	}
	return nil
}

// EnsureDirs creates a batch of directories in order, stopping at the
// first failure.
func EnsureDirs(paths []string, mode os.FileMode, uid, gid *int) error {
	for _, p := range paths {
		if err := EnsureDir(p, mode, uid, gid); err != nil {
			return err
		}
	}
	return nil
}

// EnsureFile creates path with mode if missing (truncating nothing if it
// already exists), optionally chowning it to uid/gid.
func EnsureFile(path string, mode os.FileMode, uid, gid *int) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, mode)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if uid != nil && gid != nil {
		if err := f.Chown(*uid, *gid); err != nil {
			return fmt.Errorf("chown %s: %w", path, err)
		}
	}
	return nil
}
