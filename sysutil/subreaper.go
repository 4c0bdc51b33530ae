// Package sysutil provides thin, directly-testable wrappers around the
// handful of Linux primitives the executor's event loop is built on:
// subreaper mode, terminal size/raw-mode, waitpid status decoding, and
// ownership-aware directory/file creation.
package sysutil

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// prctl option numbers for subreaper control (linux/prctl.h); not exported
// by golang.org/x/sys/unix under these names on all architectures, so they
// are pinned here.
const (
	prSetChildSubreaper = 36
	prGetChildSubreaper = 37
)

// SetSubreaper marks (or unmarks) the calling process as a child subreaper:
// orphaned descendants reparent to it instead of PID 1.
func SetSubreaper(on bool) error {
	var arg uintptr
	if on {
		arg = 1
	}
	return unix.Prctl(prSetChildSubreaper, arg, 0, 0, 0)
}

// IsSubreaper reports whether the calling process is currently a subreaper.
func IsSubreaper() (bool, error) {
	var out int
	if err := unix.Prctl(prGetChildSubreaper, uintptr(unsafe.Pointer(&out)), 0, 0, 0); err != nil {
		return false, err
	}
	return out != 0, nil
}
