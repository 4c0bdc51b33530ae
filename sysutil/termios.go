package sysutil

import (
	"fmt"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// RawState is a saved terminal mode, opaque to callers beyond Restore.
type RawState struct {
	state *term.State
}

// SetRaw puts fd's terminal into raw mode, returning the previous state so
// it can be restored later. fd must refer to a terminal.
func SetRaw(fd int) (*RawState, error) {
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("set raw mode: %w", err)
	}
	return &RawState{state: state}, nil
}

// Restore restores a terminal to the state captured by SetRaw.
func Restore(fd int, saved *RawState) error {
	if saved == nil {
		return nil
	}
	return term.Restore(fd, saved.state)
}

// IsTerminal reports whether fd refers to a terminal.
func IsTerminal(fd int) bool {
	return term.IsTerminal(fd)
}

// GetSize returns the terminal's current column/row count.
func GetSize(fd int) (cols, rows int, err error) {
	return term.GetSize(fd)
}

// EOFChar returns the terminal's configured VEOF control character
// (normally Ctrl-D), used to synthesize EOF on a pty when a pipe-backed
// input stream closes.
func EOFChar(fd int) (byte, error) {
	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return 0, fmt.Errorf("get termios: %w", err)
	}
	return t.Cc[unix.VEOF], nil
}

// SetWinsize pushes a new terminal size to fd via TIOCSWINSZ.
func SetWinsize(fd int, cols, rows int) error {
	ws := &unix.Winsize{Row: uint16(rows), Col: uint16(cols)}
	return unix.IoctlSetWinsize(fd, unix.TIOCSWINSZ, ws)
}

// GetWinsize reads fd's current terminal size via TIOCGWINSZ.
func GetWinsize(fd int) (cols, rows int, err error) {
	ws, err := unix.IoctlGetWinsize(fd, unix.TIOCGWINSZ)
	if err != nil {
		return 0, 0, fmt.Errorf("get winsize: %w", err)
	}
	return int(ws.Col), int(ws.Row), nil
}

// DupCloexec duplicates fd onto a fresh close-on-exec descriptor, the way
// a second independent view onto the same underlying pty/file is opened
// for separate stdout/stderr file objects.
func DupCloexec(fd int) (int, error) {
	newfd, err := unix.FcntlInt(uintptr(fd), unix.F_DUPFD_CLOEXEC, 0)
	if err != nil {
		return -1, fmt.Errorf("dup fd %d: %w", fd, err)
	}
	return newfd, nil
}
