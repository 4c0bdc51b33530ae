package runc

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// StdioPair is one socketpair split into the end kept by the supervisor
// and the end handed to the runtime's own create process, which the
// container's init process inherits.
type StdioPair struct {
	Parent *os.File
	Child  *os.File
}

// NewStdioSocketpairs builds the three socketpairs (stdin, stdout, stderr)
// used to wire a non-TTY container's streams through the runtime's create
// subprocess.
func NewStdioSocketpairs() (stdin, stdout, stderr StdioPair, err error) {
	pairs := make([]StdioPair, 0, 3)
	defer func() {
		if err != nil {
			for _, p := range pairs {
				p.Parent.Close()
				p.Child.Close()
			}
		}
	}()

	for i := 0; i < 3; i++ {
		fds, serr := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
		if serr != nil {
			err = fmt.Errorf("socketpair: %w", serr)
			return
		}
		pairs = append(pairs, StdioPair{
			Parent: os.NewFile(uintptr(fds[0]), "stdio-parent"),
			Child:  os.NewFile(uintptr(fds[1]), "stdio-child"),
		})
	}

	return pairs[0], pairs[1], pairs[2], nil
}

// Close closes both ends of the pair, tolerating either already being
// closed.
func (p StdioPair) Close() {
	p.Parent.Close()
	p.Child.Close()
}
