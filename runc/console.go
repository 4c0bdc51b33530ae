package runc

import (
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"darkwing/errors"
)

// ListenConsole opens the Unix-domain listening socket passed to the
// runtime as --console-socket.
func ListenConsole(path string) (*net.UnixListener, error) {
	os.Remove(path)
	l, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, errors.WrapWithDetail(err, errors.ErrChildProtocol, "listen console socket",
			fmt.Sprintf("bind %s", path))
	}
	return l, nil
}

// AcceptConsoleFD accepts exactly one connection on l within timeout and
// extracts the single PTY master fd carried as an SCM_RIGHTS ancillary
// message. The caller owns the returned fd and must close it eventually.
func AcceptConsoleFD(l *net.UnixListener, timeout time.Duration) (int, error) {
	if err := l.SetDeadline(time.Now().Add(timeout)); err != nil {
		return -1, fmt.Errorf("set console accept deadline: %w", err)
	}

	conn, err := l.AcceptUnix()
	if err != nil {
		return -1, errors.WrapWithDetail(err, errors.ErrChildProtocol, "accept console connection",
			"no connection within deadline")
	}
	defer conn.Close()

	buf := make([]byte, 1)
	oob := make([]byte, unix.CmsgSpace(4))
	_, oobn, _, _, err := conn.ReadMsgUnix(buf, oob)
	if err != nil {
		return -1, errors.WrapWithDetail(err, errors.ErrChildProtocol, "read console control message", "recvmsg failed")
	}

	cmsgs, err := unix.ParseSocketControlMessage(oob[:oobn])
	if err != nil {
		return -1, errors.WrapWithDetail(err, errors.ErrChildProtocol, "parse console control message", "malformed cmsg")
	}
	if len(cmsgs) != 1 {
		return -1, errors.New(errors.ErrChildProtocol, "parse console control message",
			fmt.Sprintf("expected 1 control message, got %d", len(cmsgs)))
	}

	fds, err := unix.ParseUnixRights(&cmsgs[0])
	if err != nil {
		return -1, errors.WrapWithDetail(err, errors.ErrChildProtocol, "parse console rights", "not an SCM_RIGHTS message")
	}
	if len(fds) != 1 {
		for _, fd := range fds {
			unix.Close(fd)
		}
		return -1, errors.New(errors.ErrChildProtocol, "parse console rights",
			fmt.Sprintf("expected exactly 1 fd, got %d", len(fds)))
	}

	return fds[0], nil
}
