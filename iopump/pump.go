// Package iopump shuttles bytes between a container's stdio fds and the
// host's, one pump per direction, using select(2)-based readiness exactly
// the way the supervisor's Python ancestor drove its io threads: blocking,
// best-effort-cleanup, EAGAIN/EINTR-tolerant.
package iopump

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"darkwing/errors"
	"darkwing/sysutil"
)

const (
	defaultBufSize = 8192
	halfBufSize    = defaultBufSize / 2
	pipeBufSize    = 4096
)

// Pump moves bytes from a read fd to a write fd in its own goroutine. It is
// built, Start()ed, and later Stop()ped/Wait()ed by its owner (typically a
// container handle multiplexing three of these: stdin, stdout, stderr).
type Pump struct {
	readFD  int
	writeFD int

	ttyEOFRequested  bool
	pipeEOFRequested bool
	selectTimeout    time.Duration

	stop chan struct{}
	done chan struct{}

	mu      sync.Mutex
	stopped bool
	err     error
}

// New builds a pump reading from readFD and writing to writeFD. ttyEOF
// requests a terminal VEOF byte be written to writeFD when the pump exits
// (on every exit path, including Stop and errors), if writeFD is in fact a
// tty; pipeEOF requests write-end-closed detection via
// readability, if writeFD is in fact a FIFO or socket. selectTimeout bounds
// how promptly Stop() is noticed.
func New(readFD, writeFD int, ttyEOF, pipeEOF bool, selectTimeout time.Duration) *Pump {
	return &Pump{
		readFD:           readFD,
		writeFD:          writeFD,
		ttyEOFRequested:  ttyEOF,
		pipeEOFRequested: pipeEOF,
		selectTimeout:    selectTimeout,
		stop:             make(chan struct{}),
		done:             make(chan struct{}),
	}
}

// Start launches the pump's goroutine. It must be called at most once.
func (p *Pump) Start() {
	go p.run()
}

// Stop requests early termination; it is safe to call multiple times and
// from any goroutine.
func (p *Pump) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.stopped {
		p.stopped = true
		close(p.stop)
	}
}

// Wait blocks until the pump's goroutine has exited and returns its
// terminal error, if any (nil on a clean EOF-driven exit).
func (p *Pump) Wait() error {
	<-p.done
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Done reports a channel closed once the pump has finished.
func (p *Pump) Done() <-chan struct{} { return p.done }

func (p *Pump) run() {
	defer close(p.done)

	readFD := p.readFD
	writeFD := p.writeFD
	bufSize := halfBufSize

	ttyEOF := false
	pipeEOF := false

	if p.ttyEOFRequested && sysutil.IsTerminal(writeFD) {
		ttyEOF = true
	} else if p.pipeEOFRequested {
		if isFIFOOrSocket(writeFD) {
			pipeEOF = true
			if pipeBufSize < bufSize {
				bufSize = pipeBufSize
			}
		}
	}

	buf := make([]byte, 0, bufSize)
	var lastByte byte
	haveLastByte := false
	var runErr error

	readOpen := readFD >= 0

loop:
	for readOpen || len(buf) > 0 {
		select {
		case <-p.stop:
			break loop
		default:
		}

		var rset, wset unix.FdSet
		maxFD := 0
		wantRead := readOpen && len(buf) < bufSize
		wantWrite := len(buf) > 0

		if wantRead {
			fdSet(&rset, readFD)
			if readFD > maxFD {
				maxFD = readFD
			}
		}
		if wantWrite {
			fdSet(&wset, writeFD)
			if writeFD > maxFD {
				maxFD = writeFD
			}
		}
		if !wantRead && !wantWrite {
			break loop
		}
		if pipeEOF {
			fdSet(&rset, writeFD)
			if writeFD > maxFD {
				maxFD = writeFD
			}
		}

		timeout := unix.NsecToTimeval(p.selectTimeout.Nanoseconds())
		n, err := unix.Select(maxFD+1, &rset, &wset, nil, &timeout)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			runErr = fmt.Errorf("select: %w", err)
			break loop
		}
		if n == 0 {
			continue
		}

		if pipeEOF && fdIsSet(&rset, writeFD) {
			runErr = errors.New(errors.ErrTransientIO, "iopump", "write end closed (broken pipe)")
			break loop
		}

		if wantRead && fdIsSet(&rset, readFD) {
			room := bufSize - len(buf)
			tmp := make([]byte, room)
			nread, rerr := unix.Read(readFD, tmp)
			switch {
			case rerr == unix.EAGAIN || rerr == unix.EINTR:
				// no-op, try again next iteration
			case rerr == unix.EIO:
				// treat as EOF on the source
				unix.Close(readFD)
				readFD = -1
				readOpen = false
			case rerr != nil:
				runErr = fmt.Errorf("read: %w", rerr)
				break loop
			case nread == 0:
				unix.Close(readFD)
				readFD = -1
				readOpen = false
			default:
				buf = append(buf, tmp[:nread]...)
			}
		}

		if wantWrite && fdIsSet(&wset, writeFD) {
			chunk := buf
			if len(chunk) > bufSize {
				chunk = chunk[:bufSize]
			}
			nwritten, werr := unix.Write(writeFD, chunk)
			if werr == unix.EAGAIN || werr == unix.EINTR {
				nwritten = 0
			} else if werr != nil {
				runErr = fmt.Errorf("write: %w", werr)
				break loop
			}
			if nwritten > 0 {
				lastByte = buf[nwritten-1]
				haveLastByte = true
				buf = buf[nwritten:]
			}
		}
	}

	buf = buf[:0]

	if readOpen {
		unix.Close(readFD)
	}
	if ttyEOF {
		sendTTYEOF(writeFD, lastByte, haveLastByte)
	}
	unix.Close(writeFD)

	p.mu.Lock()
	p.err = runErr
	p.mu.Unlock()
}

func isFIFOOrSocket(fd int) bool {
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return false
	}
	mode := st.Mode & unix.S_IFMT
	return mode == unix.S_IFIFO || mode == unix.S_IFSOCK
}

// sendTTYEOF writes the terminal's VEOF character to fd, unless the last
// byte written was itself already that VEOF character. Best
// effort: errors are swallowed, matching the pump's overall cleanup policy.
func sendTTYEOF(fd int, lastByte byte, haveLastByte bool) {
	eof, err := sysutil.EOFChar(fd)
	if err != nil {
		return
	}
	if haveLastByte && lastByte == eof {
		return
	}
	unix.Write(fd, []byte{eof})
}

func fdSet(set *unix.FdSet, fd int) {
	set.Bits[fd/64] |= 1 << (uint(fd) % 64)
}

func fdIsSet(set *unix.FdSet, fd int) bool {
	return set.Bits[fd/64]&(1<<(uint(fd)%64)) != 0
}
