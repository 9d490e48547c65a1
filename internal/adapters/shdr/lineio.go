package shdr

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"
)

// maxFrameLen bounds a single SHDR frame. Longer lines indicate a runaway
// peer and tear the session down.
const maxFrameLen = 1 << 20

var (
	// ErrPeerClosed means the data source closed the connection.
	ErrPeerClosed = errors.New("peer closed connection")
	// ErrFrameTooLong means a line exceeded maxFrameLen without a newline.
	ErrFrameTooLong = errors.New("frame exceeds maximum length")
)

// watchdogConn wraps a TCP connection and arms the receive watchdog before
// every read. Any bytes arriving push the deadline out again, so the deadline
// only expires when the peer goes completely silent for the full limit.
type watchdogConn struct {
	conn net.Conn

	mu    sync.Mutex
	limit time.Duration
}

func newWatchdogConn(conn net.Conn, limit time.Duration) *watchdogConn {
	return &watchdogConn{conn: conn, limit: limit}
}

// SetLimit changes the watchdog window. The new limit takes effect on the
// next read.
func (w *watchdogConn) SetLimit(limit time.Duration) {
	w.mu.Lock()
	w.limit = limit
	w.mu.Unlock()
}

func (w *watchdogConn) Limit() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.limit
}

func (w *watchdogConn) Read(p []byte) (int, error) {
	if err := w.conn.SetReadDeadline(time.Now().Add(w.Limit())); err != nil {
		return 0, err
	}
	return w.conn.Read(p)
}

// lineReader assembles '\n'-delimited frames from the socket.
type lineReader struct {
	r *bufio.Reader
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{r: bufio.NewReaderSize(r, 64<<10)}
}

// ReadFrame returns the next frame with the trailing newline and any tail
// run of " \t\n\r" stripped.
func (l *lineReader) ReadFrame() (string, error) {
	var total int
	var b strings.Builder
	for {
		chunk, err := l.r.ReadSlice('\n')
		total += len(chunk)
		if total > maxFrameLen {
			return "", ErrFrameTooLong
		}
		b.Write(chunk)
		if err == nil {
			return strings.TrimRight(b.String(), " \t\n\r"), nil
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if errors.Is(err, io.EOF) {
			if b.Len() > 0 {
				return strings.TrimRight(b.String(), " \t\n\r"), nil
			}
			return "", ErrPeerClosed
		}
		return "", err
	}
}

// writeLine sends an already-formatted command line followed by '\n'.
func writeLine(conn net.Conn, line string) error {
	if _, err := conn.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("write line: %w", err)
	}
	return nil
}
