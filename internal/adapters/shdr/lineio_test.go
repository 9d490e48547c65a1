package shdr

import (
	"errors"
	"net"
	"strings"
	"testing"
	"time"
)

func TestLineReaderStripsTrailingWhitespace(t *testing.T) {
	r := newLineReader(strings.NewReader("hello|world \t\r\nnext\r\n"))

	frame, err := r.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if frame != "hello|world" {
		t.Fatalf("frame = %q, want %q", frame, "hello|world")
	}

	frame, err = r.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if frame != "next" {
		t.Fatalf("frame = %q, want %q", frame, "next")
	}
}

func TestLineReaderPeerClosed(t *testing.T) {
	r := newLineReader(strings.NewReader(""))
	if _, err := r.ReadFrame(); !errors.Is(err, ErrPeerClosed) {
		t.Fatalf("err = %v, want ErrPeerClosed", err)
	}
}

func TestLineReaderFinalFrameWithoutNewline(t *testing.T) {
	r := newLineReader(strings.NewReader("tail"))
	frame, err := r.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if frame != "tail" {
		t.Fatalf("frame = %q, want %q", frame, "tail")
	}
}

func TestLineReaderFrameTooLong(t *testing.T) {
	r := newLineReader(strings.NewReader(strings.Repeat("x", maxFrameLen+1)))
	if _, err := r.ReadFrame(); !errors.Is(err, ErrFrameTooLong) {
		t.Fatalf("err = %v, want ErrFrameTooLong", err)
	}
}

func TestWatchdogConnTimesOutWhenSilent(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	wc := newWatchdogConn(client, 50*time.Millisecond)
	buf := make([]byte, 1)
	_, err := wc.Read(buf)
	var nerr net.Error
	if !errors.As(err, &nerr) || !nerr.Timeout() {
		t.Fatalf("err = %v, want timeout", err)
	}
}

func TestWatchdogConnRearmsOnBytes(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	go func() {
		for i := 0; i < 5; i++ {
			time.Sleep(30 * time.Millisecond)
			server.Write([]byte("x"))
		}
	}()

	wc := newWatchdogConn(client, 80*time.Millisecond)
	buf := make([]byte, 1)
	for i := 0; i < 5; i++ {
		if _, err := wc.Read(buf); err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
	}
}
