package shdr

import (
	"bufio"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/masonhieb/shdredge/internal/domain"
	proto "github.com/masonhieb/shdredge/internal/shdr"
)

type staticResolver struct {
	items map[string]*domain.DataItem
}

func (r *staticResolver) ResolveDataItem(device, key string) (*domain.DataItem, bool) {
	d, ok := r.items[key]
	return d, ok
}

func (r *staticResolver) ResolveDevice(prefix string) string { return prefix }

func testMapper(items map[string]*domain.DataItem) *proto.Mapper {
	return proto.NewMapper(&staticResolver{items: items}, nil, slog.Default())
}

func startConnector(t *testing.T, cfg Config, items map[string]*domain.DataItem) (*Connector, chan *domain.Entity) {
	t.Helper()
	conn, err := NewConnector(cfg, testMapper(items), slog.Default())
	if err != nil {
		t.Fatalf("NewConnector: %v", err)
	}
	out := make(chan *domain.Entity, 64)
	if err := conn.Start(out); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { conn.Stop() })
	return conn, out
}

func listen(t *testing.T) (net.Listener, Config) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	port := ln.Addr().(*net.TCPAddr).Port
	return ln, Config{
		Server:            "127.0.0.1",
		Port:              uint16(port),
		LegacyTimeout:     2 * time.Second,
		ReconnectInterval: 50 * time.Millisecond,
	}
}

func acceptWithTimeout(t *testing.T, ln net.Listener) net.Conn {
	t.Helper()
	type result struct {
		conn net.Conn
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		c, err := ln.Accept()
		ch <- result{c, err}
	}()
	select {
	case r := <-ch:
		if r.err != nil {
			t.Fatalf("accept: %v", r.err)
		}
		t.Cleanup(func() { r.conn.Close() })
		return r.conn
	case <-time.After(3 * time.Second):
		t.Fatalf("no connection within 3s")
		return nil
	}
}

func readLineFrom(t *testing.T, conn net.Conn, timeout time.Duration) string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(timeout))
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		t.Fatalf("read line: %v", err)
	}
	return line
}

func TestConnectorSendsInitialPing(t *testing.T) {
	ln, cfg := listen(t)
	startConnector(t, cfg, nil)

	conn := acceptWithTimeout(t, ln)
	if got := readLineFrom(t, conn, time.Second); got != "* PING\n" {
		t.Fatalf("first line = %q, want %q", got, "* PING\n")
	}
}

func TestConnectorStartFailsOnUnresolvableHost(t *testing.T) {
	cfg := Config{Server: "no-such-host.invalid", Port: 7878}
	conn, err := NewConnector(cfg, testMapper(nil), slog.Default())
	if err != nil {
		t.Fatalf("NewConnector: %v", err)
	}
	if err := conn.Start(make(chan *domain.Entity, 1)); err == nil {
		conn.Stop()
		t.Fatalf("Start succeeded for unresolvable host")
	}
}

func TestConnectorHeartbeatsAfterPong(t *testing.T) {
	ln, cfg := listen(t)
	startConnector(t, cfg, nil)

	conn := acceptWithTimeout(t, ln)
	r := bufio.NewReader(conn)

	conn.SetReadDeadline(time.Now().Add(time.Second))
	if line, err := r.ReadString('\n'); err != nil || line != "* PING\n" {
		t.Fatalf("initial line = %q err = %v", line, err)
	}

	if _, err := conn.Write([]byte("* PONG 100\n")); err != nil {
		t.Fatalf("write pong: %v", err)
	}

	// Expect periodic pings at roughly the negotiated frequency. The peer
	// answers each one like a live adapter, which keeps the connector's
	// 2x-frequency receive watchdog from closing the session.
	start := time.Now()
	for i := 0; i < 3; i++ {
		conn.SetReadDeadline(time.Now().Add(time.Second))
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("heartbeat %d: %v", i, err)
		}
		if line != "* PING\n" {
			t.Fatalf("heartbeat %d = %q, want ping", i, line)
		}
		if _, err := conn.Write([]byte("* PONG 100\n")); err != nil {
			t.Fatalf("write pong %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 900*time.Millisecond {
		t.Fatalf("3 heartbeats took %s, expected ~300ms", elapsed)
	}
}

func TestConnectorIgnoresBadPong(t *testing.T) {
	ln, cfg := listen(t)
	startConnector(t, cfg, nil)

	conn := acceptWithTimeout(t, ln)
	r := bufio.NewReader(conn)

	conn.SetReadDeadline(time.Now().Add(time.Second))
	if _, err := r.ReadString('\n'); err != nil {
		t.Fatalf("initial ping: %v", err)
	}

	// 30 minutes and beyond is out of window; the session must stay
	// unheartbeated and send no periodic pings.
	if _, err := conn.Write([]byte("* PONG 1800000\n")); err != nil {
		t.Fatalf("write pong: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(400 * time.Millisecond))
	if line, err := r.ReadString('\n'); err == nil {
		t.Fatalf("unexpected line %q after bad pong", line)
	}
}

func TestConnectorEmitsObservations(t *testing.T) {
	ln, cfg := listen(t)
	items := map[string]*domain.DataItem{
		"Xload": {ID: "Xload", Category: domain.CategorySample},
	}
	_, out := startConnector(t, cfg, items)

	conn := acceptWithTimeout(t, ln)
	readLineFrom(t, conn, time.Second) // initial ping

	if _, err := conn.Write([]byte("2021-01-19T12:00:00.1234Z|Xload|44.6\n")); err != nil {
		t.Fatalf("write frame: %v", err)
	}

	select {
	case e := <-out:
		if !e.IsObservation() {
			t.Fatalf("entity is not an observation")
		}
		obs := e.Observation
		if obs.DataItemID != "Xload" {
			t.Fatalf("data item = %q, want Xload", obs.DataItemID)
		}
		v, ok := obs.Value()
		if !ok || v.Double() != 44.6 {
			t.Fatalf("VALUE = %v ok=%v, want 44.6", v, ok)
		}
		want := time.Date(2021, 1, 19, 12, 0, 0, 123400000, time.UTC)
		if !obs.Timestamp.Equal(want) {
			t.Fatalf("timestamp = %s, want %s", obs.Timestamp, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no entity within 2s")
	}
}

func TestConnectorReceiveTimeoutTriggersReconnect(t *testing.T) {
	ln, cfg := listen(t)
	cfg.LegacyTimeout = 150 * time.Millisecond
	startConnector(t, cfg, nil)

	first := acceptWithTimeout(t, ln)
	readLineFrom(t, first, time.Second)

	// Stay silent; the watchdog should close the session and the connector
	// should dial again after the reconnect interval.
	second := acceptWithTimeout(t, ln)
	if got := readLineFrom(t, second, time.Second); got != "* PING\n" {
		t.Fatalf("second session first line = %q, want ping", got)
	}
}

func TestConnectorReconnectsWhenPeerCloses(t *testing.T) {
	ln, cfg := listen(t)
	startConnector(t, cfg, nil)

	first := acceptWithTimeout(t, ln)
	readLineFrom(t, first, time.Second)
	first.Close()

	second := acceptWithTimeout(t, ln)
	if got := readLineFrom(t, second, time.Second); got != "* PING\n" {
		t.Fatalf("second session first line = %q, want ping", got)
	}
}

func TestConnectorForwardsProtocolCommands(t *testing.T) {
	ln, cfg := listen(t)
	connr, err := NewConnector(cfg, testMapper(nil), slog.Default())
	if err != nil {
		t.Fatalf("NewConnector: %v", err)
	}
	got := make(chan string, 1)
	connr.OnProtocolCommand = func(line string) { got <- line }
	if err := connr.Start(make(chan *domain.Entity, 1)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { connr.Stop() })

	conn := acceptWithTimeout(t, ln)
	readLineFrom(t, conn, time.Second)

	if _, err := conn.Write([]byte("* shdrVersion: 2.0\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case line := <-got:
		if line != "* shdrVersion: 2.0" {
			t.Fatalf("command = %q", line)
		}
	case <-time.After(time.Second):
		t.Fatalf("protocol command not forwarded")
	}
}

func TestParsePongWindow(t *testing.T) {
	cases := []struct {
		line string
		want time.Duration
		ok   bool
	}{
		{"* PONG 1000", time.Second, true},
		{"* PONG 1", time.Millisecond, true},
		{"* PONG 1799999", 1799999 * time.Millisecond, true},
		{"* PONG 1800000", 0, false},
		{"* PONG 0", 0, false},
		{"* PONG", 0, false},
		{"* PONG abc", 0, false},
	}
	for _, tc := range cases {
		got, err := parsePong(tc.line)
		if tc.ok != (err == nil) {
			t.Fatalf("parsePong(%q) err = %v, want ok=%v", tc.line, err, tc.ok)
		}
		if tc.ok && got != tc.want {
			t.Fatalf("parsePong(%q) = %s, want %s", tc.line, got, tc.want)
		}
	}
}
