// Package shdr maintains TCP sessions to SHDR data sources: connect and
// reconnect, PING/PONG heartbeat negotiation, the receive watchdog, and the
// hand-off of received frames to the token mapper.
package shdr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/masonhieb/shdredge/internal/domain"
	"github.com/masonhieb/shdredge/internal/ports"
	proto "github.com/masonhieb/shdredge/internal/shdr"
)

const (
	minHeartbeat = time.Millisecond
	maxHeartbeat = 30 * time.Minute
)

// Config captures the runtime details required to open an SHDR session.
type Config struct {
	Server            string        `yaml:"server"`
	Port              uint16        `yaml:"port"`
	Device            string        `yaml:"device"`
	LegacyTimeout     time.Duration `yaml:"legacy_timeout"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
	RealTime          bool          `yaml:"real_time"`
}

func (c *Config) ApplyDefaults() {
	if c.LegacyTimeout <= 0 {
		c.LegacyTimeout = 10 * time.Second
	}
	if c.ReconnectInterval <= 0 {
		c.ReconnectInterval = 10 * time.Second
	}
}

func (c *Config) Validate() error {
	if c.Server == "" {
		return errors.New("server is required")
	}
	if c.Port == 0 {
		return errors.New("port is required")
	}
	return nil
}

// Connector owns the session lifecycle for one upstream data source. It
// implements ports.Collector: Start dials and keeps retrying forever; frames
// flow through the mapper and out on the entity channel.
type Connector struct {
	cfg    Config
	mapper *proto.Mapper
	log    *slog.Logger
	now    func() time.Time

	// OnProtocolCommand receives '*'-prefixed lines other than PONG. Set
	// before Start.
	OnProtocolCommand func(line string)

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewConnector(cfg Config, mapper *proto.Mapper, log *slog.Logger) (*Connector, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if mapper == nil {
		return nil, errors.New("mapper is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Connector{
		cfg:    cfg,
		mapper: mapper,
		log:    log.With("server", cfg.Server, "port", cfg.Port),
		now:    time.Now,
	}, nil
}

// Start resolves the upstream address and launches the session loop. Name
// resolution failure is the only error surfaced to the caller; everything
// after that is retried forever at the configured interval.
func (c *Connector) Start(out chan<- *domain.Entity) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return fmt.Errorf("shdr connector already started")
	}
	c.mu.Unlock()

	if _, err := net.LookupHost(c.cfg.Server); err != nil {
		return fmt.Errorf("resolve %s: %w", c.cfg.Server, err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	c.mu.Lock()
	c.cancel = cancel
	c.started = true
	c.mu.Unlock()

	c.wg.Add(1)
	go c.run(ctx, out)
	return nil
}

func (c *Connector) Stop() error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return nil
	}
	cancel := c.cancel
	c.started = false
	c.cancel = nil
	c.mu.Unlock()

	cancel()
	c.wg.Wait()
	return nil
}

func (c *Connector) run(ctx context.Context, out chan<- *domain.Entity) {
	defer c.wg.Done()

	addr := net.JoinHostPort(c.cfg.Server, strconv.Itoa(int(c.cfg.Port)))
	for {
		if ctx.Err() != nil {
			return
		}

		err := c.session(ctx, addr, out)
		if ctx.Err() != nil {
			return
		}
		c.log.Warn("session ended, reconnecting", "err", err,
			"retry_in", c.cfg.ReconnectInterval)

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.cfg.ReconnectInterval):
		}
	}
}

// session runs one connection to completion. Returning always means the
// socket is closed; the caller decides whether to reconnect.
func (c *Connector) session(ctx context.Context, addr string, out chan<- *domain.Entity) error {
	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connect %s: %w", addr, err)
	}
	defer conn.Close()

	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
		_ = tcp.SetLinger(-1)
		_ = tcp.SetKeepAlive(true)
	}

	// Unblock the read loop when the connector is stopped.
	sessionDone := make(chan struct{})
	defer close(sessionDone)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-sessionDone:
		}
	}()

	sess := newSession(conn, c.cfg.LegacyTimeout, c.log)
	defer sess.close()

	c.log.Info("connected to data source")
	if err := sess.send("* PING"); err != nil {
		return err
	}

	for {
		line, err := sess.reader.ReadFrame()
		if err != nil {
			var nerr net.Error
			if errors.As(err, &nerr) && nerr.Timeout() {
				c.log.Error("no data received within receive limit",
					"limit", sess.conn.Limit())
				return fmt.Errorf("receive timeout after %s", sess.conn.Limit())
			}
			return err
		}
		if line == "" {
			continue
		}

		if line[0] == '*' {
			c.handleProtocol(sess, line)
			continue
		}
		c.processData(ctx, line, out)
	}
}

func (c *Connector) handleProtocol(sess *session, line string) {
	if len(line) >= 6 && line[:6] == "* PONG" {
		if sess.heartbeats {
			return
		}
		freq, err := parsePong(line)
		if err != nil {
			c.log.Error("bad heartbeat, ignoring", "line", line, "err", err)
			return
		}
		c.log.Debug("received PONG, starting heartbeats", "frequency", freq)
		sess.startHeartbeats(freq)
		return
	}
	if c.OnProtocolCommand != nil {
		c.OnProtocolCommand(line)
		return
	}
	c.log.Debug("ignoring protocol command", "line", line)
}

func (c *Connector) processData(ctx context.Context, line string, out chan<- *domain.Entity) {
	tokens := proto.Tokenize(line)
	ts, err := proto.ExtractTimestamp(tokens, c.now)
	if err != nil {
		c.log.Warn("dropping frame", "err", err)
		return
	}
	for _, entity := range c.mapper.MapTokens(ts) {
		select {
		case <-ctx.Done():
			return
		case out <- entity:
		}
	}
}

// parsePong extracts the heartbeat frequency from "* PONG <ms>". The window
// is 1ms inclusive to 30 minutes exclusive.
func parsePong(line string) (time.Duration, error) {
	if len(line) <= 7 || line[6] != ' ' {
		return 0, fmt.Errorf("missing frequency")
	}
	rest := line[7:]
	start := -1
	for i := 0; i < len(rest); i++ {
		if rest[i] >= '0' && rest[i] <= '9' {
			start = i
			break
		}
	}
	if start < 0 {
		return 0, fmt.Errorf("missing frequency")
	}
	end := start
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	ms, err := strconv.Atoi(rest[start:end])
	if err != nil {
		return 0, err
	}
	freq := time.Duration(ms) * time.Millisecond
	if freq < minHeartbeat || freq >= maxHeartbeat {
		return 0, fmt.Errorf("frequency %s outside accepted window", freq)
	}
	return freq, nil
}

// session holds the per-connection state: the watchdog-wrapped socket, the
// frame reader, and the heartbeat sender once negotiated.
type session struct {
	conn   *watchdogConn
	raw    net.Conn
	reader *lineReader
	log    *slog.Logger

	writeMu sync.Mutex

	heartbeats bool
	hbStop     chan struct{}
	hbDone     chan struct{}
}

func newSession(conn net.Conn, legacyTimeout time.Duration, log *slog.Logger) *session {
	wc := newWatchdogConn(conn, legacyTimeout)
	return &session{
		conn:   wc,
		raw:    conn,
		reader: newLineReader(wc),
		log:    log,
	}
}

func (s *session) send(line string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return writeLine(s.raw, line)
}

// startHeartbeats widens the receive watchdog to twice the negotiated
// frequency and launches the periodic PING sender.
func (s *session) startHeartbeats(freq time.Duration) {
	s.heartbeats = true
	s.conn.SetLimit(2 * freq)
	s.hbStop = make(chan struct{})
	s.hbDone = make(chan struct{})

	go func() {
		defer close(s.hbDone)
		ticker := time.NewTicker(freq)
		defer ticker.Stop()
		for {
			select {
			case <-s.hbStop:
				return
			case <-ticker.C:
				if err := s.send("* PING"); err != nil {
					s.log.Error("heartbeat send failed", "err", err)
					s.raw.Close()
					return
				}
			}
		}
	}()
}

func (s *session) close() {
	if s.heartbeats {
		close(s.hbStop)
		<-s.hbDone
	}
}

var _ ports.Collector = (*Connector)(nil)
