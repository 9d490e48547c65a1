package sink

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/masonhieb/shdredge/internal/domain"
	"github.com/masonhieb/shdredge/internal/ports"
)

// Publisher is the slice of nats.Conn the sink needs.
type Publisher interface {
	Publish(subject string, data []byte) error
	Flush() error
}

// NATSSink publishes entities as JSON messages. Observations go to
// <prefix>.observations.<device>.<dataItemID>, asset commands to
// <prefix>.assets.<assetID>.
type NATSSink struct {
	conn   Publisher
	prefix string
}

func NewNATSSink(conn Publisher, prefix string) *NATSSink {
	if prefix == "" {
		prefix = "shdr"
	}
	return &NATSSink{conn: conn, prefix: prefix}
}

// DialNATS connects to a NATS server with reconnect handling suitable for
// long-running edge deployments.
func DialNATS(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.RetryOnFailedConnect(true),
	)
}

func (n *NATSSink) Name() string { return "nats" }

func (n *NATSSink) WriteBatch(entities []*domain.Entity) error {
	for _, e := range entities {
		subject := n.subjectFor(e)
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal entity %s: %w", e.Key(), err)
		}
		if err := n.conn.Publish(subject, payload); err != nil {
			return fmt.Errorf("publish %s: %w", subject, err)
		}
	}
	return n.conn.Flush()
}

func (n *NATSSink) subjectFor(e *domain.Entity) string {
	switch {
	case e.IsObservation():
		device := e.Observation.Device
		if device == "" {
			device = "_default"
		}
		return n.prefix + ".observations." + sanitizeToken(device) + "." + sanitizeToken(e.Observation.DataItemID)
	case e.IsAsset():
		id := e.Asset.AssetID
		if id == "" {
			id = "_all"
		}
		return n.prefix + ".assets." + sanitizeToken(id)
	default:
		return n.prefix + ".unknown"
	}
}

// sanitizeToken keeps subjects valid: '.', '*' and '>' are structural in
// NATS subjects and may not appear inside a token.
func sanitizeToken(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ':
			return '_'
		}
		return r
	}, s)
}

var _ ports.Sink = (*NATSSink)(nil)
var _ Publisher = (*nats.Conn)(nil)
