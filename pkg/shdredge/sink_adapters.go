package shdredge

import (
	"errors"
	"fmt"
	"sync"

	"github.com/masonhieb/shdredge/internal/domain"
)

// ErrChannelSinkClosed is returned when a channel sink is written to after being closed.
var ErrChannelSinkClosed = errors.New("shdredge: channel sink closed")

// EntityBatchSink is invoked with ordered batches dequeued from the pipeline.
type EntityBatchSink func([]*Entity) error

// NewCallbackSink adapts an EntityBatchSink into a full Sink implementation so
// callers can plug arbitrary functions without defining structs.
func NewCallbackSink(name string, fn EntityBatchSink) Sink {
	if name == "" {
		name = "callback"
	}
	return &callbackSink{name: name, fn: fn}
}

// NewChannelSink exposes batches via a channel; it returns the sink, the read-only channel,
// and a close function that the caller should invoke during shutdown.
func NewChannelSink(name string, buffer int) (Sink, <-chan []*Entity, func()) {
	if name == "" {
		name = "channel"
	}
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan []*Entity, buffer)
	s := &channelSink{
		name:   name,
		ch:     ch,
		closed: make(chan struct{}),
	}
	return s, ch, func() { s.close() }
}

type callbackSink struct {
	name string
	fn   EntityBatchSink
}

func (s *callbackSink) WriteBatch(entities []*domain.Entity) error {
	if s.fn == nil {
		return fmt.Errorf("callback sink %q: nil handler", s.name)
	}
	if len(entities) == 0 {
		return nil
	}
	return s.fn(entities)
}

func (s *callbackSink) Name() string { return s.name }

type channelSink struct {
	name   string
	ch     chan []*Entity
	closed chan struct{}
	once   sync.Once
}

func (s *channelSink) WriteBatch(entities []*domain.Entity) error {
	select {
	case <-s.closed:
		return ErrChannelSinkClosed
	default:
	}

	if len(entities) == 0 {
		return nil
	}

	batch := make([]*Entity, len(entities))
	copy(batch, entities)

	select {
	case <-s.closed:
		return ErrChannelSinkClosed
	case s.ch <- batch:
		return nil
	}
}

func (s *channelSink) Name() string { return s.name }

func (s *channelSink) close() {
	s.once.Do(func() {
		close(s.closed)
		close(s.ch)
	})
}
