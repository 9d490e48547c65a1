package shdredge

import (
	"errors"
	"testing"
	"time"

	"github.com/masonhieb/shdredge/internal/domain"
)

func testObservation(id string) *Entity {
	return domain.NewObservationEntity(&domain.Observation{
		DataItemID: id,
		Timestamp:  time.Unix(1, 0).UTC(),
		Properties: []domain.Property{{Name: "VALUE", Value: domain.DoubleValue(3.14)}},
	})
}

func TestNewCallbackSink(t *testing.T) {
	var received []*Entity
	sink := NewCallbackSink("cb", func(batch []*Entity) error {
		received = append(received, batch...)
		return nil
	})

	if err := sink.WriteBatch([]*Entity{testObservation("sensor-1")}); err != nil {
		t.Fatalf("WriteBatch returned error: %v", err)
	}
	if len(received) != 1 {
		t.Fatalf("expected 1 batch entry, got %d", len(received))
	}
	got := received[0]
	if !got.IsObservation() || got.Observation.DataItemID != "sensor-1" {
		t.Fatalf("mismatched entity payload: %+v", got)
	}
	v, ok := got.Observation.Value()
	if !ok || v.Double() != 3.14 {
		t.Fatalf("expected value to be delivered, got %v ok=%v", v, ok)
	}
}

func TestNewCallbackSinkNilHandler(t *testing.T) {
	sink := NewCallbackSink("", nil)
	if err := sink.WriteBatch([]*Entity{testObservation("s")}); err == nil {
		t.Fatalf("expected error when callback is nil")
	}
}

func TestNewChannelSink(t *testing.T) {
	sink, ch, closeFn := NewChannelSink("chan", 1)
	defer closeFn()

	input := testObservation("sensor-2")
	errCh := make(chan error, 1)

	go func() {
		errCh <- sink.WriteBatch([]*Entity{input})
	}()

	var batch []*Entity
	select {
	case batch = <-ch:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel batch")
	}

	if err := <-errCh; err != nil {
		t.Fatalf("WriteBatch returned error: %v", err)
	}
	if len(batch) != 1 || batch[0].Observation.DataItemID != "sensor-2" {
		t.Fatalf("unexpected batch data: %+v", batch)
	}

	closeFn()
	if err := sink.WriteBatch([]*Entity{input}); !errors.Is(err, ErrChannelSinkClosed) {
		t.Fatalf("expected ErrChannelSinkClosed, got %v", err)
	}
}
