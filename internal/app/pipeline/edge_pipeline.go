// Package pipeline connects the ports into the two halves of the agent: the
// edge half (collector → WAL → queue) and the ingest half (queue →
// transformer → sink with WAL commit after the sink acknowledges).
package pipeline

import (
	"fmt"
	"time"

	"github.com/masonhieb/shdredge/internal/domain"
	"github.com/masonhieb/shdredge/internal/ports"
)

// RunEdgePipeline starts the collector and pumps its entities through the WAL
// into the queue. Entities are durable on disk before they become visible to
// the ingest side, so a crash between the connector and the sink replays
// rather than loses them.
func RunEdgePipeline(col ports.Collector, wal ports.WAL, q ports.EntityQueue, pol ports.Policy, obs ports.Observability) error {
	ch := make(chan *domain.Entity, pol.MaxQueueLen)

	if err := col.Start(ch); err != nil {
		return err
	}

	go func() {
		for e := range ch {
			if !waitForWALCapacity(wal, pol, obs) {
				continue
			}

			id, err := wal.Append(e)
			if err != nil {
				obs.LogCritical("wal_append_failed", err)
				continue
			}

			if !enqueueWithPolicy(q, id, e, pol, obs) {
				obs.IncCounter("shdr_queue_dropped_total", 1)
			}
		}
	}()

	return nil
}

func waitForWALCapacity(wal ports.WAL, pol ports.Policy, obs ports.Observability) bool {
	if pol.MaxWALSizeBytes <= 0 {
		return true
	}
	sleep := pol.IdleSleep
	if sleep <= 0 {
		sleep = 5 * time.Millisecond
	}

	for {
		stats := wal.Stats()
		if stats.SizeBytes < pol.MaxWALSizeBytes {
			return true
		}

		switch pol.OnWALFull {
		case "block":
			time.Sleep(sleep)
		case "drop":
			obs.LogError("wal_full_drop", fmt.Errorf("size=%d limit=%d", stats.SizeBytes, pol.MaxWALSizeBytes))
			return false
		default:
			obs.LogError("wal_policy_invalid", fmt.Errorf("policy=%s", pol.OnWALFull))
			return false
		}
	}
}

func enqueueWithPolicy(q ports.EntityQueue, id ports.WALEntryID, e *domain.Entity, pol ports.Policy, obs ports.Observability) bool {
	sleep := pol.IdleSleep
	if sleep <= 0 {
		sleep = 5 * time.Millisecond
	}

	for {
		if ok := q.Enqueue(id, e); ok {
			return true
		}

		switch pol.OnQueueFull {
		case "block":
			time.Sleep(sleep)
		case "drop", "reject":
			obs.LogError("queue_full_drop", fmt.Errorf("queue length exceeded capacity %d", pol.MaxQueueLen))
			return false
		default:
			obs.LogError("queue_policy_invalid", fmt.Errorf("policy=%s", pol.OnQueueFull))
			return false
		}
	}
}
