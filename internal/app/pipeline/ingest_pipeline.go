package pipeline

import (
	"time"

	"github.com/masonhieb/shdredge/internal/domain"
	"github.com/masonhieb/shdredge/internal/ports"
)

// RunIngestPipeline drains the queue in batches, applies the optional
// transformer, writes to the sink, and commits the WAL up to the highest id
// in the batch. A failed sink write keeps the batch in the WAL for replay.
func RunIngestPipeline(wal ports.WAL, q ports.EntityQueue, tr ports.Transformer, sink ports.Sink, pol ports.Policy, obs ports.Observability) {
	for {
		batch := q.DequeueBatch(pol.MaxBatchSize)
		if len(batch) == 0 {
			time.Sleep(pol.IdleSleep)
			continue
		}

		var (
			out   = make([]*domain.Entity, 0, len(batch))
			maxID ports.WALEntryID
		)

		for _, item := range batch {
			e := item.Entity
			if tr != nil {
				transformed, err := tr.Transform(e)
				if err != nil {
					obs.RecordDLQ(item.ID, e, err)
					if item.ID > maxID {
						maxID = item.ID
					}
					continue
				}
				e = transformed
			}
			out = append(out, e)
			if item.ID > maxID {
				maxID = item.ID
			}
		}

		if len(out) == 0 {
			_ = wal.Commit(maxID)
			continue
		}

		start := time.Now()
		if err := sink.WriteBatch(out); err != nil {
			obs.LogError("sink_write_failed", err)
			// keep WAL; replays later
			continue
		}
		obs.ObserveLatency("shdr_sink_latency_seconds", time.Since(start).Seconds())
		obs.IncCounter("shdr_entities_ingested_total", float64(len(out)))

		if err := wal.Commit(maxID); err != nil {
			obs.LogError("wal_commit_failed", err)
		}
	}
}
