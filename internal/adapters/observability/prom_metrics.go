package observability

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/masonhieb/shdredge/internal/domain"
	"github.com/masonhieb/shdredge/internal/ports"
)

type PromObs struct {
	log      *slog.Logger
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

func NewPromObs(log *slog.Logger) *PromObs {
	if log == nil {
		log = slog.Default()
	}

	ingested := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shdr_entities_ingested_total",
		Help: "Total entities successfully written to sink.",
	})
	walGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "shdr_wal_size_bytes",
		Help: "Size of WAL on disk.",
	})
	queueGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "shdr_queue_length",
		Help: "Current number of entities buffered in the in-memory queue.",
	})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "shdr_sink_latency_seconds",
		Help:    "End-to-end latency from dequeued entity to sink commit.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})
	dlq := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shdr_dlq_total",
		Help: "Entities sent to DLQ due to transform failures.",
	})
	queueDrops := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shdr_queue_dropped_total",
		Help: "Entities lost due to queue backpressure policies.",
	})
	reconnects := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shdr_connector_reconnects_total",
		Help: "SHDR connector reconnects; the built-in connector does not increment it.",
	})

	prometheus.MustRegister(ingested, walGauge, queueGauge, latency, dlq, queueDrops, reconnects)

	return &PromObs{
		log: log,
		counters: map[string]prometheus.Counter{
			"shdr_entities_ingested_total":    ingested,
			"shdr_dlq_total":                  dlq,
			"shdr_queue_dropped_total":        queueDrops,
			"shdr_connector_reconnects_total": reconnects,
		},
		gauges: map[string]prometheus.Gauge{
			"shdr_wal_size_bytes": walGauge,
			"shdr_queue_length":   queueGauge,
		},
		histos: map[string]prometheus.Observer{
			"shdr_sink_latency_seconds": latency,
		},
	}
}

func attrs(fields []ports.Field) []any {
	out := make([]any, 0, len(fields))
	for _, f := range fields {
		out = append(out, slog.Any(f.Key, f.Value))
	}
	return out
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	p.log.Info(msg, attrs(fields)...)
}

func (p *PromObs) LogWarn(msg string, fields ...ports.Field) {
	p.log.Warn(msg, attrs(fields)...)
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	p.log.Error(msg, append([]any{slog.Any("error", err)}, attrs(fields)...)...)
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	p.log.Error(msg, append([]any{slog.Any("error", err), slog.Bool("critical", true)}, attrs(fields)...)...)
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func (p *PromObs) RecordDLQ(id ports.WALEntryID, e *domain.Entity, err error) {
	p.IncCounter("shdr_dlq_total", 1)
	key := ""
	if e != nil {
		key = e.Key()
	}
	p.log.Error("entity sent to DLQ",
		slog.Uint64("wal_id", uint64(id)),
		slog.String("key", key),
		slog.Any("error", err))
}

var _ ports.Observability = (*PromObs)(nil)
