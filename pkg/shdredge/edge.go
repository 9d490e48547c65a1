package shdredge

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/masonhieb/shdredge/internal/adapters/assets"
	"github.com/masonhieb/shdredge/internal/adapters/observability"
	"github.com/masonhieb/shdredge/internal/adapters/opcua"
	"github.com/masonhieb/shdredge/internal/adapters/queue"
	shdradapter "github.com/masonhieb/shdredge/internal/adapters/shdr"
	"github.com/masonhieb/shdredge/internal/adapters/sink"
	"github.com/masonhieb/shdredge/internal/adapters/wal"
	"github.com/masonhieb/shdredge/internal/app/pipeline"
	"github.com/masonhieb/shdredge/internal/domain"
	"github.com/masonhieb/shdredge/internal/ports"
	proto "github.com/masonhieb/shdredge/internal/shdr"
)

// EdgeRuntimeOption customizes the dependencies used by EdgeRuntime.
type EdgeRuntimeOption func(*runtimeOverrides)

type runtimeOverrides struct {
	collector     Collector
	sink          Sink
	transformer   Transformer
	wal           WAL
	queue         EntityQueue
	observability Observability
	resolver      DataItemResolver
	logger        *slog.Logger
}

// WithCollector injects a custom collector implementation (MQTT, Modbus, simulators, etc.).
func WithCollector(col Collector) EdgeRuntimeOption {
	return func(o *runtimeOverrides) {
		o.collector = col
	}
}

// WithSink injects a custom sink so entities can be sent to any database or API.
func WithSink(s Sink) EdgeRuntimeOption {
	return func(o *runtimeOverrides) {
		o.sink = s
	}
}

// WithTransformer installs a transformer applied before entities hit the sink.
func WithTransformer(t Transformer) EdgeRuntimeOption {
	return func(o *runtimeOverrides) {
		o.transformer = t
	}
}

// WithWAL lets callers bring their own WAL implementation or reuse an existing instance.
func WithWAL(w WAL) EdgeRuntimeOption {
	return func(o *runtimeOverrides) {
		o.wal = w
	}
}

// WithEntityQueue injects a custom queue implementation (e.g., lock-free, sharded).
func WithEntityQueue(q EntityQueue) EdgeRuntimeOption {
	return func(o *runtimeOverrides) {
		o.queue = q
	}
}

// WithObservability plugs in a custom observability backend (OpenTelemetry, structured logs, etc.).
func WithObservability(obs Observability) EdgeRuntimeOption {
	return func(o *runtimeOverrides) {
		o.observability = obs
	}
}

// WithResolver replaces the config-derived data-item dictionary, e.g. to back
// the lookup with a reloadable device model.
func WithResolver(r DataItemResolver) EdgeRuntimeOption {
	return func(o *runtimeOverrides) {
		o.resolver = r
	}
}

// WithLogger sets the slog logger used by the default adapters.
func WithLogger(log *slog.Logger) EdgeRuntimeOption {
	return func(o *runtimeOverrides) {
		o.logger = log
	}
}

// EdgeRuntime wires up the connector → WAL → queue → sink pipeline and exposes
// simple lifecycle hooks for embedding the adapter inside any Go service.
type EdgeRuntime struct {
	cfg          *Config
	policy       ports.Policy
	obs          ports.Observability
	wal          ports.WAL
	queue        ports.EntityQueue
	collector    ports.Collector
	transformer  ports.Transformer
	sink         ports.Sink
	db           *sql.DB
	nc           *nats.Conn
	metricsSrv   *http.Server
	gaugeStopCh  chan struct{}
	ingestDoneCh chan struct{}
}

// NewEdgeRuntime bootstraps the default adapters (SHDR connector, file WAL,
// in-memory queue, Timescale/NATS sinks, Prometheus observability). Callers
// can use EdgeRuntimeOption values to override any dependency.
func NewEdgeRuntime(cfg *Config, opts ...EdgeRuntimeOption) (*EdgeRuntime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var overrides runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	log := overrides.logger
	if log == nil {
		log = slog.Default()
	}

	obs := overrides.observability
	if obs == nil {
		obs = observability.NewPromObs(log)
	}

	var (
		walAdapter ports.WAL
		err        error
	)
	if overrides.wal != nil {
		walAdapter = overrides.wal
	} else {
		walAdapter, err = wal.NewFileWAL(cfg.WAL.Dir)
		if err != nil {
			return nil, err
		}
	}
	if walAdapter == nil {
		return nil, fmt.Errorf("wal adapter is nil")
	}

	q := overrides.queue
	if q == nil {
		q = queue.NewMemQueue(cfg.Policy.MaxQueueLen)
	}
	if q == nil {
		return nil, fmt.Errorf("entity queue is nil")
	}

	if err := replayWALIntoQueue(walAdapter, q, cfg.Policy, obs); err != nil {
		return nil, err
	}

	col := overrides.collector
	if col == nil {
		col, err = buildDefaultCollectors(cfg, overrides.resolver, log)
		if err != nil {
			return nil, err
		}
	}
	if col == nil {
		return nil, fmt.Errorf("collector is nil")
	}

	var (
		db  *sql.DB
		nc  *nats.Conn
		snk ports.Sink
	)
	if overrides.sink != nil {
		snk = overrides.sink
	} else {
		var sinks []ports.Sink
		if cfg.Timescale.ConnString != "" {
			db, err = sql.Open("postgres", cfg.Timescale.ConnString)
			if err != nil {
				return nil, err
			}
			sinks = append(sinks, sink.NewTimescaleSink(db, cfg.Timescale.ObservationsTable, cfg.Timescale.AssetsTable))
		}
		if cfg.NATS.URL != "" {
			nc, err = sink.DialNATS(cfg.NATS.URL)
			if err != nil {
				if db != nil {
					_ = db.Close()
				}
				return nil, err
			}
			sinks = append(sinks, sink.NewNATSSink(nc, cfg.NATS.SubjectPrefix))
		}
		switch len(sinks) {
		case 0:
			return nil, fmt.Errorf("no sink configured")
		case 1:
			snk = sinks[0]
		default:
			snk = &fanoutSink{sinks: sinks}
		}
	}
	if snk == nil {
		return nil, fmt.Errorf("sink is nil")
	}

	return &EdgeRuntime{
		cfg:         cfg,
		policy:      cfg.Policy,
		obs:         obs,
		wal:         walAdapter,
		queue:       q,
		collector:   col,
		transformer: overrides.transformer,
		sink:        snk,
		db:          db,
		nc:          nc,
	}, nil
}

func buildDefaultCollectors(cfg *Config, resolver ports.DataItemResolver, log *slog.Logger) (ports.Collector, error) {
	var err error
	if resolver == nil {
		resolver, err = cfg.Resolver()
		if err != nil {
			return nil, err
		}
	}
	mapper := proto.NewMapper(resolver, assets.NewXMLParser(), log)

	connector, err := shdradapter.NewConnector(cfg.SHDR, mapper, log)
	if err != nil {
		return nil, err
	}

	if cfg.OPCUA == nil {
		return connector, nil
	}

	ua, err := opcua.NewCollector(*cfg.OPCUA, log)
	if err != nil {
		return nil, err
	}
	return &multiCollector{collectors: []ports.Collector{connector, ua}}, nil
}

// multiCollector fans several collectors into one entity channel.
type multiCollector struct {
	collectors []ports.Collector
}

func (m *multiCollector) Start(out chan<- *domain.Entity) error {
	for i, col := range m.collectors {
		if err := col.Start(out); err != nil {
			for _, started := range m.collectors[:i] {
				_ = started.Stop()
			}
			return err
		}
	}
	return nil
}

func (m *multiCollector) Stop() error {
	var errs []error
	for _, col := range m.collectors {
		if err := col.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// fanoutSink writes every batch to all configured sinks. A failure in any
// sink fails the batch so the WAL keeps it for replay.
type fanoutSink struct {
	sinks []ports.Sink
}

func (f *fanoutSink) WriteBatch(entities []*domain.Entity) error {
	for _, s := range f.sinks {
		if err := s.WriteBatch(entities); err != nil {
			return fmt.Errorf("%s: %w", s.Name(), err)
		}
	}
	return nil
}

func (f *fanoutSink) Name() string { return "fanout" }

// Start begins the edge + ingest pipelines and launches the observability stack.
// It returns immediately; call Run to block on a context instead.
func (e *EdgeRuntime) Start() error {
	if e == nil {
		return fmt.Errorf("edge runtime is nil")
	}
	if err := pipeline.RunEdgePipeline(e.collector, e.wal, e.queue, e.policy, e.obs); err != nil {
		return err
	}

	e.ingestDoneCh = make(chan struct{})
	go func() {
		pipeline.RunIngestPipeline(e.wal, e.queue, e.transformer, e.sink, e.policy, e.obs)
		close(e.ingestDoneCh)
	}()

	e.startMetrics()
	return nil
}

// Run starts the runtime and blocks until the provided context is cancelled.
// Upon cancellation it attempts a graceful shutdown.
func (e *EdgeRuntime) Run(ctx context.Context) error {
	if err := e.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// Shutdown stops the collector, metrics server, and downstream connections.
func (e *EdgeRuntime) Shutdown(ctx context.Context) error {
	var errs []error

	if e.gaugeStopCh != nil {
		close(e.gaugeStopCh)
	}

	if e.metricsSrv != nil {
		if err := e.metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}

	if e.collector != nil {
		if err := e.collector.Stop(); err != nil {
			errs = append(errs, err)
		}
	}

	if e.db != nil {
		if err := e.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if e.nc != nil {
		e.nc.Close()
	}

	return errors.Join(errs...)
}

func (e *EdgeRuntime) startMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	e.metricsSrv = &http.Server{
		Addr:    e.cfg.Metrics.Addr,
		Handler: mux,
	}

	go func() {
		if err := e.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server exited", slog.Any("error", err))
		}
	}()

	e.gaugeStopCh = make(chan struct{})
	go e.recordResourceGauges(e.gaugeStopCh, time.Second)
}

func (e *EdgeRuntime) recordResourceGauges(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			stats := e.wal.Stats()
			e.obs.SetGauge("shdr_wal_size_bytes", float64(stats.SizeBytes))
			e.obs.SetGauge("shdr_queue_length", float64(e.queue.Len()))

			if e.policy.MaxWALSizeBytes > 0 && stats.SizeBytes > e.policy.MaxWALSizeBytes/2 {
				if err := e.wal.TruncateCommitted(); err != nil {
					e.obs.LogError("wal_compaction_failed", err)
				}
			}
		}
	}
}

func replayWALIntoQueue(walAdapter ports.WAL, q ports.EntityQueue, pol ports.Policy, obs ports.Observability) error {
	stats := walAdapter.Stats()
	if stats.LatestAppended == 0 {
		return nil
	}
	start := stats.OldestUncommitted
	if start == 0 || start > stats.LatestAppended {
		return nil
	}

	sleep := pol.IdleSleep
	if sleep <= 0 {
		sleep = 5 * time.Millisecond
	}

	var replayed int
	err := walAdapter.Iterate(start, func(id ports.WALEntryID, e *domain.Entity) error {
		for {
			if q.Enqueue(id, e) {
				replayed++
				return nil
			}
			switch pol.OnQueueFull {
			case "drop", "reject":
				return fmt.Errorf("queue full during WAL replay")
			default:
				time.Sleep(sleep)
			}
		}
	})
	if err != nil {
		return err
	}
	if replayed > 0 {
		obs.LogInfo("wal_replay_complete",
			ports.Field{Key: "entities", Value: replayed},
			ports.Field{Key: "from_id", Value: start})
	}
	return nil
}
