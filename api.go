package shdredge

import (
	"log/slog"

	base "github.com/masonhieb/shdredge/pkg/shdredge"
)

// Re-exported errors for convenience.
var (
	ErrQueueFull         = base.ErrQueueFull
	ErrWALFull           = base.ErrWALFull
	ErrChannelSinkClosed = base.ErrChannelSinkClosed
)

// Type aliases so consumers can import github.com/masonhieb/shdredge directly.
type (
	Config                  = base.Config
	Policy                  = base.Policy
	SHDRConfig              = base.SHDRConfig
	OPCUAConfig             = base.OPCUAConfig
	OPCUANodeConfig         = base.OPCUANodeConfig
	DataItemConfig          = base.DataItemConfig
	TimescaleConfig         = base.TimescaleConfig
	NATSConfig              = base.NATSConfig
	MetricsConfig           = base.MetricsConfig
	WALConfig               = base.WALConfig
	Flow                    = base.Flow
	FlowOption              = base.FlowOption
	StreamInOption          = base.StreamInOption
	StreamOutOption         = base.StreamOutOption
	EdgeRuntime             = base.EdgeRuntime
	EdgeRuntimeOption       = base.EdgeRuntimeOption
	Entity                  = base.Entity
	Observation             = base.Observation
	Property                = base.Property
	Value                   = base.Value
	AssetCommand            = base.AssetCommand
	DataItem                = base.DataItem
	EntityBatchSink         = base.EntityBatchSink
	Collector               = base.Collector
	Sink                    = base.Sink
	Transformer             = base.Transformer
	EntityQueue             = base.EntityQueue
	WAL                     = base.WAL
	Observability           = base.Observability
	DataItemResolver        = base.DataItemResolver
	QueuedEntity            = base.QueuedEntity
	WALEntryID              = base.WALEntryID
	WALStats                = base.WALStats
	ExternalPublisher       = base.ExternalPublisher
	ExternalPublisherConfig = base.ExternalPublisherConfig
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

// Flow builder helpers.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	return base.Conf(path, opts...)
}

func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	return base.ConfFromConfig(cfg, opts...)
}

func WithFlowOptions(opts ...EdgeRuntimeOption) FlowOption {
	return base.WithFlowOptions(opts...)
}

func StreamInCollector(col Collector) StreamInOption {
	return base.StreamInCollector(col)
}

func StreamInQueue(q EntityQueue) StreamInOption {
	return base.StreamInQueue(q)
}

func StreamInWAL(w WAL) StreamInOption {
	return base.StreamInWAL(w)
}

func StreamInObservability(obs Observability) StreamInOption {
	return base.StreamInObservability(obs)
}

func StreamOutSink(s Sink) StreamOutOption {
	return base.StreamOutSink(s)
}

func StreamOutTransformer(tr Transformer) StreamOutOption {
	return base.StreamOutTransformer(tr)
}

func StreamOutObservability(obs Observability) StreamOutOption {
	return base.StreamOutObservability(obs)
}

func StreamOutCallback(name string, fn EntityBatchSink) StreamOutOption {
	return base.StreamOutCallback(name, fn)
}

// Edge runtime and options.
func NewEdgeRuntime(cfg *Config, opts ...EdgeRuntimeOption) (*EdgeRuntime, error) {
	return base.NewEdgeRuntime(cfg, opts...)
}

func WithCollector(col Collector) EdgeRuntimeOption {
	return base.WithCollector(col)
}

func WithSink(s Sink) EdgeRuntimeOption {
	return base.WithSink(s)
}

func WithTransformer(tr Transformer) EdgeRuntimeOption {
	return base.WithTransformer(tr)
}

func WithWAL(w WAL) EdgeRuntimeOption {
	return base.WithWAL(w)
}

func WithEntityQueue(q EntityQueue) EdgeRuntimeOption {
	return base.WithEntityQueue(q)
}

func WithObservability(obs Observability) EdgeRuntimeOption {
	return base.WithObservability(obs)
}

func WithResolver(r DataItemResolver) EdgeRuntimeOption {
	return base.WithResolver(r)
}

func WithLogger(log *slog.Logger) EdgeRuntimeOption {
	return base.WithLogger(log)
}

// Sink adapters.
func NewCallbackSink(name string, fn EntityBatchSink) Sink {
	return base.NewCallbackSink(name, fn)
}

func NewChannelSink(name string, buffer int) (Sink, <-chan []*Entity, func()) {
	return base.NewChannelSink(name, buffer)
}

// External publisher.
func NewExternalPublisher(cfg *ExternalPublisherConfig, sink EntityBatchSink) (*ExternalPublisher, error) {
	return base.NewExternalPublisher(cfg, sink)
}
