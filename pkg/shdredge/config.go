package shdredge

import (
	"github.com/masonhieb/shdredge/internal/adapters/devicemodel"
	"github.com/masonhieb/shdredge/internal/adapters/opcua"
	shdradapter "github.com/masonhieb/shdredge/internal/adapters/shdr"
	"github.com/masonhieb/shdredge/internal/app/config"
	"github.com/masonhieb/shdredge/internal/ports"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// Policy controls WAL/queue thresholds.
	Policy = ports.Policy
	// SHDRConfig holds connection details for the upstream data source.
	SHDRConfig = shdradapter.Config
	// OPCUAConfig holds connection + node details for the optional OPC UA collector.
	OPCUAConfig = opcua.Config
	// OPCUANodeConfig describes a monitored tag.
	OPCUANodeConfig = opcua.NodeConfig
	// DataItemConfig declares one entry of the data item dictionary.
	DataItemConfig = devicemodel.ItemConfig
	// TimescaleConfig configures the TimescaleDB sink.
	TimescaleConfig = config.TimescaleConfig
	// NATSConfig configures the NATS sink.
	NATSConfig = config.NATSConfig
	// MetricsConfig configures the metrics HTTP server.
	MetricsConfig = config.MetricsConfig
	// WALConfig configures on-disk durability.
	WALConfig = config.WALConfig
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}
