package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/masonhieb/shdredge/internal/adapters/devicemodel"
	"github.com/masonhieb/shdredge/internal/adapters/opcua"
	shdradapter "github.com/masonhieb/shdredge/internal/adapters/shdr"
	"github.com/masonhieb/shdredge/internal/ports"
)

type Config struct {
	Policy        ports.Policy             `yaml:"policy"`
	SHDR          shdradapter.Config       `yaml:"shdr"`
	OPCUA         *opcua.Config            `yaml:"opcua"`
	DataItems     []devicemodel.ItemConfig `yaml:"data_items"`
	DeviceAliases map[string]string        `yaml:"device_aliases"`
	Timescale     TimescaleConfig          `yaml:"timescale"`
	NATS          NATSConfig               `yaml:"nats"`
	Metrics       MetricsConfig            `yaml:"metrics"`
	WAL           WALConfig                `yaml:"wal"`
}

type TimescaleConfig struct {
	ConnString        string `yaml:"conn_string"`
	ObservationsTable string `yaml:"observations_table"`
	AssetsTable       string `yaml:"assets_table"`
}

type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type WALConfig struct {
	Dir string `yaml:"dir"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Policy.MaxWALSizeBytes == 0 {
		c.Policy.MaxWALSizeBytes = 10 << 30
	}
	if c.Policy.MaxQueueLen == 0 {
		c.Policy.MaxQueueLen = 100_000
	}
	if c.Policy.MaxBatchSize == 0 {
		c.Policy.MaxBatchSize = 5_000
	}
	if c.Policy.IdleSleep == 0 {
		c.Policy.IdleSleep = 5 * time.Millisecond
	}
	if c.Policy.OnQueueFull == "" {
		c.Policy.OnQueueFull = "block"
	}
	if c.Policy.OnWALFull == "" {
		c.Policy.OnWALFull = "block"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
	if c.Timescale.ObservationsTable == "" {
		c.Timescale.ObservationsTable = "observations"
	}
	if c.Timescale.AssetsTable == "" {
		c.Timescale.AssetsTable = "assets"
	}
	if c.NATS.SubjectPrefix == "" {
		c.NATS.SubjectPrefix = "shdr"
	}
	if c.WAL.Dir == "" {
		c.WAL.Dir = "./data/wal"
	}

	c.SHDR.ApplyDefaults()
	if c.OPCUA != nil {
		c.OPCUA.ApplyDefaults()
	}
}

func (c *Config) validate() error {
	if err := c.SHDR.Validate(); err != nil {
		return fmt.Errorf("shdr config: %w", err)
	}
	if c.OPCUA != nil {
		if err := c.OPCUA.Validate(); err != nil {
			return fmt.Errorf("opcua config: %w", err)
		}
	}
	if c.Timescale.ConnString == "" && c.NATS.URL == "" {
		return fmt.Errorf("at least one of timescale.conn_string or nats.url is required")
	}
	if c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required")
	}
	if c.WAL.Dir == "" {
		return fmt.Errorf("wal.dir is required")
	}
	return nil
}

// Resolver builds the data item dictionary declared in the config file.
func (c *Config) Resolver() (*devicemodel.StaticResolver, error) {
	return devicemodel.NewStaticResolver(c.DataItems, c.DeviceAliases)
}
