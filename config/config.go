// Package config contains plotsync node configuration definitions
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/spacemeshos/plotsync/p2p/bus"
	"github.com/spacemeshos/plotsync/p2p/tcp"
	"github.com/spacemeshos/plotsync/replication"
	"github.com/spacemeshos/plotsync/sensor"
)

// Transports a node can replicate over.
const (
	TransportTCP = "tcp"
	TransportBus = "bus"
)

var (
	ErrNegativeMultiplier = errors.New("config: time multiplier must not be negative")
	ErrEmptyAddress       = errors.New("config: listen address is empty")
	ErrZeroNodeID         = errors.New("config: node id must be positive")
	ErrUnknownTransport   = errors.New("config: unknown transport")
	ErrZeroInterval       = errors.New("config: replication interval must be positive")
)

// Config defines the top level configuration for a plotsync node.
type Config struct {
	BaseConfig `mapstructure:"main"`
	TCP        tcp.Config    `mapstructure:"tcp"`
	Bus        bus.Config    `mapstructure:"bus"`
	LOGGING    LoggerConfig  `mapstructure:"logging"`
	Metrics    MetricsConfig `mapstructure:"metrics"`
}

// BaseConfig defines the options of a single replication node.
type BaseConfig struct {
	Preset string `mapstructure:"preset"`

	Address string `mapstructure:"address"`
	Port    uint16 `mapstructure:"port"`
	NodeID  uint32 `mapstructure:"node-id"`
	// Peers are host:port addresses of the other replicas.
	Peers     []string `mapstructure:"peers"`
	Transport string   `mapstructure:"transport"`

	// Offset delays the start of the simulated clock, in seconds.
	Offset     int64   `mapstructure:"offset"`
	Multiplier float64 `mapstructure:"multiplier"`

	// ReplicationInterval is in simulated seconds.
	ReplicationInterval int64         `mapstructure:"replication-interval"`
	IdleDelay           time.Duration `mapstructure:"idle-delay"`

	PlotFile     string        `mapstructure:"plot-file"`
	PollInterval time.Duration `mapstructure:"poll-interval"`
	OutputFile   string        `mapstructure:"output-file"`
	// RunFor stops the node after the given wall clock duration, zero runs until interrupted.
	RunFor time.Duration `mapstructure:"run-for"`
}

// MetricsConfig defines how the node exposes its metrics.
type MetricsConfig struct {
	Enable     bool          `mapstructure:"enable"`
	Port       int           `mapstructure:"port"`
	PushURL    string        `mapstructure:"push-url"`
	PushPeriod time.Duration `mapstructure:"push-period"`
}

// DefaultConfig returns the default configuration for a plotsync node.
func DefaultConfig() Config {
	return Config{
		BaseConfig: defaultBaseConfig(),
		TCP:        tcp.DefaultConfig(),
		Bus:        bus.DefaultConfig(),
		LOGGING:    defaultLoggingConfig(),
		Metrics: MetricsConfig{
			Port:       1010,
			PushPeriod: time.Minute,
		},
	}
}

func defaultBaseConfig() BaseConfig {
	return BaseConfig{
		Address:             "127.0.0.1",
		Port:                9999,
		NodeID:              1,
		Transport:           TransportTCP,
		Multiplier:          1,
		ReplicationInterval: replication.DefaultInterval,
		IdleDelay:           replication.DefaultIdleDelay,
		PollInterval:        sensor.DefaultPollInterval,
	}
}

// Validate reports the first invalid option.
func (cfg *Config) Validate() error {
	switch {
	case cfg.Multiplier < 0:
		return fmt.Errorf("%w: %v", ErrNegativeMultiplier, cfg.Multiplier)
	case cfg.Address == "":
		return ErrEmptyAddress
	case cfg.NodeID == 0:
		return ErrZeroNodeID
	case cfg.ReplicationInterval <= 0:
		return fmt.Errorf("%w: %d", ErrZeroInterval, cfg.ReplicationInterval)
	}
	switch cfg.Transport {
	case TransportTCP, TransportBus:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTransport, cfg.Transport)
	}
	return nil
}

// LoadConfig reads the config file into vip. An empty location leaves vip untouched.
func LoadConfig(fileLocation string, vip *viper.Viper) error {
	if fileLocation == "" {
		return nil
	}
	vip.SetConfigFile(fileLocation)
	if err := vip.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %w", err)
	}
	return nil
}
