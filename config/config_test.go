package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("no file", func(t *testing.T) {
		vip := viper.New()
		require.NoError(t, LoadConfig("", vip))
		require.Empty(t, vip.AllKeys())
	})
	t.Run("missing file", func(t *testing.T) {
		err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"), viper.New())
		require.ErrorContains(t, err, "failed to read config file")
	})
	t.Run("toml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "node.toml")
		content := "[main]\nnode-id = 3\npeers = [\"127.0.0.1:9001\"]\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		vip := viper.New()
		require.NoError(t, LoadConfig(path, vip))
		require.Equal(t, 3, vip.GetInt("main.node-id"))
		require.Equal(t, []string{"127.0.0.1:9001"}, vip.GetStringSlice("main.peers"))
	})
}

func TestValidate(t *testing.T) {
	for _, tc := range []struct {
		desc   string
		modify func(*Config)
		err    error
	}{
		{"default", func(*Config) {}, nil},
		{"bus", func(c *Config) { c.Transport = TransportBus }, nil},
		{"zero multiplier", func(c *Config) { c.Multiplier = 0 }, nil},
		{"negative multiplier", func(c *Config) { c.Multiplier = -1 }, ErrNegativeMultiplier},
		{"empty address", func(c *Config) { c.Address = "" }, ErrEmptyAddress},
		{"zero node", func(c *Config) { c.NodeID = 0 }, ErrZeroNodeID},
		{"zero interval", func(c *Config) { c.ReplicationInterval = 0 }, ErrZeroInterval},
		{"unknown transport", func(c *Config) { c.Transport = "udp" }, ErrUnknownTransport},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.modify(&cfg)
			err := cfg.Validate()
			if tc.err == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tc.err)
			}
		})
	}
}
