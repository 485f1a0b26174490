package node

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/spacemeshos/plotsync/cmd"
	"github.com/spacemeshos/plotsync/common/types"
	"github.com/spacemeshos/plotsync/config"
	"github.com/spacemeshos/plotsync/log/logtest"
	"github.com/spacemeshos/plotsync/plotdb"
)

func freePort(t *testing.T) uint16 {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return uint16(port)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeFile(t, "node.toml", `
[main]
node-id = 3
peers = ["127.0.0.1:9001", "127.0.0.1:9002"]
idle-delay = "5ms"

[tcp]
redial-interval = "2s"
`)
	conf := config.DefaultConfig()
	require.NoError(t, loadConfig(&conf, "", path))
	require.Equal(t, uint32(3), conf.NodeID)
	require.Equal(t, []string{"127.0.0.1:9001", "127.0.0.1:9002"}, conf.Peers)
	require.Equal(t, 5*time.Millisecond, conf.IdleDelay)
	require.Equal(t, 2*time.Second, conf.TCP.RedialInterval)
	require.Equal(t, config.DefaultConfig().Port, conf.Port)
}

func TestLoadConfigPreset(t *testing.T) {
	t.Run("from file", func(t *testing.T) {
		path := writeFile(t, "node.toml", "[main]\npreset = \"sim\"\nmultiplier = 4.0\n")
		conf := config.DefaultConfig()
		require.NoError(t, loadConfig(&conf, "", path))
		require.Equal(t, "sim", conf.Preset)
		require.Equal(t, 4.0, conf.Multiplier)
		require.Equal(t, time.Minute, conf.RunFor)
	})
	t.Run("from flag", func(t *testing.T) {
		conf := config.DefaultConfig()
		require.NoError(t, loadConfig(&conf, "sim", ""))
		require.Equal(t, 10.0, conf.Multiplier)
	})
	t.Run("unknown", func(t *testing.T) {
		conf := config.DefaultConfig()
		require.ErrorContains(t, loadConfig(&conf, "mainnet", ""), "not registered")
	})
}

func TestLoadConfigUnknownKey(t *testing.T) {
	path := writeFile(t, "node.toml", "[main]\nbogus = 1\n")
	conf := config.DefaultConfig()
	require.ErrorContains(t, loadConfig(&conf, "", path), "bogus")
}

func TestConfigureFlagsOverrideFile(t *testing.T) {
	path := writeFile(t, "node.toml", "[main]\nnode-id = 3\nmultiplier = 2.5\npeers = [\"127.0.0.1:1\"]\n")
	conf := config.DefaultConfig()
	c := &cobra.Command{}
	configPath := cmd.AddFlags(c.Flags(), &conf)
	require.NoError(t, c.ParseFlags([]string{
		"--config", path,
		"--node-id", "7",
		"--peers", "127.0.0.1:2,127.0.0.1:3",
		"--idle-delay", "3ms",
	}))

	require.NoError(t, configure(c, *configPath, &conf))
	require.Equal(t, uint32(7), conf.NodeID)
	require.Equal(t, []string{"127.0.0.1:2", "127.0.0.1:3"}, conf.Peers)
	require.Equal(t, 3*time.Millisecond, conf.IdleDelay)
	require.Equal(t, 2.5, conf.Multiplier)
}

func TestConfigureInvalid(t *testing.T) {
	conf := config.DefaultConfig()
	c := &cobra.Command{}
	configPath := cmd.AddFlags(c.Flags(), &conf)
	require.NoError(t, c.ParseFlags([]string{"--transport", "udp"}))
	require.ErrorIs(t, configure(c, *configPath, &conf), config.ErrUnknownTransport)
}

func TestVersionCommand(t *testing.T) {
	cmd.Version = "v0.1.0"
	t.Cleanup(func() { cmd.Version = "" })
	c := GetCommand()
	var out bytes.Buffer
	c.SetOut(&out)
	c.SetArgs([]string{"version"})
	require.NoError(t, c.Execute())
	require.Equal(t, "v0.1.0\n", out.String())
}

func TestInitializeMissingPlotFile(t *testing.T) {
	conf := config.DefaultConfig()
	conf.PlotFile = "/plots.csv"
	app := New(WithConfig(&conf), WithFs(afero.NewMemMapFs()), WithLog(logtest.New(t)))
	require.Error(t, app.Initialize())
}

func TestMaxMessageSize(t *testing.T) {
	conf := config.DefaultConfig()
	conf.TCP.MaxMessageSize = 100
	conf.Bus.MaxMessageSize = 200
	app := New(WithConfig(&conf))
	require.Equal(t, 100, app.maxMessageSize())
	conf.Transport = config.TransportBus
	require.Equal(t, 200, app.maxMessageSize())
}

func TestRunNotInitialized(t *testing.T) {
	require.Error(t, New().Run(context.Background()))
}

func TestRunStopsOnCancel(t *testing.T) {
	conf := config.DefaultConfig()
	conf.Port = freePort(t)
	conf.OutputFile = filepath.Join(t.TempDir(), "out.csv")
	app := New(WithConfig(&conf), WithLog(logtest.New(t)))
	require.NoError(t, app.Initialize())

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- app.Run(ctx) }()
	cancel()
	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		require.FailNow(t, "node did not stop")
	}
	content, err := os.ReadFile(conf.OutputFile)
	require.NoError(t, err)
	require.Equal(t, "subject_id,node_id,timestamp,latitude,longitude\n", string(content))
}

const twoNodePlots = `subject_id,node_id,timestamp,latitude,longitude
1,1,50,1.5,2.5
1,2,52,1.5,2.5
2,2,60,5,5
`

// Node 2 replicates to node 1 only, so node 1 ends up with every plot while
// node 2 keeps its own.
func TestOneWayReplication(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/plots.csv", []byte(twoNodePlots), 0o600))
	ports := []uint16{freePort(t), freePort(t)}
	dir := t.TempDir()

	apps := make([]*App, len(ports))
	for i, port := range ports {
		conf := config.DefaultConfig()
		conf.NodeID = uint32(i + 1)
		conf.Port = port
		if i == 1 {
			conf.Peers = []string{net.JoinHostPort("127.0.0.1", strconv.Itoa(int(ports[0])))}
		}
		conf.Multiplier = 100
		conf.PlotFile = "/plots.csv"
		conf.PollInterval = 5 * time.Millisecond
		conf.OutputFile = filepath.Join(dir, "node"+strconv.Itoa(i+1)+".csv")
		conf.RunFor = 2 * time.Second
		conf.TCP.RedialInterval = 20 * time.Millisecond
		apps[i] = New(WithConfig(&conf), WithFs(fs), WithLog(logtest.New(t).Named(strconv.Itoa(i+1))))
		require.NoError(t, apps[i].Initialize())
	}

	var eg errgroup.Group
	for _, app := range apps {
		eg.Go(func() error { return app.Run(context.Background()) })
	}
	require.NoError(t, eg.Wait())

	// node 1 runs 2 seconds behind node 2, the copy of the shared sighting made by node 2 is merged
	requirePlots(t, apps[0].Config.OutputFile, []types.Plot{
		{SubjectID: 1, NodeID: 1, Timestamp: 52, Latitude: 1.5, Longitude: 2.5},
		{SubjectID: 2, NodeID: 2, Timestamp: 60, Latitude: 5, Longitude: 5},
	})
	requirePlots(t, apps[1].Config.OutputFile, []types.Plot{
		{SubjectID: 1, NodeID: 2, Timestamp: 52, Latitude: 1.5, Longitude: 2.5},
		{SubjectID: 2, NodeID: 2, Timestamp: 60, Latitude: 5, Longitude: 5},
	})
}

func requirePlots(t *testing.T, path string, expected []types.Plot) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	plots, err := plotdb.ReadCSV(f)
	require.NoError(t, err)
	require.Len(t, plots, len(expected))
	for i := range expected {
		require.True(t, expected[i].Equal(plots[i]), "got %+v", plots[i])
	}
}
