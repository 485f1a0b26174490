// Package node contains the main executable for a plotsync node
package node

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spacemeshos/plotsync/cmd"
	"github.com/spacemeshos/plotsync/codec"
	"github.com/spacemeshos/plotsync/common/types"
	"github.com/spacemeshos/plotsync/config"
	"github.com/spacemeshos/plotsync/config/presets"
	"github.com/spacemeshos/plotsync/log"
	"github.com/spacemeshos/plotsync/metrics"
	"github.com/spacemeshos/plotsync/p2p"
	"github.com/spacemeshos/plotsync/p2p/bus"
	"github.com/spacemeshos/plotsync/p2p/tcp"
	"github.com/spacemeshos/plotsync/plotdb"
	"github.com/spacemeshos/plotsync/replication"
	"github.com/spacemeshos/plotsync/sensor"
	"github.com/spacemeshos/plotsync/timesync"
)

// Logger names.
const (
	P2PLogger         = "p2p"
	ReplicationLogger = "replication"
	AntennaLogger     = "antenna"
	MetricsLogger     = "metrics"
)

func GetCommand() *cobra.Command {
	conf := config.DefaultConfig()
	var configPath *string
	c := &cobra.Command{
		Use:   "plotnode",
		Short: "start a plot replication node",
		RunE: func(c *cobra.Command, args []string) error {
			if err := configure(c, *configPath, &conf); err != nil {
				return err
			}
			logger, err := log.New(conf.LOGGING.Verbosity, conf.LOGGING.Encoder)
			if err != nil {
				return err
			}
			defer logger.Sync()

			// Don't print usage on error from this point forward
			c.SilenceUsage = true

			app := New(WithConfig(&conf), WithLog(logger))
			if err := app.Initialize(); err != nil {
				return fmt.Errorf("initializing app: %w", err)
			}

			// os.Interrupt for all systems, syscall.SIGTERM is mainly for docker.
			ctx, cancel := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return app.Run(ctx)
		},
	}

	configPath = cmd.AddFlags(c.PersistentFlags(), &conf)

	// versionCmd returns the current version of plotsync.
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version info",
		Run: func(c *cobra.Command, args []string) {
			fmt.Fprintln(c.OutOrStdout(), cmd.Version)
		},
	}
	c.AddCommand(versionCmd)
	return c
}

func configure(c *cobra.Command, configPath string, conf *config.Config) error {
	// flags given on the command line win over the preset and the config file
	flags := changedFlags(c.Flags())
	preset := conf.Preset // might be set via CLI flag
	if err := loadConfig(conf, preset, configPath); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := flags.apply(c.Flags()); err != nil {
		return fmt.Errorf("parsing flags: %w", err)
	}
	return conf.Validate()
}

type flagValues map[string][]string

func changedFlags(fs *pflag.FlagSet) flagValues {
	values := flagValues{}
	fs.Visit(func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			values[f.Name] = slices.Clone(sv.GetSlice())
		} else {
			values[f.Name] = []string{f.Value.String()}
		}
	})
	return values
}

func (values flagValues) apply(fs *pflag.FlagSet) error {
	var errs []error
	fs.Visit(func(f *pflag.Flag) {
		v, ok := values[f.Name]
		if !ok {
			return
		}
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			errs = append(errs, sv.Replace(v))
			return
		}
		errs = append(errs, f.Value.Set(v[0]))
	})
	return errors.Join(errs...)
}

// loadConfig loads config and preset (if provided) into the provided config.
// It first loads the preset and then overrides it with values from the config file.
func loadConfig(cfg *config.Config, preset, path string) error {
	v := viper.New()
	// read in config from file
	if err := config.LoadConfig(path, v); err != nil {
		return err
	}

	// override default config with preset if provided
	if len(preset) == 0 && v.IsSet("main.preset") {
		preset = v.GetString("main.preset")
	}
	if len(preset) > 0 {
		p, err := presets.Get(preset)
		if err != nil {
			return err
		}
		*cfg = p
		cfg.Preset = preset
	}

	// Unmarshall config file into config struct
	hook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)

	opts := []viper.DecoderConfigOption{
		viper.DecodeHook(hook),
		WithZeroFields(),
		WithIgnoreUntagged(),
		WithErrorUnused(),
	}

	// load config if it was loaded to the viper
	if err := v.Unmarshal(cfg, opts...); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	return nil
}

func WithZeroFields() viper.DecoderConfigOption {
	return func(cfg *mapstructure.DecoderConfig) {
		cfg.ZeroFields = true
	}
}

func WithIgnoreUntagged() viper.DecoderConfigOption {
	return func(cfg *mapstructure.DecoderConfig) {
		cfg.IgnoreUntaggedFields = true
	}
}

func WithErrorUnused() viper.DecoderConfigOption {
	return func(cfg *mapstructure.DecoderConfig) {
		cfg.ErrorUnused = true
	}
}

// Option to modify an App instance.
type Option func(app *App)

// WithLog enables logger for an App.
func WithLog(logger *zap.Logger) Option {
	return func(app *App) {
		app.log = logger
	}
}

// WithConfig overwrites default App config.
func WithConfig(conf *config.Config) Option {
	return func(app *App) {
		app.Config = conf
	}
}

// WithFs sets the filesystem plot files are read from.
func WithFs(fs afero.Fs) Option {
	return func(app *App) {
		app.fs = fs
	}
}

// WithClock sets the wall clock of the node.
func WithClock(clock clockwork.Clock) Option {
	return func(app *App) {
		app.wall = clock
	}
}

// New creates an instance of the plotsync app.
func New(opts ...Option) *App {
	defaultConfig := config.DefaultConfig()
	app := &App{
		Config: &defaultConfig,
		log:    zap.NewNop(),
		fs:     afero.NewOsFs(),
		wall:   clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(app)
	}
	return app
}

// App is the cli app singleton.
type App struct {
	Config *config.Config
	log    *zap.Logger
	fs     afero.Fs
	wall   clockwork.Clock

	db          *plotdb.DB
	clock       *timesync.AdjustedClock
	queue       p2p.Queue
	server      *replication.Server
	antenna     *sensor.Antenna
	stopAntenna context.CancelFunc
	antennaDone chan struct{}
}

// DB returns the plot store of the node.
func (app *App) DB() *plotdb.DB {
	return app.db
}

// Server returns the replication server of the node.
func (app *App) Server() *replication.Server {
	return app.server
}

// Initialize builds the components of the node. Plot file errors are returned here.
func (app *App) Initialize() error {
	if err := app.Config.Validate(); err != nil {
		return err
	}
	nodeID := types.NodeID(app.Config.NodeID)
	app.log = app.log.With(zap.Stringer("node", nodeID))

	clock, err := timesync.NewAdjustedClock(app.Config.Multiplier,
		timesync.WithWallClock(app.wall),
		timesync.WithOffset(time.Duration(app.Config.Offset)*time.Second),
	)
	if err != nil {
		return fmt.Errorf("adjusted clock: %w", err)
	}
	app.clock = clock
	app.db = plotdb.New()

	if err := app.initQueue(); err != nil {
		return err
	}

	if app.Config.PlotFile != "" {
		plots, err := sensor.LoadPlots(app.fs, app.Config.PlotFile, nodeID)
		if err != nil {
			return err
		}
		app.antenna = sensor.New(app.db, app.clock, plots,
			sensor.WithLogger(app.log.Named(AntennaLogger)),
			sensor.WithWallClock(app.wall),
			sensor.WithPollInterval(app.Config.PollInterval),
		)
		app.log.Info("loaded plot file", zap.String("path", app.Config.PlotFile), zap.Int("plots", len(plots)))
	}

	app.server = replication.New(app.queue, app.db, app.clock,
		replication.WithLogger(app.log.Named(ReplicationLogger)),
		replication.WithInterval(app.Config.ReplicationInterval),
		replication.WithIdleDelay(app.Config.IdleDelay),
		replication.WithWallClock(app.wall),
		replication.WithMaxBatchPlots(codec.MaxBatchPlots(app.maxMessageSize())),
		replication.WithDrainHook(app.waitAntenna),
	)
	return nil
}

func (app *App) initQueue() error {
	logger := app.log.Named(P2PLogger)
	switch app.Config.Transport {
	case config.TransportBus:
		cfg := app.Config.Bus
		cfg.Peers = app.Config.Peers
		q, err := bus.New(cfg, bus.WithLogger(logger))
		if err != nil {
			return err
		}
		app.queue = q
	default:
		cfg := app.Config.TCP
		cfg.Peers = app.Config.Peers
		app.queue = tcp.New(cfg, tcp.WithLogger(logger), tcp.WithClock(app.wall))
	}
	return nil
}

// maxMessageSize is the frame limit of the configured transport.
func (app *App) maxMessageSize() int {
	if app.Config.Transport == config.TransportBus {
		return app.Config.Bus.MaxMessageSize
	}
	return app.Config.TCP.MaxMessageSize
}

// waitAntenna stops local capture and waits until the antenna returned.
func (app *App) waitAntenna() {
	if app.stopAntenna == nil {
		return
	}
	app.stopAntenna()
	<-app.antennaDone
}

// Run replicates until ctx is done or RunFor elapsed, then writes the reconciled
// plots to the output file if one is configured.
func (app *App) Run(ctx context.Context) error {
	if app.server == nil {
		return errors.New("app is not initialized")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	eg, ctx := errgroup.WithContext(ctx)

	if app.antenna != nil {
		antennaCtx, stop := context.WithCancel(ctx)
		app.stopAntenna = stop
		app.antennaDone = make(chan struct{})
		eg.Go(func() error {
			defer close(app.antennaDone)
			return app.antenna.Run(antennaCtx)
		})
	}

	if app.Config.Metrics.Enable {
		address := net.JoinHostPort("", strconv.Itoa(app.Config.Metrics.Port))
		logger := app.log.Named(MetricsLogger)
		eg.Go(func() error {
			return metrics.StartCollectingMetrics(ctx, logger, address)
		})
		if app.Config.Metrics.PushURL != "" {
			eg.Go(func() error {
				metrics.StartPushingMetrics(ctx, logger, app.Config.Metrics.PushURL,
					app.Config.Metrics.PushPeriod, types.NodeID(app.Config.NodeID).String())
				return nil
			})
		}
	}

	if app.Config.RunFor > 0 {
		eg.Go(func() error {
			select {
			case <-app.wall.After(app.Config.RunFor):
				app.log.Info("run time elapsed, shutting down", zap.Duration("run_for", app.Config.RunFor))
				app.server.Shutdown()
			case <-ctx.Done():
			}
			return nil
		})
	}

	eg.Go(func() error {
		defer cancel()
		return app.server.Start(ctx, app.Config.Address, app.Config.Port)
	})

	if err := eg.Wait(); err != nil {
		return err
	}
	app.log.Info("replication finished", zap.Int("plots", app.db.Len()))
	if app.Config.OutputFile != "" {
		if err := app.db.WriteFile(app.Config.OutputFile); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		app.log.Info("wrote reconciled plots", zap.String("path", app.Config.OutputFile))
	}
	return nil
}
