// Package cmd holds the flags and build information shared by plotsync executables.
package cmd

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/spacemeshos/plotsync/config"
	"github.com/spacemeshos/plotsync/config/presets"
)

var (
	// Version is the app's semantic version. Designed to be overwritten by make.
	Version string

	// Branch is the git branch used to build the App. Designed to be overwritten by make.
	Branch string

	// Commit is the git commit used to build the app. Designed to be overwritten by make.
	Commit string
)

// AddFlags binds the node flags to cfg and returns the location of the config file flag.
func AddFlags(flagSet *pflag.FlagSet, cfg *config.Config) (configPath *string) {
	configPath = flagSet.StringP("config", "c", "", "load configuration from file")
	flagSet.StringVarP(&cfg.Preset, "preset", "p", cfg.Preset,
		fmt.Sprintf("preset overwrites default values of the config. options %+s", presets.Options()))

	/** ======================== Node Flags ========================== **/

	flagSet.StringVarP(&cfg.Address, "address", "a", cfg.Address, "address to listen on for peers")
	flagSet.Uint16Var(&cfg.Port, "port", cfg.Port, "port to listen on for peers")
	flagSet.Uint32VarP(&cfg.NodeID, "node-id", "n", cfg.NodeID, "id of this node, the highest id is the clock reference")
	flagSet.StringSliceVar(&cfg.Peers, "peers", cfg.Peers, "comma separated host:port addresses of the other nodes")
	flagSet.StringVar(&cfg.Transport, "transport", cfg.Transport, "replication transport, tcp or bus")
	flagSet.Int64VarP(&cfg.Offset, "offset", "o", cfg.Offset, "seconds to delay the start of the simulated clock")
	flagSet.Float64VarP(&cfg.Multiplier, "multiplier", "m", cfg.Multiplier,
		"speed of the simulated clock relative to the wall clock")
	flagSet.Int64Var(&cfg.ReplicationInterval, "replication-interval", cfg.ReplicationInterval,
		"simulated seconds between two broadcasts of new plots")
	flagSet.DurationVar(&cfg.IdleDelay, "idle-delay", cfg.IdleDelay, "pause between replication loop iterations")
	flagSet.StringVar(&cfg.PlotFile, "plot-file", cfg.PlotFile, "csv file with the plots this node captures")
	flagSet.DurationVar(&cfg.PollInterval, "poll-interval", cfg.PollInterval, "how often the antenna checks for due plots")
	flagSet.StringVar(&cfg.OutputFile, "output-file", cfg.OutputFile, "write the reconciled plots to this csv file")
	flagSet.DurationVar(&cfg.RunFor, "run-for", cfg.RunFor, "stop the node after this long, zero runs until interrupted")

	/** ======================== Logging Flags ========================== **/

	flagSet.IntVarP(&cfg.LOGGING.Verbosity, "verbosity", "v", cfg.LOGGING.Verbosity,
		"0 errors only, 1 info, 2 debug, 3 debug with callers")
	flagSet.StringVar(&cfg.LOGGING.Encoder, "log-encoder", cfg.LOGGING.Encoder, "console or json")

	/** ======================== Metrics Flags ========================== **/

	flagSet.BoolVar(&cfg.Metrics.Enable, "metrics", cfg.Metrics.Enable, "collect node metrics")
	flagSet.IntVar(&cfg.Metrics.Port, "metrics-port", cfg.Metrics.Port, "metric server port")
	flagSet.StringVar(&cfg.Metrics.PushURL, "metrics-push", cfg.Metrics.PushURL, "push metrics to url")
	flagSet.DurationVar(&cfg.Metrics.PushPeriod, "metrics-push-period", cfg.Metrics.PushPeriod, "push period")

	return configPath
}
