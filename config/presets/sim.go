package presets

import (
	"time"

	"github.com/spacemeshos/plotsync/config"
)

func init() {
	register("sim", sim())
}

// sim accelerates the simulated clock so a replication run over a recorded
// plot file completes in seconds.
func sim() config.Config {
	conf := config.DefaultConfig()
	conf.Multiplier = 10
	conf.PollInterval = 10 * time.Millisecond
	conf.RunFor = time.Minute

	conf.TCP.DialTimeout = 500 * time.Millisecond
	conf.TCP.RedialInterval = 100 * time.Millisecond
	conf.Bus.ReconnectTime = 50 * time.Millisecond

	conf.LOGGING.Verbosity = 2
	return conf
}
