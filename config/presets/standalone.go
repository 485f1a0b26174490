package presets

import (
	"time"

	"github.com/spacemeshos/plotsync/config"
)

func init() {
	register("standalone", standalone())
}

// standalone runs a single node in real time without peers.
func standalone() config.Config {
	conf := config.DefaultConfig()
	conf.Address = "127.0.0.1"
	conf.Port = 9999
	conf.NodeID = 1
	conf.Peers = nil
	conf.Multiplier = 1
	conf.TCP.RedialInterval = 5 * time.Second
	conf.Metrics.Enable = false
	return conf
}
