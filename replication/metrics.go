package replication

import "github.com/spacemeshos/plotsync/metrics"

const namespace = "replication"

var (
	plotsBroadcast = metrics.NewCounter(
		"plots_broadcast",
		namespace,
		"number of plots included in outbound batches",
		[]string{},
	).WithLabelValues()
	plotsIngested = metrics.NewCounter(
		"plots_ingested",
		namespace,
		"number of plots added from inbound batches",
		[]string{},
	).WithLabelValues()
	batches = metrics.NewCounter(
		"batches",
		namespace,
		"number of batches by direction",
		[]string{"direction"},
	)
	batchesSent     = batches.WithLabelValues("outbound")
	batchesReceived = batches.WithLabelValues("inbound")

	loopState = metrics.NewGauge(
		"state",
		namespace,
		"current state of the replication loop",
		[]string{},
	).WithLabelValues()
)
