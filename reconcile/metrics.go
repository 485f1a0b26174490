package reconcile

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/spacemeshos/plotsync/metrics"
)

const namespace = "reconcile"

var (
	runLatency = metrics.NewHistogramWithBuckets(
		"run_seconds",
		namespace,
		"reconciliation time in seconds",
		[]string{},
		prometheus.ExponentialBuckets(0.001, 2, 12),
	).WithLabelValues()
	removedPlots = metrics.NewCounter(
		"removed_plots",
		namespace,
		"number of duplicate plots removed by reconciliation",
		[]string{},
	).WithLabelValues()
	unmatchedNodes = metrics.NewCounter(
		"unmatched_nodes",
		namespace,
		"number of nodes for which no duplicate was found",
		[]string{},
	).WithLabelValues()
)
