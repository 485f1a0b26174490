// Package reconcile makes the plots of all replicas agree on one clock.
//
// It runs once, after replication stopped. The highest node id present is the
// reference node and its clock is taken as ground truth. For every other node
// the first plot that has a later reference plot at identical coordinates
// gives the clock offset of that node; the matched reference plot is the
// duplicate and is dropped. Timestamps of all non-reference plots are then
// shifted by the offset of their node.
package reconcile

import (
	"slices"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/spacemeshos/plotsync/common/types"
)

// Store is the subset of plotdb.DB reconciliation needs.
type Store interface {
	SortByTime()
	Handles() []*types.Plot
	Iterate(func(*types.Plot) bool)
	Remove(...*types.Plot) int
}

// Result summarizes a reconciliation pass.
type Result struct {
	Reference types.NodeID
	Nodes     []types.NodeID
	// Offsets holds one entry per non-reference node, in seconds.
	Offsets map[types.NodeID]int64
	Removed int
}

// MarshalLogObject implements logging encoder for Result.
func (r *Result) MarshalLogObject(encoder zapcore.ObjectEncoder) error {
	encoder.AddUint32("reference", r.Reference.Uint32())
	encoder.AddInt("nodes", len(r.Nodes))
	encoder.AddInt("removed", r.Removed)
	return encoder.AddObject("offsets", zapcore.ObjectMarshalerFunc(func(enc zapcore.ObjectEncoder) error {
		for _, id := range r.Nodes {
			if offset, ok := r.Offsets[id]; ok {
				enc.AddInt64(id.String(), offset)
			}
		}
		return nil
	}))
}

// Opt configures Run.
type Opt func(*reconciler)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Opt {
	return func(r *reconciler) {
		r.logger = logger
	}
}

type reconciler struct {
	logger *zap.Logger
}

// Run reconciles db in place.
func Run(db Store, opts ...Opt) Result {
	r := &reconciler{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	start := time.Now()
	defer func() { runLatency.Observe(time.Since(start).Seconds()) }()

	db.SortByTime()
	handles := db.Handles()
	nodes := NodeSet(handles)
	if len(nodes) == 0 {
		r.logger.Debug("nothing to reconcile")
		return Result{Offsets: map[types.NodeID]int64{}}
	}
	reference := nodes[len(nodes)-1]
	result := Result{
		Reference: reference,
		Nodes:     nodes,
		Offsets:   make(map[types.NodeID]int64, len(nodes)-1),
	}

	claimed := make([]bool, len(handles))
	var duplicates []*types.Plot
	for _, id := range nodes[:len(nodes)-1] {
		offset, dup := offsetFor(handles, claimed, id, reference)
		result.Offsets[id] = offset
		if dup >= 0 {
			claimed[dup] = true
			duplicates = append(duplicates, handles[dup])
			r.logger.Debug("matched duplicate",
				zap.Stringer("node", id),
				zap.Int64("offset", offset),
				zap.Object("duplicate", handles[dup]),
			)
		} else {
			unmatchedNodes.Inc()
			r.logger.Debug("no duplicate found, timestamps left as is", zap.Stringer("node", id))
		}
	}
	result.Removed = db.Remove(duplicates...)
	removedPlots.Add(float64(result.Removed))
	correctTimestamps(db, reference, result.Offsets)

	r.logger.Info("reconciled plots", zap.Object("result", &result))
	return result
}

// NodeSet returns the distinct node ids of plots in ascending order.
func NodeSet(plots []*types.Plot) []types.NodeID {
	seen := make(map[types.NodeID]struct{})
	var nodes []types.NodeID
	for _, p := range plots {
		if _, ok := seen[p.NodeID]; ok {
			continue
		}
		seen[p.NodeID] = struct{}{}
		nodes = append(nodes, p.NodeID)
	}
	slices.Sort(nodes)
	return nodes
}

// offsetFor finds the clock offset of node relative to reference.
//
// Plots of node are visited in order. For each, the plots strictly after it are
// searched for the first unclaimed reference plot at the same coordinates. The
// first pair found wins: the offset is the reference timestamp minus the node
// timestamp and the index of the reference plot is returned as the duplicate.
// If no pair exists the offset is 0 and the index is -1.
func offsetFor(plots []*types.Plot, claimed []bool, node, reference types.NodeID) (int64, int) {
	for i, candidate := range plots {
		if candidate.NodeID != node {
			continue
		}
		for j := i + 1; j < len(plots); j++ {
			ref := plots[j]
			if claimed[j] || ref.NodeID != reference || !ref.SameLocation(candidate) {
				continue
			}
			return ref.Timestamp - candidate.Timestamp, j
		}
	}
	return 0, -1
}

// correctTimestamps moves every non-reference plot into the reference clock frame.
func correctTimestamps(db Store, reference types.NodeID, offsets map[types.NodeID]int64) {
	db.Iterate(func(p *types.Plot) bool {
		if p.NodeID != reference {
			p.Timestamp += offsets[p.NodeID]
		}
		return true
	})
}
