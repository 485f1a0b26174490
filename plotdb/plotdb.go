// Package plotdb holds the plots known to a node in insertion order.
package plotdb

import (
	"slices"
	"sync"

	"github.com/spacemeshos/plotsync/common/types"
)

// DB is an ordered, in-memory plot store.
//
// Handles returned by Add and passed to Iterate callbacks are the stored
// *types.Plot values; they stay valid until removed and may be mutated in
// place by the caller that holds them.
type DB struct {
	mu    sync.Mutex
	plots []*types.Plot
}

// New creates an empty DB.
func New() *DB {
	return &DB{}
}

// Add appends a copy of p marked as pending replication and returns its handle.
func (db *DB) Add(p types.Plot) *types.Plot {
	stored := p
	stored.Set(types.FlagPending)
	db.mu.Lock()
	defer db.mu.Unlock()
	db.plots = append(db.plots, &stored)
	return &stored
}

// Len returns the number of plots in the DB.
func (db *DB) Len() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.plots)
}

// Iterate calls fn for every plot in order until fn returns false.
// fn must not call back into the DB.
func (db *DB) Iterate(fn func(*types.Plot) bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, p := range db.plots {
		if !fn(p) {
			return
		}
	}
}

// Handles returns the current handles in order. The slice is a copy, the handles are not.
func (db *DB) Handles() []*types.Plot {
	db.mu.Lock()
	defer db.mu.Unlock()
	return slices.Clone(db.plots)
}

// Remove deletes the plots identified by the given handles, preserving the order
// of the remaining plots. Unknown handles are ignored. Returns the number of removed plots.
func (db *DB) Remove(handles ...*types.Plot) int {
	if len(handles) == 0 {
		return 0
	}
	drop := make(map[*types.Plot]struct{}, len(handles))
	for _, h := range handles {
		drop[h] = struct{}{}
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	before := len(db.plots)
	db.plots = slices.DeleteFunc(db.plots, func(p *types.Plot) bool {
		_, ok := drop[p]
		return ok
	})
	return before - len(db.plots)
}

// SortByTime stably sorts plots by ascending timestamp.
func (db *DB) SortByTime() {
	db.mu.Lock()
	defer db.mu.Unlock()
	slices.SortStableFunc(db.plots, func(a, b *types.Plot) int {
		switch {
		case a.Timestamp < b.Timestamp:
			return -1
		case a.Timestamp > b.Timestamp:
			return 1
		}
		return 0
	})
}

// Snapshot returns copies of all plots in order.
func (db *DB) Snapshot() []types.Plot {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]types.Plot, 0, len(db.plots))
	for _, p := range db.plots {
		out = append(out, *p)
	}
	return out
}
