// Package sensor simulates the radio of a node by replaying recorded plots.
package sensor

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/spacemeshos/plotsync/common/types"
	"github.com/spacemeshos/plotsync/plotdb"
)

// DefaultPollInterval is how often the antenna checks for plots that became due.
const DefaultPollInterval = 100 * time.Millisecond

// LoadPlots reads a plot file and returns the plots observed by node ordered by timestamp.
func LoadPlots(fs afero.Fs, path string, node types.NodeID) ([]types.Plot, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open plot file: %w", err)
	}
	defer f.Close()
	all, err := plotdb.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	own := slices.DeleteFunc(all, func(p types.Plot) bool {
		return p.NodeID != node
	})
	slices.SortStableFunc(own, func(a, b types.Plot) int {
		return cmp.Compare(a.Timestamp, b.Timestamp)
	})
	return own, nil
}

type adjustedClock interface {
	Now() int64
	Start() time.Time
	Multiplier() float64
	WallDuration(seconds int64) time.Duration
}

// Opt is a type to configure an Antenna.
type Opt func(*Antenna)

// WithLogger configures logger for the antenna.
func WithLogger(logger *zap.Logger) Opt {
	return func(a *Antenna) {
		a.logger = logger
	}
}

// WithWallClock sets the clock used between polls.
func WithWallClock(clock clockwork.Clock) Opt {
	return func(a *Antenna) {
		a.wall = clock
	}
}

// WithPollInterval sets the longest wall clock pause between two polls.
func WithPollInterval(interval time.Duration) Opt {
	return func(a *Antenna) {
		a.poll = interval
	}
}

// Antenna adds plots to the store once the adjusted clock reaches their timestamp.
type Antenna struct {
	logger *zap.Logger
	wall   clockwork.Clock
	clock  adjustedClock
	db     *plotdb.DB
	poll   time.Duration

	mu      sync.Mutex
	pending []types.Plot
}

// New creates an antenna that replays plots, which must be ordered by timestamp.
func New(db *plotdb.DB, clock adjustedClock, plots []types.Plot, opts ...Opt) *Antenna {
	a := &Antenna{
		logger:  zap.NewNop(),
		wall:    clockwork.NewRealClock(),
		clock:   clock,
		db:      db,
		poll:    DefaultPollInterval,
		pending: slices.Clone(plots),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Pending returns the number of plots not delivered yet.
func (a *Antenna) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

// Deliver adds every plot that is due to the store and returns how many were added.
func (a *Antenna) Deliver() int {
	now := a.clock.Now()
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for n < len(a.pending) && a.pending[n].Timestamp <= now {
		h := a.db.Add(a.pending[n])
		a.logger.Debug("plot captured", zap.Object("plot", h), zap.Int64("now", now))
		n++
	}
	a.pending = a.pending[n:]
	return n
}

// Run delivers plots until all of them were delivered or ctx is done.
func (a *Antenna) Run(ctx context.Context) error {
	a.logger.Info("antenna started", zap.Int("plots", a.Pending()))
	for {
		a.Deliver()
		if a.Pending() == 0 {
			a.logger.Info("all plots captured")
			return nil
		}
		select {
		case <-ctx.Done():
			a.logger.Info("antenna stopped", zap.Int("undelivered", a.Pending()))
			return nil
		case <-a.wall.After(a.nextWait()):
		}
	}
}

// nextWait returns the wall time until the next pending plot is due, capped by the poll interval.
func (a *Antenna) nextWait() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.pending) == 0 || a.clock.Multiplier() == 0 {
		return a.poll
	}
	due := a.clock.Start().Add(a.clock.WallDuration(a.pending[0].Timestamp))
	// simulated seconds are truncated, so a plot may still be pending right at its due time
	return min(max(due.Sub(a.wall.Now()), time.Millisecond), a.poll)
}
