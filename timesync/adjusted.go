// Package timesync provides the simulated clock every scheduling decision of a node is based on.
package timesync

import (
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
)

// ErrNegativeMultiplier is returned when the clock is configured to run backwards.
var ErrNegativeMultiplier = errors.New("timesync: negative time multiplier")

// Opt configures an AdjustedClock.
type Opt func(*AdjustedClock)

// WithWallClock replaces the wall clock the adjusted clock reads from.
func WithWallClock(clock clockwork.Clock) Opt {
	return func(c *AdjustedClock) {
		c.wall = clock
	}
}

// WithOffset shifts the start of the simulated clock.
// A positive offset makes the node behave as if it was started later.
func WithOffset(offset time.Duration) Opt {
	return func(c *AdjustedClock) {
		c.offset = offset
	}
}

// AdjustedClock reports simulated seconds elapsed since the node started.
//
// Simulated time is (wall now - start) * multiplier, truncated to whole seconds,
// where start is the wall time at construction plus the configured offset.
type AdjustedClock struct {
	wall       clockwork.Clock
	offset     time.Duration
	start      time.Time
	multiplier float64
}

// NewAdjustedClock creates a clock running multiplier times faster than the wall clock.
func NewAdjustedClock(multiplier float64, opts ...Opt) (*AdjustedClock, error) {
	if multiplier < 0 {
		return nil, ErrNegativeMultiplier
	}
	c := &AdjustedClock{
		wall:       clockwork.NewRealClock(),
		multiplier: multiplier,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.start = c.wall.Now().Add(c.offset)
	return c, nil
}

// Now returns the current simulated time in seconds.
func (c *AdjustedClock) Now() int64 {
	elapsed := c.wall.Now().Sub(c.start).Seconds()
	return int64(elapsed * c.multiplier)
}

// Start returns the wall time the simulated clock counts from.
func (c *AdjustedClock) Start() time.Time {
	return c.start
}

// Multiplier returns how many simulated seconds pass per wall second.
func (c *AdjustedClock) Multiplier() float64 {
	return c.multiplier
}

// WallDuration converts a span of simulated seconds into wall time.
// A stopped clock (multiplier 0) never reaches any span, so the result is 0.
func (c *AdjustedClock) WallDuration(seconds int64) time.Duration {
	if c.multiplier == 0 {
		return 0
	}
	return time.Duration(float64(seconds) * float64(time.Second) / c.multiplier)
}
