package timesync

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

func TestAdjustedClock(t *testing.T) {
	for _, tc := range []struct {
		desc       string
		multiplier float64
		offset     time.Duration
		advance    time.Duration
		expect     int64
	}{
		{desc: "real time", multiplier: 1, advance: 10 * time.Second, expect: 10},
		{desc: "accelerated", multiplier: 4, advance: 10 * time.Second, expect: 40},
		{desc: "truncated", multiplier: 1, advance: 1900 * time.Millisecond, expect: 1},
		{desc: "fractional multiplier", multiplier: 0.5, advance: 5 * time.Second, expect: 2},
		{desc: "stopped", multiplier: 0, advance: time.Hour, expect: 0},
		{desc: "late start", multiplier: 1, offset: 5 * time.Second, advance: 8 * time.Second, expect: 3},
		{desc: "before start", multiplier: 2, offset: 5 * time.Second, advance: 2 * time.Second, expect: -6},
		{desc: "early start", multiplier: 1, offset: -5 * time.Second, advance: time.Second, expect: 6},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			wall := clockwork.NewFakeClock()
			clock, err := NewAdjustedClock(tc.multiplier, WithWallClock(wall), WithOffset(tc.offset))
			require.NoError(t, err)
			require.Equal(t, wall.Now().Add(tc.offset), clock.Start())

			wall.Advance(tc.advance)
			require.Equal(t, tc.expect, clock.Now())
		})
	}
}

func TestAdjustedClockNegativeMultiplier(t *testing.T) {
	_, err := NewAdjustedClock(-1)
	require.ErrorIs(t, err, ErrNegativeMultiplier)
}

func TestAdjustedClockWallDuration(t *testing.T) {
	clock, err := NewAdjustedClock(4)
	require.NoError(t, err)
	require.Equal(t, 5*time.Second, clock.WallDuration(20))
	require.EqualValues(t, 4, clock.Multiplier())

	stopped, err := NewAdjustedClock(0)
	require.NoError(t, err)
	require.Zero(t, stopped.WallDuration(20))
}

func TestAdjustedClockRealWall(t *testing.T) {
	clock, err := NewAdjustedClock(1)
	require.NoError(t, err)
	require.Zero(t, clock.Now())
}
