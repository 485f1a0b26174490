package reconcile

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/spacemeshos/plotsync/common/types"
	"github.com/spacemeshos/plotsync/plotdb"
)

func plot(node types.NodeID, ts int64, lat, lon float64) types.Plot {
	return types.Plot{SubjectID: 1, NodeID: node, Timestamp: ts, Latitude: lat, Longitude: lon}
}

func newDB(plots ...types.Plot) *plotdb.DB {
	db := plotdb.New()
	for _, p := range plots {
		db.Add(p)
	}
	return db
}

func stripFlags(plots []types.Plot) []types.Plot {
	for i := range plots {
		plots[i].Flags = 0
	}
	return plots
}

func TestRunEndToEnd(t *testing.T) {
	db := newDB(
		plot(1, 100, 10, 20),
		plot(2, 150, 10, 20),
	)
	result := Run(db, WithLogger(zaptest.NewLogger(t)))

	require.Equal(t, types.NodeID(2), result.Reference)
	require.Equal(t, map[types.NodeID]int64{1: 50}, result.Offsets)
	require.Equal(t, 1, result.Removed)
	require.Equal(t, []types.Plot{plot(1, 150, 10, 20)}, stripFlags(db.Snapshot()))
}

func TestOffsetFor(t *testing.T) {
	db := newDB(
		plot(3, 40, 1, 1),
		plot(1, 10, 5, 5),
		plot(3, 70, 5, 5),
	)
	db.SortByTime()
	handles := db.Handles()

	offset, dup := offsetFor(handles, make([]bool, len(handles)), 1, 3)
	require.EqualValues(t, 60, offset)
	require.Equal(t, 2, dup)
	require.Equal(t, types.NodeID(3), handles[dup].NodeID)
	require.EqualValues(t, 70, handles[dup].Timestamp)
}

func TestOffsetForSearchesOnlyLaterPlots(t *testing.T) {
	db := newDB(
		plot(2, 10, 5, 5),
		plot(1, 20, 5, 5),
	)
	db.SortByTime()
	handles := db.Handles()

	offset, dup := offsetFor(handles, make([]bool, len(handles)), 1, 2)
	require.Zero(t, offset)
	require.Equal(t, -1, dup)
}

func TestSingleDuplicatePerNode(t *testing.T) {
	db := newDB(
		plot(1, 100, 1, 1),
		plot(1, 110, 2, 2),
		plot(1, 120, 3, 3),
		plot(2, 130, 2, 2),
		plot(2, 140, 3, 3),
	)
	result := Run(db)

	// 110 at (2,2) is the first plot of node 1 with a later match.
	require.Equal(t, map[types.NodeID]int64{1: 20}, result.Offsets)
	require.Equal(t, 1, result.Removed)
	require.Equal(t, []types.Plot{
		plot(1, 120, 1, 1),
		plot(1, 130, 2, 2),
		plot(1, 140, 3, 3),
		plot(2, 140, 3, 3),
	}, stripFlags(db.Snapshot()))
}

func TestNoMatch(t *testing.T) {
	db := newDB(
		plot(1, 100, 1, 1),
		plot(1, 200, 2, 2),
		plot(2, 150, 9, 9),
	)
	result := Run(db)

	require.Equal(t, map[types.NodeID]int64{1: 0}, result.Offsets)
	require.Zero(t, result.Removed)
	require.Equal(t, []types.Plot{
		plot(1, 100, 1, 1),
		plot(2, 150, 9, 9),
		plot(1, 200, 2, 2),
	}, stripFlags(db.Snapshot()))
}

func TestThreeNodes(t *testing.T) {
	db := newDB(
		plot(1, 5, 1, 1),
		plot(2, 12, 1, 1),
		plot(3, 20, 1, 1),
		plot(1, 50, 4, 4),
		plot(2, 61, 7, 7),
		plot(3, 67, 7, 7),
		plot(3, 70, 4, 4),
	)
	result := Run(db)

	require.Equal(t, []types.NodeID{1, 2, 3}, result.Nodes)
	require.Equal(t, types.NodeID(3), result.Reference)
	// node 1 claims the reference plot at t=20, so the first plot of node 2
	// has no unclaimed match and node 2 pairs through (7,7) instead.
	require.Equal(t, map[types.NodeID]int64{1: 15, 2: 6}, result.Offsets)
	require.Equal(t, 2, result.Removed)
	require.Equal(t, []types.Plot{
		plot(1, 20, 1, 1),
		plot(2, 18, 1, 1),
		plot(1, 65, 4, 4),
		plot(2, 67, 7, 7),
		plot(3, 70, 4, 4),
	}, stripFlags(db.Snapshot()))
}

func TestReferencePlotsUnchanged(t *testing.T) {
	db := newDB(
		plot(7, 1000, 1, 1),
		plot(4, 900, 1, 1),
		plot(7, 1100, 2, 2),
	)
	Run(db)
	for _, p := range db.Snapshot() {
		if p.NodeID == 7 {
			require.Contains(t, []int64{1000, 1100}, p.Timestamp)
		}
	}
}

func TestSingleNode(t *testing.T) {
	db := newDB(
		plot(5, 30, 1, 1),
		plot(5, 10, 1, 1),
	)
	result := Run(db)

	require.Equal(t, types.NodeID(5), result.Reference)
	require.Empty(t, result.Offsets)
	require.Zero(t, result.Removed)
	require.Equal(t, []types.Plot{plot(5, 10, 1, 1), plot(5, 30, 1, 1)}, stripFlags(db.Snapshot()))
}

func TestEmptyStore(t *testing.T) {
	db := plotdb.New()
	result := Run(db)
	require.Empty(t, result.Offsets)
	require.Zero(t, result.Removed)
	require.Zero(t, db.Len())
}

func TestNodeSet(t *testing.T) {
	db := newDB(
		plot(3, 1, 0, 0),
		plot(1, 2, 0, 0),
		plot(3, 3, 0, 0),
		plot(2, 4, 0, 0),
	)
	require.Equal(t, []types.NodeID{1, 2, 3}, NodeSet(db.Handles()))
	require.Empty(t, NodeSet(nil))
}
