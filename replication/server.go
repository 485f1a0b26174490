// Package replication runs the loop that exchanges plots with peers and
// reconciles the store once the node is told to stop.
package replication

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/spacemeshos/plotsync/codec"
	"github.com/spacemeshos/plotsync/common/types"
	"github.com/spacemeshos/plotsync/p2p"
	"github.com/spacemeshos/plotsync/plotdb"
	"github.com/spacemeshos/plotsync/reconcile"
)

const (
	// DefaultInterval is the number of simulated seconds between two broadcasts.
	DefaultInterval int64 = 20
	// DefaultIdleDelay is the wall clock pause between loop iterations.
	DefaultIdleDelay = time.Millisecond
)

// ErrAlreadyStarted is returned by Start when called more than once.
var ErrAlreadyStarted = errors.New("replication: server already started")

// State of the replication loop.
type State int32

const (
	Idle State = iota
	Bound
	Running
	Draining
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Bound:
		return "bound"
	case Running:
		return "running"
	case Draining:
		return "draining"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// ReconcileFunc reconciles the store after replication stopped.
type ReconcileFunc func(*plotdb.DB) reconcile.Result

// Opt is a type to configure a Server.
type Opt func(*Server)

// WithLogger configures logger for the server.
func WithLogger(logger *zap.Logger) Opt {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithInterval sets the number of simulated seconds between broadcasts.
func WithInterval(interval int64) Opt {
	return func(s *Server) {
		s.interval = interval
	}
}

// WithIdleDelay sets the pause between loop iterations. Zero disables it.
func WithIdleDelay(delay time.Duration) Opt {
	return func(s *Server) {
		s.idleDelay = delay
	}
}

// WithWallClock sets the clock used to pace loop iterations.
func WithWallClock(clock clockwork.Clock) Opt {
	return func(s *Server) {
		s.wall = clock
	}
}

// WithReconciler replaces the shutdown reconciliation.
func WithReconciler(fn ReconcileFunc) Opt {
	return func(s *Server) {
		s.reconcile = fn
	}
}

// WithMaxBatchPlots limits how many plots go into one broadcast payload.
// Pending plots beyond the limit are sent in further batches. Zero means no limit.
func WithMaxBatchPlots(n int) Opt {
	return func(s *Server) {
		s.maxBatch = n
	}
}

// WithDrainHook registers fn to run once the loop stopped, before reconciliation.
// The node uses it to stop local capture so nothing else writes to the store.
func WithDrainHook(fn func()) Opt {
	return func(s *Server) {
		s.onDrain = fn
	}
}

// Server replicates the plots of a store with peers reachable through a queue.
type Server struct {
	logger    *zap.Logger
	wall      clockwork.Clock
	clock     adjustedClock
	queue     p2p.Queue
	db        *plotdb.DB
	interval  int64
	idleDelay time.Duration
	maxBatch  int
	reconcile ReconcileFunc
	onDrain   func()

	state    atomic.Int32
	started  atomic.Bool
	shutdown atomic.Bool
	stop     chan struct{}
	stopOnce sync.Once

	lastReplication int64
}

// New creates a Server. It takes ownership of queue and closes it when Start returns.
func New(queue p2p.Queue, db *plotdb.DB, clock adjustedClock, opts ...Opt) *Server {
	s := &Server{
		logger:    zap.NewNop(),
		wall:      clockwork.NewRealClock(),
		clock:     clock,
		queue:     queue,
		db:        db,
		interval:  DefaultInterval,
		idleDelay: DefaultIdleDelay,
		stop:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.reconcile == nil {
		logger := s.logger.Named("reconcile")
		s.reconcile = func(db *plotdb.DB) reconcile.Result {
			return reconcile.Run(db, reconcile.WithLogger(logger))
		}
	}
	return s
}

// State returns the current state of the loop.
func (s *Server) State() State {
	return State(s.state.Load())
}

func (s *Server) setState(state State) {
	s.state.Store(int32(state))
	loopState.Set(float64(state))
	s.logger.Debug("replication state changed", zap.Stringer("state", state))
}

// AdjustedNow returns the simulated time of this node in seconds.
func (s *Server) AdjustedNow() int64 {
	return s.clock.Now()
}

// Shutdown asks the loop to stop after the current iteration.
// It is safe to call from any goroutine and more than once.
func (s *Server) Shutdown() {
	s.stopOnce.Do(func() {
		s.shutdown.Store(true)
		close(s.stop)
	})
}

// Start binds the queue and replicates until Shutdown is called or ctx is done.
// The store is then reconciled once before Start returns.
func (s *Server) Start(ctx context.Context, address string, port uint16) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	defer func() {
		if err := s.queue.Close(); err != nil {
			s.logger.Warn("failed to close replication queue", zap.Error(err))
		}
		s.setState(Stopped)
	}()

	if err := s.queue.Bind(address, port); err != nil {
		return fmt.Errorf("bind %s:%d: %w", address, port, err)
	}
	s.setState(Bound)
	s.logger.Info("replication server bound",
		zap.String("address", address),
		zap.Uint16("port", port),
	)

	s.lastReplication = 0
	s.setState(Running)
	if err := s.run(ctx); err != nil {
		s.logger.Error("replication loop failed", zap.Error(err))
		return err
	}

	s.setState(Draining)
	if s.onDrain != nil {
		s.onDrain()
	}
	result := s.reconcile(s.db)
	s.logger.Info("store reconciled", zap.Object("result", &result), zap.Int("plots", s.db.Len()))
	return nil
}

func (s *Server) run(ctx context.Context) error {
	for !s.shutdown.Load() {
		if ctx.Err() != nil {
			s.logger.Info("context done, stopping replication")
			s.Shutdown()
			break
		}
		if err := s.iterate(ctx); err != nil {
			return err
		}
		if s.idleDelay <= 0 {
			continue
		}
		select {
		case <-s.wall.After(s.idleDelay):
		case <-s.stop:
		case <-ctx.Done():
		}
	}
	return nil
}

func (s *Server) iterate(ctx context.Context) error {
	if err := s.queue.Pump(ctx); err != nil {
		return fmt.Errorf("pump: %w", err)
	}
	if now := s.clock.Now(); now-s.lastReplication > s.interval {
		if _, err := s.QueueNewPlots(); err != nil {
			return err
		}
		s.lastReplication = s.clock.Now()
	}
	for {
		payload, ok := s.queue.PopInbound()
		if !ok {
			return nil
		}
		if err := s.ingest(payload); err != nil {
			return err
		}
	}
}

// QueueNewPlots broadcasts every plot not replicated yet and clears their
// pending flag. It returns the number of plots sent. If a broadcast fails, plots
// of the failed and later batches stay pending.
func (s *Server) QueueNewPlots() (int, error) {
	var pending []*types.Plot
	s.db.Iterate(func(p *types.Plot) bool {
		if p.IsSet(types.FlagPending) {
			pending = append(pending, p)
		}
		return true
	})
	if len(pending) == 0 {
		s.logger.Debug("no new plots to replicate")
		return 0, nil
	}
	size := len(pending)
	if s.maxBatch > 0 {
		size = s.maxBatch
	}
	sent := 0
	for batch := range slices.Chunk(pending, size) {
		payload, err := codec.EncodeBatch(batch)
		if err != nil {
			return sent, fmt.Errorf("encode batch: %w", err)
		}
		if err := s.queue.Broadcast(payload); err != nil {
			return sent, fmt.Errorf("broadcast batch: %w", err)
		}
		// only the loop touches flags, the antenna only appends
		for _, p := range batch {
			p.Clear(types.FlagPending)
		}
		sent += len(batch)
		plotsBroadcast.Add(float64(len(batch)))
		batchesSent.Inc()
	}
	s.logger.Debug("queued plots for replication", zap.Int("count", sent))
	return sent, nil
}

func (s *Server) ingest(payload []byte) error {
	plots, err := codec.DecodeBatch(payload)
	if err != nil {
		return fmt.Errorf("decode inbound batch: %w", err)
	}
	for _, p := range plots {
		s.db.Add(p)
	}
	plotsIngested.Add(float64(len(plots)))
	batchesReceived.Inc()
	s.logger.Debug("replicated in plots", zap.Int("count", len(plots)))
	return nil
}
