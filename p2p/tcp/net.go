// Package tcp implements p2p.Queue over plain tcp connections with varint length-prefixed frames.
//
// Every node dials each configured peer and only writes to connections it dialed.
// Connections accepted by the listener are only read from. With a full mesh of
// peers every payload therefore reaches every peer exactly once.
package tcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/libp2p/go-msgio"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spacemeshos/plotsync/p2p"
)

const transportName = "tcp"

// Opt is a type to configure a Net.
type Opt func(*Net)

// WithLogger configures logger for the transport.
func WithLogger(logger *zap.Logger) Opt {
	return func(n *Net) {
		n.logger = logger
	}
}

// WithClock configures the wall clock used to pace redials.
func WithClock(clock clockwork.Clock) Opt {
	return func(n *Net) {
		n.clock = clock
	}
}

type outbound struct {
	conn net.Conn
	w    msgio.WriteCloser
}

// Net is a tcp replication queue.
type Net struct {
	logger *zap.Logger
	clock  clockwork.Clock
	cfg    Config

	listener net.Listener
	inbox    *p2p.Inbox
	eg       errgroup.Group
	closed   atomic.Bool

	mu       sync.Mutex
	peers    map[string]*outbound
	lastDial map[string]time.Time
	accepted map[net.Conn]struct{}
}

// New creates a tcp transport. It does not listen until Bind is called.
func New(cfg Config, opts ...Opt) *Net {
	n := &Net{
		logger:   zap.NewNop(),
		clock:    clockwork.NewRealClock(),
		cfg:      cfg,
		peers:    make(map[string]*outbound),
		lastDial: make(map[string]time.Time),
		accepted: make(map[net.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(n)
	}
	n.inbox = p2p.NewInbox(transportName, cfg.InboxSize, n.logger)
	return n
}

var _ p2p.Queue = (*Net)(nil)

// Bind listens on address:port and starts accepting peers.
func (n *Net) Bind(address string, port uint16) error {
	if n.closed.Load() {
		return p2p.ErrClosed
	}
	if n.listener != nil {
		return fmt.Errorf("already listening on %s", n.listener.Addr())
	}
	l, err := net.Listen("tcp", net.JoinHostPort(address, strconv.Itoa(int(port))))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	n.listener = l
	n.logger.Info("listening", zap.Stringer("address", l.Addr()))
	n.eg.Go(n.acceptLoop)
	return nil
}

// Addr returns the listening address, or nil before Bind.
func (n *Net) Addr() net.Addr {
	if n.listener == nil {
		return nil
	}
	return n.listener.Addr()
}

func (n *Net) acceptLoop() error {
	for {
		conn, err := n.listener.Accept()
		if err != nil {
			if n.closed.Load() {
				return nil
			}
			n.logger.Error("failed to accept connection", zap.Error(err))
			return err
		}
		n.logger.Debug("accepted connection", zap.Stringer("remote", conn.RemoteAddr()))
		n.mu.Lock()
		n.accepted[conn] = struct{}{}
		n.mu.Unlock()
		n.eg.Go(func() error {
			n.readLoop(conn)
			return nil
		})
	}
}

func (n *Net) readLoop(conn net.Conn) {
	defer func() {
		n.mu.Lock()
		delete(n.accepted, conn)
		n.mu.Unlock()
		conn.Close()
	}()
	r := msgio.NewVarintReaderSize(conn, n.cfg.MaxMessageSize)
	for {
		msg, err := r.ReadMsg()
		if err != nil {
			if !n.closed.Load() {
				n.logger.Debug("connection closed", zap.Stringer("remote", conn.RemoteAddr()), zap.Error(err))
			}
			return
		}
		payload := make([]byte, len(msg))
		copy(payload, msg)
		r.ReleaseMsg(msg)
		n.inbox.Push(payload)
	}
}

// Pump dials configured peers that are not connected, at most once per redial interval each.
func (n *Net) Pump(ctx context.Context) error {
	if n.closed.Load() {
		return p2p.ErrClosed
	}
	now := n.clock.Now()
	for _, addr := range n.cfg.Peers {
		n.mu.Lock()
		_, connected := n.peers[addr]
		last, dialed := n.lastDial[addr]
		n.mu.Unlock()
		if connected || (dialed && now.Sub(last) < n.cfg.RedialInterval) {
			continue
		}
		n.mu.Lock()
		n.lastDial[addr] = now
		n.mu.Unlock()
		if err := n.dial(ctx, addr); err != nil {
			n.logger.Debug("failed to dial peer", zap.String("peer", addr), zap.Error(err))
		}
	}
	return nil
}

func (n *Net) dial(ctx context.Context, addr string) error {
	dialer := net.Dialer{Timeout: n.cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed.Load() {
		conn.Close()
		return p2p.ErrClosed
	}
	n.peers[addr] = &outbound{conn: conn, w: msgio.NewVarintWriter(conn)}
	n.logger.Info("connected to peer", zap.String("peer", addr))
	return nil
}

// Broadcast writes payload to every dialed peer. Peers that fail are
// disconnected and redialed by a later Pump. Payloads over MaxMessageSize are dropped.
func (n *Net) Broadcast(payload []byte) error {
	if n.closed.Load() {
		return p2p.ErrClosed
	}
	if n.cfg.MaxMessageSize > 0 && len(payload) > n.cfg.MaxMessageSize {
		// peers would reject the frame, so it is never written
		p2p.CountOversized(transportName)
		n.logger.Warn("dropping payload over the frame limit",
			zap.Int("size", len(payload)),
			zap.Int("limit", n.cfg.MaxMessageSize),
		)
		return nil
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	sent := 0
	for addr, peer := range n.peers {
		if n.cfg.WriteTimeout > 0 {
			peer.conn.SetWriteDeadline(time.Now().Add(n.cfg.WriteTimeout))
		}
		if err := peer.w.WriteMsg(payload); err != nil {
			n.logger.Warn("dropping peer after failed write", zap.String("peer", addr), zap.Error(err))
			peer.w.Close()
			delete(n.peers, addr)
			continue
		}
		sent++
	}
	p2p.CountSent(transportName, sent)
	n.logger.Debug("broadcast payload", zap.Int("size", len(payload)), zap.Int("peers", sent))
	return nil
}

// PopInbound returns the next payload received from any peer.
func (n *Net) PopInbound() ([]byte, bool) {
	return n.inbox.Pop()
}

// Connected returns the number of dialed peers.
func (n *Net) Connected() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.peers)
}

// Close stops the listener, closes all connections and waits for reader goroutines.
func (n *Net) Close() error {
	if !n.closed.CompareAndSwap(false, true) {
		return nil
	}
	var errs []error
	if n.listener != nil {
		if err := n.listener.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	n.mu.Lock()
	for addr, peer := range n.peers {
		peer.w.Close()
		delete(n.peers, addr)
	}
	for conn := range n.accepted {
		conn.Close()
	}
	n.mu.Unlock()
	if err := n.eg.Wait(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
