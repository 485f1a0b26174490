// Package bus implements p2p.Queue on a nanomsg bus socket.
//
// A bus pipe carries messages both ways, so of every pair of peers only the
// one with the lower listen url dials. The socket redials lost peers on its own.
package bus

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"go.nanomsg.org/mangos/v3"
	mbus "go.nanomsg.org/mangos/v3/protocol/bus"
	_ "go.nanomsg.org/mangos/v3/transport/tcp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spacemeshos/plotsync/p2p"
)

const transportName = "bus"

// Config for the bus transport.
type Config struct {
	// Peers are host:port addresses of the other nodes.
	Peers          []string      `mapstructure:"-"`
	MaxMessageSize int           `mapstructure:"max-message-size"`
	ReconnectTime  time.Duration `mapstructure:"reconnect-time"`
	InboxSize      int           `mapstructure:"inbox-size"`
}

// DefaultConfig for the bus transport.
func DefaultConfig() Config {
	return Config{
		MaxMessageSize: 8 << 20,
		ReconnectTime:  100 * time.Millisecond,
		InboxSize:      1024,
	}
}

// Opt is a type to configure a Socket.
type Opt func(*Socket)

// WithLogger configures logger for the transport.
func WithLogger(logger *zap.Logger) Opt {
	return func(s *Socket) {
		s.logger = logger
	}
}

// Socket is a replication queue backed by a mangos bus socket.
type Socket struct {
	logger *zap.Logger
	cfg    Config

	sock   mangos.Socket
	url    string
	inbox  *p2p.Inbox
	eg     errgroup.Group
	closed atomic.Bool
}

// New creates a bus transport.
func New(cfg Config, opts ...Opt) (*Socket, error) {
	sock, err := mbus.NewSocket()
	if err != nil {
		return nil, fmt.Errorf("new bus socket: %w", err)
	}
	s := &Socket{
		logger: zap.NewNop(),
		cfg:    cfg,
		sock:   sock,
	}
	for _, opt := range opts {
		opt(s)
	}
	if cfg.MaxMessageSize > 0 {
		if err := sock.SetOption(mangos.OptionMaxRecvSize, cfg.MaxMessageSize); err != nil {
			sock.Close()
			return nil, fmt.Errorf("set max recv size: %w", err)
		}
	}
	if cfg.ReconnectTime > 0 {
		if err := sock.SetOption(mangos.OptionReconnectTime, cfg.ReconnectTime); err != nil {
			sock.Close()
			return nil, fmt.Errorf("set reconnect time: %w", err)
		}
	}
	s.inbox = p2p.NewInbox(transportName, cfg.InboxSize, s.logger)
	return s, nil
}

var _ p2p.Queue = (*Socket)(nil)

func tcpURL(hostport string) string {
	return "tcp://" + hostport
}

// Bind listens on address:port, dials the peers this node is responsible for
// and starts receiving.
func (s *Socket) Bind(address string, port uint16) error {
	if s.closed.Load() {
		return p2p.ErrClosed
	}
	if s.url != "" {
		return fmt.Errorf("already listening on %s", s.url)
	}
	url := tcpURL(net.JoinHostPort(address, strconv.Itoa(int(port))))
	if err := s.sock.Listen(url); err != nil {
		return fmt.Errorf("listen %s: %w", url, err)
	}
	s.url = url
	s.logger.Info("listening", zap.String("url", url))
	for _, peer := range s.cfg.Peers {
		peerURL := tcpURL(peer)
		if !dials(url, peerURL) {
			continue
		}
		err := s.sock.DialOptions(peerURL, map[string]any{mangos.OptionDialAsynch: true})
		if err != nil {
			return fmt.Errorf("dial %s: %w", peerURL, err)
		}
		s.logger.Debug("dialing peer", zap.String("url", peerURL))
	}
	s.eg.Go(s.recvLoop)
	return nil
}

// dials reports whether the node listening on local connects to remote.
func dials(local, remote string) bool {
	return local < remote
}

func (s *Socket) recvLoop() error {
	for {
		msg, err := s.sock.Recv()
		switch {
		case errors.Is(err, mangos.ErrClosed):
			return nil
		case err != nil:
			if s.closed.Load() {
				return nil
			}
			s.logger.Warn("failed to receive", zap.Error(err))
			continue
		}
		s.inbox.Push(msg)
	}
}

// Pump is a no-op for the bus socket, which dials and redials asynchronously.
func (s *Socket) Pump(ctx context.Context) error {
	if s.closed.Load() {
		return p2p.ErrClosed
	}
	return nil
}

// Broadcast sends payload to every connected pipe. Payloads over MaxMessageSize are dropped.
func (s *Socket) Broadcast(payload []byte) error {
	if s.closed.Load() {
		return p2p.ErrClosed
	}
	if s.cfg.MaxMessageSize > 0 && len(payload) > s.cfg.MaxMessageSize {
		p2p.CountOversized(transportName)
		s.logger.Warn("dropping payload over the frame limit",
			zap.Int("size", len(payload)),
			zap.Int("limit", s.cfg.MaxMessageSize),
		)
		return nil
	}
	if err := s.sock.Send(payload); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	p2p.CountSent(transportName, 1)
	s.logger.Debug("broadcast payload", zap.Int("size", len(payload)))
	return nil
}

// PopInbound returns the next payload received from any peer.
func (s *Socket) PopInbound() ([]byte, bool) {
	return s.inbox.Pop()
}

// Close closes the socket and waits for the receiver to exit.
func (s *Socket) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := s.sock.Close()
	if werr := s.eg.Wait(); werr != nil {
		err = errors.Join(err, werr)
	}
	return err
}
