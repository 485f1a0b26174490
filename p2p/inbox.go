package p2p

import (
	"go.uber.org/zap"

	"github.com/spacemeshos/plotsync/metrics"
)

const subsystem = "p2p"

var (
	receivedPayloads = metrics.NewCounter(
		"received_payloads",
		subsystem,
		"payloads received from peers",
		[]string{"transport"},
	)
	droppedPayloads = metrics.NewCounter(
		"dropped_payloads",
		subsystem,
		"payloads dropped because the inbound queue was full",
		[]string{"transport"},
	)
	oversizedPayloads = metrics.NewCounter(
		"oversized_payloads",
		subsystem,
		"outbound payloads dropped because they exceed the frame limit",
		[]string{"transport"},
	)
	sentPayloads = metrics.NewCounter(
		"sent_payloads",
		subsystem,
		"payloads written to peers",
		[]string{"transport"},
	)
)

// DefaultInboxSize is the number of payloads buffered before new ones are dropped.
const DefaultInboxSize = 1024

// Inbox buffers payloads received by transport goroutines until the
// replication loop pops them.
type Inbox struct {
	transport string
	logger    *zap.Logger
	ch        chan []byte
}

// NewInbox creates an Inbox holding up to size payloads.
func NewInbox(transport string, size int, logger *zap.Logger) *Inbox {
	if size <= 0 {
		size = DefaultInboxSize
	}
	return &Inbox{
		transport: transport,
		logger:    logger,
		ch:        make(chan []byte, size),
	}
}

// Push adds payload without blocking. It reports false if the payload was dropped.
func (i *Inbox) Push(payload []byte) bool {
	select {
	case i.ch <- payload:
		receivedPayloads.WithLabelValues(i.transport).Inc()
		return true
	default:
		droppedPayloads.WithLabelValues(i.transport).Inc()
		i.logger.Warn("inbound queue full, dropping payload", zap.Int("size", len(payload)))
		return false
	}
}

// Pop returns the oldest buffered payload, if any.
func (i *Inbox) Pop() ([]byte, bool) {
	select {
	case payload := <-i.ch:
		return payload, true
	default:
		return nil, false
	}
}

// Len returns the number of buffered payloads.
func (i *Inbox) Len() int {
	return len(i.ch)
}

// CountSent records n payload writes for transport.
func CountSent(transport string, n int) {
	sentPayloads.WithLabelValues(transport).Add(float64(n))
}

// CountOversized records an outbound payload dropped for exceeding the frame limit.
func CountOversized(transport string) {
	oversizedPayloads.WithLabelValues(transport).Inc()
}
