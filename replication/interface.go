package replication

// adjustedClock reports simulated seconds since the node started.
type adjustedClock interface {
	Now() int64
}
