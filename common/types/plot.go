package types

import (
	"fmt"
	"math"

	"github.com/spacemeshos/go-scale"
	"go.uber.org/zap/zapcore"
)

// NodeID identifies the node that observed a plot.
type NodeID uint32

// Uint32 returns the NodeID as a uint32.
func (id NodeID) Uint32() uint32 { return uint32(id) }

// String returns a string representation of the NodeID, for logging purposes.
func (id NodeID) String() string { return fmt.Sprintf("node-%d", uint32(id)) }

// SubjectID identifies the observed subject (the drone).
type SubjectID uint32

// Uint32 returns the SubjectID as a uint32.
func (id SubjectID) Uint32() uint32 { return uint32(id) }

// PlotFlags is a bitset of local bookkeeping flags. Flags never leave the node.
type PlotFlags uint8

const (
	// FlagPending marks a plot that was captured or ingested locally
	// but not yet included in an outbound batch.
	FlagPending PlotFlags = 1 << iota
)

// PlotSize is the size in bytes of an encoded Plot.
const PlotSize = 4 + 4 + 8 + 8 + 8

// Plot is a single observation of a subject by a node.
type Plot struct {
	SubjectID SubjectID
	NodeID    NodeID
	// Timestamp in seconds, in the clock frame of the observing node until
	// reconciliation rewrites it.
	Timestamp int64
	Latitude  float64
	Longitude float64

	Flags PlotFlags
}

// IsSet checks whether all bits of f are set.
func (p *Plot) IsSet(f PlotFlags) bool { return p.Flags&f == f }

// Set sets the bits of f.
func (p *Plot) Set(f PlotFlags) { p.Flags |= f }

// Clear clears the bits of f.
func (p *Plot) Clear(f PlotFlags) { p.Flags &^= f }

// SameLocation reports whether both plots were observed at identical coordinates.
func (p *Plot) SameLocation(other *Plot) bool {
	return p.Latitude == other.Latitude && p.Longitude == other.Longitude
}

// Equal compares the replicated fields of two plots. Flags are ignored.
func (p Plot) Equal(other Plot) bool {
	return p.SubjectID == other.SubjectID &&
		p.NodeID == other.NodeID &&
		p.Timestamp == other.Timestamp &&
		p.Latitude == other.Latitude &&
		p.Longitude == other.Longitude
}

// MarshalLogObject implements logging encoder for Plot.
func (p *Plot) MarshalLogObject(encoder zapcore.ObjectEncoder) error {
	encoder.AddUint32("subject", p.SubjectID.Uint32())
	encoder.AddUint32("node", p.NodeID.Uint32())
	encoder.AddInt64("ts", p.Timestamp)
	encoder.AddFloat64("lat", p.Latitude)
	encoder.AddFloat64("lon", p.Longitude)
	return nil
}

// EncodeScale implements scale codec interface.
// All fields are fixed width so every record is exactly PlotSize bytes.
func (p *Plot) EncodeScale(enc *scale.Encoder) (total int, err error) {
	{
		n, err := scale.EncodeUint32(enc, p.SubjectID.Uint32())
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeUint32(enc, p.NodeID.Uint32())
		if err != nil {
			return total, err
		}
		total += n
	}
	for _, v := range [...]uint64{
		uint64(p.Timestamp),
		math.Float64bits(p.Latitude),
		math.Float64bits(p.Longitude),
	} {
		n, err := scale.EncodeUint64(enc, v)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// DecodeScale implements scale codec interface.
func (p *Plot) DecodeScale(dec *scale.Decoder) (total int, err error) {
	{
		field, n, err := scale.DecodeUint32(dec)
		if err != nil {
			return total, err
		}
		total += n
		p.SubjectID = SubjectID(field)
	}
	{
		field, n, err := scale.DecodeUint32(dec)
		if err != nil {
			return total, err
		}
		total += n
		p.NodeID = NodeID(field)
	}
	var words [3]uint64
	for i := range words {
		field, n, err := scale.DecodeUint64(dec)
		if err != nil {
			return total, err
		}
		total += n
		words[i] = field
	}
	p.Timestamp = int64(words[0])
	p.Latitude = math.Float64frombits(words[1])
	p.Longitude = math.Float64frombits(words[2])
	return total, nil
}
