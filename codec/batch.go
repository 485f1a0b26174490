package codec

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/spacemeshos/go-scale"

	"github.com/spacemeshos/plotsync/common/types"
)

const (
	// RecordSize is the size of a single encoded plot.
	RecordSize = types.PlotSize
	// countSize is the size of the batch count prefix.
	countSize = 4
)

var (
	// ErrRecordSize is returned when a single record has the wrong length.
	ErrRecordSize = errors.New("codec: invalid plot record size")
	// ErrMalformedBatch is returned when encoded records are not aligned to RecordSize.
	ErrMalformedBatch = errors.New("codec: malformed batch")
	// ErrTruncatedBatch is returned when a payload is too short to hold the count prefix.
	ErrTruncatedBatch = errors.New("codec: truncated batch")
	// ErrMisalignedBatch is returned when a payload body is not a multiple of RecordSize.
	ErrMisalignedBatch = errors.New("codec: misaligned batch")
	// ErrCountMismatch is returned when the count prefix disagrees with the payload body.
	ErrCountMismatch = errors.New("codec: batch count mismatch")
)

// EncodePlot encodes a single plot into exactly RecordSize bytes.
func EncodePlot(p *types.Plot) ([]byte, error) {
	buf, err := Encode(p)
	if err != nil {
		return nil, fmt.Errorf("encode plot: %w", err)
	}
	if len(buf) != RecordSize {
		return nil, fmt.Errorf("%w: %d", ErrRecordSize, len(buf))
	}
	return buf, nil
}

// DecodePlot decodes a single plot. It is the inverse of EncodePlot.
func DecodePlot(buf []byte) (types.Plot, error) {
	var p types.Plot
	if len(buf) != RecordSize {
		return p, fmt.Errorf("%w: %d", ErrRecordSize, len(buf))
	}
	if err := Decode(buf, &p); err != nil {
		return p, err
	}
	return p, nil
}

// EncodeBatch encodes plots as a count-prefixed batch:
//
//	[0..3] uint32 count
//	[4..]  count records of RecordSize bytes
func EncodeBatch(plots []*types.Plot) ([]byte, error) {
	var body bytes.Buffer
	body.Grow(len(plots) * RecordSize)
	enc := scale.NewEncoder(&body)
	for _, p := range plots {
		if _, err := p.EncodeScale(enc); err != nil {
			return nil, fmt.Errorf("encode plot: %w", err)
		}
		if body.Len()%RecordSize != 0 {
			return nil, fmt.Errorf("%w: %d bytes after %s", ErrMalformedBatch, body.Len(), p.NodeID)
		}
	}
	var out bytes.Buffer
	out.Grow(countSize + body.Len())
	if _, err := scale.EncodeUint32(scale.NewEncoder(&out), uint32(len(plots))); err != nil {
		return nil, fmt.Errorf("encode count: %w", err)
	}
	out.Write(body.Bytes())
	return out.Bytes(), nil
}

// MaxBatchPlots returns how many plots fit into an encoded batch of at most limit bytes.
// It returns 0, meaning unlimited, for a non-positive limit and at least 1 otherwise.
func MaxBatchPlots(limit int) int {
	if limit <= 0 {
		return 0
	}
	return max((limit-countSize)/RecordSize, 1)
}

// DecodeBatch decodes a payload produced by EncodeBatch.
func DecodeBatch(buf []byte) ([]types.Plot, error) {
	if len(buf) < countSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTruncatedBatch, len(buf))
	}
	body := buf[countSize:]
	if len(body)%RecordSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes body", ErrMisalignedBatch, len(body))
	}
	dec := scale.NewDecoder(bytes.NewReader(buf))
	count, _, err := scale.DecodeUint32(dec)
	if err != nil {
		return nil, fmt.Errorf("decode count: %w", err)
	}
	if int(count) != len(body)/RecordSize {
		return nil, fmt.Errorf("%w: prefix %d, records %d", ErrCountMismatch, count, len(body)/RecordSize)
	}
	plots := make([]types.Plot, count)
	for i := range plots {
		if _, err := plots[i].DecodeScale(dec); err != nil {
			return nil, fmt.Errorf("decode plot %d: %w", i, err)
		}
	}
	return plots, nil
}
