package plotdb

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/natefinch/atomic"

	"github.com/spacemeshos/plotsync/common/types"
)

var header = []string{"subject_id", "node_id", "timestamp", "latitude", "longitude"}

// ErrBadRecord is returned when a CSV row can't be parsed into a plot.
var ErrBadRecord = errors.New("plotdb: bad csv record")

// ReadCSV parses plots from CSV rows of subject_id,node_id,timestamp,latitude,longitude.
// A leading header row is skipped.
func ReadCSV(r io.Reader) ([]types.Plot, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(header)
	cr.TrimLeadingSpace = true
	cr.Comment = '#'
	var plots []types.Plot
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return plots, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if line == 1 && rec[0] == header[0] {
			continue
		}
		p, err := parseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrBadRecord, line, err)
		}
		plots = append(plots, p)
	}
}

func parseRecord(rec []string) (types.Plot, error) {
	var p types.Plot
	subject, err := strconv.ParseUint(rec[0], 10, 32)
	if err != nil {
		return p, err
	}
	node, err := strconv.ParseUint(rec[1], 10, 32)
	if err != nil {
		return p, err
	}
	ts, err := strconv.ParseInt(rec[2], 10, 64)
	if err != nil {
		return p, err
	}
	lat, err := strconv.ParseFloat(rec[3], 64)
	if err != nil {
		return p, err
	}
	lon, err := strconv.ParseFloat(rec[4], 64)
	if err != nil {
		return p, err
	}
	p.SubjectID = types.SubjectID(subject)
	p.NodeID = types.NodeID(node)
	p.Timestamp = ts
	p.Latitude = lat
	p.Longitude = lon
	return p, nil
}

// WriteCSV writes plots with a header row.
func WriteCSV(w io.Writer, plots []types.Plot) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, p := range plots {
		if err := cw.Write([]string{
			strconv.FormatUint(uint64(p.SubjectID), 10),
			strconv.FormatUint(uint64(p.NodeID), 10),
			strconv.FormatInt(p.Timestamp, 10),
			strconv.FormatFloat(p.Latitude, 'f', -1, 64),
			strconv.FormatFloat(p.Longitude, 'f', -1, 64),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile atomically replaces path with a CSV snapshot of the DB.
func (db *DB) WriteFile(path string) error {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, db.Snapshot()); err != nil {
		return fmt.Errorf("encode plots: %w", err)
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
