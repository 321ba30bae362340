package simulation

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/flock"
)

// TickRecord is one CSV row of flock statistics.
type TickRecord struct {
	Tick        uint64  `csv:"tick"`
	Population  int     `csv:"population"`
	MeanSpeed   float64 `csv:"mean_speed"`
	StdDevSpeed float64 `csv:"stddev_speed"`
	Degenerate  int     `csv:"degenerate"`
	Evictions   int     `csv:"evictions"`
	Species     string  `csv:"species"` // id=count pairs joined by ';'
	TickMicros  int64   `csv:"tick_us"`
}

// NewTickRecord flattens flock stats and the wall time the tick took.
func NewTickRecord(s flock.Stats, elapsed time.Duration) TickRecord {
	ids := make([]string, 0, len(s.PerSpecies))
	for id := range s.PerSpecies {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	pairs := make([]string, len(ids))
	for i, id := range ids {
		pairs[i] = fmt.Sprintf("%s=%d", id, s.PerSpecies[id])
	}
	return TickRecord{
		Tick:        s.Tick,
		Population:  s.Population,
		MeanSpeed:   s.MeanSpeed,
		StdDevSpeed: s.StdDevSpeed,
		Degenerate:  s.Degenerate,
		Evictions:   s.Evictions,
		Species:     strings.Join(pairs, ";"),
		TickMicros:  elapsed.Microseconds(),
	}
}

// TelemetryWriter appends TickRecords as CSV, writing the header once.
// A nil *TelemetryWriter discards everything.
type TelemetryWriter struct {
	w             io.Writer
	closer        io.Closer
	headerWritten bool
	rows          int
}

func NewTelemetryWriter(w io.Writer) *TelemetryWriter {
	return &TelemetryWriter{w: w}
}

// CreateTelemetryFile truncates path and returns a writer owning the file.
func CreateTelemetryFile(path string) (*TelemetryWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating telemetry file: %w", err)
	}
	return &TelemetryWriter{w: f, closer: f}, nil
}

func (t *TelemetryWriter) Write(rec TickRecord) error {
	if t == nil {
		return nil
	}
	records := []TickRecord{rec}

	if !t.headerWritten {
		if err := gocsv.Marshal(records, t.w); err != nil {
			return fmt.Errorf("writing telemetry: %w", err)
		}
		t.headerWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(records, t.w); err != nil {
			return fmt.Errorf("writing telemetry: %w", err)
		}
	}
	t.rows++
	return nil
}

// Rows is the number of records written so far.
func (t *TelemetryWriter) Rows() int {
	if t == nil {
		return 0
	}
	return t.rows
}

func (t *TelemetryWriter) Close() error {
	if t == nil || t.closer == nil {
		return nil
	}
	return t.closer.Close()
}

// ReadTelemetry parses a CSV produced by TelemetryWriter.
func ReadTelemetry(r io.Reader) ([]TickRecord, error) {
	var out []TickRecord
	if err := gocsv.Unmarshal(r, &out); err != nil {
		return nil, fmt.Errorf("reading telemetry: %w", err)
	}
	return out, nil
}
