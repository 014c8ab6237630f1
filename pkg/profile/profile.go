// Package profile collects per-unit timing events of benchmark solves
// and writes them in the line-oriented profile format: one line of
// partition config, one line of benchmark config, then one JSON record
// per decoded round.
package profile

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"
)

// TimedEvent is one unit's processing window within a round, in
// seconds relative to the round start.
type TimedEvent struct {
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	ThreadIndex int     `json:"thread_index"`
}

// PrimalProfile carries the primal-side event windows of one round.
type PrimalProfile struct {
	EventTimeVec []TimedEvent `json:"event_time_vec"`
}

// SolverProfile groups the per-module profiles of one round.
type SolverProfile struct {
	Primal PrimalProfile `json:"primal"`
}

// RoundEvents flags what happened to a round.
type RoundEvents struct {
	Verified bool `json:"verified"`
	Decoded  bool `json:"decoded"`
}

// RoundRecord is one line of the profile body.
type RoundRecord struct {
	RoundTime     float64       `json:"round_time"`
	Events        RoundEvents   `json:"events"`
	SolverProfile SolverProfile `json:"solver_profile"`
	DefectNum     int           `json:"defect_num"`
}

// Profiler accumulates unit events for the round in flight. It is
// safe for concurrent use by the solver's worker pool; it implements
// the parallel solver's EventSink.
type Profiler struct {
	mu         sync.Mutex
	roundStart time.Time
	events     []unitEvent
}

type unitEvent struct {
	unit   int
	thread int
	start  time.Time
	end    time.Time
}

// NewProfiler creates an empty profiler.
func NewProfiler() *Profiler { return &Profiler{} }

// BeginRound stamps the round start and drops the previous round's
// events.
func (p *Profiler) BeginRound() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.roundStart = time.Now()
	p.events = p.events[:0]
}

// RecordEvent stores one unit's processing window.
func (p *Profiler) RecordEvent(unitIndex, threadIndex int, start, end time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, unitEvent{unit: unitIndex, thread: threadIndex, start: start, end: end})
}

// EventTimeVec returns the round's events in unit order, relative to
// the round start.
func (p *Profiler) EventTimeVec() []TimedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	sorted := append([]unitEvent(nil), p.events...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].unit < sorted[j].unit })
	vec := make([]TimedEvent, len(sorted))
	for i, e := range sorted {
		vec[i] = TimedEvent{
			Start:       e.start.Sub(p.roundStart).Seconds(),
			End:         e.end.Sub(p.roundStart).Seconds(),
			ThreadIndex: e.thread,
		}
	}
	return vec
}

// Writer streams a profile file: two header lines, then one JSON
// round record per line.
type Writer struct {
	file *os.File
	buf  *bufio.Writer
}

// NewWriter creates the profile file and writes the partition-config
// and benchmark-config header lines.
func NewWriter(path string, partitionConfig, benchmarkConfig any) (*Writer, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	w := &Writer{file: file, buf: bufio.NewWriter(file)}
	for _, header := range []any{partitionConfig, benchmarkConfig} {
		line, err := json.Marshal(header)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("encode profile header: %w", err)
		}
		w.buf.Write(line)
		w.buf.WriteByte('\n')
	}
	return w, nil
}

// WriteRound appends one round record.
func (w *Writer) WriteRound(rec RoundRecord) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode round record: %w", err)
	}
	w.buf.Write(line)
	return w.buf.WriteByte('\n')
}

// Close flushes and closes the profile file.
func (w *Writer) Close() error {
	if err := w.buf.Flush(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
