// Package record writes accepted GPU snapshots to a parquet file.
package record

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gpuhot/gpuhot/internal/errors"
	"github.com/gpuhot/gpuhot/internal/logger"
	"github.com/gpuhot/gpuhot/internal/telemetry"
	"github.com/parquet-go/parquet-go"
)

// DefaultBatchSize is used when New is given a batch size below 1.
const DefaultBatchSize = 64

// Row is one recorded snapshot. Metrics a GPU did not report are null.
type Row struct {
	Session     string   `parquet:"session"`
	TimestampMs int64    `parquet:"timestamp_ms"`
	Entity      string   `parquet:"entity"`
	Node        string   `parquet:"node,optional"`
	Name        string   `parquet:"name,optional"`
	Utilization *float64 `parquet:"utilization,optional"`
	Temperature *float64 `parquet:"temperature,optional"`
	MemoryUsed  *float64 `parquet:"memory_used,optional"`
	MemoryTotal *float64 `parquet:"memory_total,optional"`
	PowerDraw   *float64 `parquet:"power_draw,optional"`
	PowerLimit  *float64 `parquet:"power_limit,optional"`
	FanSpeed    *float64 `parquet:"fan_speed,optional"`
	ClockSM     *float64 `parquet:"clock_sm,optional"`
	ClockMemory *float64 `parquet:"clock_memory,optional"`
	PCIeRX      *float64 `parquet:"pcie_rx,optional"`
	PCIeTX      *float64 `parquet:"pcie_tx,optional"`
	EnergyWh    *float64 `parquet:"energy_wh,optional"`
}

// RowFrom converts a snapshot into a Row.
func RowFrom(session string, u telemetry.EntityUpdate, at time.Time) Row {
	s := u.Snapshot
	return Row{
		Session:     session,
		TimestampMs: at.UnixMilli(),
		Entity:      u.Key,
		Node:        u.Node,
		Name:        s.TextOr(telemetry.MetricName, ""),
		Utilization: optional(s, telemetry.MetricUtilization),
		Temperature: optional(s, telemetry.MetricTemperature),
		MemoryUsed:  optional(s, telemetry.MetricMemoryUsed),
		MemoryTotal: optional(s, telemetry.MetricMemoryTotal),
		PowerDraw:   optional(s, telemetry.MetricPowerDraw),
		PowerLimit:  optional(s, telemetry.MetricPowerLimit),
		FanSpeed:    optional(s, telemetry.MetricFanSpeed),
		ClockSM:     optional(s, telemetry.MetricClockSM),
		ClockMemory: optional(s, telemetry.MetricClockMemory),
		PCIeRX:      optional(s, telemetry.MetricPCIeRX),
		PCIeTX:      optional(s, telemetry.MetricPCIeTX),
		EnergyWh:    optional(s, telemetry.MetricEnergyWh),
	}
}

func optional(s telemetry.Snapshot, name string) *float64 {
	v, ok := s.Float(name)
	if !ok {
		return nil
	}
	return &v
}

// Recorder buffers snapshots and writes them to parquet in batches. It
// implements scheduler.Observer, so every accepted snapshot is recorded,
// including those the throttle or a scroll kept off screen.
type Recorder struct {
	mu      sync.Mutex
	path    string
	session string
	batch   int
	file    *os.File
	writer  *parquet.GenericWriter[Row]
	pending []Row
	written int
	err     error
	closed  bool
	log     logger.Logger
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithLogger sets the logger used to report write failures.
func WithLogger(l logger.Logger) Option {
	return func(r *Recorder) { r.log = l }
}

// WithSession overrides the generated session id.
func WithSession(id string) Option {
	return func(r *Recorder) { r.session = id }
}

// New creates the parquet file at path. Parent directories are created.
func New(path string, batchSize int, opts ...Option) (*Recorder, error) {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}

	r := &Recorder{
		path:    path,
		session: uuid.NewString(),
		batch:   batchSize,
		log:     logger.Noop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrRecord,
				"Cannot create recording directory "+dir,
				"Check the record.path setting and directory permissions")
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrRecord,
			"Cannot create recording file "+path,
			"Check the record.path setting and directory permissions")
	}

	r.file = f
	r.writer = parquet.NewGenericWriter[Row](f)
	r.pending = make([]Row, 0, batchSize)
	return r, nil
}

// Path returns the recording file path.
func (r *Recorder) Path() string { return r.path }

// Session returns the id stamped on every row.
func (r *Recorder) Session() string { return r.session }

// SnapshotAccepted buffers the snapshot and writes a batch once full.
// After the first write error the recorder stops recording; Err reports it.
func (r *Recorder) SnapshotAccepted(u telemetry.EntityUpdate, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.err != nil {
		return
	}

	r.pending = append(r.pending, RowFrom(r.session, u, at))
	if len(r.pending) >= r.batch {
		r.flushLocked()
	}
}

// Written returns the number of rows handed to the parquet writer.
func (r *Recorder) Written() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written
}

// Err returns the first write error, if any.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *Recorder) flushLocked() {
	if len(r.pending) == 0 {
		return
	}
	n, err := r.writer.Write(r.pending)
	r.written += n
	r.pending = r.pending[:0]
	if err != nil {
		r.err = errors.WrapWithCode(err, errors.ErrRecord,
			"Failed to write recording to "+r.path,
			"Check free disk space; recording has stopped")
		r.log.Error("recording stopped: %v", err)
	}
}

// Close writes buffered rows and finalizes the file. Calling Close twice
// is safe.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return r.err
	}
	r.closed = true

	if r.err == nil {
		r.flushLocked()
	}

	if err := r.writer.Close(); err != nil && r.err == nil {
		r.err = errors.WrapWithCode(err, errors.ErrRecord,
			"Failed to finalize recording "+r.path,
			"The file may be incomplete")
	}
	if err := r.file.Close(); err != nil && r.err == nil {
		r.err = errors.WrapWithCode(err, errors.ErrRecord,
			"Failed to close recording "+r.path,
			"The file may be incomplete")
	}

	r.log.Info("recorded %d snapshots to %s", r.written, r.path)
	return r.err
}
