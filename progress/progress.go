// Package progress provides production-ready ProgressSink and Logger
// implementations.
package progress

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"heiconv/core"
	apperrors "heiconv/errors"
)

// ── Structured logger adapter ─────────────────────────────────────────────────

// SlogLogger wraps the standard library slog.Logger to satisfy core.Logger.
type SlogLogger struct {
	log *slog.Logger
}

// NewSlogLogger creates a logger backed by slog.
func NewSlogLogger(l *slog.Logger) *SlogLogger { return &SlogLogger{log: l} }

func (s *SlogLogger) Debug(msg string, fields ...interface{}) {
	s.log.Debug(msg, toAttrs(fields)...)
}
func (s *SlogLogger) Info(msg string, fields ...interface{}) {
	s.log.Info(msg, toAttrs(fields)...)
}
func (s *SlogLogger) Warn(msg string, fields ...interface{}) {
	s.log.Warn(msg, toAttrs(fields)...)
}
func (s *SlogLogger) Error(msg string, fields ...interface{}) {
	s.log.Error(msg, toAttrs(fields)...)
}

func toAttrs(fields []interface{}) []any { return fields }

// ── Logging sink ──────────────────────────────────────────────────────────────

// LogSink logs one line per completed conversion.
type LogSink struct {
	logger core.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(l core.Logger) *LogSink { return &LogSink{logger: l} }

func (s *LogSink) OnOutcome(snap core.Snapshot, out core.ConversionOutcome) {
	if out.Succeeded() {
		s.logger.Info("convert.done",
			"source", out.Request.Source,
			"dest", out.Request.Destination,
			"format", out.Request.Format,
			"bytes", out.OutputSize,
			"duration_ms", out.Elapsed.Milliseconds(),
			"completed", snap.Completed,
			"total", snap.Total,
		)
		return
	}
	kind, _ := apperrors.KindOf(out.Err)
	s.logger.Error("convert.failed",
		"source", out.Request.Source,
		"kind", kind,
		"error", out.Err.Error(),
		"duration_ms", out.Elapsed.Milliseconds(),
		"completed", snap.Completed,
		"total", snap.Total,
	)
}

// ── In-memory metrics collector ───────────────────────────────────────────────

// Metrics accumulates per-format conversion tallies; safe for concurrent use.
type Metrics struct {
	mu sync.RWMutex

	formatCounts  map[string]int64 // successes per target format
	formatBytes   map[string]int64 // output bytes per target format
	formatMs      map[string]int64 // cumulative task ms per target format
	failureCounts map[string]int64 // failures per error kind

	totalOutputB int64
	totalInputB  int64
}

// NewMetrics creates an empty metrics store.
func NewMetrics() *Metrics {
	return &Metrics{
		formatCounts:  make(map[string]int64),
		formatBytes:   make(map[string]int64),
		formatMs:      make(map[string]int64),
		failureCounts: make(map[string]int64),
	}
}

func (m *Metrics) recordSuccess(out core.ConversionOutcome) {
	f := string(out.Request.Format)
	m.mu.Lock()
	m.formatCounts[f]++
	m.formatBytes[f] += out.OutputSize
	m.formatMs[f] += out.Elapsed.Milliseconds()
	m.mu.Unlock()
	atomic.AddInt64(&m.totalOutputB, out.OutputSize)
}

func (m *Metrics) recordFailure(out core.ConversionOutcome) {
	kind, _ := apperrors.KindOf(out.Err)
	m.mu.Lock()
	m.failureCounts[string(kind)]++
	m.mu.Unlock()
}

// RecordInput tallies source bytes read, independent of outcome.
func (m *Metrics) RecordInput(bytes int64) {
	atomic.AddInt64(&m.totalInputB, bytes)
}

// Snapshot returns a copy of current metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := MetricsSnapshot{
		FormatCounts:  make(map[string]int64, len(m.formatCounts)),
		FormatBytes:   make(map[string]int64, len(m.formatBytes)),
		FormatMs:      make(map[string]int64, len(m.formatMs)),
		FailureCounts: make(map[string]int64, len(m.failureCounts)),
		TotalOutputB:  atomic.LoadInt64(&m.totalOutputB),
		TotalInputB:   atomic.LoadInt64(&m.totalInputB),
	}
	for k, v := range m.formatCounts {
		snap.FormatCounts[k] = v
	}
	for k, v := range m.formatBytes {
		snap.FormatBytes[k] = v
	}
	for k, v := range m.formatMs {
		snap.FormatMs[k] = v
	}
	for k, v := range m.failureCounts {
		snap.FailureCounts[k] = v
	}
	return snap
}

// MetricsSnapshot is an immutable point-in-time copy of metrics.
type MetricsSnapshot struct {
	FormatCounts  map[string]int64
	FormatBytes   map[string]int64
	FormatMs      map[string]int64
	FailureCounts map[string]int64
	TotalOutputB  int64
	TotalInputB   int64
}

// ── Metrics sink ──────────────────────────────────────────────────────────────

// MetricsSink feeds conversion outcomes into a Metrics store.
type MetricsSink struct {
	metrics *Metrics
}

// NewMetricsSink creates a MetricsSink.
func NewMetricsSink(m *Metrics) *MetricsSink { return &MetricsSink{metrics: m} }

func (s *MetricsSink) OnOutcome(_ core.Snapshot, out core.ConversionOutcome) {
	if out.Succeeded() {
		s.metrics.recordSuccess(out)
		return
	}
	s.metrics.recordFailure(out)
}

// ── Fan-out and no-op sinks ───────────────────────────────────────────────────

// Multi forwards every outcome to each sink in order.
type Multi struct {
	sinks []core.ProgressSink
}

// NewMulti creates a fan-out sink.
func NewMulti(sinks ...core.ProgressSink) *Multi { return &Multi{sinks: sinks} }

func (m *Multi) OnOutcome(snap core.Snapshot, out core.ConversionOutcome) {
	for _, s := range m.sinks {
		s.OnOutcome(snap, out)
	}
}

// Nop discards all updates.
type Nop struct{}

func (Nop) OnOutcome(core.Snapshot, core.ConversionOutcome) {}
