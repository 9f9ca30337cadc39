// Package hooks provides production-ready Logger, Hook, and
// MetricsCollector implementations for the engine's operations
// (resolve, optimize, persist, watch).
package hooks

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shrinkcache/shrinkcache/core"
)

// ── Structured logger adapter ───────────────────────────────────────────

// SlogLogger wraps the standard library slog.Logger to satisfy core.Logger.
type SlogLogger struct {
	log *slog.Logger
}

// NewSlogLogger creates a logger backed by slog.
func NewSlogLogger(l *slog.Logger) *SlogLogger { return &SlogLogger{log: l} }

func (s *SlogLogger) Debug(msg string, fields ...interface{}) { s.log.Debug(msg, fields...) }
func (s *SlogLogger) Info(msg string, fields ...interface{})  { s.log.Info(msg, fields...) }
func (s *SlogLogger) Warn(msg string, fields ...interface{})  { s.log.Warn(msg, fields...) }
func (s *SlogLogger) Error(msg string, fields ...interface{}) { s.log.Error(msg, fields...) }

var _ core.Logger = (*SlogLogger)(nil)

// ── Logging hook ─────────────────────────────────────────────────────────

// LoggingHook logs before/after an engine operation. The Engine invokes it
// around Resolve only; optimize, persist and watch work is not routed
// through it.
type LoggingHook struct {
	logger core.Logger
}

// NewLoggingHook creates a LoggingHook.
func NewLoggingHook(l core.Logger) *LoggingHook { return &LoggingHook{logger: l} }

func (h *LoggingHook) BeforeOp(op string, imageID string) {
	h.logger.Debug("engine.op.start", "op", op, "image_id", imageID)
}

func (h *LoggingHook) AfterOp(op string, imageID string, d time.Duration, err error) {
	if err != nil {
		h.logger.Error("engine.op.error", "op", op, "image_id", imageID, "duration_ms", d.Milliseconds(), "error", err.Error())
		return
	}
	h.logger.Debug("engine.op.done", "op", op, "image_id", imageID, "duration_ms", d.Milliseconds())
}

var _ core.Hook = (*LoggingHook)(nil)

// ── In-memory metrics collector ───────────────────────────────────────────

// InMemoryMetrics accumulates per-operation counters; safe for concurrent
// use.
type InMemoryMetrics struct {
	mu sync.RWMutex

	opDurationsMs map[string]int64
	opCalls       map[string]int64
	opErrors      map[string]map[core.Category]int64

	cacheHits   int64
	cacheMisses int64

	queueDepth map[string]int64
}

// NewInMemoryMetrics creates an empty metrics store.
func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{
		opDurationsMs: make(map[string]int64),
		opCalls:       make(map[string]int64),
		opErrors:      make(map[string]map[core.Category]int64),
		queueDepth:    make(map[string]int64),
	}
}

func (m *InMemoryMetrics) RecordOperation(op string, d time.Duration) {
	m.mu.Lock()
	m.opDurationsMs[op] += d.Milliseconds()
	m.opCalls[op]++
	m.mu.Unlock()
}

func (m *InMemoryMetrics) RecordCacheHit(op string) { atomic.AddInt64(&m.cacheHits, 1) }

func (m *InMemoryMetrics) RecordCacheMiss(op string) { atomic.AddInt64(&m.cacheMisses, 1) }

func (m *InMemoryMetrics) RecordQueueDepth(pool string, depth int) {
	m.mu.Lock()
	m.queueDepth[pool] = int64(depth)
	m.mu.Unlock()
}

func (m *InMemoryMetrics) RecordError(op string, category core.Category) {
	m.mu.Lock()
	if m.opErrors[op] == nil {
		m.opErrors[op] = make(map[core.Category]int64)
	}
	m.opErrors[op][category]++
	m.mu.Unlock()
}

// Snapshot returns an immutable point-in-time copy of the metrics.
func (m *InMemoryMetrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := MetricsSnapshot{
		OpDurationsMs: make(map[string]int64, len(m.opDurationsMs)),
		OpCalls:       make(map[string]int64, len(m.opCalls)),
		OpErrors:      make(map[string]map[core.Category]int64, len(m.opErrors)),
		CacheHits:     atomic.LoadInt64(&m.cacheHits),
		CacheMisses:   atomic.LoadInt64(&m.cacheMisses),
		QueueDepth:    make(map[string]int64, len(m.queueDepth)),
	}
	for k, v := range m.opDurationsMs {
		snap.OpDurationsMs[k] = v
	}
	for k, v := range m.opCalls {
		snap.OpCalls[k] = v
	}
	for op, byCat := range m.opErrors {
		cp := make(map[core.Category]int64, len(byCat))
		for cat, n := range byCat {
			cp[cat] = n
		}
		snap.OpErrors[op] = cp
	}
	for k, v := range m.queueDepth {
		snap.QueueDepth[k] = v
	}
	return snap
}

// MetricsSnapshot is an immutable point-in-time copy of metrics.
type MetricsSnapshot struct {
	OpDurationsMs map[string]int64
	OpCalls       map[string]int64
	OpErrors      map[string]map[core.Category]int64
	CacheHits     int64
	CacheMisses   int64
	QueueDepth    map[string]int64
}

var _ core.MetricsCollector = (*InMemoryMetrics)(nil)
