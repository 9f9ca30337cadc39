package core

import "time"

// MetricsCollector receives performance observations from the engine.
type MetricsCollector interface {
	RecordOperation(op string, d time.Duration)
	RecordCacheHit(op string)
	RecordCacheMiss(op string)
	RecordQueueDepth(pool string, depth int)
	RecordError(op string, category Category)
}

// Logger is the leveled, key-value logging surface engine components
// write to, keeping them decoupled from the concrete slog setup.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
}

// Hook is an optional observer invoked around an engine operation, named
// by op. The Engine calls it around Resolve only.
type Hook interface {
	BeforeOp(op string, imageID string)
	AfterOp(op string, imageID string, d time.Duration, err error)
}

// Registry maps Format values to Codec implementations. A single Codec
// may (and typically does) register itself for every format it supports.
type Registry interface {
	CodecFor(format Format) (Codec, bool)
	RegisterCodec(format Format, c Codec)
}
