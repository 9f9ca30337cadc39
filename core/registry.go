package core

import "sync"

// DefaultRegistry is a thread-safe Registry implementation.
type DefaultRegistry struct {
	mu     sync.RWMutex
	codecs map[Format]Codec
}

// NewRegistry returns an empty DefaultRegistry.
func NewRegistry() *DefaultRegistry {
	return &DefaultRegistry{codecs: make(map[Format]Codec)}
}

func (r *DefaultRegistry) RegisterCodec(f Format, c Codec) {
	r.mu.Lock()
	r.codecs[f] = c
	r.mu.Unlock()
}

func (r *DefaultRegistry) CodecFor(f Format) (Codec, bool) {
	r.mu.RLock()
	c, ok := r.codecs[f]
	r.mu.RUnlock()
	return c, ok
}

var _ Registry = (*DefaultRegistry)(nil)
