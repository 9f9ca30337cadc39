// Package variantindex holds the in-memory Variant Index: the
// RWMutex-guarded map from image id to its source path and the set of
// persisted (size, format) variants.
package variantindex

import (
	"sync"

	"github.com/shrinkcache/shrinkcache/core"
)

// Index is the single shared Variant Index for one engine instance.
// Safe for concurrent use; readers (Resolver) take the read lock, writers
// (Watcher, Persist Worker, initial indexer) take the write lock.
type Index struct {
	mu      sync.RWMutex
	entries map[string]*core.SourceEntry
}

// New returns an empty Index.
func New() *Index {
	return &Index{entries: make(map[string]*core.SourceEntry)}
}

// Get returns a defensive clone of the entry for imageID, or (nil, false)
// if the image id is unknown.
func (idx *Index) Get(imageID string) (*core.SourceEntry, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	e, ok := idx.entries[imageID]
	if !ok {
		return nil, false
	}
	return e.Clone(), true
}

// Ensure creates the entry for imageID with sourcePath if absent, and
// reports whether it already existed.
func (idx *Index) Ensure(imageID, sourcePath string) (existed bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if _, ok := idx.entries[imageID]; ok {
		return true
	}
	idx.entries[imageID] = &core.SourceEntry{
		SourcePath: sourcePath,
		Variants:   make(map[core.VariantKey]string),
	}
	return false
}

// PutVariant registers a persisted variant file path for imageID. No-op
// if imageID is unknown (the entry must be Ensure'd first).
func (idx *Index) PutVariant(imageID string, key core.VariantKey, filePath string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	e, ok := idx.entries[imageID]
	if !ok {
		return
	}
	e.Variants[key] = filePath
}

// ReplaceSource installs newSourcePath as the canonical source for
// imageID and clears any registered variants, all in one critical
// section, creating the entry if absent. It returns the variant paths
// that were displaced; the caller deletes those files outside the lock.
func (idx *Index) ReplaceSource(imageID, newSourcePath string) []string {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	e, ok := idx.entries[imageID]
	if !ok {
		idx.entries[imageID] = &core.SourceEntry{
			SourcePath: newSourcePath,
			Variants:   make(map[core.VariantKey]string),
		}
		return nil
	}
	paths := make([]string, 0, len(e.Variants))
	for _, p := range e.Variants {
		paths = append(paths, p)
	}
	e.SourcePath = newSourcePath
	e.Variants = make(map[core.VariantKey]string)
	return paths
}

// Remove deletes imageID's entry entirely and returns the variant paths
// that were registered for it, for the caller to delete from disk.
func (idx *Index) Remove(imageID string) []string {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	e, ok := idx.entries[imageID]
	if !ok {
		return nil
	}
	paths := make([]string, 0, len(e.Variants))
	for _, p := range e.Variants {
		paths = append(paths, p)
	}
	delete(idx.entries, imageID)
	return paths
}

// Snapshot returns a defensive copy of the whole index, keyed by image id.
// Used by the Pre-Optimizer's one-shot startup sweep.
func (idx *Index) Snapshot() map[string]*core.SourceEntry {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make(map[string]*core.SourceEntry, len(idx.entries))
	for id, e := range idx.entries {
		out[id] = e.Clone()
	}
	return out
}

// Len reports the number of indexed sources.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}
