// Package persist implements the Persistence Worker: a single-consumer
// goroutine that writes optimizer results to the on-disk cache via
// write-to-temp-then-rename, so a reader can never observe a partially
// written cache file, and then registers them in the Variant Index.
package persist

import (
	"os"
	"path/filepath"
	"time"

	"github.com/shrinkcache/shrinkcache/core"
	"github.com/shrinkcache/shrinkcache/optimizer"
	"github.com/shrinkcache/shrinkcache/variantindex"
)

// Worker consumes optimizer.Result values and persists them.
type Worker struct {
	cacheDir string
	index    *variantindex.Index
	log      core.Logger
	metrics  core.MetricsCollector
}

// New returns a ready Worker.
func New(cacheDir string, index *variantindex.Index, log core.Logger, metrics core.MetricsCollector) *Worker {
	return &Worker{cacheDir: cacheDir, index: index, log: log, metrics: metrics}
}

// Run drains results until the channel is closed, persisting each one.
// Intended to run in its own goroutine for the lifetime of the engine.
func (w *Worker) Run(results <-chan optimizer.Result) {
	for r := range results {
		if err := w.persist(r); err != nil {
			w.log.Error("persist: failed to write variant",
				"image_id", r.Job.ImageID, "size", r.Job.SizeProfile, "format", r.Job.Format, "error", err)
			w.metrics.RecordError("persist", core.CategoryIO)
		}
	}
}

func (w *Worker) persist(r optimizer.Result) error {
	start := time.Now()
	finalPath := filepath.Join(w.cacheDir, r.Job.SizeProfile, r.Job.ImageID+"."+r.Job.Format.Extension())
	dir := filepath.Dir(finalPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return core.WrapErr(core.CategoryIO, "persist.mkdir", err)
	}
	if _, err := os.Stat(finalPath); err == nil {
		// Already persisted by a concurrent job for the same key; register
		// and move on, idempotently.
		w.index.PutVariant(r.Job.ImageID, core.VariantKey{SizeProfile: r.Job.SizeProfile, Format: r.Job.Format}, finalPath)
		return nil
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return core.WrapErr(core.CategoryIO, "persist.createtemp", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(r.Buffer.Data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return core.WrapErr(core.CategoryIO, "persist.write", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return core.WrapErr(core.CategoryIO, "persist.close", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return core.WrapErr(core.CategoryIO, "persist.rename", err)
	}
	if !r.SourceModTime.IsZero() {
		if err := os.Chtimes(finalPath, r.SourceModTime, r.SourceModTime); err != nil {
			w.log.Warn("persist: failed to stamp mtime", "path", finalPath, "error", err)
		}
	}

	w.index.PutVariant(r.Job.ImageID, core.VariantKey{SizeProfile: r.Job.SizeProfile, Format: r.Job.Format}, finalPath)
	w.metrics.RecordOperation("persist", time.Since(start))
	return nil
}
