// Package preopt implements the one-shot Pre-Optimizer sweep: after the
// initial index scan, enqueue every missing (size, format) combination
// for profiles flagged pre_optimize, without waiting for completion.
package preopt

import (
	"github.com/shrinkcache/shrinkcache/config"
	"github.com/shrinkcache/shrinkcache/core"
	"github.com/shrinkcache/shrinkcache/optimizer"
	"github.com/shrinkcache/shrinkcache/variantindex"
)

// Sweep enqueues OptimizeJobs for every (source, size, format) combination
// eligible for pre-optimization and not yet present in the index
// snapshot. Returns the number of jobs enqueued.
func Sweep(cfg config.Config, index *variantindex.Index, pool *optimizer.Pool) int {
	snapshot := index.Snapshot()
	enqueued := 0

	for sizeName, profile := range cfg.Sizes {
		if !profile.PreOptimize {
			continue
		}
		for imageID, entry := range snapshot {
			if !profile.Matches(imageID) {
				continue
			}
			for _, format := range cfg.Formats {
				key := core.VariantKey{SizeProfile: sizeName, Format: format}
				if _, ok := entry.Variants[key]; ok {
					continue
				}
				if pool.Submit(optimizer.Job{
					ImageID:       imageID,
					SourcePath:    entry.SourcePath,
					SizeProfile:   sizeName,
					Width:         profile.Width,
					Height:        profile.Height,
					Format:        format,
					Quality:       profile.Quality(format, &cfg),
					PreferQuality: true,
				}) {
					enqueued++
				}
			}
		}
	}
	return enqueued
}
