// Package resolver implements the Cache Engine's public surface: turning
// an (image-id, size-profile, accept) request into a ready-to-serve
// Artifact without ever blocking on encoding for a normally-available
// variant.
package resolver

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/shrinkcache/shrinkcache/config"
	"github.com/shrinkcache/shrinkcache/core"
	"github.com/shrinkcache/shrinkcache/negotiate"
	"github.com/shrinkcache/shrinkcache/optimizer"
	"github.com/shrinkcache/shrinkcache/variantindex"
)

// Resolver is the Cache Engine's request-facing component.
type Resolver struct {
	cfg     config.Config
	index   *variantindex.Index
	pool    *optimizer.Pool
	log     core.Logger
	metrics core.MetricsCollector
}

// New returns a ready Resolver.
func New(cfg config.Config, index *variantindex.Index, pool *optimizer.Pool, log core.Logger, metrics core.MetricsCollector) *Resolver {
	return &Resolver{cfg: cfg, index: index, pool: pool, log: log, metrics: metrics}
}

// Resolve never blocks on encoding: on a miss it returns the source
// as-is and fires background OptimizeJobs so later requests hit disk.
func (r *Resolver) Resolve(imageID, sizeProfileName, accept string) (*core.Artifact, error) {
	profile := r.cfg.ProfileFor(sizeProfileName)
	if profile == nil || !profile.Matches(imageID) {
		return nil, core.NewError(core.CategoryNotFound, "resolve", core.ErrNotFound)
	}

	entry, ok := r.index.Get(imageID)
	if !ok {
		return nil, core.NewError(core.CategoryNotFound, "resolve", core.ErrNotFound)
	}

	offered := r.offeredFormats(entry, sizeProfileName)
	r.fireMissingJobs(imageID, entry.SourcePath, sizeProfileName, profile, offered)

	chosen := r.negotiateFormat(accept, offered)

	candidates := r.fallbackChain(chosen, offered)
	for _, f := range candidates {
		path, ok := entry.Variants[core.VariantKey{SizeProfile: sizeProfileName, Format: f}]
		if !ok {
			continue
		}
		artifact, err := r.openVariant(path, f)
		if err == nil {
			r.metrics.RecordCacheHit("resolve")
			return artifact, nil
		}
		// Registered but unreadable: heal by re-enqueuing and falling
		// through to the next candidate.
		r.log.Warn("resolver: registered variant unreadable, healing", "image_id", imageID, "path", path, "error", err)
		r.pool.Submit(optimizer.Job{
			ImageID:       imageID,
			SourcePath:    entry.SourcePath,
			SizeProfile:   sizeProfileName,
			Width:         profile.Width,
			Height:        profile.Height,
			Format:        f,
			Quality:       profile.Quality(f, &r.cfg),
			PreferQuality: false,
		})
	}

	r.metrics.RecordCacheMiss("resolve")
	return r.sourceArtifact(entry.SourcePath)
}

func (r *Resolver) offeredFormats(entry *core.SourceEntry, sizeProfileName string) []core.Format {
	offered := make([]core.Format, 0, len(r.cfg.Formats))
	for _, f := range r.cfg.Formats {
		if _, ok := entry.Variants[core.VariantKey{SizeProfile: sizeProfileName, Format: f}]; ok {
			offered = append(offered, f)
		}
	}
	return offered
}

// fireMissingJobs enqueues a best-effort OptimizeJob for every configured
// format not yet present among the variants for this (image, size).
func (r *Resolver) fireMissingJobs(imageID, sourcePath, sizeProfileName string, profile *config.SizeProfile, offered []core.Format) {
	have := make(map[core.Format]bool, len(offered))
	for _, f := range offered {
		have[f] = true
	}
	for _, f := range r.cfg.Formats {
		if have[f] {
			continue
		}
		r.pool.Submit(optimizer.Job{
			ImageID:       imageID,
			SourcePath:    sourcePath,
			SizeProfile:   sizeProfileName,
			Width:         profile.Width,
			Height:        profile.Height,
			Format:        f,
			Quality:       profile.Quality(f, &r.cfg),
			PreferQuality: false,
		})
	}
}

func (r *Resolver) negotiateFormat(accept string, offered []core.Format) core.Format {
	if len(offered) == 0 {
		return core.FormatUnknown
	}
	return negotiate.Best(accept, offered, r.cfg.DefaultFormat)
}

// fallbackChain orders candidates to try: the negotiated choice first,
// then the remaining offered formats, preserving configured order.
func (r *Resolver) fallbackChain(chosen core.Format, offered []core.Format) []core.Format {
	if chosen == core.FormatUnknown {
		return nil
	}
	out := make([]core.Format, 0, len(offered))
	out = append(out, chosen)
	for _, f := range offered {
		if f != chosen {
			out = append(out, f)
		}
	}
	return out
}

func (r *Resolver) openVariant(path string, format core.Format) (*core.Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, core.WrapErr(core.CategoryIO, "resolve.open_variant", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, core.WrapErr(core.CategoryIO, "resolve.stat_variant", err)
	}

	return &core.Artifact{
		File:         &core.FileArtifact{Reader: &core.BoundedReader{R: f, Max: info.Size()}, Size: info.Size()},
		LastModified: info.ModTime(),
		ContentType:  format.MediaType(),
		IdentityTag:  core.IdentityTag(core.StableSourceID(path, info), info.Size(), info.ModTime().Unix(), true),
		IsOptimized:  true,
	}, nil
}

func (r *Resolver) sourceArtifact(sourcePath string) (*core.Artifact, error) {
	f, err := os.Open(sourcePath)
	if err != nil {
		return nil, core.WrapErr(core.CategoryIO, "resolve.open_source", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, core.WrapErr(core.CategoryIO, "resolve.stat_source", err)
	}

	ext := strings.TrimPrefix(filepath.Ext(sourcePath), ".")
	format := core.FormatFromExtension(ext)

	return &core.Artifact{
		File:         &core.FileArtifact{Reader: &core.BoundedReader{R: f, Max: info.Size()}, Size: info.Size()},
		LastModified: info.ModTime(),
		ContentType:  format.MediaType(),
		IdentityTag:  core.IdentityTag(core.StableSourceID(sourcePath, info), info.Size(), info.ModTime().Unix(), false),
		IsOptimized:  false,
	}, nil
}
