// Package optimizer implements the Optimizer Pool: a bounded worker pool
// that decodes a source image, resizes it to a size profile's dimensions,
// and encodes the result in a requested format, handing the encoded bytes
// off to the Persistence Worker.
//
// The pool grows worker goroutines on demand up to a cap and lets idle
// ones exit after a timeout, so a burst of pre-optimize work does not pin
// codec memory forever.
package optimizer

import (
	"os"
	"sync"
	"time"

	"github.com/shrinkcache/shrinkcache/config"
	"github.com/shrinkcache/shrinkcache/core"
)

// Job describes one image rendition to produce.
type Job struct {
	ImageID     string
	SourcePath  string
	SizeProfile string
	Width       int
	Height      int
	Format      core.Format
	Quality     int
	// PreferQuality selects the slower, higher-quality encode path used
	// for watch-driven and pre-optimize work, as opposed to the faster
	// path used for resolver-driven warmup.
	PreferQuality bool
}

// Result is handed to the Persistence Worker once a Job completes.
// SourceModTime, when set, asks the persister to stamp the variant file
// with the source's mtime so derived files track their source.
type Result struct {
	Job           Job
	Buffer        core.EncodedBuffer
	SourceModTime time.Time
}

// Pool is the bounded Optimizer Pool.
type Pool struct {
	jobs     chan Job
	out      chan Result
	registry core.Registry
	log      core.Logger
	metrics  core.MetricsCollector
	cfg      config.Config

	maxWorkers int
	idle       time.Duration

	mu     sync.Mutex
	active int
	closed bool
	wg     sync.WaitGroup
}

// New returns a ready Pool. threads <= 0 defaults to 1. registry resolves
// each job's Format to the Codec that should handle it.
func New(threads int, registry core.Registry, log core.Logger, metrics core.MetricsCollector, cfg config.Config) *Pool {
	if threads <= 0 {
		threads = 1
	}
	return &Pool{
		jobs:       make(chan Job, 1024),
		out:        make(chan Result, 1024),
		registry:   registry,
		log:        log,
		metrics:    metrics,
		cfg:        cfg,
		maxWorkers: threads,
		idle:       config.IdleWorkerTimeout,
	}
}

// Results returns the channel of completed work, consumed by the
// Persistence Worker.
func (p *Pool) Results() <-chan Result { return p.out }

// Submit enqueues a job for processing. Best-effort and non-blocking: it
// reports false when the pool is closed or nothing could be enqueued.
// On saturation the oldest queued job is evicted to make room, since it
// has waited longest and is the most likely to have gone stale.
// Optimization work is reproducible, so an evicted job is recovered by
// the next resolve miss.
func (p *Pool) Submit(j Job) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	select {
	case p.jobs <- j:
	default:
		select {
		case old := <-p.jobs:
			p.log.Warn("optimizer: queue saturated, evicting oldest job", "image_id", old.ImageID, "size_profile", old.SizeProfile)
		default:
		}
		select {
		case p.jobs <- j:
		default:
			return false
		}
	}
	p.metrics.RecordQueueDepth("optimizer", len(p.jobs))
	if p.active < p.maxWorkers {
		p.active++
		p.wg.Add(1)
		go p.runWorker()
	}
	return true
}

func (p *Pool) runWorker() {
	defer p.wg.Done()
	timer := time.NewTimer(p.idle)
	defer timer.Stop()

	for {
		select {
		case job, ok := <-p.jobs:
			if !ok {
				p.mu.Lock()
				p.active--
				p.mu.Unlock()
				return
			}
			p.process(job)
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(p.idle)

		case <-timer.C:
			p.mu.Lock()
			p.active--
			p.mu.Unlock()
			return
		}
	}
}

// process runs one job. The profile is re-resolved at execution time,
// not capture time, and the job is silently discarded if the profile has
// since been removed or no longer matches this image — it may have raced
// a watcher-driven rename.
func (p *Pool) process(j Job) {
	profile := p.cfg.ProfileFor(j.SizeProfile)
	if profile == nil || !profile.Matches(j.ImageID) {
		p.log.Debug("optimizer: dropping job, profile no longer applies", "image_id", j.ImageID, "size_profile", j.SizeProfile)
		return
	}

	codec, ok := p.registry.CodecFor(j.Format)
	if !ok {
		p.log.Error("optimizer: no codec registered", "format", j.Format)
		p.metrics.RecordError("optimize", core.CategoryCodec)
		return
	}

	start := time.Now()
	img, err := codec.Decode(j.SourcePath)
	if err != nil {
		p.log.Error("optimizer: decode failed", "image_id", j.ImageID, "error", err)
		p.metrics.RecordError("optimize", core.CategoryCodec)
		return
	}
	defer img.Close()

	resized, err := codec.Resize(img, j.Width, j.Height)
	if err != nil {
		p.log.Error("optimizer: resize failed", "image_id", j.ImageID, "error", err)
		p.metrics.RecordError("optimize", core.CategoryCodec)
		return
	}

	buf, err := codec.Encode(resized, j.Format, core.EncodeParams{
		Quality:       j.Quality,
		PreferQuality: j.PreferQuality,
	})
	if err != nil {
		p.log.Error("optimizer: encode failed", "image_id", j.ImageID, "error", err)
		p.metrics.RecordError("optimize", core.CategoryCodec)
		return
	}

	var srcMod time.Time
	if j.PreferQuality {
		if fi, statErr := os.Stat(j.SourcePath); statErr == nil {
			srcMod = fi.ModTime()
		}
	}

	p.metrics.RecordOperation("optimize", time.Since(start))
	p.out <- Result{Job: j, Buffer: buf, SourceModTime: srcMod}
}

// Close stops accepting jobs and waits for in-flight workers to drain.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
	close(p.out)
}
