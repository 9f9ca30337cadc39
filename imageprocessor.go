// Package shrinkcache is the Cache Engine's top-level wiring: it
// combines the Variant Index, Resolver, Optimizer Pool, Persistence
// Worker, Source Watcher, and Pre-Optimizer into one running engine.
package shrinkcache

import (
	"time"

	"github.com/shrinkcache/shrinkcache/codec"
	"github.com/shrinkcache/shrinkcache/config"
	"github.com/shrinkcache/shrinkcache/core"
	"github.com/shrinkcache/shrinkcache/hooks"
	"github.com/shrinkcache/shrinkcache/optimizer"
	"github.com/shrinkcache/shrinkcache/persist"
	"github.com/shrinkcache/shrinkcache/preopt"
	"github.com/shrinkcache/shrinkcache/resolver"
	"github.com/shrinkcache/shrinkcache/variantindex"
	"github.com/shrinkcache/shrinkcache/watch"
)

// Re-export Format constants for convenience.
const (
	JPEG = core.FormatJPEG
	WebP = core.FormatWebP
	AVIF = core.FormatAVIF
)

// DefaultConfig returns a sensible production configuration.
func DefaultConfig() config.Config { return config.Default() }

// Engine is the primary entry point: the wired Cache Engine ready to
// serve Resolve calls once Start has populated the index and launched
// its background workers.
type Engine struct {
	cfg     config.Config
	index   *variantindex.Index
	pool    *optimizer.Pool
	pw      *persist.Worker
	watcher *watch.Watcher
	res     *resolver.Resolver

	log     core.Logger
	metrics core.MetricsCollector
	hook    core.Hook

	codecCloser func()
}

// New wires a fully configured Engine from cfg. It does not yet index
// sources or launch workers; call Start for that.
func New(cfg config.Config, log core.Logger, metrics core.MetricsCollector) (*Engine, error) {
	if log == nil {
		log = hooks.NewSlogLogger(newSlog(cfg.Logger))
	}
	if metrics == nil {
		metrics = hooks.NewInMemoryMetrics()
	}

	index := variantindex.New()

	var c core.Codec
	var closer func()
	switch cfg.Codec {
	case "stdlib":
		c = codec.NewStdlib(cfg.DefaultFormat.DefaultQuality())
	default:
		vc := codec.NewVips(codec.VipsConfig{DefaultQuality: cfg.DefaultFormat.DefaultQuality()})
		c = vc
		closer = vc.Shutdown
	}

	registry := core.NewRegistry()
	for _, f := range cfg.Formats {
		registry.RegisterCodec(f, c)
	}

	pool := optimizer.New(cfg.OptimizerThreads, registry, log, metrics, cfg)
	pw := persist.New(cfg.CacheDirectory, index, log, metrics)
	res := resolver.New(cfg, index, pool, log, metrics)

	w, err := watch.New(cfg, index, pool, log)
	if err != nil {
		if closer != nil {
			closer()
		}
		return nil, err
	}

	return &Engine{
		cfg:         cfg,
		index:       index,
		pool:        pool,
		pw:          pw,
		watcher:     w,
		res:         res,
		log:         log,
		metrics:     metrics,
		hook:        hooks.NewLoggingHook(log),
		codecCloser: closer,
	}, nil
}

// Start performs the synchronous startup index scan, launches the
// Persistence Worker and Source Watcher goroutines, and runs the
// Pre-Optimizer's one-shot sweep. Safe to call once.
func (e *Engine) Start() error {
	if err := variantindex.Load(e.cfg, e.index); err != nil {
		return err
	}

	go e.pw.Run(e.pool.Results())
	go e.watcher.Run()

	n := preopt.Sweep(e.cfg, e.index, e.pool)
	e.log.Info("engine started", "sources", e.index.Len(), "pre_optimize_jobs", n)
	return nil
}

// Stop releases the watcher and codec resources. The Optimizer Pool and
// Persistence Worker drain cooperatively via channel close.
func (e *Engine) Stop() {
	e.watcher.Close()
	e.pool.Close()
	if e.codecCloser != nil {
		e.codecCloser()
	}
}

// Resolve looks up or falls back to a servable artifact for the given
// image id, size profile, and Accept header.
func (e *Engine) Resolve(imageID, sizeProfileName, accept string) (*core.Artifact, error) {
	e.hook.BeforeOp("resolve", imageID)
	start := time.Now()
	artifact, err := e.res.Resolve(imageID, sizeProfileName, accept)
	e.hook.AfterOp("resolve", imageID, time.Since(start), err)
	if err == nil {
		e.metrics.RecordOperation("resolve", time.Since(start))
	}
	return artifact, err
}

// StreamArtifact copies the next chunk of artifact bytes into buf; see
// the package-level StreamArtifact.
func (e *Engine) StreamArtifact(artifact *core.Artifact, buf []byte) (int, error) {
	return StreamArtifact(artifact, buf)
}

// Index exposes the Variant Index for diagnostics and tests.
func (e *Engine) Index() *variantindex.Index { return e.index }

// Metrics returns the engine's metrics collector.
func (e *Engine) Metrics() core.MetricsCollector { return e.metrics }
