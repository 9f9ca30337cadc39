package preopt

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shrinkcache/shrinkcache/config"
	"github.com/shrinkcache/shrinkcache/core"
	"github.com/shrinkcache/shrinkcache/optimizer"
	"github.com/shrinkcache/shrinkcache/variantindex"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{}) {}
func (nopLogger) Error(string, ...interface{}) {}

type nopMetrics struct{}

func (nopMetrics) RecordOperation(string, time.Duration) {}
func (nopMetrics) RecordCacheHit(string) {}
func (nopMetrics) RecordCacheMiss(string) {}
func (nopMetrics) RecordQueueDepth(string, int) {}
func (nopMetrics) RecordError(string, core.Category) {}

type nopImage struct{}

func (nopImage) Width() int  { return 1 }
func (nopImage) Height() int { return 1 }
func (nopImage) Close()      {}

type nopCodec struct{}

func (nopCodec) Decode(string) (core.Image, error) { return nopImage{}, nil }
func (nopCodec) Resize(img core.Image, w, h int) (core.Image, error) { return img, nil }
func (nopCodec) Encode(core.Image, core.Format, core.EncodeParams) (core.EncodedBuffer, error) {
	return core.EncodedBuffer{Data: []byte("x")}, nil
}

func TestSweepEnqueuesMissingCombinationsOnly(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	cfg.Roots = []string{root}
	cfg.Formats = []core.Format{core.FormatWebP, core.FormatAVIF}
	cfg.Sizes = map[string]*config.SizeProfile{
		"hero":  {Width: 1600, Height: 900, PreOptimize: true},
		"plain": {Width: 300, Height: 300, PreOptimize: false},
	}

	idx := variantindex.New()
	idx.Ensure("a", filepath.Join(root, "a.jpg"))
	idx.Ensure("b", filepath.Join(root, "b.jpg"))
	idx.PutVariant("a", core.VariantKey{SizeProfile: "hero", Format: core.FormatWebP}, "/cache/hero/a.webp")

	reg := core.NewRegistry()
	reg.RegisterCodec(core.FormatWebP, nopCodec{})
	reg.RegisterCodec(core.FormatAVIF, nopCodec{})
	pool := optimizer.New(2, reg, nopLogger{}, nopMetrics{}, cfg)
	defer pool.Close()

	n := Sweep(cfg, idx, pool)

	// hero x (webp,avif) x (a,b) = 4 combinations, minus the 1 already
	// registered (a, webp) = 3. The "plain" profile is not pre_optimize
	// so it contributes nothing.
	if n != 3 {
		t.Fatalf("expected 3 jobs enqueued, got %d", n)
	}
}
