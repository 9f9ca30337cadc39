package resolver

import (
	"os"
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

func newTestResolver(t *testing.T, cfg config.Config, idx *variantindex.Index) *Resolver {
	t.Helper()
	reg := core.NewRegistry()
	for _, f := range []core.Format{core.FormatJPEG, core.FormatWebP, core.FormatAVIF} {
		reg.RegisterCodec(f, nopCodec{})
	}
	pool := optimizer.New(1, reg, nopLogger{}, nopMetrics{}, cfg)
	return New(cfg, idx, pool, nopLogger{}, nopMetrics{})
}

func baseConfig(root, cacheDir string) config.Config {
	cfg := config.Default()
	cfg.Roots = []string{root}
	cfg.CacheDirectory = cacheDir
	cfg.Formats = []core.Format{core.FormatWebP, core.FormatJPEG}
	cfg.DefaultFormat = core.FormatJPEG
	cfg.Sizes = map[string]*config.SizeProfile{
		"small": {Width: 300, Height: 300},
	}
	return cfg
}

func TestResolveUnknownSizeProfileIsNotFound(t *testing.T) {
	root := t.TempDir()
	cfg := baseConfig(root, t.TempDir())
	idx := variantindex.New()
	idx.Ensure("a", filepath.Join(root, "a.jpg"))

	res := newTestResolver(t, cfg, idx)
	_, err := res.Resolve("a", "huge", "")
	if !core.IsCategory(err, core.CategoryNotFound) {
		t.Fatalf("expected NotFound for unknown size profile, got %v", err)
	}
}

func TestResolvePatternMismatchIsNotFound(t *testing.T) {
	root := t.TempDir()
	cfg := baseConfig(root, t.TempDir())
	cfg.Sizes["small"].MatchPattern = "^hero/"
	idx := variantindex.New()
	idx.Ensure("other/a", filepath.Join(root, "other/a.jpg"))

	res := newTestResolver(t, cfg, idx)
	_, err := res.Resolve("other/a", "small", "")
	if !core.IsCategory(err, core.CategoryNotFound) {
		t.Fatalf("expected NotFound for pattern mismatch, got %v", err)
	}
}

func TestResolveUnknownImageIDIsNotFound(t *testing.T) {
	cfg := baseConfig(t.TempDir(), t.TempDir())
	idx := variantindex.New()

	res := newTestResolver(t, cfg, idx)
	_, err := res.Resolve("nope", "small", "")
	if !core.IsCategory(err, core.CategoryNotFound) {
		t.Fatalf("expected NotFound for unknown image id, got %v", err)
	}
}

func TestResolveColdMissServesSourceWithoutBlockingOnEncoding(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.jpg"), []byte("source bytes"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	cfg := baseConfig(root, t.TempDir())
	idx := variantindex.New()
	idx.Ensure("a", filepath.Join(root, "a.jpg"))

	res := newTestResolver(t, cfg, idx)
	artifact, err := res.Resolve("a", "small", "image/webp")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	defer artifact.Close()

	if artifact.IsOptimized {
		t.Fatalf("expected is_optimized=false on a cold miss")
	}
	if artifact.ContentType != "image/jpeg" {
		t.Fatalf("expected content type inferred from source extension, got %q", artifact.ContentType)
	}
	if artifact.Size() != int64(len("source bytes")) {
		t.Fatalf("expected artifact size to match source file size")
	}
}

func TestResolveReturnsRegisteredVariant(t *testing.T) {
	root := t.TempDir()
	cacheDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.jpg"), []byte("source bytes"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	smallDir := filepath.Join(cacheDir, "small")
	if err := os.MkdirAll(smallDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(smallDir, "a.webp"), []byte("encoded webp bytes"), 0o644); err != nil {
		t.Fatalf("write variant: %v", err)
	}

	cfg := baseConfig(root, cacheDir)
	idx := variantindex.New()
	idx.Ensure("a", filepath.Join(root, "a.jpg"))
	idx.PutVariant("a", core.VariantKey{SizeProfile: "small", Format: core.FormatWebP}, filepath.Join(smallDir, "a.webp"))

	res := newTestResolver(t, cfg, idx)
	artifact, err := res.Resolve("a", "small", "image/webp")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	defer artifact.Close()

	if !artifact.IsOptimized {
		t.Fatalf("expected is_optimized=true for a registered variant")
	}
	if artifact.ContentType != "image/webp" {
		t.Fatalf("unexpected content type: %q", artifact.ContentType)
	}
}

func TestResolveUnsupportedAcceptFallsThroughToSource(t *testing.T) {
	root := t.TempDir()
	cacheDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.jpg"), []byte("source bytes"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	smallDir := filepath.Join(cacheDir, "small")
	if err := os.MkdirAll(smallDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(smallDir, "a.webp"), []byte("encoded webp bytes"), 0o644); err != nil {
		t.Fatalf("write variant: %v", err)
	}

	cfg := baseConfig(root, cacheDir)
	idx := variantindex.New()
	idx.Ensure("a", filepath.Join(root, "a.jpg"))
	idx.PutVariant("a", core.VariantKey{SizeProfile: "small", Format: core.FormatWebP}, filepath.Join(smallDir, "a.webp"))

	res := newTestResolver(t, cfg, idx)
	artifact, err := res.Resolve("a", "small", "text/html")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	defer artifact.Close()

	if artifact.IsOptimized {
		t.Fatalf("expected is_optimized=false when accept names only unsupported types")
	}
	if artifact.ContentType != "image/jpeg" {
		t.Fatalf("expected content type inferred from source extension, got %q", artifact.ContentType)
	}
}
