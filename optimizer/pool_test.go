package optimizer

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shrinkcache/shrinkcache/config"
	"github.com/shrinkcache/shrinkcache/core"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Sizes = map[string]*config.SizeProfile{
		"small": {Width: 300, Height: 300},
	}
	return cfg
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{}) {}
func (nopLogger) Error(string, ...interface{}) {}

type countingMetrics struct {
	mu     sync.Mutex
	ops    int
	errors int
}

func (m *countingMetrics) RecordOperation(string, time.Duration) {
	m.mu.Lock()
	m.ops++
	m.mu.Unlock()
}
func (m *countingMetrics) RecordCacheHit(string) {}
func (m *countingMetrics) RecordCacheMiss(string) {}
func (m *countingMetrics) RecordQueueDepth(string, int) {}
func (m *countingMetrics) RecordError(string, core.Category) {
	m.mu.Lock()
	m.errors++
	m.mu.Unlock()
}

type fakeImage struct{ w, h int }

func (f *fakeImage) Width() int  { return f.w }
func (f *fakeImage) Height() int { return f.h }
func (f *fakeImage) Close() {}

type fakeCodec struct {
	failDecode bool
}

func (c *fakeCodec) Decode(path string) (core.Image, error) {
	if c.failDecode {
		return nil, core.NewError(core.CategoryCodec, "fake.decode", core.ErrEmptyInput)
	}
	return &fakeImage{w: 1000, h: 800}, nil
}

func (c *fakeCodec) Resize(img core.Image, w, h int) (core.Image, error) {
	return &fakeImage{w: w, h: h}, nil
}

func (c *fakeCodec) Encode(img core.Image, format core.Format, params core.EncodeParams) (core.EncodedBuffer, error) {
	return core.EncodedBuffer{Data: []byte("encoded"), Format: format}, nil
}

func testRegistry(c core.Codec) core.Registry {
	reg := core.NewRegistry()
	for _, f := range []core.Format{core.FormatJPEG, core.FormatWebP, core.FormatAVIF} {
		reg.RegisterCodec(f, c)
	}
	return reg
}

func TestPoolProcessesJobAndEmitsResult(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.jpg")
	if err := os.WriteFile(src, []byte("fake"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	metrics := &countingMetrics{}
	pool := New(1, testRegistry(&fakeCodec{}), nopLogger{}, metrics, testConfig())

	pool.Submit(Job{ImageID: "a", SourcePath: src, SizeProfile: "small", Width: 300, Height: 300, Format: core.FormatWebP, Quality: 80})

	select {
	case result := <-pool.Results():
		if result.Job.ImageID != "a" {
			t.Fatalf("unexpected job in result: %+v", result.Job)
		}
		if string(result.Buffer.Data) != "encoded" {
			t.Fatalf("unexpected encoded buffer: %q", result.Buffer.Data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for optimizer result")
	}

	pool.Close()
	if metrics.ops == 0 {
		t.Fatalf("expected at least one recorded operation")
	}
}

func TestPoolDropsJobOnDecodeError(t *testing.T) {
	metrics := &countingMetrics{}
	pool := New(1, testRegistry(&fakeCodec{failDecode: true}), nopLogger{}, metrics, testConfig())

	pool.Submit(Job{ImageID: "bad", SourcePath: "/nonexistent", SizeProfile: "small", Width: 300, Height: 300, Format: core.FormatJPEG})

	select {
	case <-pool.Results():
		t.Fatal("expected no result for a failed decode")
	case <-time.After(200 * time.Millisecond):
	}

	pool.Close()
	if metrics.errors == 0 {
		t.Fatalf("expected a recorded error for the failed decode")
	}
}
