// Package watch implements the Source Watcher: it recursively subscribes
// to every configured source root via fsnotify, classifies each event as
// a modification or a deletion, and keeps the Variant Index coherent with
// the filesystem tree.
package watch

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/shrinkcache/shrinkcache/config"
	"github.com/shrinkcache/shrinkcache/core"
	"github.com/shrinkcache/shrinkcache/optimizer"
	"github.com/shrinkcache/shrinkcache/variantindex"
)

// Watcher owns one fsnotify.Watcher covering every configured root and a
// single event-consumer goroutine, so events for the same image are
// processed serially.
type Watcher struct {
	cfg   config.Config
	index *variantindex.Index
	pool  *optimizer.Pool
	log   core.Logger
	fsw   *fsnotify.Watcher
	roots []string
}

// New creates a Watcher and subscribes recursively to every configured
// root. The returned Watcher must have Run called in its own goroutine.
func New(cfg config.Config, index *variantindex.Index, pool *optimizer.Pool, log core.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, core.NewError(core.CategoryInternal, "watch.new", err)
	}

	w := &Watcher{cfg: cfg, index: index, pool: pool, log: log, fsw: fsw, roots: cfg.Roots}
	for _, root := range cfg.Roots {
		if err := w.addRecursive(root); err != nil {
			fsw.Close()
			return nil, core.NewError(core.CategoryInternal, "watch.subscribe", err)
		}
	}
	return w, nil
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return w.fsw.Add(path)
	})
}

// Run is the single event-consumer loop. It returns when the underlying
// fsnotify watcher is closed.
func (w *Watcher) Run() {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Error("watch: fsnotify error", "error", err)
		}
	}
}

// Close stops watching and releases fsnotify resources.
func (w *Watcher) Close() error { return w.fsw.Close() }

func (w *Watcher) handle(event fsnotify.Event) {
	switch {
	case event.Op&fsnotify.Write == fsnotify.Write, event.Op&fsnotify.Create == fsnotify.Create:
		// fsnotify watches are not recursive: a freshly created
		// directory must be added before events inside it are seen.
		if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
			if event.Op&fsnotify.Create == fsnotify.Create {
				if err := w.addRecursive(event.Name); err != nil {
					w.log.Error("watch: failed to subscribe new directory", "path", event.Name, "error", err)
				}
			}
			return
		}
		w.handleModification(event.Name)
	case event.Op&fsnotify.Remove == fsnotify.Remove, event.Op&fsnotify.Rename == fsnotify.Rename:
		w.handleDeletion(event.Name)
	}
}

func (w *Watcher) rootFor(path string) (string, bool) {
	for _, root := range w.roots {
		if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
			return root, true
		}
	}
	return "", false
}

func (w *Watcher) imageID(path string) (string, bool) {
	root, ok := w.rootFor(path)
	if !ok {
		return "", false
	}
	return variantindex.ImageID(root, path)
}

// handleModification inserts the entry if absent, clears and deletes the
// old variant files, then re-enqueues pre_optimize-eligible jobs. It
// never encodes synchronously.
func (w *Watcher) handleModification(path string) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if core.FormatFromExtension(ext) == core.FormatUnknown {
		return
	}
	id, ok := w.imageID(path)
	if !ok {
		return
	}

	stale := w.index.ReplaceSource(id, path)
	for _, p := range stale {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			w.log.Error("watch: failed to remove stale variant", "image_id", id, "path", p, "error", err)
		}
	}

	for sizeName, profile := range w.cfg.Sizes {
		if !profile.PreOptimize || !profile.Matches(id) {
			continue
		}
		for _, format := range w.cfg.Formats {
			w.pool.Submit(optimizer.Job{
				ImageID:       id,
				SourcePath:    path,
				SizeProfile:   sizeName,
				Width:         profile.Width,
				Height:        profile.Height,
				Format:        format,
				Quality:       profile.Quality(format, &w.cfg),
				PreferQuality: true,
			})
		}
	}
}

// handleDeletion removes the entry and unlinks every variant file it
// referenced.
func (w *Watcher) handleDeletion(path string) {
	id, ok := w.imageID(path)
	if !ok {
		return
	}
	stale := w.index.Remove(id)
	for _, p := range stale {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			w.log.Error("watch: failed to remove variant after deletion", "image_id", id, "path", p, "error", err)
		}
	}
}
