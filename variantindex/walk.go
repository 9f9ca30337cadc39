package variantindex

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/shrinkcache/shrinkcache/config"
	"github.com/shrinkcache/shrinkcache/core"
)

// ImageID derives an image's stable identifier by stripping its root
// prefix and file extension.
func ImageID(root, fullPath string) (id string, ok bool) {
	rel, err := filepath.Rel(root, fullPath)
	if err != nil {
		return "", false
	}
	ext := strings.TrimPrefix(filepath.Ext(rel), ".")
	if ext == "" {
		return "", false
	}
	stem := strings.TrimSuffix(rel, filepath.Ext(rel))
	return stem, true
}

// Load performs the synchronous startup walk over every configured root,
// populating idx with one entry per supported source file plus any
// already-persisted variant files it finds under the cache directory.
// Synchronous so the engine never serves from a half-built index.
func Load(cfg config.Config, idx *Index) error {
	for _, root := range cfg.Roots {
		if err := loadRoot(cfg, idx, root); err != nil {
			return err
		}
	}
	return nil
}

func loadRoot(cfg config.Config, idx *Index, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.TrimPrefix(filepath.Ext(path), ".")
		if core.FormatFromExtension(ext) == core.FormatUnknown {
			return nil
		}
		id, ok := ImageID(root, path)
		if !ok {
			return nil
		}
		idx.Ensure(id, path)

		for sizeName := range cfg.Sizes {
			for _, format := range cfg.Formats {
				variantPath := filepath.Join(cfg.CacheDirectory, sizeName, id+"."+format.Extension())
				if _, statErr := os.Stat(variantPath); statErr == nil {
					idx.PutVariant(id, core.VariantKey{SizeProfile: sizeName, Format: format}, variantPath)
				}
			}
		}
		return nil
	})
}
