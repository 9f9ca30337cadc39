package core

import (
	"fmt"
	"hash/fnv"
	"os"
	"syscall"
)

// IdentityTag computes the conditional-request identity tag: a fixed
// hash over (stable source id, encoded size, last-modified seconds,
// is-optimized). hash/fnv rather than hash/maphash: maphash reseeds
// every process, and the tag must stay bit-identical across restarts
// for an unchanged variant file.
func IdentityTag(stableSourceID string, encodedSize int64, lastModifiedUnix int64, isOptimized bool) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%d|%d|%t", stableSourceID, encodedSize, lastModifiedUnix, isOptimized)
	return fmt.Sprintf(`"%x"`, h.Sum64())
}

// StableSourceID returns the source's inode number when the platform's
// FileInfo exposes one (Linux/macOS via syscall.Stat_t), else a
// deterministic hash of the source path.
func StableSourceID(path string, info os.FileInfo) string {
	if sys, ok := info.Sys().(*syscall.Stat_t); ok {
		return fmt.Sprintf("ino:%d", sys.Ino)
	}
	h := fnv.New64a()
	fmt.Fprintf(h, "path:%s", path)
	return fmt.Sprintf("pathhash:%x", h.Sum64())
}
