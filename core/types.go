// Package core holds the domain types and interfaces shared by every
// component of the cache engine: the codec abstraction, the variant
// index's element types, and the artifact returned to callers.
package core

import (
	"io"
	"strings"
	"time"
)

// Format identifies an output image codec offered by the engine.
type Format string

const (
	FormatJPEG    Format = "jpeg"
	FormatWebP    Format = "webp"
	FormatAVIF    Format = "avif"
	FormatUnknown Format = "unknown"
)

// Extension returns the on-disk file extension for f.
func (f Format) Extension() string {
	switch f {
	case FormatJPEG:
		return "jpg"
	case FormatWebP:
		return "webp"
	case FormatAVIF:
		return "avif"
	default:
		return "bin"
	}
}

// MediaType returns the MIME content type for f.
func (f Format) MediaType() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatWebP:
		return "image/webp"
	case FormatAVIF:
		return "image/avif"
	default:
		return "application/octet-stream"
	}
}

// DefaultQuality is the built-in fallback quality when neither the size
// profile nor the config-global default specifies one for this format.
func (f Format) DefaultQuality() int {
	switch f {
	case FormatJPEG:
		return 85
	case FormatWebP:
		return 80
	case FormatAVIF:
		return 65
	default:
		return 75
	}
}

// FormatFromExtension maps a file extension (no leading dot, any case) to
// a Format, used to classify source files by their extension.
func FormatFromExtension(ext string) Format {
	switch strings.ToLower(ext) {
	case "jpg", "jpeg":
		return FormatJPEG
	case "webp":
		return FormatWebP
	case "avif":
		return FormatAVIF
	default:
		return FormatUnknown
	}
}

// VariantKey identifies one persisted (or pending) derived rendition of a
// source image.
type VariantKey struct {
	SizeProfile string
	Format      Format
}

// SourceEntry is the Variant Index's per-image record: where the
// canonical source lives, and which (size, format) renditions have been
// persisted to disk for it.
type SourceEntry struct {
	SourcePath string
	Variants   map[VariantKey]string // VariantKey -> absolute cache file path
}

// Clone returns a deep copy, safe to hand to a caller outside the lock.
func (s *SourceEntry) Clone() *SourceEntry {
	cp := &SourceEntry{
		SourcePath: s.SourcePath,
		Variants:   make(map[VariantKey]string, len(s.Variants)),
	}
	for k, v := range s.Variants {
		cp.Variants[k] = v
	}
	return cp
}

// Image is the decoded, in-memory pixel buffer produced by a Codec's
// Decode/Resize steps. It is an opaque capability: the only universally
// meaningful operations are its declared dimensions and releasing its
// resources. Concrete codecs (govips, stdlib) wrap their native
// representation behind this interface.
type Image interface {
	Width() int
	Height() int
	Close()
}

// EncodedBuffer is the result of a Codec's Encode step: raw bytes plus the
// format they were encoded in.
type EncodedBuffer struct {
	Data   []byte
	Format Format
}

// EncodeParams carries format-specific encoding knobs. Quality 0 means
// "let the codec pick its default for this format".
type EncodeParams struct {
	Quality       int
	PreferQuality bool // true: spend more CPU for better compression (pre-optimize/watch-driven work)
}

// Codec is the narrow capability the engine depends on for all pixel work.
// Implementations live in the codec package; the engine never reaches
// into image internals itself.
type Codec interface {
	Decode(path string) (Image, error)
	Resize(img Image, width, height int) (Image, error)
	Encode(img Image, format Format, params EncodeParams) (EncodedBuffer, error)
}

// Artifact is the read-ready bundle the Resolver hands back to its host.
// Exactly one of File or Memory is non-nil.
type Artifact struct {
	File   *FileArtifact
	Memory *EncodedBuffer

	LastModified time.Time
	ContentType  string
	IdentityTag  string
	IsOptimized  bool
}

// FileArtifact streams a registered, on-disk cache file (or the original
// source file, on a cache miss).
type FileArtifact struct {
	Reader io.ReadCloser
	Size   int64
}

// IsNewerThan reports whether the artifact was modified strictly after t
// at second granularity — the comparison a host uses to evaluate
// If-Modified-Since against the Last-Modified it would send.
func (a *Artifact) IsNewerThan(t time.Time) bool {
	return a.LastModified.Truncate(time.Second).After(t.Truncate(time.Second))
}

// Size returns the byte length of the artifact's payload, regardless of
// whether it is file- or memory-backed.
func (a *Artifact) Size() int64 {
	if a.File != nil {
		return a.File.Size
	}
	if a.Memory != nil {
		return int64(len(a.Memory.Data))
	}
	return 0
}

// Close releases any held file handle. Safe to call on a memory-backed
// artifact (no-op).
func (a *Artifact) Close() error {
	if a.File != nil && a.File.Reader != nil {
		return a.File.Reader.Close()
	}
	return nil
}
