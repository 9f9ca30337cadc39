// Package codec provides Codec implementations: a libvips-backed
// production backend and a pure-Go fallback, both behind the single
// Decode/Resize/Encode capability the engine depends on.
package codec

import (
	"fmt"
	"runtime"

	govips "github.com/davidbyttow/govips/v2/vips"

	"github.com/shrinkcache/shrinkcache/core"
)

// VipsConfig configures the libvips backend.
type VipsConfig struct {
	DefaultQuality int
	MaxCacheSize   int
	MaxWorkers     int
	ReportLeaks    bool
}

// Vips is a unified libvips-powered Codec handling JPEG, WebP, and AVIF.
// Safe for concurrent use across goroutines (libvips serialises internally).
type Vips struct {
	cfg VipsConfig
}

// NewVips initialises libvips and returns a ready Codec. Call Shutdown()
// once at process exit.
func NewVips(cfg VipsConfig) *Vips {
	if cfg.DefaultQuality <= 0 {
		cfg.DefaultQuality = 85
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = runtime.NumCPU()
	}
	govips.Startup(&govips.Config{
		ConcurrencyLevel: cfg.MaxWorkers,
		MaxCacheSize:     cfg.MaxCacheSize,
		ReportLeaks:      cfg.ReportLeaks,
		CollectStats:     true,
	})
	return &Vips{cfg: cfg}
}

// Shutdown releases all libvips resources.
func (v *Vips) Shutdown() { govips.Shutdown() }

// vipsImage wraps a *govips.ImageRef to satisfy core.Image.
type vipsImage struct {
	ref *govips.ImageRef
}

func (v *vipsImage) Width() int  { return v.ref.Width() }
func (v *vipsImage) Height() int { return v.ref.Height() }
func (v *vipsImage) Close()      { v.ref.Close() }

func (v *Vips) Decode(path string) (core.Image, error) {
	ref, err := govips.NewImageFromFile(path)
	if err != nil {
		return nil, core.WrapErr(core.CategoryCodec, "vips.decode", err)
	}
	return &vipsImage{ref: ref}, nil
}

func (v *Vips) Resize(img core.Image, width, height int) (core.Image, error) {
	vi, ok := img.(*vipsImage)
	if !ok {
		return nil, core.NewError(core.CategoryCodec, "vips.resize",
			fmt.Errorf("image must be decoded by the vips codec"))
	}
	dstW, dstH := ScaleDimensions(vi.ref.Width(), vi.ref.Height(), width, height)
	if dstW == vi.ref.Width() && dstH == vi.ref.Height() {
		return vi, nil
	}
	scale := float64(dstW) / float64(vi.ref.Width())
	if err := vi.ref.Resize(scale, govips.KernelLanczos3); err != nil {
		return nil, core.WrapErr(core.CategoryCodec, "vips.resize", err)
	}
	return vi, nil
}

func (v *Vips) Encode(img core.Image, format core.Format, params core.EncodeParams) (core.EncodedBuffer, error) {
	vi, ok := img.(*vipsImage)
	if !ok {
		return core.EncodedBuffer{}, core.NewError(core.CategoryCodec, "vips.encode",
			fmt.Errorf("image must be decoded by the vips codec"))
	}

	quality := params.Quality
	if quality <= 0 {
		quality = v.cfg.DefaultQuality
	}

	switch format {
	case core.FormatJPEG:
		ep := govips.NewJpegExportParams()
		ep.Quality = quality
		ep.Interlace = params.PreferQuality
		buf, _, err := vi.ref.ExportJpeg(ep)
		if err != nil {
			return core.EncodedBuffer{}, core.WrapErr(core.CategoryCodec, "vips.encode.jpeg", err)
		}
		return core.EncodedBuffer{Data: buf, Format: core.FormatJPEG}, nil

	case core.FormatWebP:
		ep := govips.NewWebpExportParams()
		ep.Quality = quality
		ep.ReductionEffort = 2
		if params.PreferQuality {
			ep.ReductionEffort = 6
		}
		buf, _, err := vi.ref.ExportWebp(ep)
		if err != nil {
			return core.EncodedBuffer{}, core.WrapErr(core.CategoryCodec, "vips.encode.webp", err)
		}
		return core.EncodedBuffer{Data: buf, Format: core.FormatWebP}, nil

	case core.FormatAVIF:
		ep := govips.NewAvifExportParams()
		ep.Quality = quality
		ep.Speed = 5
		if params.PreferQuality {
			ep.Speed = 1
		}
		buf, _, err := vi.ref.ExportAvif(ep)
		if err != nil {
			return core.EncodedBuffer{}, core.WrapErr(core.CategoryCodec, "vips.encode.avif", err)
		}
		return core.EncodedBuffer{Data: buf, Format: core.FormatAVIF}, nil

	default:
		return core.EncodedBuffer{}, core.NewError(core.CategoryCodec, "vips.encode",
			fmt.Errorf("%w: %s", core.ErrUnsupportedFormat, format))
	}
}

var _ core.Codec = (*Vips)(nil)
