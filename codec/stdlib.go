package codec

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/webp"

	"github.com/shrinkcache/shrinkcache/core"
)

// Stdlib is a pure-Go Codec with no cgo dependency, selected via
// config.Codec = "stdlib". It decodes JPEG (image/jpeg) and WebP
// (golang.org/x/image/webp, decode only), resizes with x/image/draw, and
// encodes JPEG only. WebP and AVIF encode requests are rejected rather
// than mislabeled as another format.
type Stdlib struct {
	DefaultQuality int
}

// NewStdlib returns a ready Stdlib codec.
func NewStdlib(defaultQuality int) *Stdlib {
	if defaultQuality <= 0 {
		defaultQuality = 85
	}
	return &Stdlib{DefaultQuality: defaultQuality}
}

// goImage wraps an image.Image to satisfy core.Image.
type goImage struct {
	img image.Image
}

func (g *goImage) Width() int  { return g.img.Bounds().Dx() }
func (g *goImage) Height() int { return g.img.Bounds().Dy() }
func (g *goImage) Close()      {}

func (s *Stdlib) Decode(path string) (core.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, core.WrapErr(core.CategoryIO, "stdlib.decode.open", err)
	}
	defer f.Close()

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(f); err != nil {
		return nil, core.WrapErr(core.CategoryIO, "stdlib.decode.read", err)
	}

	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	var img image.Image
	switch core.FormatFromExtension(ext) {
	case core.FormatWebP:
		img, err = webp.Decode(bytes.NewReader(buf.Bytes()))
	default:
		img, err = jpeg.Decode(bytes.NewReader(buf.Bytes()))
	}
	if err != nil {
		return nil, core.WrapErr(core.CategoryCodec, "stdlib.decode", err)
	}
	return &goImage{img: img}, nil
}

func (s *Stdlib) Resize(img core.Image, width, height int) (core.Image, error) {
	gi, ok := img.(*goImage)
	if !ok {
		return nil, core.NewError(core.CategoryCodec, "stdlib.resize",
			fmt.Errorf("image must be decoded by the stdlib codec"))
	}
	dstW, dstH := ScaleDimensions(gi.img.Bounds().Dx(), gi.img.Bounds().Dy(), width, height)
	if dstW == gi.img.Bounds().Dx() && dstH == gi.img.Bounds().Dy() {
		return gi, nil
	}
	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), gi.img, gi.img.Bounds(), draw.Over, nil)
	return &goImage{img: dst}, nil
}

func (s *Stdlib) Encode(img core.Image, format core.Format, params core.EncodeParams) (core.EncodedBuffer, error) {
	gi, ok := img.(*goImage)
	if !ok {
		return core.EncodedBuffer{}, core.NewError(core.CategoryCodec, "stdlib.encode",
			fmt.Errorf("image must be decoded by the stdlib codec"))
	}
	if format != core.FormatJPEG {
		return core.EncodedBuffer{}, core.NewError(core.CategoryCodec, "stdlib.encode",
			fmt.Errorf("%w: stdlib codec only encodes jpeg, got %s", core.ErrUnsupportedFormat, format))
	}

	quality := params.Quality
	if quality <= 0 {
		quality = s.DefaultQuality
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, gi.img, &jpeg.Options{Quality: quality}); err != nil {
		return core.EncodedBuffer{}, core.WrapErr(core.CategoryCodec, "stdlib.encode.jpeg", err)
	}
	return core.EncodedBuffer{Data: buf.Bytes(), Format: core.FormatJPEG}, nil
}

var _ core.Codec = (*Stdlib)(nil)
