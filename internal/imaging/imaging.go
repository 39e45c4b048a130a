// Package imaging decodes uploaded images into a fixed RGBA pixel buffer and
// bounds their size before feature extraction.
package imaging

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/example/woundrisk/internal/apperr"
)

const (
	// DefaultMinDimension is the smallest accepted width or height.
	DefaultMinDimension = 32
	// DefaultMaxEdge caps the longest edge of the normalized buffer.
	DefaultMaxEdge = 1024
	// DefaultMaxSourcePixels rejects sources whose pixel count would make decode unbounded.
	DefaultMaxSourcePixels = 40_000_000
)

// Options bounds the normalizer.
type Options struct {
	MinDimension    int
	MaxEdge         int
	MaxSourcePixels int
}

// DefaultOptions returns the production bounds.
func DefaultOptions() Options {
	return Options{
		MinDimension:    DefaultMinDimension,
		MaxEdge:         DefaultMaxEdge,
		MaxSourcePixels: DefaultMaxSourcePixels,
	}
}

// PixelBuffer is a row-major RGBA image with 8-bit channels. It is never
// mutated once Normalize returns it.
type PixelBuffer struct {
	Width  int
	Height int
	// Pix holds 4 bytes per pixel; pixel i starts at Pix[4*i].
	Pix []uint8
}

// Area is the number of pixels in the buffer.
func (b *PixelBuffer) Area() int {
	if b == nil || b.Width <= 0 || b.Height <= 0 {
		return 0
	}
	return b.Width * b.Height
}

// RGB returns the colour channels of pixel index i.
func (b *PixelBuffer) RGB(i int) (r, g, bl uint8) {
	o := 4 * i
	return b.Pix[o], b.Pix[o+1], b.Pix[o+2]
}

// Normalize decodes data and returns a bounded PixelBuffer.
func Normalize(data []byte, opts Options) (*PixelBuffer, error) {
	if len(data) == 0 {
		return nil, apperr.New(apperr.KindDecode, "empty image payload")
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindDecode, "read image header")
	}
	if opts.MaxSourcePixels > 0 && cfg.Width*cfg.Height > opts.MaxSourcePixels {
		return nil, apperr.Newf(apperr.KindDecode, "image %dx%d exceeds decode limit", cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindDecode, "decode image")
	}

	size := img.Bounds().Size()
	if size.X < opts.MinDimension || size.Y < opts.MinDimension {
		return nil, apperr.Newf(apperr.KindImageTooSmall, "image %dx%d is below the %dpx minimum",
			size.X, size.Y, opts.MinDimension)
	}
	// The edge cap shrinks both sides; the floor must hold after it too.
	if w, h := TargetSize(size.X, size.Y, opts.MaxEdge); w < opts.MinDimension || h < opts.MinDimension {
		return nil, apperr.Newf(apperr.KindImageTooSmall, "image %dx%d would shrink to %dx%d, below the %dpx minimum",
			size.X, size.Y, w, h, opts.MinDimension)
	}

	return FromImage(img, opts.MaxEdge), nil
}

// FromImage converts img into a PixelBuffer whose longest edge is at most maxEdge
// (0 disables the cap). Downsampling uses nearest-neighbour sampling so the result
// only contains colours present in the source. Transparent pixels end up
// composited onto black.
func FromImage(img image.Image, maxEdge int) *PixelBuffer {
	src := img.Bounds()
	w, h := TargetSize(src.Dx(), src.Dy(), maxEdge)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == src.Dx() && h == src.Dy() {
		draw.Copy(dst, image.Point{}, img, src, draw.Src, nil)
	} else {
		draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, src, draw.Src, nil)
	}

	return &PixelBuffer{Width: w, Height: h, Pix: dst.Pix}
}

// Downsample returns buf capped to maxEdge. It carries no size floor, so
// callers validate with Normalize first. buf is returned as is when it
// already fits.
func Downsample(buf *PixelBuffer, maxEdge int) *PixelBuffer {
	if w, h := TargetSize(buf.Width, buf.Height, maxEdge); w == buf.Width && h == buf.Height {
		return buf
	}
	src := &image.RGBA{Pix: buf.Pix, Stride: 4 * buf.Width, Rect: image.Rect(0, 0, buf.Width, buf.Height)}
	return FromImage(src, maxEdge)
}

// TargetSize scales (w, h) so the longest edge fits maxEdge, keeping aspect ratio.
func TargetSize(w, h, maxEdge int) (int, int) {
	longest := w
	if h > longest {
		longest = h
	}
	if maxEdge <= 0 || longest <= maxEdge {
		return w, h
	}
	scale := float64(maxEdge) / float64(longest)
	nw := int(float64(w)*scale + 0.5)
	nh := int(float64(h)*scale + 0.5)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	return nw, nh
}
