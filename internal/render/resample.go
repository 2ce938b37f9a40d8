package render

import (
	"errors"
	"fmt"
	"image"

	"github.com/nfnt/resize"
	"golang.org/x/image/draw"
)

// ErrUnknownResampler is returned for unsupported resampler names.
var ErrUnknownResampler = errors.New("unknown resampler")

// Resampler names accepted by NewResampler.
const (
	ResamplerCatmullRom = "catmullrom"
	ResamplerBicubic    = "bicubic"
)

// Resampler scales an image to an exact size with a bicubic class filter.
type Resampler interface {
	Resample(src image.Image, width, height int) *image.RGBA
}

// NewResampler returns the resampler registered under name.
// An empty name selects Catmull-Rom.
func NewResampler(name string) (Resampler, error) {
	switch name {
	case "", ResamplerCatmullRom:
		return CatmullRom{}, nil
	case ResamplerBicubic:
		return NfntBicubic{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownResampler, name)
	}
}

// CatmullRom resamples with the Catmull-Rom cubic kernel of x/image/draw.
type CatmullRom struct{}

// Resample implements Resampler.
func (CatmullRom) Resample(src image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// NfntBicubic resamples with the bicubic filter of nfnt/resize.
type NfntBicubic struct{}

// Resample implements Resampler.
func (NfntBicubic) Resample(src image.Image, width, height int) *image.RGBA {
	out := resize.Resize(uint(width), uint(height), src, resize.Bicubic)
	if rgba, ok := out.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := out.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), out, b.Min, draw.Src)
	return dst
}
