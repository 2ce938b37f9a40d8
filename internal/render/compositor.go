// Package render turns a decoded frame and an optional subtitle overlay into an
// encoded thumbnail image.
package render

import (
	"errors"
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/maauso/framethumb/internal/colorimetry"
	"github.com/maauso/framethumb/internal/geometry"
	"github.com/maauso/framethumb/internal/media"
)

// ErrOverlaySize is returned when the overlay does not cover the source geometry.
var ErrOverlaySize = errors.New("overlay size does not match source geometry")

// ErrNoPixels is returned when the frame has already been released.
var ErrNoPixels = errors.New("frame has no pixel data")

// Compositor merges a frame and an optional overlay into one opaque image.
type Compositor struct {
	resampler Resampler
}

// NewCompositor creates a Compositor. A nil resampler selects Catmull-Rom.
func NewCompositor(r Resampler) *Compositor {
	if r == nil {
		r = CatmullRom{}
	}
	return &Compositor{resampler: r}
}

// Job describes one composition.
type Job struct {
	Frame image.Image
	// Color selects the YCbCr matrix. Primaries and transfer are passed
	// through untouched: samples are never converted to another gamut or curve.
	Color   colorimetry.Tags
	Range   colorimetry.Range
	Source  geometry.Source
	Target  geometry.Target
	Overlay *media.Overlay
}

// Compose converts the frame to RGB and returns it at the target size.
//
// Without an overlay the frame is resampled once, from its stored size to the
// target. With an overlay it is first brought to the source geometry, the
// overlay is blended on top, and the result is resampled to the target.
func (c *Compositor) Compose(job Job) (*image.RGBA, error) {
	if job.Frame == nil {
		return nil, ErrNoPixels
	}
	rgb := toRGBA(job.Frame, job.Color.Matrix, job.Range)

	if job.Overlay == nil || job.Overlay.Image == nil {
		return c.resize(rgb, job.Target.Width, job.Target.Height), nil
	}

	if job.Overlay.Width() != job.Source.Width || job.Overlay.Height() != job.Source.Height {
		return nil, fmt.Errorf("%w: overlay %dx%d, source %dx%d", ErrOverlaySize,
			job.Overlay.Width(), job.Overlay.Height(), job.Source.Width, job.Source.Height)
	}
	base := c.resize(rgb, job.Source.Width, job.Source.Height)
	if frame, ok := job.Frame.(*image.RGBA); ok && base == frame {
		base = cloneRGBA(base)
	}
	draw.Draw(base, base.Bounds(), job.Overlay.Image, job.Overlay.Image.Bounds().Min, draw.Over)
	return c.resize(base, job.Target.Width, job.Target.Height), nil
}

// resize returns img unchanged when it already has the requested size.
func (c *Compositor) resize(img *image.RGBA, width, height int) *image.RGBA {
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return img
	}
	return c.resampler.Resample(img, width, height)
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Rect)
	copy(dst.Pix, src.Pix)
	return dst
}
