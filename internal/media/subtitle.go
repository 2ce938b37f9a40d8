package media

import (
	"errors"
	"fmt"
	"image"
	_ "image/png" // Register PNG decoder
	"io"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// ErrEmptySubtitle is returned for subtitle bitmaps without pixels.
var ErrEmptySubtitle = errors.New("subtitle bitmap is empty")

// Compile-time check that ImageSubtitleDecoder implements SubtitleDecoder.
var _ SubtitleDecoder = ImageSubtitleDecoder{}

// ImageSubtitleDecoder decodes pre-rendered subtitle bitmaps stored as WebP or PNG.
type ImageSubtitleDecoder struct{}

// DecodeSubtitle decodes r into a non-premultiplied RGBA overlay.
func (ImageSubtitleDecoder) DecodeSubtitle(r io.Reader) (*Overlay, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode subtitle: %w", err)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, ErrEmptySubtitle
	}

	if nrgba, ok := img.(*image.NRGBA); ok && b.Min == (image.Point{}) {
		return &Overlay{Image: nrgba}, nil
	}
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return &Overlay{Image: dst}, nil
}
