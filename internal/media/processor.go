// Package media decodes single video frames and subtitle bitmaps.
package media

import (
	"context"
	"image"
	"io"

	"github.com/maauso/framethumb/internal/colorimetry"
	"github.com/maauso/framethumb/internal/geometry"
)

// Decoder extracts one decoded frame from a video file.
type Decoder interface {
	// Decode returns the frame at opts.FrameIndex of the first video stream.
	// The caller must Release the frame when done.
	Decode(ctx context.Context, path string, opts DecodeOptions) (*Frame, error)
}

// SubtitleDecoder turns an encoded subtitle bitmap into an overlay.
type SubtitleDecoder interface {
	// DecodeSubtitle decodes r. The caller must Release the overlay when done.
	DecodeSubtitle(r io.Reader) (*Overlay, error)
}

// DecodeOptions are per request decoder options.
type DecodeOptions struct {
	// FrameIndex selects the frame to decode, counted from zero.
	FrameIndex int
	// X264Build overrides the x264 build assumed by the h264 decoder for
	// streams lacking the encoder SEI. Zero leaves the decoder default.
	X264Build int
}

// Frame is a decoded video frame with its metadata.
type Frame struct {
	// Image is either *image.YCbCr with 4:4:4 sampling or an opaque *image.RGBA.
	Image  image.Image
	Width  int
	Height int
	// SAR is the stream level sample aspect ratio.
	SAR   geometry.Rational
	Color colorimetry.Tags
	// Range is the quantization range of the samples in Image.
	Range colorimetry.Range
	// Mastering and Light are HDR side data, nil when absent.
	Mastering *colorimetry.MasteringDisplay
	Light     *colorimetry.ContentLight
	Codec     string
	PixFmt    string
}

// Release drops the pixel buffer. It is safe to call more than once.
func (f *Frame) Release() {
	if f == nil {
		return
	}
	f.Image = nil
}

// Overlay is a decoded RGBA subtitle bitmap.
type Overlay struct {
	Image *image.NRGBA
}

// Width returns the overlay width in pixels.
func (o *Overlay) Width() int {
	return o.Image.Bounds().Dx()
}

// Height returns the overlay height in pixels.
func (o *Overlay) Height() int {
	return o.Image.Bounds().Dy()
}

// Release drops the bitmap. It is safe to call on a nil overlay.
func (o *Overlay) Release() {
	if o == nil {
		return
	}
	o.Image = nil
}
