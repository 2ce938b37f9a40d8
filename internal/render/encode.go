package render

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"strings"
	"sync"

	"github.com/chai2010/webp"
)

// ErrUnsupportedFormat is returned for unknown output formats.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// JPEGQuality is the fixed JPEG quality on the 0-100 scale.
const JPEGQuality = 85

// Format is an output raster format.
type Format int

// Supported output formats.
const (
	FormatPNG Format = iota + 1
	FormatJPEG
	FormatWEBP
)

// ParseFormat maps a file extension (without dot) to a Format.
func ParseFormat(ext string) (Format, error) {
	switch strings.ToLower(ext) {
	case "png":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "webp":
		return FormatWEBP, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// codec pairs an encoder with the content type it produces.
type codec struct {
	name        string
	contentType string
	encode      func(w io.Writer, img image.Image) error
}

var codecs = map[Format]codec{
	FormatPNG: {
		name:        "png",
		contentType: "image/png",
		encode:      pngEncoder.Encode,
	},
	FormatJPEG: {
		name:        "jpeg",
		contentType: "image/jpeg",
		encode: func(w io.Writer, img image.Image) error {
			return jpeg.Encode(w, img, &jpeg.Options{Quality: JPEGQuality})
		},
	},
	FormatWEBP: {
		name:        "webp",
		contentType: "image/webp",
		encode: func(w io.Writer, img image.Image) error {
			return webp.Encode(w, img, &webp.Options{Lossless: true})
		},
	},
}

// pngEncoder favours encode speed over output size.
var pngEncoder = &png.Encoder{
	CompressionLevel: png.BestSpeed,
	BufferPool:       &pngBufferPool{},
}

type pngBufferPool struct {
	pool sync.Pool
}

func (p *pngBufferPool) Get() *png.EncoderBuffer {
	b, _ := p.pool.Get().(*png.EncoderBuffer)
	return b
}

func (p *pngBufferPool) Put(b *png.EncoderBuffer) {
	p.pool.Put(b)
}

// String returns the lower case format name.
func (f Format) String() string {
	if c, ok := codecs[f]; ok {
		return c.name
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	return codecs[f].contentType
}

// Encode writes img to w in format f.
func Encode(w io.Writer, img image.Image, f Format) error {
	c, ok := codecs[f]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}
	if err := c.encode(w, img); err != nil {
		return fmt.Errorf("encode %s: %w", c.name, err)
	}
	return nil
}
