package render

import (
	"image"

	"golang.org/x/image/draw"

	"github.com/maauso/framethumb/internal/colorimetry"
)

// lumaCoefficients returns Kr and Kb of a YCbCr matrix. The BT.2020 constant
// luminance system is approximated with its non-constant coefficients.
func lumaCoefficients(m colorimetry.Matrix) (kr, kb float64) {
	switch m {
	case colorimetry.MatrixBT709:
		return 0.2126, 0.0722
	case colorimetry.MatrixFCC:
		return 0.30, 0.11
	case colorimetry.MatrixST240M:
		return 0.212, 0.087
	case colorimetry.MatrixBT2020NCL, colorimetry.MatrixBT2020CL:
		return 0.2627, 0.0593
	default:
		// BT.470BG, SMPTE 170M and anything unknown.
		return 0.299, 0.114
	}
}

// yccTable maps 8-bit samples straight to RGB contributions in 0..255 units.
type yccTable struct {
	y     [256]float32
	crToR [256]float32
	cbToB [256]float32
	crToG [256]float32
	cbToG [256]float32
	ycgco bool
}

func newYCCTable(m colorimetry.Matrix, r colorimetry.Range) *yccTable {
	yOff, yScale, cScale := 16.0, 255.0/219.0, 255.0/224.0
	if r == colorimetry.RangeFull {
		yOff, yScale, cScale = 0, 1, 1
	}

	t := &yccTable{ycgco: m == colorimetry.MatrixYCgCo}
	kr, kb := lumaCoefficients(m)
	kg := 1 - kr - kb
	for i := 0; i < 256; i++ {
		y := (float64(i) - yOff) * yScale
		c := (float64(i) - 128) * cScale
		t.y[i] = float32(y)
		if t.ycgco {
			// Cb carries Cg and Cr carries Co.
			t.cbToG[i] = float32(c)
			t.crToR[i] = float32(c)
			continue
		}
		t.crToR[i] = float32(2 * (1 - kr) * c)
		t.cbToB[i] = float32(2 * (1 - kb) * c)
		t.crToG[i] = float32(2 * (1 - kr) * kr / kg * c)
		t.cbToG[i] = float32(2 * (1 - kb) * kb / kg * c)
	}
	return t
}

func (t *yccTable) rgb(y, cb, cr uint8) (uint8, uint8, uint8) {
	l := t.y[y]
	if t.ycgco {
		tmp := l - t.cbToG[cb]
		return clamp8(tmp + t.crToR[cr]), clamp8(l + t.cbToG[cb]), clamp8(tmp - t.crToR[cr])
	}
	return clamp8(l + t.crToR[cr]),
		clamp8(l - t.crToG[cr] - t.cbToG[cb]),
		clamp8(l + t.cbToB[cb])
}

func clamp8(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}

// toRGBA converts a decoded frame to an opaque RGBA image at native size.
// YCbCr input is converted with the given matrix and range. *image.RGBA input
// anchored at the origin is returned as is.
func toRGBA(img image.Image, m colorimetry.Matrix, r colorimetry.Range) *image.RGBA {
	switch src := img.(type) {
	case *image.YCbCr:
		return yccToRGBA(src, newYCCTable(m, r))
	case *image.RGBA:
		if src.Rect.Min == (image.Point{}) {
			return src
		}
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

func yccToRGBA(src *image.YCbCr, t *yccTable) *image.RGBA {
	b := src.Rect
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := dst.Pix[(y-b.Min.Y)*dst.Stride:]
		for x := b.Min.X; x < b.Max.X; x++ {
			yi := src.YOffset(x, y)
			ci := src.COffset(x, y)
			r, g, bl := t.rgb(src.Y[yi], src.Cb[ci], src.Cr[ci])
			p := row[(x-b.Min.X)*4 : (x-b.Min.X)*4+4 : (x-b.Min.X)*4+4]
			p[0], p[1], p[2], p[3] = r, g, bl, 0xff
		}
	}
	return dst
}
