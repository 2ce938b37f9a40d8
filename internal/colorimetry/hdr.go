package colorimetry

import "math"

// Chromaticity is a CIE 1931 xy coordinate.
type Chromaticity struct {
	X float64
	Y float64
}

// MasteringDisplay is SMPTE ST 2086 mastering display color volume metadata.
type MasteringDisplay struct {
	Red        Chromaticity
	Green      Chromaticity
	Blue       Chromaticity
	WhitePoint Chromaticity
	MinLuma    float64
	MaxLuma    float64
}

// ContentLight is CTA-861.3 content light level metadata, in cd/m².
type ContentLight struct {
	MaxCLL  int
	MaxFALL int
}

// hdr10Tolerance is the allowed deviation of each mastering chromaticity
// from the BT.2020 reference.
const hdr10Tolerance = 0.0001

// hdr10MinCLL is the content light level at which a stream counts as HDR10.
const hdr10MinCLL = 600

var (
	bt2020Red   = Chromaticity{X: 0.708, Y: 0.292}
	bt2020Green = Chromaticity{X: 0.170, Y: 0.797}
	bt2020Blue  = Chromaticity{X: 0.131, Y: 0.046}
	d65         = Chromaticity{X: 0.3127, Y: 0.3290}
)

// DetectHDR10 reports whether the side data describes HDR10 content mastered on
// a BT.2020 display with D65 white point.
//
// Detection only feeds logging and metrics. Frames are never tone mapped.
func DetectHDR10(md *MasteringDisplay, cl *ContentLight) bool {
	if md == nil || cl == nil {
		return false
	}
	if cl.MaxCLL < hdr10MinCLL {
		return false
	}
	return near(md.Red, bt2020Red) &&
		near(md.Green, bt2020Green) &&
		near(md.Blue, bt2020Blue) &&
		near(md.WhitePoint, d65)
}

func near(a, b Chromaticity) bool {
	return math.Abs(a.X-b.X) <= hdr10Tolerance && math.Abs(a.Y-b.Y) <= hdr10Tolerance
}
