// Package colorimetry resolves missing color metadata of decoded video frames.
//
// Containers frequently omit the YCbCr matrix, primaries or transfer function.
// Resolve fills the gaps with the same size based guesses common media players
// use, so thumbnails look like the video does during playback.
package colorimetry

import "strings"

// Matrix is a YCbCr matrix coefficients tag. Values follow ffmpeg naming.
type Matrix string

// Matrix coefficient tags.
const (
	MatrixUnspecified Matrix = ""
	MatrixRGB         Matrix = "gbr"
	MatrixBT709       Matrix = "bt709"
	MatrixFCC         Matrix = "fcc"
	MatrixBT470BG     Matrix = "bt470bg"
	MatrixST170M      Matrix = "smpte170m"
	MatrixST240M      Matrix = "smpte240m"
	MatrixYCgCo       Matrix = "ycgco"
	MatrixBT2020NCL   Matrix = "bt2020nc"
	MatrixBT2020CL    Matrix = "bt2020c"
)

// Primaries is a chromaticity primaries tag.
type Primaries string

// Color primaries tags.
const (
	PrimariesUnspecified Primaries = ""
	PrimariesBT709       Primaries = "bt709"
	PrimariesBT470M      Primaries = "bt470m"
	PrimariesBT470BG     Primaries = "bt470bg"
	PrimariesST170M      Primaries = "smpte170m"
	PrimariesST240M      Primaries = "smpte240m"
	PrimariesFilm        Primaries = "film"
	PrimariesBT2020      Primaries = "bt2020"
	PrimariesST428       Primaries = "smpte428"
	PrimariesST431       Primaries = "smpte431"
	PrimariesST432       Primaries = "smpte432"
)

// Transfer is a transfer characteristics tag.
type Transfer string

// Transfer characteristics tags.
const (
	TransferUnspecified Transfer = ""
	TransferBT709       Transfer = "bt709"
	TransferGamma22     Transfer = "gamma22"
	TransferGamma28     Transfer = "gamma28"
	TransferST170M      Transfer = "smpte170m"
	TransferST240M      Transfer = "smpte240m"
	TransferLinear      Transfer = "linear"
	TransferSRGB        Transfer = "iec61966-2-1"
	TransferBT2020_10   Transfer = "bt2020-10"
	TransferBT2020_12   Transfer = "bt2020-12"
	TransferPQ          Transfer = "smpte2084"
	TransferHLG         Transfer = "arib-std-b67"
)

// Range is the quantization range of YCbCr samples.
type Range string

// Quantization ranges.
const (
	RangeUnspecified Range = ""
	RangeLimited     Range = "tv"
	RangeFull        Range = "pc"
)

// Tags groups the three colorimetry tags of a frame.
type Tags struct {
	Matrix    Matrix
	Primaries Primaries
	Transfer  Transfer
}

// Complete reports whether no tag is unspecified.
func (t Tags) Complete() bool {
	return t.Matrix != MatrixUnspecified &&
		t.Primaries != PrimariesUnspecified &&
		t.Transfer != TransferUnspecified
}

// unknownTag reports whether a decoder tag value carries no information.
func unknownTag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unknown", "unspecified", "reserved", "n/a":
		return true
	}
	return false
}

// ParseMatrix normalizes a decoder matrix tag.
func ParseMatrix(s string) Matrix {
	if unknownTag(s) {
		return MatrixUnspecified
	}
	return Matrix(strings.ToLower(strings.TrimSpace(s)))
}

// ParsePrimaries normalizes a decoder primaries tag.
func ParsePrimaries(s string) Primaries {
	if unknownTag(s) {
		return PrimariesUnspecified
	}
	return Primaries(strings.ToLower(strings.TrimSpace(s)))
}

// ParseTransfer normalizes a decoder transfer tag.
func ParseTransfer(s string) Transfer {
	if unknownTag(s) {
		return TransferUnspecified
	}
	return Transfer(strings.ToLower(strings.TrimSpace(s)))
}

// ParseRange normalizes a decoder range tag. "mpeg" and "jpeg" are accepted
// as aliases of limited and full range.
func ParseRange(s string) Range {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tv", "mpeg", "limited":
		return RangeLimited
	case "pc", "jpeg", "full":
		return RangeFull
	}
	return RangeUnspecified
}

// isHD is the player heuristic separating HD from SD content.
func isHD(width, height int) bool {
	return width >= 1280 || height > 576
}

// Resolve fills every unspecified tag. width and height are the decoded frame
// dimensions before any aspect ratio correction.
func Resolve(raw Tags, width, height int) Tags {
	out := raw
	if out.Matrix == MatrixUnspecified {
		if isHD(width, height) {
			out.Matrix = MatrixBT709
		} else {
			out.Matrix = MatrixST170M
		}
	}
	if out.Primaries == PrimariesUnspecified {
		out.Primaries = guessPrimaries(out.Matrix, width, height)
	}
	if out.Transfer == TransferUnspecified {
		out.Transfer = TransferBT709
	}
	return out
}

func guessPrimaries(m Matrix, width, height int) Primaries {
	switch {
	case m == MatrixBT2020NCL || m == MatrixBT2020CL:
		return PrimariesBT2020
	case m == MatrixBT709 || isHD(width, height):
		return PrimariesBT709
	case height == 576:
		return PrimariesBT470BG
	case height == 480 || height == 488:
		return PrimariesST170M
	default:
		return PrimariesBT709
	}
}

// ResolveRange defaults an unspecified range to limited for YCbCr content and
// full for RGB content.
func ResolveRange(r Range, m Matrix) Range {
	if r != RangeUnspecified {
		return r
	}
	if m == MatrixRGB {
		return RangeFull
	}
	return RangeLimited
}
