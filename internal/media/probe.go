package media

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/maauso/framethumb/internal/colorimetry"
	"github.com/maauso/framethumb/internal/geometry"
)

// ErrNoVideoStream is returned when the input has no decodable video stream.
var ErrNoVideoStream = errors.New("no video stream")

// ErrFrameNotFound is returned when the stream ends before the requested frame.
var ErrFrameNotFound = errors.New("requested frame not found")

const (
	sideDataMastering    = "Mastering display metadata"
	sideDataContentLight = "Content light level metadata"
)

// probeResult is the subset of `ffprobe -print_format json` output we read.
type probeResult struct {
	Streams []probeStream `json:"streams"`
	Frames  []probeFrame  `json:"frames"`
}

type probeStream struct {
	CodecName         string          `json:"codec_name"`
	CodecType         string          `json:"codec_type"`
	Width             int             `json:"width"`
	Height            int             `json:"height"`
	PixFmt            string          `json:"pix_fmt"`
	SampleAspectRatio string          `json:"sample_aspect_ratio"`
	ColorRange        string          `json:"color_range"`
	ColorSpace        string          `json:"color_space"`
	ColorPrimaries    string          `json:"color_primaries"`
	ColorTransfer     string          `json:"color_transfer"`
	SideData          []probeSideData `json:"side_data_list"`
}

type probeFrame struct {
	MediaType         string          `json:"media_type"`
	Width             int             `json:"width"`
	Height            int             `json:"height"`
	PixFmt            string          `json:"pix_fmt"`
	SampleAspectRatio string          `json:"sample_aspect_ratio"`
	ColorRange        string          `json:"color_range"`
	ColorSpace        string          `json:"color_space"`
	ColorPrimaries    string          `json:"color_primaries"`
	ColorTransfer     string          `json:"color_transfer"`
	SideData          []probeSideData `json:"side_data_list"`
}

// probeSideData covers both mastering display and content light entries.
// ffprobe prints chromaticities as "num/den" strings.
type probeSideData struct {
	Type         string `json:"side_data_type"`
	RedX         string `json:"red_x"`
	RedY         string `json:"red_y"`
	GreenX       string `json:"green_x"`
	GreenY       string `json:"green_y"`
	BlueX        string `json:"blue_x"`
	BlueY        string `json:"blue_y"`
	WhitePointX  string `json:"white_point_x"`
	WhitePointY  string `json:"white_point_y"`
	MinLuminance string `json:"min_luminance"`
	MaxLuminance string `json:"max_luminance"`
	MaxContent   int    `json:"max_content"`
	MaxAverage   int    `json:"max_average"`
}

// frameInfo is the metadata of the frame the decoder will extract.
type frameInfo struct {
	Codec     string
	Width     int
	Height    int
	PixFmt    string
	SAR       geometry.Rational
	Color     colorimetry.Tags
	Range     colorimetry.Range
	Mastering *colorimetry.MasteringDisplay
	Light     *colorimetry.ContentLight
}

// parseProbe extracts metadata of frame index from ffprobe JSON output.
// Frame level values win over stream level ones, except for the sample aspect
// ratio which is always taken from the stream.
func parseProbe(data []byte, index int) (frameInfo, error) {
	var p probeResult
	if err := json.Unmarshal(data, &p); err != nil {
		return frameInfo{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	var stream *probeStream
	for i := range p.Streams {
		if p.Streams[i].CodecType == "" || p.Streams[i].CodecType == "video" {
			stream = &p.Streams[i]
			break
		}
	}
	if stream == nil {
		return frameInfo{}, ErrNoVideoStream
	}

	var frames []probeFrame
	for _, f := range p.Frames {
		if f.MediaType == "" || f.MediaType == "video" {
			frames = append(frames, f)
		}
	}
	if index >= len(frames) {
		return frameInfo{}, fmt.Errorf("%w: index %d, stream has %d", ErrFrameNotFound, index, len(frames))
	}
	frame := frames[index]

	sar, err := geometry.ParseRational(stream.SampleAspectRatio)
	if err != nil {
		return frameInfo{}, fmt.Errorf("stream sample aspect ratio: %w", err)
	}

	info := frameInfo{
		Codec:  stream.CodecName,
		Width:  firstPositive(frame.Width, stream.Width),
		Height: firstPositive(frame.Height, stream.Height),
		PixFmt: firstNonEmpty(frame.PixFmt, stream.PixFmt),
		SAR:    sar,
		Color: colorimetry.Tags{
			Matrix:    colorimetry.ParseMatrix(firstNonEmpty(frame.ColorSpace, stream.ColorSpace)),
			Primaries: colorimetry.ParsePrimaries(firstNonEmpty(frame.ColorPrimaries, stream.ColorPrimaries)),
			Transfer:  colorimetry.ParseTransfer(firstNonEmpty(frame.ColorTransfer, stream.ColorTransfer)),
		},
		Range: colorimetry.ParseRange(firstNonEmpty(frame.ColorRange, stream.ColorRange)),
	}
	if info.Width <= 0 || info.Height <= 0 {
		return frameInfo{}, fmt.Errorf("invalid frame size %dx%d", info.Width, info.Height)
	}

	for _, sd := range append(frame.SideData, stream.SideData...) {
		switch sd.Type {
		case sideDataMastering:
			if info.Mastering == nil {
				info.Mastering = sd.mastering()
			}
		case sideDataContentLight:
			if info.Light == nil {
				info.Light = &colorimetry.ContentLight{MaxCLL: sd.MaxContent, MaxFALL: sd.MaxAverage}
			}
		}
	}
	return info, nil
}

func (sd probeSideData) mastering() *colorimetry.MasteringDisplay {
	return &colorimetry.MasteringDisplay{
		Red:        colorimetry.Chromaticity{X: parseFraction(sd.RedX), Y: parseFraction(sd.RedY)},
		Green:      colorimetry.Chromaticity{X: parseFraction(sd.GreenX), Y: parseFraction(sd.GreenY)},
		Blue:       colorimetry.Chromaticity{X: parseFraction(sd.BlueX), Y: parseFraction(sd.BlueY)},
		WhitePoint: colorimetry.Chromaticity{X: parseFraction(sd.WhitePointX), Y: parseFraction(sd.WhitePointY)},
		MinLuma:    parseFraction(sd.MinLuminance),
		MaxLuma:    parseFraction(sd.MaxLuminance),
	}
}

// parseFraction parses "num/den" or a plain decimal. Malformed input yields 0.
func parseFraction(s string) float64 {
	s = strings.TrimSpace(s)
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		v, _ := strconv.ParseFloat(s, 64)
		return v
	}
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" && v != "unknown" {
			return v
		}
	}
	return ""
}

// isRGBPixFmt reports whether ffmpeg stores the pixel format as RGB.
func isRGBPixFmt(pixFmt string) bool {
	for _, prefix := range []string{"gbr", "rgb", "bgr", "argb", "abgr", "0rgb", "0bgr", "x2rgb", "x2bgr", "pal8"} {
		if strings.HasPrefix(pixFmt, prefix) {
			return true
		}
	}
	return false
}
