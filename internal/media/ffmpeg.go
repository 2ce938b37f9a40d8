package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os/exec"
	"strconv"
	"strings"

	"github.com/maauso/framethumb/internal/colorimetry"
)

// DefaultX264BuildThreshold is the x264 build below which the h264 decoder
// needs the build hint to decode old streams correctly.
const DefaultX264BuildThreshold = 151

// probeSlack is how many packets past the requested frame ffprobe reads, so
// decoder reordering delay still yields the requested frame.
const probeSlack = 8

// packetsPerFrame bounds how many packets one frame may span. Field coded
// streams carry each field in its own packet.
const packetsPerFrame = 2

// Static errors for decoding.
var (
	// ErrInvalidFrameIndex is returned for negative frame indexes.
	ErrInvalidFrameIndex = errors.New("invalid frame index: must not be negative")
	// ErrShortFrame is returned when ffmpeg produced fewer bytes than the frame needs.
	ErrShortFrame = errors.New("decoded frame is truncated")
)

// Compile-time check that FFmpegDecoder implements Decoder.
var _ Decoder = (*FFmpegDecoder)(nil)

// FFmpegDecoder implements Decoder using the ffprobe and ffmpeg CLIs.
// It holds only startup configuration and is safe for concurrent use.
type FFmpegDecoder struct {
	// ffmpegPath is the path to the ffmpeg binary. Defaults to "ffmpeg".
	ffmpegPath string
	// ffprobePath is the path to the ffprobe binary. Defaults to "ffprobe".
	ffprobePath string
	// threads is the decoder thread count, 0 lets ffmpeg decide.
	threads int
	// probeSize is the demuxer probe buffer in bytes, 0 keeps the ffmpeg default.
	probeSize int64
	// x264BuildThreshold bounds which build hints are forwarded to the decoder.
	x264BuildThreshold int
}

// DecoderOption configures an FFmpegDecoder.
type DecoderOption func(*FFmpegDecoder)

// WithFFprobePath sets the ffprobe binary.
func WithFFprobePath(path string) DecoderOption {
	return func(d *FFmpegDecoder) {
		if path != "" {
			d.ffprobePath = path
		}
	}
}

// WithThreads sets the decoder thread count.
func WithThreads(n int) DecoderOption {
	return func(d *FFmpegDecoder) {
		if n >= 0 {
			d.threads = n
		}
	}
}

// WithProbeSize sets the demuxer probe size in bytes.
func WithProbeSize(n int64) DecoderOption {
	return func(d *FFmpegDecoder) {
		if n > 0 {
			d.probeSize = n
		}
	}
}

// WithX264BuildThreshold sets the build threshold for the legacy x264 hint.
func WithX264BuildThreshold(build int) DecoderOption {
	return func(d *FFmpegDecoder) {
		if build > 0 {
			d.x264BuildThreshold = build
		}
	}
}

// NewFFmpegDecoder creates a new FFmpegDecoder.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found via PATH).
func NewFFmpegDecoder(ffmpegPath string, opts ...DecoderOption) *FFmpegDecoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	d := &FFmpegDecoder{
		ffmpegPath:         ffmpegPath,
		ffprobePath:        "ffprobe",
		x264BuildThreshold: DefaultX264BuildThreshold,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decode probes the metadata of the requested frame and extracts its pixels.
func (d *FFmpegDecoder) Decode(ctx context.Context, path string, opts DecodeOptions) (*Frame, error) {
	if opts.FrameIndex < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFrameIndex, opts.FrameIndex)
	}

	out, err := d.run(ctx, d.ffprobePath, d.probeArgs(path, opts.FrameIndex))
	if err != nil {
		return nil, fmt.Errorf("probe: %w", err)
	}
	info, err := parseProbe(out, opts.FrameIndex)
	if err != nil {
		return nil, err
	}

	pixFmt := "yuv444p"
	bpp := 3
	rng := sampleRange(info)
	if isRGBPixFmt(info.PixFmt) {
		pixFmt = "rgba"
		bpp = 4
		rng = colorimetry.RangeFull
	}

	raw, err := d.run(ctx, d.ffmpegPath, d.extractArgs(path, info, opts, pixFmt, rng))
	if err != nil {
		return nil, fmt.Errorf("extract frame: %w", err)
	}
	want := info.Width * info.Height * bpp
	if len(raw) < want {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrShortFrame, len(raw), want)
	}
	raw = raw[:want]

	frame := &Frame{
		Width:     info.Width,
		Height:    info.Height,
		SAR:       info.SAR,
		Color:     info.Color,
		Range:     rng,
		Mastering: info.Mastering,
		Light:     info.Light,
		Codec:     info.Codec,
		PixFmt:    info.PixFmt,
	}
	if bpp == 4 {
		frame.Image = opaqueRGBA(raw, info.Width, info.Height)
	} else {
		frame.Image = planarYCbCr(raw, info.Width, info.Height)
	}
	return frame, nil
}

func (d *FFmpegDecoder) probeArgs(path string, index int) []string {
	args := []string{
		"-v", "error",
		"-print_format", "json",
		"-select_streams", "v:0",
		"-show_streams",
		"-show_frames",
		"-read_intervals", "%+#" + strconv.Itoa(probePackets(index)),
	}
	if d.probeSize > 0 {
		args = append(args, "-probesize", strconv.FormatInt(d.probeSize, 10))
	}
	return append(args, path)
}

// probePackets is the number of packets ffprobe reads to reach frame index.
func probePackets(index int) int {
	return (index+1)*packetsPerFrame + probeSlack
}

// sampleRange is the quantization range the extracted YCbCr samples keep.
// The jpeg pixel formats are full range even when the stream is untagged.
func sampleRange(info frameInfo) colorimetry.Range {
	if info.Range == colorimetry.RangeUnspecified && strings.HasPrefix(info.PixFmt, "yuvj") {
		return colorimetry.RangeFull
	}
	return colorimetry.ResolveRange(info.Range, info.Color.Matrix)
}

func (d *FFmpegDecoder) extractArgs(path string, info frameInfo, opts DecodeOptions, pixFmt string, rng colorimetry.Range) []string {
	args := []string{
		"-v", "error",
		"-nostdin",
		"-noautorotate",
	}
	if d.threads > 0 {
		args = append(args, "-threads", strconv.Itoa(d.threads))
	}
	if d.probeSize > 0 {
		args = append(args, "-probesize", strconv.FormatInt(d.probeSize, 10))
	}
	if d.needsX264Hint(info.Codec, opts.X264Build) {
		args = append(args, "-x264_build", strconv.Itoa(opts.X264Build))
	}
	args = append(args,
		"-i", path,
		"-map", "0:v:0",
		"-an", "-sn",
	)
	var filters []string
	if opts.FrameIndex > 0 {
		filters = append(filters, fmt.Sprintf(`select=eq(n\,%d)`, opts.FrameIndex))
	}
	if pixFmt == "yuv444p" {
		// Without explicit ranges the scaler squeezes full range input into
		// limited range output.
		filters = append(filters, fmt.Sprintf("scale=in_range=%s:out_range=%s", rng, rng))
	}
	if len(filters) > 0 {
		args = append(args, "-vf", strings.Join(filters, ","))
	}
	if opts.FrameIndex > 0 {
		args = append(args, "-vsync", "0")
	}
	return append(args,
		"-frames:v", "1",
		"-pix_fmt", pixFmt,
		"-f", "rawvideo",
		"pipe:1",
	)
}

// needsX264Hint reports whether the legacy build hint applies to this stream.
func (d *FFmpegDecoder) needsX264Hint(codec string, build int) bool {
	return codec == "h264" && build > 0 && build < d.x264BuildThreshold
}

// run executes a binary and returns its stdout, or an FFmpegError
// containing stderr output if the command fails.
func (d *FFmpegDecoder) run(ctx context.Context, bin string, args []string) ([]byte, error) {
	// #nosec G204 - binary paths are set by the application, not user input
	cmd := exec.CommandContext(ctx, bin, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s cancelled: %w", bin, ctx.Err())
		}
		return nil, &FFmpegError{
			Args:   args,
			Stderr: stderr.String(),
			Err:    err,
		}
	}
	return stdout.Bytes(), nil
}

// planarYCbCr wraps yuv444p bytes without copying.
func planarYCbCr(raw []byte, w, h int) *image.YCbCr {
	n := w * h
	return &image.YCbCr{
		Y:              raw[:n:n],
		Cb:             raw[n : 2*n : 2*n],
		Cr:             raw[2*n : 3*n : 3*n],
		YStride:        w,
		CStride:        w,
		SubsampleRatio: image.YCbCrSubsampleRatio444,
		Rect:           image.Rect(0, 0, w, h),
	}
}

// opaqueRGBA wraps rgba bytes and forces every alpha sample to 255.
func opaqueRGBA(raw []byte, w, h int) *image.RGBA {
	for i := 3; i < len(raw); i += 4 {
		raw[i] = 0xff
	}
	return &image.RGBA{Pix: raw, Stride: 4 * w, Rect: image.Rect(0, 0, w, h)}
}

// FFmpegError represents an error from running ffmpeg or ffprobe, including the stderr output.
type FFmpegError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}
