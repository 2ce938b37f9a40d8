package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/maauso/framethumb/internal/colorimetry"
	"github.com/maauso/framethumb/internal/geometry"
	"github.com/maauso/framethumb/internal/media"
	"github.com/maauso/framethumb/internal/render"
	"github.com/maauso/framethumb/internal/storage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const asset = "0a1b2c3d_12"

// mockDecoder implements media.Decoder for testing.
type mockDecoder struct {
	mock.Mock
}

func (m *mockDecoder) Decode(ctx context.Context, path string, opts media.DecodeOptions) (*media.Frame, error) {
	args := m.Called(ctx, path, opts)
	frame, _ := args.Get(0).(*media.Frame)
	return frame, args.Error(1)
}

type fixture struct {
	root    string
	decoder *mockDecoder
	svc     *Service
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewLocalStorage(root)
	require.NoError(t, err)

	dec := &mockDecoder{}
	t.Cleanup(func() { dec.AssertExpectations(t) })

	return &fixture{
		root:    root,
		decoder: dec,
		svc:     NewService(store, dec, nil, opts...),
	}
}

func (f *fixture) writeVideo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(f.root, VideoKey(asset))
	require.NoError(t, os.WriteFile(path, []byte("matroska"), 0600))
	return path
}

func (f *fixture) writeSubtitle(t *testing.T, track int, img image.Image) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	f.writeSubtitleBytes(t, track, buf.Bytes())
}

func (f *fixture) writeSubtitleBytes(t *testing.T, track int, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(f.root, SubtitleKey(asset, track)), data, 0600))
}

func (f *fixture) expectDecode(path string, opts media.DecodeOptions, frame *media.Frame) {
	f.decoder.On("Decode", mock.Anything, path, opts).Return(frame, nil).Once()
}

// grayFrame returns a limited range mid gray frame with unspecified colorimetry.
func grayFrame(w, h int, sar geometry.Rational) *media.Frame {
	img := image.NewYCbCr(image.Rect(0, 0, w, h), image.YCbCrSubsampleRatio444)
	for i := range img.Y {
		img.Y[i] = 126
	}
	for i := range img.Cb {
		img.Cb[i] = 128
		img.Cr[i] = 128
	}
	return &media.Frame{
		Image:  img,
		Width:  w,
		Height: h,
		SAR:    sar,
		Codec:  "h264",
		PixFmt: "yuv420p",
	}
}

func solidNRGBA(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func request(t *testing.T, format render.Format, c geometry.Constraint) Request {
	t.Helper()
	return Request{AssetID: asset, Format: format, Constraint: c}
}

func TestService_Render_SquareJPEG(t *testing.T) {
	f := newFixture(t)
	path := f.writeVideo(t)
	f.expectDecode(path, media.DecodeOptions{}, grayFrame(1920, 1080, geometry.Square))

	res, err := f.svc.Render(context.Background(), request(t, render.FormatJPEG, geometry.Constraint{Width: 640}))
	require.NoError(t, err)

	assert.Equal(t, geometry.Target{Width: 640, Height: 360}, res.Target)
	assert.Equal(t, SubtitleNone, res.Subtitle)
	assert.Equal(t, colorimetry.MatrixBT709, res.Color.Matrix)
	assert.Equal(t, colorimetry.RangeLimited, res.Range)

	img, err := jpeg.Decode(bytes.NewReader(res.Data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 640, 360), img.Bounds())
}

func TestService_Render_AnamorphicPNG(t *testing.T) {
	f := newFixture(t)
	path := f.writeVideo(t)
	f.expectDecode(path, media.DecodeOptions{}, grayFrame(720, 480, geometry.Rational{Num: 133, Den: 100}))

	res, err := f.svc.Render(context.Background(), request(t, render.FormatPNG, geometry.Constraint{}))
	require.NoError(t, err)

	assert.Equal(t, geometry.Source{Width: 958, Height: 480, Anamorphic: true}, res.Source)
	assert.Equal(t, geometry.Target{Width: 958, Height: 480}, res.Target)
	assert.Equal(t, colorimetry.MatrixST170M, res.Color.Matrix)

	img, err := png.Decode(bytes.NewReader(res.Data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 958, 480), img.Bounds())
}

func TestService_Render_NoUpscale(t *testing.T) {
	f := newFixture(t)
	path := f.writeVideo(t)
	f.expectDecode(path, media.DecodeOptions{}, grayFrame(1280, 720, geometry.Square))

	res, err := f.svc.Render(context.Background(), request(t, render.FormatPNG, geometry.Constraint{Width: 5000}))
	require.NoError(t, err)
	assert.Equal(t, geometry.Target{Width: 1280, Height: 720}, res.Target)
}

func TestService_Render_PassesDecodeOptions(t *testing.T) {
	f := newFixture(t)
	path := f.writeVideo(t)
	f.expectDecode(path, media.DecodeOptions{FrameIndex: 48, X264Build: 142}, grayFrame(64, 48, geometry.Square))

	req := request(t, render.FormatWEBP, geometry.Constraint{})
	req.FrameIndex = 48
	req.X264Build = 142

	res, err := f.svc.Render(context.Background(), req)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Data)
}

func TestService_Render_SubtitleDegrades(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		f := newFixture(t)
		path := f.writeVideo(t)
		f.expectDecode(path, media.DecodeOptions{}, grayFrame(320, 240, geometry.Square))

		req := request(t, render.FormatPNG, geometry.Constraint{})
		req.Subtitle = intPtr(2)

		res, err := f.svc.Render(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, SubtitleMissing, res.Subtitle)
		assert.Equal(t, geometry.Target{Width: 320, Height: 240}, res.Target)
	})

	t.Run("corrupt", func(t *testing.T) {
		f := newFixture(t)
		path := f.writeVideo(t)
		f.writeSubtitleBytes(t, 2, []byte("RIFF....WEBPjunk"))
		f.expectDecode(path, media.DecodeOptions{}, grayFrame(320, 240, geometry.Square))

		req := request(t, render.FormatPNG, geometry.Constraint{})
		req.Subtitle = intPtr(2)

		res, err := f.svc.Render(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, SubtitleInvalid, res.Subtitle)

		img, err := png.Decode(bytes.NewReader(res.Data))
		require.NoError(t, err)
		r, g, b, _ := img.At(10, 10).RGBA()
		assert.InDelta(t, r>>8, g>>8, 1, "no overlay expected on gray frame")
		assert.InDelta(t, g>>8, b>>8, 1, "no overlay expected on gray frame")
	})
}

func TestService_Render_SubtitleOverridesGeometry(t *testing.T) {
	f := newFixture(t)
	path := f.writeVideo(t)
	// Stream metadata misses the anamorphic ratio; the subtitle is 16:9.
	f.writeSubtitle(t, 1, solidNRGBA(853, 480, color.NRGBA{R: 255, A: 255}))
	f.expectDecode(path, media.DecodeOptions{}, grayFrame(720, 480, geometry.Square))

	req := request(t, render.FormatPNG, geometry.Constraint{})
	req.Subtitle = intPtr(1)

	res, err := f.svc.Render(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, SubtitleNone, res.Subtitle)
	assert.Equal(t, geometry.Source{Width: 853, Height: 480, Anamorphic: true}, res.Source)
	assert.Equal(t, geometry.Target{Width: 853, Height: 480}, res.Target)

	img, err := png.Decode(bytes.NewReader(res.Data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 853, 480), img.Bounds())
	r, g, b, a := img.At(400, 200).RGBA()
	assert.Equal(t, []uint32{0xff, 0, 0, 0xff}, []uint32{r >> 8, g >> 8, b >> 8, a >> 8})
}

func TestService_Render_SubtitleThenResize(t *testing.T) {
	f := newFixture(t)
	path := f.writeVideo(t)
	f.writeSubtitle(t, 0, solidNRGBA(640, 360, color.NRGBA{}))
	f.expectDecode(path, media.DecodeOptions{}, grayFrame(640, 360, geometry.Square))

	req := request(t, render.FormatJPEG, geometry.Constraint{Width: 320, Height: 320})
	req.Subtitle = intPtr(0)

	res, err := f.svc.Render(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, SubtitleNone, res.Subtitle)
	assert.Equal(t, geometry.Target{Width: 320, Height: 180}, res.Target)
}

func TestService_Render_HDR10(t *testing.T) {
	f := newFixture(t)
	path := f.writeVideo(t)

	frame := grayFrame(64, 36, geometry.Square)
	frame.Color = colorimetry.Tags{
		Matrix:    colorimetry.MatrixBT2020NCL,
		Primaries: colorimetry.PrimariesBT2020,
		Transfer:  colorimetry.TransferPQ,
	}
	frame.Mastering = &colorimetry.MasteringDisplay{
		Red:        colorimetry.Chromaticity{X: 0.708, Y: 0.292},
		Green:      colorimetry.Chromaticity{X: 0.170, Y: 0.797},
		Blue:       colorimetry.Chromaticity{X: 0.131, Y: 0.046},
		WhitePoint: colorimetry.Chromaticity{X: 0.3127, Y: 0.3290},
		MaxLuma:    1000,
	}
	frame.Light = &colorimetry.ContentLight{MaxCLL: 1000, MaxFALL: 400}
	f.expectDecode(path, media.DecodeOptions{}, frame)

	res, err := f.svc.Render(context.Background(), request(t, render.FormatPNG, geometry.Constraint{}))
	require.NoError(t, err)
	assert.True(t, res.HDR10)
	assert.Equal(t, colorimetry.MatrixBT2020NCL, res.Color.Matrix)
}

func TestService_Render_Errors(t *testing.T) {
	t.Run("missing video", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.Render(context.Background(), request(t, render.FormatPNG, geometry.Constraint{}))
		require.Error(t, err)
		assert.Equal(t, NotFound, KindOf(err))
		assert.ErrorIs(t, err, storage.ErrNotFound)
		f.decoder.AssertNotCalled(t, "Decode", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("decode failure", func(t *testing.T) {
		f := newFixture(t)
		path := f.writeVideo(t)
		decodeErr := errors.New("invalid data found when processing input")
		f.decoder.On("Decode", mock.Anything, path, media.DecodeOptions{}).Return(nil, decodeErr).Once()

		_, err := f.svc.Render(context.Background(), request(t, render.FormatPNG, geometry.Constraint{}))
		require.Error(t, err)
		assert.Equal(t, DecodeFailure, KindOf(err))
		assert.ErrorIs(t, err, decodeErr)
	})

	t.Run("frame without pixels", func(t *testing.T) {
		f := newFixture(t)
		path := f.writeVideo(t)
		frame := grayFrame(16, 16, geometry.Square)
		frame.Image = nil
		f.expectDecode(path, media.DecodeOptions{}, frame)

		_, err := f.svc.Render(context.Background(), request(t, render.FormatPNG, geometry.Constraint{}))
		require.Error(t, err)
		assert.Equal(t, DecodeFailure, KindOf(err))
		assert.ErrorIs(t, err, render.ErrNoPixels)
	})

	t.Run("encode failure", func(t *testing.T) {
		f := newFixture(t)
		path := f.writeVideo(t)
		f.expectDecode(path, media.DecodeOptions{}, grayFrame(16, 16, geometry.Square))

		_, err := f.svc.Render(context.Background(), Request{AssetID: asset})
		require.Error(t, err)
		assert.Equal(t, EncodeFailure, KindOf(err))
		assert.ErrorIs(t, err, render.ErrUnsupportedFormat)
	})

	t.Run("no render slot before deadline", func(t *testing.T) {
		f := newFixture(t, WithMaxConcurrentRenders(1))
		require.NoError(t, f.svc.slots.Acquire(context.Background(), 1))
		defer f.svc.slots.Release(1)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := f.svc.Render(ctx, request(t, render.FormatPNG, geometry.Constraint{}))
		require.Error(t, err)
		assert.Equal(t, Unavailable, KindOf(err))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestNewService_Options(t *testing.T) {
	compositor := render.NewCompositor(render.NfntBicubic{})
	sub := media.ImageSubtitleDecoder{}

	svc := NewService(nil, nil, nil,
		WithCompositor(compositor),
		WithSubtitleDecoder(sub),
		WithMaxConcurrentRenders(0), // ignored
		WithCompositor(nil),         // ignored
	)
	assert.Same(t, compositor, svc.compositor)
	assert.Equal(t, sub, svc.subtitles)
	assert.NotNil(t, svc.slots)
	assert.NotNil(t, svc.logger)
}
