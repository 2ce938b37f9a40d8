package thumbnail

import (
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/framethumb/internal/geometry"
	"github.com/maauso/framethumb/internal/render"
)

func intPtr(n int) *int { return &n }

func TestParseRequest(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		query string
		want  Request
	}{
		{
			name: "plain png",
			path: "0a1b2c3d_12.png",
			want: Request{AssetID: "0a1b2c3d_12", Extension: "png", Format: render.FormatPNG},
		},
		{
			name:  "jpg with width",
			path:  "0a1b2c3d_12.jpg",
			query: "w=640",
			want: Request{
				AssetID: "0a1b2c3d_12", Extension: "jpg", Format: render.FormatJPEG,
				Constraint: geometry.Constraint{Width: 640},
			},
		},
		{
			name:  "non positive and non numeric sizes are absent",
			path:  "0a1b2c3d_1.webp",
			query: "w=0&h=-5",
			want:  Request{AssetID: "0a1b2c3d_1", Extension: "webp", Format: render.FormatWEBP},
		},
		{
			name:  "garbage sizes are absent",
			path:  "0a1b2c3d_1.webp",
			query: "w=abc&h=1.5",
			want:  Request{AssetID: "0a1b2c3d_1", Extension: "webp", Format: render.FormatWEBP},
		},
		{
			name:  "subtitle track",
			path:  "0a1b2c3d_1.png",
			query: "s=3&w=320&h=240",
			want: Request{
				AssetID: "0a1b2c3d_1", Extension: "png", Format: render.FormatPNG,
				Constraint: geometry.Constraint{Width: 320, Height: 240},
				Subtitle:   intPtr(3),
			},
		},
		{
			name:  "non numeric subtitle selects track zero",
			path:  "0a1b2c3d_1.png",
			query: "s=eng",
			want: Request{
				AssetID: "0a1b2c3d_1", Extension: "png", Format: render.FormatPNG,
				Subtitle: intPtr(0),
			},
		},
		{
			name:  "empty subtitle is not requested",
			path:  "0a1b2c3d_1.png",
			query: "s=",
			want:  Request{AssetID: "0a1b2c3d_1", Extension: "png", Format: render.FormatPNG},
		},
		{
			name:  "frame and x264 build",
			path:  "0a1b2c3d_1.png",
			query: "frame=24&x264_build=142",
			want: Request{
				AssetID: "0a1b2c3d_1", Extension: "png", Format: render.FormatPNG,
				FrameIndex: 24, X264Build: 142,
			},
		},
		{
			name:  "first value wins",
			path:  "0a1b2c3d_1.png",
			query: "w=100&w=200",
			want: Request{
				AssetID: "0a1b2c3d_1", Extension: "png", Format: render.FormatPNG,
				Constraint: geometry.Constraint{Width: 100},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			got, err := ParseRequest(tt.path, q)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseRequest() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseRequest_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		query string
	}{
		{"uppercase hex", "0A1B2C3D_12.png", ""},
		{"short id", "0a1b2c_12.png", ""},
		{"missing sequence", "0a1b2c3d.png", ""},
		{"unsupported format", "0a1b2c3d_12.gif", ""},
		{"jpeg spelling", "0a1b2c3d_12.jpeg", ""},
		{"no extension", "0a1b2c3d_12", ""},
		{"empty", "", ""},
		{"negative frame", "0a1b2c3d_12.png", "frame=-1"},
		{"non numeric frame", "0a1b2c3d_12.png", "frame=first"},
		{"negative x264 build", "0a1b2c3d_12.png", "x264_build=-3"},
		{"non numeric x264 build", "0a1b2c3d_12.png", "x264_build=core"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			_, err = ParseRequest(tt.path, q)
			require.Error(t, err)
			assert.Equal(t, InvalidRequest, KindOf(err))
		})
	}
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "0a1b2c3d_12.mkv", VideoKey("0a1b2c3d_12"))
	assert.Equal(t, "0a1b2c3d_12_3.webp", SubtitleKey("0a1b2c3d_12", 3))
	assert.Equal(t, "0a1b2c3d_12_0.webp", SubtitleKey("0a1b2c3d_12", 0))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, NotFound, KindOf(&Error{Kind: NotFound, Op: "fetch video"}))
	assert.Equal(t, Kind(0), KindOf(assert.AnError))
	assert.Equal(t, Kind(0), KindOf(nil))
	assert.Equal(t, "decode_failed", DecodeFailure.String())
	assert.Equal(t, "unknown", Kind(0).String())
}
