package thumbnail

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/framethumb/internal/geometry"
	"github.com/maauso/framethumb/internal/render"
)

// assetIDPattern matches an asset identifier: eight lowercase hex digits, an
// underscore and a decimal number.
var assetIDPattern = regexp.MustCompile(`^[0-9a-f]{8}_\d+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("assetid", func(fl validator.FieldLevel) bool {
		return assetIDPattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// Request is a parsed thumbnail request.
type Request struct {
	// AssetID identifies the video, e.g. "0a1b2c3d_12".
	AssetID string `validate:"required,assetid"`
	// Extension is the requested file extension without the dot.
	Extension string `validate:"required,oneof=png jpg webp"`
	// Format is derived from Extension.
	Format render.Format `validate:"-"`
	// Constraint is the requested output size.
	Constraint geometry.Constraint `validate:"-"`
	// Subtitle is the requested subtitle track, nil when none was requested.
	Subtitle *int `validate:"-"`
	// FrameIndex selects the decoded frame, counted from zero.
	FrameIndex int `validate:"gte=0"`
	// X264Build is a legacy h264 decoder hint, zero when absent.
	X264Build int `validate:"gte=0"`
}

// ParseRequest builds a Request from the last path segment, such as
// "0a1b2c3d_12.jpg", and the query string.
//
// w and h that are not positive integers are treated as absent. A subtitle
// track that is not an integer selects track 0. frame and x264_build must be
// non-negative integers when present.
func ParseRequest(name string, query url.Values) (Request, error) {
	ext := path.Ext(name)
	req := Request{
		AssetID:   strings.TrimSuffix(name, ext),
		Extension: strings.TrimPrefix(ext, "."),
		Constraint: geometry.Constraint{
			Width:  dimension(query.Get("w")),
			Height: dimension(query.Get("h")),
		},
	}

	if s := query.Get("s"); s != "" {
		track := toInt(s)
		req.Subtitle = &track
	}

	var err error
	if req.FrameIndex, err = strictInt(query, "frame"); err != nil {
		return Request{}, &Error{Kind: InvalidRequest, Op: "parse request", Err: err}
	}
	if req.X264Build, err = strictInt(query, "x264_build"); err != nil {
		return Request{}, &Error{Kind: InvalidRequest, Op: "parse request", Err: err}
	}

	if err := validate.Struct(req); err != nil {
		return Request{}, &Error{Kind: InvalidRequest, Op: "parse request", Err: err}
	}

	if req.Format, err = render.ParseFormat(req.Extension); err != nil {
		return Request{}, &Error{Kind: InvalidRequest, Op: "parse request", Err: err}
	}
	return req, nil
}

// toInt parses s as a decimal integer, returning 0 when it is not one.
func toInt(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

// dimension returns 0 (unconstrained) for anything but a positive integer.
func dimension(s string) int {
	if s == "" {
		return 0
	}
	return max(toInt(s), 0)
}

func strictInt(query url.Values, key string) (int, error) {
	s := query.Get(key)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("query parameter %s: %w", key, err)
	}
	return n, nil
}
