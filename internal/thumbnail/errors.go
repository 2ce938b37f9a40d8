package thumbnail

import (
	"errors"
	"fmt"
)

// Kind classifies a fatal render failure.
type Kind int

// Error kinds. The zero Kind is reserved for errors not produced by this package.
const (
	// InvalidRequest means the asset identifier, format or a query parameter is malformed.
	InvalidRequest Kind = iota + 1
	// NotFound means the video asset is absent.
	NotFound
	// DecodeFailure means no usable frame could be produced.
	DecodeFailure
	// EncodeFailure means the output encoder rejected the image.
	EncodeFailure
	// Unavailable means the request was cancelled or storage could not be reached.
	Unavailable
)

// String returns the metric and log label of the kind.
func (k Kind) String() string {
	switch k {
	case InvalidRequest:
		return "invalid_request"
	case NotFound:
		return "not_found"
	case DecodeFailure:
		return "decode_failed"
	case EncodeFailure:
		return "encode_failed"
	case Unavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Error is a fatal render failure.
type Error struct {
	Kind Kind
	// Op names the pipeline step that failed.
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("thumbnail: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of the first *Error in err's chain, or zero.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// SubtitleIssue records why a requested subtitle was not drawn.
// Subtitle problems degrade the result; they never fail a render.
type SubtitleIssue string

const (
	// SubtitleNone means no subtitle was requested or it was drawn.
	SubtitleNone SubtitleIssue = ""
	// SubtitleMissing means the subtitle asset does not exist.
	SubtitleMissing SubtitleIssue = "missing"
	// SubtitleInvalid means the subtitle asset could not be read or decoded.
	SubtitleInvalid SubtitleIssue = "invalid"
)
