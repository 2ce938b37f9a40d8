// Package geometry computes display and output dimensions for a decoded frame.
//
// Source geometry corrects stored pixel dimensions for anamorphic sample aspect
// ratios. Target geometry applies optional width/height constraints without ever
// upscaling and while preserving the source aspect ratio.
package geometry

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Rational is a sample aspect ratio. A zero numerator or denominator means the
// ratio is unknown and is treated as square.
type Rational struct {
	Num int
	Den int
}

// Square is the 1:1 sample aspect ratio.
var Square = Rational{Num: 1, Den: 1}

// ParseRational parses ratios in "num:den" or "num/den" form.
// Empty strings and "N/A" yield the zero Rational.
func ParseRational(s string) (Rational, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "N/A" {
		return Rational{}, nil
	}
	sep := strings.IndexAny(s, ":/")
	if sep < 0 {
		return Rational{}, fmt.Errorf("parse rational %q: missing separator", s)
	}
	num, err := strconv.Atoi(s[:sep])
	if err != nil {
		return Rational{}, fmt.Errorf("parse rational %q: %w", s, err)
	}
	den, err := strconv.Atoi(s[sep+1:])
	if err != nil {
		return Rational{}, fmt.Errorf("parse rational %q: %w", s, err)
	}
	if num < 0 || den < 0 {
		return Rational{}, fmt.Errorf("parse rational %q: negative value", s)
	}
	return Rational{Num: num, Den: den}, nil
}

// Float returns the ratio as a float64, or 0 when unknown.
func (r Rational) Float() float64 {
	if r.Num == 0 || r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// IsAnamorphic reports whether the ratio describes non-square pixels.
func (r Rational) IsAnamorphic() bool {
	f := r.Float()
	return f != 0 && f != 1
}

func (r Rational) String() string {
	return fmt.Sprintf("%d:%d", r.Num, r.Den)
}

// Source is the true display geometry of a frame.
type Source struct {
	Width      int
	Height     int
	Anamorphic bool
}

// Ratio returns Width/Height.
func (s Source) Ratio() float64 {
	return float64(s.Width) / float64(s.Height)
}

// Constraint holds the requested output size. Non-positive values leave the
// axis unconstrained.
type Constraint struct {
	Width  int
	Height int
}

// IsZero reports whether neither axis is constrained.
func (c Constraint) IsZero() bool {
	return c.Width <= 0 && c.Height <= 0
}

// Target is the final output size.
type Target struct {
	Width  int
	Height int
}

// ResolveSource corrects the stored frame size for the sample aspect ratio.
// Ratios above 1 widen the frame, ratios below 1 make it taller.
func ResolveSource(width, height int, sar Rational) Source {
	src := Source{Width: width, Height: height}
	if !sar.IsAnamorphic() {
		return src
	}
	src.Anamorphic = true
	r := sar.Float()
	if r > 1 {
		src.Width = round(float64(width) * r)
	} else {
		src.Height = round(float64(height) / r)
	}
	return src
}

// ResolveTarget fits the constraint inside the source geometry.
//
// An axis whose requested size is at least the source size is dropped before
// the aspect ratio is applied, so the result never exceeds the source on that
// axis. When both axes remain, the more restrictive one wins.
func ResolveTarget(src Source, c Constraint) Target {
	reqW, reqH := float64(c.Width), float64(c.Height)
	if c.Width <= 0 || c.Width >= src.Width {
		reqW = 0
	}
	if c.Height <= 0 || c.Height >= src.Height {
		reqH = 0
	}
	if reqW == 0 && reqH == 0 {
		return Target{Width: src.Width, Height: src.Height}
	}

	ratio := src.Ratio()
	switch {
	case reqW > 0 && reqH > 0:
		want := reqW / reqH
		if want > ratio {
			reqW = reqH * ratio
		} else if want < ratio {
			reqH = reqW / ratio
		}
	case reqW > 0:
		reqH = reqW / ratio
	default:
		reqW = reqH * ratio
	}
	return Target{Width: max(round(reqW), 1), Height: max(round(reqH), 1)}
}

// Matches reports whether the target has the same size as the source.
func (t Target) Matches(src Source) bool {
	return t.Width == src.Width && t.Height == src.Height
}

func round(v float64) int {
	return int(math.Round(v))
}
