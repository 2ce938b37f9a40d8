package render

import (
	"github.com/maauso/framethumb/internal/geometry"
	"github.com/maauso/framethumb/internal/media"
)

// Reconcile makes the subtitle overlay authoritative for the source geometry.
//
// Subtitle bitmaps are rendered at the display size of the video, so when they
// disagree with the computed geometry the stream metadata is assumed to have
// missed an anamorphic ratio.
func Reconcile(src geometry.Source, overlay *media.Overlay) geometry.Source {
	if overlay == nil || overlay.Image == nil {
		return src
	}
	w, h := overlay.Width(), overlay.Height()
	if w == src.Width && h == src.Height {
		return src
	}
	return geometry.Source{Width: w, Height: h, Anamorphic: true}
}
