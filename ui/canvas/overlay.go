package canvas

import (
	"image"

	pageimage "union-bug-placer/internal/image"
	"union-bug-placer/internal/overlay"
	"union-bug-placer/pkg/geometry"
)

// Sprite is an overlay preview drawn over the page.
type Sprite struct {
	Image   image.Image
	Rect    geometry.Rect // display pixels
	Mode    pageimage.BlendMode
	Outline bool // draw a dashed outline around Rect
}

// ModeFor returns the blend mode that previews a variant over the page.
// Dark artwork is multiplied so its white page background disappears.
func ModeFor(v overlay.Variant) pageimage.BlendMode {
	if v == overlay.VariantLight {
		return pageimage.BlendNormal
	}
	return pageimage.BlendMultiply
}
