// Package image provides preview layers, compositing, and image file
// inspection.
package image

import (
	"image"
	"image/color"

	"union-bug-placer/pkg/geometry"
)

// Layer is one image in a preview composite.
type Layer struct {
	Name    string
	Image   image.Image
	Visible bool
	Opacity float64 // 0.0 - 1.0
}

// NewLayer creates a visible, opaque layer.
func NewLayer(name string, img image.Image) *Layer {
	return &Layer{
		Name:    name,
		Image:   img,
		Visible: true,
		Opacity: 1.0,
	}
}

// Width returns the image width in pixels.
func (l *Layer) Width() int {
	if l.Image == nil {
		return 0
	}
	return l.Image.Bounds().Dx()
}

// Height returns the image height in pixels.
func (l *Layer) Height() int {
	if l.Image == nil {
		return 0
	}
	return l.Image.Bounds().Dy()
}

// Size returns the image dimensions.
func (l *Layer) Size() geometry.Size {
	return geometry.Size{
		Width:  float64(l.Width()),
		Height: float64(l.Height()),
	}
}

// PixelAt returns the color at the specified pixel coordinates, or
// transparent outside the image.
func (l *Layer) PixelAt(x, y int) color.Color {
	if l.Image == nil {
		return color.Transparent
	}
	bounds := l.Image.Bounds()
	if x < bounds.Min.X || x >= bounds.Max.X || y < bounds.Min.Y || y >= bounds.Max.Y {
		return color.Transparent
	}
	return l.Image.At(x, y)
}
