// Package contrast samples the rendered page under a placement point so the
// bug overlay can pick the variant that stands out from the background.
package contrast

import (
	"errors"
	"image"

	"union-bug-placer/pkg/colorutil"
	"union-bug-placer/pkg/geometry"

	"gonum.org/v1/gonum/stat"
)

// DefaultBox is the side length, in pixels, of the sampled neighbourhood.
const DefaultBox = 10

// ErrEmptyImage is returned when there is nothing to sample.
var ErrEmptyImage = errors.New("contrast: empty image")

// Sampler computes the mean luminance of a box of pixels around a point.
// Every pixel coordinate is clamped into the image, so points outside the
// image sample its nearest edge instead of failing.
type Sampler struct {
	Box int // side length in pixels; <= 1 samples a single pixel
}

// NewSampler returns a Sampler using DefaultBox.
func NewSampler() Sampler {
	return Sampler{Box: DefaultBox}
}

// Luminance returns the mean Rec. 601 luma in [0, 255] of the box centered
// on p. p is in the pixel space of img.
func (s Sampler) Luminance(img image.Image, p geometry.Point2D) (float64, error) {
	if img == nil || img.Bounds().Empty() {
		return 0, ErrEmptyImage
	}
	b := img.Bounds()
	cx, cy := p.Floor()

	box := s.Box
	if box < 1 {
		box = 1
	}
	// Same window as cropping (x-box/2, y-box/2, x+box/2, y+box/2).
	x0, y0 := cx-box/2, cy-box/2
	if box == 1 {
		x0, y0 = cx, cy
	}

	samples := make([]float64, 0, box*box)
	for y := y0; y < y0+box; y++ {
		for x := x0; x < x0+box; x++ {
			px := clamp(x, b.Min.X, b.Max.X-1)
			py := clamp(y, b.Min.Y, b.Max.Y-1)
			samples = append(samples, colorutil.LuminanceOf(img.At(px, py)))
		}
	}
	return stat.Mean(samples, nil), nil
}

// IsDark reports whether a sampled luminance counts as a dark background.
func IsDark(luminance float64) bool {
	return colorutil.IsDark(luminance)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Luminance samples img around (x, y) with a box of the given side.
func Luminance(img image.Image, x, y float64, box int) (float64, error) {
	return Sampler{Box: box}.Luminance(img, geometry.Point2D{X: x, Y: y})
}
