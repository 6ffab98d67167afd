// Package render rasterizes document pages for the preview and owns the
// display scale used by every coordinate conversion of a render.
package render

import (
	"math"

	"union-bug-placer/pkg/geometry"
)

// Fit controls how a page is fitted into the viewport.
type Fit struct {
	MarginFraction float64 // margin per side as a fraction of the viewport
	MinMargin      float64 // lower bound of the per-side margin, pixels
	MaxScale       float64 // cap for small pages
}

// DefaultFit returns the standard fit parameters.
func DefaultFit() Fit {
	return Fit{MarginFraction: 0.05, MinMargin: 50, MaxScale: 2.0}
}

// minScale keeps a render non-empty when the viewport is smaller than its
// margins.
const minScale = 0.01

// FitScale returns the base scale that fits page into viewport:
//
//	min((vw - 2*mx) / pw, (vh - 2*my) / ph, MaxScale)
//
// where each margin is max(MarginFraction*v, MinMargin).
func (f Fit) FitScale(viewport, page geometry.Size) float64 {
	if page.Width <= 0 || page.Height <= 0 {
		return minScale
	}
	mx := math.Max(viewport.Width*f.MarginFraction, f.MinMargin)
	my := math.Max(viewport.Height*f.MarginFraction, f.MinMargin)
	s := math.Min((viewport.Width-2*mx)/page.Width, (viewport.Height-2*my)/page.Height)
	if f.MaxScale > 0 {
		s = math.Min(s, f.MaxScale)
	}
	if s < minScale || math.IsNaN(s) {
		return minScale
	}
	return s
}

// FitScale fits page into viewport using DefaultFit.
func FitScale(viewport, page geometry.Size) float64 {
	return DefaultFit().FitScale(viewport, page)
}

// Zoom limits.
const (
	MinZoom = 0.5
	MaxZoom = 3.0
)

// ClampZoom bounds z to [lo, hi]. A non-finite z yields 1.
func ClampZoom(z, lo, hi float64) float64 {
	if math.IsNaN(z) || math.IsInf(z, 0) {
		return 1
	}
	return math.Max(lo, math.Min(hi, z))
}
