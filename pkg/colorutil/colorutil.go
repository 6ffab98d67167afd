// Package colorutil provides shared color utilities for the union bug placer.
package colorutil

import (
	"image/color"
)

// Overlay colors used by the preview canvas.
var (
	Black     = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White     = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	GridLine  = color.RGBA{R: 0, G: 160, B: 255, A: 90}
	Highlight = color.RGBA{R: 255, G: 0, B: 255, A: 255}
)

// DarkThreshold is the luminance below which a background counts as dark.
const DarkThreshold = 128.0

// Luminance returns the Rec. 601 luma of an RGB triple in 0-255:
// 0.299R + 0.587G + 0.114B.
func Luminance(r, g, b float64) float64 {
	return 0.299*r + 0.587*g + 0.114*b
}

// LuminanceOf returns the luma of c, ignoring alpha.
func LuminanceOf(c color.Color) float64 {
	r, g, b, _ := c.RGBA()
	return Luminance(float64(r>>8), float64(g>>8), float64(b>>8))
}

// IsDark reports whether a luminance value counts as a dark background.
// Exactly DarkThreshold is light.
func IsDark(luminance float64) bool {
	return luminance < DarkThreshold
}
