package colorutil

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLuminanceWeights(t *testing.T) {
	assert.InDelta(t, 0, Luminance(0, 0, 0), 1e-9)
	assert.InDelta(t, 255, Luminance(255, 255, 255), 1e-9)
	assert.InDelta(t, 76.245, Luminance(255, 0, 0), 1e-9)
	assert.InDelta(t, 149.685, Luminance(0, 255, 0), 1e-9)
	assert.InDelta(t, 29.07, Luminance(0, 0, 255), 1e-9)
}

func TestLuminanceOfIgnoresAlpha(t *testing.T) {
	assert.InDelta(t, 255, LuminanceOf(White), 1e-9)
	assert.InDelta(t, 128, LuminanceOf(color.Gray{Y: 128}), 1e-9)
}

func TestIsDarkBoundary(t *testing.T) {
	assert.True(t, IsDark(0))
	assert.True(t, IsDark(127.999))
	assert.False(t, IsDark(128))
	assert.False(t, IsDark(255))
}
