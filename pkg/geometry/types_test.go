package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRectContainsIsHalfOpen(t *testing.T) {
	r := NewRect(0, 0, 10, 20)

	assert.True(t, r.Contains(NewPoint2D(0, 0)))
	assert.True(t, r.Contains(NewPoint2D(9.99, 19.99)))
	assert.False(t, r.Contains(NewPoint2D(10, 5)))
	assert.False(t, r.Contains(NewPoint2D(5, 20)))
	assert.False(t, r.Contains(NewPoint2D(-0.01, 5)))
}

func TestAffineInverseRoundTrip(t *testing.T) {
	tr := Translation(12, -4).Compose(Scale(2.5, 2.5))
	inv, ok := tr.Inverse()
	assert.True(t, ok)

	p := NewPoint2D(33.3, 71.25)
	back := inv.Apply(tr.Apply(p))
	assert.InDelta(t, p.X, back.X, 1e-9)
	assert.InDelta(t, p.Y, back.Y, 1e-9)

	_, ok = Scale(0, 1).Inverse()
	assert.False(t, ok)
}

func TestApplyRectScalesFromTopLeft(t *testing.T) {
	r := Scale(2, 2).ApplyRect(RectAt(NewPoint2D(36, 36), NewSize(21.6, 10)))
	assert.InDelta(t, 72, r.X, 1e-9)
	assert.InDelta(t, 72, r.Y, 1e-9)
	assert.InDelta(t, 43.2, r.Width, 1e-9)
	assert.InDelta(t, 20, r.Height, 1e-9)
}

func TestSizePixelsNeverEmpty(t *testing.T) {
	w, h := NewSize(0.2, 0.4).Pixels()
	assert.Equal(t, 1, w)
	assert.Equal(t, 1, h)

	w, h = NewSize(612*0.5, 792*0.5).Pixels()
	assert.Equal(t, 306, w)
	assert.Equal(t, 396, h)
}
