package canvas

import (
	"image"
	"image/color"
	"math"

	"union-bug-placer/pkg/colorutil"
	"union-bug-placer/pkg/geometry"
)

// drawLine draws a line between two points using Bresenham's algorithm.
func drawLine(output *image.RGBA, x1, y1, x2, y2 int, col color.RGBA, thickness int) {
	bounds := output.Bounds()

	dx := x2 - x1
	dy := y2 - y1
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	sx := 1
	if x1 > x2 {
		sx = -1
	}
	sy := 1
	if y1 > y2 {
		sy = -1
	}

	err := dx - dy
	for {
		for t := -thickness / 2; t <= thickness/2; t++ {
			for s := -thickness / 2; s <= thickness/2; s++ {
				px, py := x1+s, y1+t
				if px >= bounds.Min.X && px < bounds.Max.X && py >= bounds.Min.Y && py < bounds.Max.Y {
					blendPixel(output, px, py, col)
				}
			}
		}

		if x1 == x2 && y1 == y2 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

// blendPixel draws col over the pixel using col's alpha.
func blendPixel(output *image.RGBA, x, y int, col color.RGBA) {
	if col.A == 255 {
		output.SetRGBA(x, y, col)
		return
	}
	d := output.RGBAAt(x, y)
	a := float64(col.A) / 255
	mix := func(s, d uint8) uint8 {
		return uint8(float64(s)*a + float64(d)*(1-a) + 0.5)
	}
	output.SetRGBA(x, y, color.RGBA{mix(col.R, d.R), mix(col.G, d.G), mix(col.B, d.B), 255})
}

// drawGrid draws vertical and horizontal lines every spacing pixels from
// the page origin.
func drawGrid(output *image.RGBA, spacing float64) {
	if spacing < 4 {
		return // too dense to be useful
	}
	b := output.Bounds()
	for x := 0.0; x < float64(b.Dx()); x += spacing {
		px := int(math.Round(x))
		drawLine(output, px, 0, px, b.Dy()-1, colorutil.GridLine, 1)
	}
	for y := 0.0; y < float64(b.Dy()); y += spacing {
		py := int(math.Round(y))
		drawLine(output, 0, py, b.Dx()-1, py, colorutil.GridLine, 1)
	}
}

// drawDashedRect outlines r with 4-pixel dashes.
func drawDashedRect(output *image.RGBA, r geometry.Rect, col color.RGBA) {
	x1, y1 := int(math.Floor(r.X)), int(math.Floor(r.Y))
	x2, y2 := int(math.Ceil(r.X+r.Width))-1, int(math.Ceil(r.Y+r.Height))-1
	b := output.Bounds()
	plot := func(x, y, i int) {
		if (i/4)%2 == 0 && x >= b.Min.X && x < b.Max.X && y >= b.Min.Y && y < b.Max.Y {
			output.SetRGBA(x, y, col)
		}
	}
	for x := x1; x <= x2; x++ {
		plot(x, y1-1, x-x1)
		plot(x, y2+1, x-x1)
	}
	for y := y1; y <= y2; y++ {
		plot(x1-1, y, y-y1)
		plot(x2+1, y, y-y1)
	}
}
