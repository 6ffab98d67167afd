package image

import (
	"image"
	"image/color"
	"image/draw"
)

// BlendMode specifies how layers are composited.
type BlendMode int

const (
	BlendNormal BlendMode = iota
	BlendMultiply
	BlendScreen
)

func (m BlendMode) String() string {
	switch m {
	case BlendNormal:
		return "Normal"
	case BlendMultiply:
		return "Multiply"
	case BlendScreen:
		return "Screen"
	default:
		return "Unknown"
	}
}

// Composite combines multiple layers into a single image.
type Composite struct {
	Width     int
	Height    int
	Layers    []*CompositeLayer
	BackColor color.Color
}

// CompositeLayer wraps a Layer with compositing settings.
type CompositeLayer struct {
	Layer     *Layer
	BlendMode BlendMode
	OffsetX   int
	OffsetY   int
}

// NewComposite creates a new Composite with the specified dimensions.
func NewComposite(width, height int) *Composite {
	return &Composite{
		Width:     width,
		Height:    height,
		BackColor: color.White,
	}
}

// AddLayer adds a layer to the composite.
func (c *Composite) AddLayer(layer *Layer, mode BlendMode, offsetX, offsetY int) {
	c.Layers = append(c.Layers, &CompositeLayer{
		Layer:     layer,
		BlendMode: mode,
		OffsetX:   offsetX,
		OffsetY:   offsetY,
	})
}

// Render produces the final composited image.
func (c *Composite) Render() *image.RGBA {
	result := image.NewRGBA(image.Rect(0, 0, c.Width, c.Height))
	draw.Draw(result, result.Bounds(), &image.Uniform{c.BackColor}, image.Point{}, draw.Src)

	for _, cl := range c.Layers {
		if cl.Layer == nil || cl.Layer.Image == nil || !cl.Layer.Visible {
			continue
		}
		c.compositeLayer(result, cl)
	}
	return result
}

// compositeLayer blends a single layer onto the result. Pixels that fall
// outside the composite are dropped.
func (c *Composite) compositeLayer(dst *image.RGBA, cl *CompositeLayer) {
	src := cl.Layer.Image
	srcBounds := src.Bounds()
	opacity := cl.Layer.Opacity

	for y := srcBounds.Min.Y; y < srcBounds.Max.Y; y++ {
		dstY := y - srcBounds.Min.Y + cl.OffsetY
		if dstY < 0 || dstY >= c.Height {
			continue
		}
		for x := srcBounds.Min.X; x < srcBounds.Max.X; x++ {
			dstX := x - srcBounds.Min.X + cl.OffsetX
			if dstX < 0 || dstX >= c.Width {
				continue
			}
			dst.SetRGBA(dstX, dstY, blend(dst.RGBAAt(dstX, dstY), src.At(x, y), cl.BlendMode, opacity))
		}
	}
}

// blend performs the blend operation between two colors.
func blend(dst color.RGBA, src color.Color, mode BlendMode, opacity float64) color.RGBA {
	sr, sg, sb, sa := src.RGBA()
	sf := [4]float64{float64(sr) / 65535.0, float64(sg) / 65535.0, float64(sb) / 65535.0, float64(sa) / 65535.0}
	df := [4]float64{float64(dst.R) / 255.0, float64(dst.G) / 255.0, float64(dst.B) / 255.0, float64(dst.A) / 255.0}

	// Source channels are alpha-premultiplied; unpremultiply before blending.
	if sf[3] > 0 {
		for i := 0; i < 3; i++ {
			sf[i] /= sf[3]
		}
	}

	var rf [3]float64
	for i := 0; i < 3; i++ {
		switch mode {
		case BlendMultiply:
			rf[i] = sf[i] * df[i]
		case BlendScreen:
			rf[i] = 1 - (1-sf[i])*(1-df[i])
		default:
			rf[i] = sf[i]
		}
	}

	alpha := sf[3] * opacity
	return color.RGBA{
		R: uint8(clamp(rf[0]*alpha+df[0]*(1-alpha), 0, 1)*255 + 0.5),
		G: uint8(clamp(rf[1]*alpha+df[1]*(1-alpha), 0, 1)*255 + 0.5),
		B: uint8(clamp(rf[2]*alpha+df[2]*(1-alpha), 0, 1)*255 + 0.5),
		A: uint8(clamp(alpha+df[3]*(1-alpha), 0, 1)*255 + 0.5),
	}
}

func clamp(x, min, max float64) float64 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}
