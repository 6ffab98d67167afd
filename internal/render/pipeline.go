package render

import (
	"context"
	"fmt"
	"image"
	"math"

	"union-bug-placer/internal/contrast"
	"union-bug-placer/internal/document"
	"union-bug-placer/internal/units"
	"union-bug-placer/pkg/geometry"

	"golang.org/x/image/draw"
)

// Render is one rasterized page. DisplayScale is the only valid factor for
// converting between its pixels and document points.
type Render struct {
	Page       int
	PageSize   geometry.Size // points
	Image      *image.RGBA   // display image, after zoom
	BaseScale  float64
	Zoom       float64
	Generation uint64
}

// DisplayScale returns BaseScale x Zoom.
func (r *Render) DisplayScale() float64 {
	return r.BaseScale * r.Zoom
}

// Bounds returns the display image rectangle in display pixels.
func (r *Render) Bounds() geometry.Rect {
	if r.Image == nil {
		return geometry.Rect{}
	}
	b := r.Image.Bounds()
	return geometry.NewRect(0, 0, float64(b.Dx()), float64(b.Dy()))
}

// ToDocument converts a display pixel to document points. ok is false when
// px lies outside the rendered image.
func (r *Render) ToDocument(px geometry.Point2D) (geometry.Point2D, bool) {
	if !r.Bounds().Contains(px) {
		return geometry.Point2D{}, false
	}
	return units.ToDocument(px, r.DisplayScale()), true
}

// ToDisplay converts a document point to display pixels.
func (r *Render) ToDisplay(p geometry.Point2D) geometry.Point2D {
	return units.ToDisplay(p, r.DisplayScale())
}

// Luminance samples the display image at document point p.
func (r *Render) Luminance(s contrast.Sampler, p geometry.Point2D) (float64, error) {
	if r.Image == nil {
		return 0, contrast.ErrEmptyImage
	}
	return s.Luminance(r.Image, r.ToDisplay(p))
}

// Renderer produces page renders.
type Renderer interface {
	Render(ctx context.Context, doc *document.Document, page int, viewport geometry.Size, zoom float64) (*Render, error)
}

// Pipeline rasterizes a page to fit the viewport and resamples it by zoom.
type Pipeline struct {
	Rasterizer Rasterizer
	Fit        Fit
	Filter     draw.Interpolator
}

// NewPipeline returns a pipeline with the default fit and a Catmull-Rom
// zoom filter.
func NewPipeline(r Rasterizer) *Pipeline {
	return &Pipeline{Rasterizer: r, Fit: DefaultFit(), Filter: draw.CatmullRom}
}

// Forget drops the rasterizer's cached copy of a source.
func (p *Pipeline) Forget(id string) {
	p.Rasterizer.Forget(id)
}

// SourceOf returns the rasterizer source for a document.
func SourceOf(doc *document.Document) Source {
	return Source{ID: doc.Path, Data: doc.Data}
}

// Render implements Renderer.
func (p *Pipeline) Render(ctx context.Context, doc *document.Document, page int, viewport geometry.Size, zoom float64) (*Render, error) {
	size, ok := doc.Page(page)
	if !ok {
		return nil, fmt.Errorf("page %d out of range (1-%d)", page+1, doc.NumPages())
	}
	if zoom <= 0 || math.IsNaN(zoom) || math.IsInf(zoom, 0) {
		return nil, fmt.Errorf("invalid zoom %g", zoom)
	}

	base := p.Fit.FitScale(viewport, size)
	w, h := size.Scale(base).Pixels()
	raster, err := p.Rasterizer.Rasterize(ctx, SourceOf(doc), page, w, h)
	if err != nil {
		return nil, err
	}

	out := raster
	if zoom != 1 {
		zw, zh := size.Scale(base * zoom).Pixels()
		out = Resample(raster, zw, zh, p.Filter)
	}
	return &Render{
		Page:      page,
		PageSize:  size,
		Image:     out,
		BaseScale: base,
		Zoom:      zoom,
	}, nil
}

// Resample scales src to width x height with filter, CatmullRom when nil.
func Resample(src image.Image, width, height int, filter draw.Interpolator) *image.RGBA {
	if filter == nil {
		filter = draw.CatmullRom
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	filter.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// SampleAt rasterizes page at scale and returns the luminance at document
// point p. It is used where no preview render exists.
func SampleAt(ctx context.Context, r Rasterizer, doc *document.Document, page int, scale float64, s contrast.Sampler, p geometry.Point2D) (float64, error) {
	size, ok := doc.Page(page)
	if !ok {
		return 0, fmt.Errorf("page %d out of range (1-%d)", page+1, doc.NumPages())
	}
	w, h := size.Scale(scale).Pixels()
	img, err := r.Rasterize(ctx, SourceOf(doc), page, w, h)
	if err != nil {
		return 0, err
	}
	return s.Luminance(img, units.ToDisplay(p, scale))
}
