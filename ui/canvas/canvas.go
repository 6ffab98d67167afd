// Package canvas provides the page preview widget: the rendered page, the
// overlay previews and the alignment grid, with click capture in display
// pixels.
package canvas

import (
	"image"
	"math"
	"sync"

	pageimage "union-bug-placer/internal/image"
	"union-bug-placer/pkg/colorutil"
	"union-bug-placer/pkg/geometry"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// emptySize is the content size shown before a page is loaded.
var emptySize = fyne.NewSize(400, 300)

// PageCanvas shows one rendered page. One fyne unit is one display pixel
// of the page render.
type PageCanvas struct {
	widget.BaseWidget

	mu          sync.Mutex
	page        *image.RGBA
	sprites     []Sprite
	grid        bool
	gridSpacing float64 // display pixels

	raster  *fynecanvas.Raster
	scroll  *zoomScroll
	content *tappableContent
	imgSize fyne.Size

	lastViewport fyne.Size

	onClick    func(p geometry.Point2D)
	onZoomStep func(steps int)
	onResize   func(viewport geometry.Size)
}

// zoomScroll wraps a scroll container but turns the wheel into zoom steps.
type zoomScroll struct {
	widget.BaseWidget
	scroll *container.Scroll
	canvas *PageCanvas
}

func newZoomScroll(content fyne.CanvasObject, canvas *PageCanvas) *zoomScroll {
	scroll := container.NewScroll(content)
	scroll.Direction = container.ScrollBoth
	zs := &zoomScroll{scroll: scroll, canvas: canvas}
	zs.ExtendBaseWidget(zs)
	return zs
}

func (zs *zoomScroll) Scrolled(ev *fyne.ScrollEvent) {
	zs.canvas.wheel(ev)
}

func (zs *zoomScroll) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(zs.scroll)
}

// Offset returns the scroll container's current offset.
func (zs *zoomScroll) Offset() fyne.Position {
	return zs.scroll.Offset
}

// Refresh refreshes the scroll container.
func (zs *zoomScroll) Refresh() {
	zs.scroll.Refresh()
	zs.BaseWidget.Refresh()
}

// Resize sets the size of the scroll container.
func (zs *zoomScroll) Resize(size fyne.Size) {
	zs.scroll.Resize(size)
	zs.BaseWidget.Resize(size)
}

// tappableContent wraps the raster to receive clicks and the wheel.
type tappableContent struct {
	widget.BaseWidget
	canvas *PageCanvas
	raster *fynecanvas.Raster
}

func newTappableContent(pc *PageCanvas, raster *fynecanvas.Raster) *tappableContent {
	tc := &tappableContent{canvas: pc, raster: raster}
	tc.ExtendBaseWidget(tc)
	return tc
}

func (tc *tappableContent) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(tc.raster)
}

func (tc *tappableContent) MinSize() fyne.Size {
	return tc.raster.MinSize()
}

func (tc *tappableContent) Scrolled(ev *fyne.ScrollEvent) {
	tc.canvas.wheel(ev)
}

// Tapped reports the click in display pixels of the page. ev.Position is
// already relative to the content, so the scroll offset is included.
func (tc *tappableContent) Tapped(ev *fyne.PointEvent) {
	size := tc.Size()
	if ev.Position.X < 0 || ev.Position.Y < 0 ||
		ev.Position.X > size.Width || ev.Position.Y > size.Height {
		return
	}
	tc.canvas.click(geometry.NewPoint2D(float64(ev.Position.X), float64(ev.Position.Y)))
}

// NewPageCanvas creates an empty page canvas.
func NewPageCanvas() *PageCanvas {
	pc := &PageCanvas{imgSize: emptySize}

	pc.raster = fynecanvas.NewRaster(pc.draw)
	pc.raster.ScaleMode = fynecanvas.ImageScalePixels
	pc.raster.SetMinSize(pc.imgSize)

	pc.content = newTappableContent(pc, pc.raster)
	pc.scroll = newZoomScroll(pc.content, pc)

	pc.ExtendBaseWidget(pc)
	return pc
}

// SetPage shows a new page render.
func (pc *PageCanvas) SetPage(img *image.RGBA) {
	pc.mu.Lock()
	pc.page = img
	pc.mu.Unlock()
	pc.updateContentSize()
}

// SetSprites replaces the overlay previews.
func (pc *PageCanvas) SetSprites(sprites []Sprite) {
	pc.mu.Lock()
	pc.sprites = sprites
	pc.mu.Unlock()
	pc.Refresh()
}

// SetGrid shows or hides the grid with lines every spacing display pixels.
func (pc *PageCanvas) SetGrid(on bool, spacing float64) {
	pc.mu.Lock()
	pc.grid = on
	pc.gridSpacing = spacing
	pc.mu.Unlock()
	pc.Refresh()
}

// Clear removes the page and every preview.
func (pc *PageCanvas) Clear() {
	pc.mu.Lock()
	pc.page = nil
	pc.sprites = nil
	pc.mu.Unlock()
	pc.updateContentSize()
}

// OnClick sets the callback for clicks, in display pixels of the page.
func (pc *PageCanvas) OnClick(callback func(p geometry.Point2D)) {
	pc.onClick = callback
}

// OnZoomStep sets the callback for mouse wheel steps: +1 in, -1 out.
func (pc *PageCanvas) OnZoomStep(callback func(steps int)) {
	pc.onZoomStep = callback
}

// OnResize sets the callback for viewport size changes.
func (pc *PageCanvas) OnResize(callback func(viewport geometry.Size)) {
	pc.onResize = callback
}

// Container returns the scrollable view for embedding in layouts.
func (pc *PageCanvas) Container() fyne.CanvasObject {
	return pc
}

// Refresh redraws the canvas.
func (pc *PageCanvas) Refresh() {
	pc.raster.Refresh()
}

func (pc *PageCanvas) click(p geometry.Point2D) {
	if pc.onClick != nil {
		pc.onClick(p)
	}
}

func (pc *PageCanvas) wheel(ev *fyne.ScrollEvent) {
	if pc.onZoomStep == nil {
		return
	}
	if ev.Scrolled.DY > 0 {
		pc.onZoomStep(1)
	} else if ev.Scrolled.DY < 0 {
		pc.onZoomStep(-1)
	}
}

// viewportResized records the visible area and reports changes.
func (pc *PageCanvas) viewportResized(size fyne.Size) {
	if size.Width <= 0 || size.Height <= 0 || size == pc.lastViewport {
		return
	}
	pc.lastViewport = size
	if pc.onResize != nil {
		pc.onResize(geometry.NewSize(float64(size.Width), float64(size.Height)))
	}
}

func (pc *PageCanvas) updateContentSize() {
	pc.mu.Lock()
	if pc.page == nil {
		pc.imgSize = emptySize
	} else {
		b := pc.page.Bounds()
		pc.imgSize = fyne.NewSize(float32(b.Dx()), float32(b.Dy()))
	}
	size := pc.imgSize
	pc.mu.Unlock()

	pc.raster.SetMinSize(size)
	pc.raster.Resize(size)
	if pc.content != nil {
		pc.content.Resize(size)
		pc.content.Refresh()
	}
	pc.raster.Refresh()
	if pc.scroll != nil {
		pc.scroll.Refresh()
	}
}

// Compose returns the page with the grid and overlay previews drawn on it,
// or nil without a page.
func (pc *PageCanvas) Compose() *image.RGBA {
	pc.mu.Lock()
	page, sprites, grid, spacing := pc.page, pc.sprites, pc.grid, pc.gridSpacing
	pc.mu.Unlock()
	if page == nil {
		return nil
	}

	b := page.Bounds()
	c := pageimage.NewComposite(b.Dx(), b.Dy())
	c.AddLayer(pageimage.NewLayer("page", page), pageimage.BlendNormal, 0, 0)
	for _, s := range sprites {
		if s.Image == nil {
			continue
		}
		c.AddLayer(pageimage.NewLayer("overlay", s.Image), s.Mode,
			int(math.Round(s.Rect.X)), int(math.Round(s.Rect.Y)))
	}
	out := c.Render()

	if grid {
		drawGrid(out, spacing)
	}
	for _, s := range sprites {
		if s.Outline {
			drawDashedRect(out, s.Rect, colorutil.Highlight)
		}
	}
	return out
}

// draw is the raster drawing function.
func (pc *PageCanvas) draw(w, h int) image.Image {
	if out := pc.Compose(); out != nil {
		return out
	}
	return image.NewRGBA(image.Rect(0, 0, w, h))
}

// CreateRenderer implements fyne.Widget.
func (pc *PageCanvas) CreateRenderer() fyne.WidgetRenderer {
	return &pageCanvasRenderer{canvas: pc}
}

type pageCanvasRenderer struct {
	canvas *PageCanvas
}

func (r *pageCanvasRenderer) Layout(size fyne.Size) {
	r.canvas.scroll.Resize(size)
	r.canvas.viewportResized(size)
}

func (r *pageCanvasRenderer) MinSize() fyne.Size {
	return fyne.NewSize(100, 100)
}

func (r *pageCanvasRenderer) Refresh() {
	r.canvas.raster.Refresh()
}

func (r *pageCanvasRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.canvas.scroll}
}

func (r *pageCanvasRenderer) Destroy() {}
