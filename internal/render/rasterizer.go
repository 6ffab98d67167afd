package render

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"union-bug-placer/internal/logging"

	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/references"
	"github.com/klippa-app/go-pdfium/requests"
	"github.com/klippa-app/go-pdfium/webassembly"
)

// Source is a PDF held in memory. ID identifies it for caching.
type Source struct {
	ID   string
	Data []byte
}

// Rasterizer turns a PDF page into pixels.
type Rasterizer interface {
	// Rasterize renders page of src into a width x height image.
	Rasterize(ctx context.Context, src Source, page, width, height int) (*image.RGBA, error)
	// Forget releases anything cached for the source ID.
	Forget(id string)
	Close() error
}

// PdfiumRasterizer renders with PDFium compiled to WebAssembly, so no native
// library is needed. A single instance serves all calls.
type PdfiumRasterizer struct {
	mu       sync.Mutex
	pool     pdfium.Pool
	instance pdfium.Pdfium
	docs     map[string]references.FPDF_DOCUMENT
}

// NewPdfiumRasterizer starts the PDFium runtime.
func NewPdfiumRasterizer() (*PdfiumRasterizer, error) {
	start := time.Now()
	pool, err := webassembly.Init(webassembly.Config{
		MinIdle:  1,
		MaxIdle:  1,
		MaxTotal: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("start pdfium: %w", err)
	}
	instance, err := pool.GetInstance(30 * time.Second)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("pdfium instance: %w", err)
	}
	logging.Logger().Debug("Render: pdfium ready", "elapsed", time.Since(start))
	return &PdfiumRasterizer{
		pool:     pool,
		instance: instance,
		docs:     make(map[string]references.FPDF_DOCUMENT),
	}, nil
}

func (r *PdfiumRasterizer) open(src Source) (references.FPDF_DOCUMENT, error) {
	if doc, ok := r.docs[src.ID]; ok {
		return doc, nil
	}
	data := src.Data
	resp, err := r.instance.OpenDocument(&requests.OpenDocument{File: &data})
	if err != nil {
		return "", fmt.Errorf("open %s: %w", src.ID, err)
	}
	r.docs[src.ID] = resp.Document
	return resp.Document, nil
}

// Rasterize implements Rasterizer.
func (r *PdfiumRasterizer) Rasterize(ctx context.Context, src Source, page, width, height int) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("invalid raster size %dx%d", width, height)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.instance == nil {
		return nil, fmt.Errorf("rasterizer closed")
	}

	doc, err := r.open(src)
	if err != nil {
		return nil, err
	}
	resp, err := r.instance.RenderPageInPixels(&requests.RenderPageInPixels{
		Page: requests.Page{
			ByIndex: &requests.PageByIndex{Document: doc, Index: page},
		},
		Width:  width,
		Height: height,
	})
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", page+1, err)
	}
	defer resp.Cleanup()

	// The result image is backed by runtime memory released by Cleanup.
	img := image.NewRGBA(resp.Result.Image.Bounds())
	copy(img.Pix, resp.Result.Image.Pix)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return img, nil
}

// Forget implements Rasterizer.
func (r *PdfiumRasterizer) Forget(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeDoc(id)
}

func (r *PdfiumRasterizer) closeDoc(id string) {
	doc, ok := r.docs[id]
	if !ok || r.instance == nil {
		return
	}
	delete(r.docs, id)
	if _, err := r.instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{Document: doc}); err != nil {
		logging.Logger().Warn("Render: close document", "id", id, "err", err)
	}
}

// Close releases every open document and the runtime.
func (r *PdfiumRasterizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.instance == nil {
		return nil
	}
	for id := range r.docs {
		r.closeDoc(id)
	}
	err := r.instance.Close()
	r.instance = nil
	if perr := r.pool.Close(); err == nil {
		err = perr
	}
	return err
}
