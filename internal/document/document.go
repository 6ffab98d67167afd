// Package document holds the page model of the PDF being previewed.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"union-bug-placer/pkg/geometry"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// ErrNoPages is returned for a document without pages.
var ErrNoPages = errors.New("document has no pages")

// Document is a loaded source PDF. Its bytes are kept for rasterizing; the
// file on disk is never written.
type Document struct {
	Path  string
	Data  []byte
	Pages []geometry.Size // points, indexed by zero-based page
	Trims []geometry.Rect // trim box per page, top-left origin on the media box
}

// Load reads the PDF at path and its page sizes.
func Load(path string) (*Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(abs), err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(abs), err)
	}
	doc.Path = abs
	return doc, nil
}

// Parse reads the page sizes and trim boxes from PDF bytes.
func Parse(data []byte) (*Document, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	ctx, err := api.ReadAndValidate(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("read page sizes: %w", err)
	}
	pbs, err := ctx.PageBoundaries(nil)
	if err != nil {
		return nil, fmt.Errorf("read page boxes: %w", err)
	}
	if len(pbs) != ctx.PageCount {
		return nil, errors.New("read page boxes: corrupt page tree")
	}
	if len(pbs) == 0 {
		return nil, ErrNoPages
	}
	doc := &Document{
		Data:  data,
		Pages: make([]geometry.Size, len(pbs)),
		Trims: make([]geometry.Rect, len(pbs)),
	}
	for i, pb := range pbs {
		media := pb.MediaBox()
		if media == nil {
			return nil, fmt.Errorf("page %d: missing media box", i+1)
		}
		d := media.Dimensions()
		if pb.Rot%180 != 0 {
			d.Width, d.Height = d.Height, d.Width
		}
		doc.Pages[i] = geometry.NewSize(d.Width, d.Height)
		doc.Trims[i] = geometry.NewRect(0, 0, d.Width, d.Height)
		if pb.Rot%360 == 0 {
			if r, ok := trimRect(media, pb.TrimBox()); ok {
				doc.Trims[i] = r
			}
		}
	}
	return doc, nil
}

// trimRect converts a trim box in PDF user space to top-left page
// coordinates, clipped to the media box.
func trimRect(media, trim *types.Rectangle) (geometry.Rect, bool) {
	if trim == nil {
		return geometry.Rect{}, false
	}
	x0 := math.Max(trim.LL.X, media.LL.X)
	x1 := math.Min(trim.UR.X, media.UR.X)
	y0 := math.Max(trim.LL.Y, media.LL.Y)
	y1 := math.Min(trim.UR.Y, media.UR.Y)
	if x1 <= x0 || y1 <= y0 {
		return geometry.Rect{}, false
	}
	return geometry.NewRect(x0-media.LL.X, media.UR.Y-y1, x1-x0, y1-y0), true
}

// NumPages returns the page count.
func (d *Document) NumPages() int {
	return len(d.Pages)
}

// Page returns the size of page i.
func (d *Document) Page(i int) (geometry.Size, bool) {
	if i < 0 || i >= len(d.Pages) {
		return geometry.Size{}, false
	}
	return d.Pages[i], true
}

// TrimBox returns the trim box of page i. Pages without one, and rotated
// pages, report the full page.
func (d *Document) TrimBox(i int) (geometry.Rect, bool) {
	if i < 0 || i >= len(d.Trims) {
		return geometry.Rect{}, false
	}
	return d.Trims[i], true
}

// Name returns the file name of the document.
func (d *Document) Name() string {
	return filepath.Base(d.Path)
}
