// Package bake writes overlays permanently into a copy of the source PDF.
package bake

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"union-bug-placer/internal/asset"
	"union-bug-placer/internal/logging"
	"union-bug-placer/internal/overlay"
	"union-bug-placer/pkg/geometry"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

var (
	// ErrNothingToSave is returned when no overlay is placed.
	ErrNothingToSave = errors.New("nothing to save: no overlay is placed")
	// ErrSameOutputPath is returned when the output would overwrite the source.
	ErrSameOutputPath = errors.New("output path must differ from the source document")
)

// Assets resolves the asset file for an overlay variant.
type Assets interface {
	Get(kind overlay.Kind, v overlay.Variant) (*asset.Asset, error)
}

// Request describes one save.
type Request struct {
	Source     string              // source PDF, read fresh from disk
	Output     string              // destination, must differ from Source
	Placements []overlay.Placement // anchored, active overlays
	Assets     Assets
}

// Stamp is one overlay resolved to an asset and a page rectangle.
type Stamp struct {
	Page  int // zero-based
	Asset *asset.Asset
	Rect  geometry.Rect // document points, top-left origin
}

// PlacementRect returns the page rectangle for an overlay anchored at its
// top-left corner, widthIn inches wide, keeping the asset aspect ratio.
func PlacementRect(anchor geometry.Point2D, widthIn float64, assetSize geometry.Size) geometry.Rect {
	return overlay.Rect(anchor, widthIn, assetSize)
}

// SuggestOutputPath returns <dir>/<name>_bug.pdf for a source path.
func SuggestOutputPath(source string) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	return filepath.Join(filepath.Dir(source), base+"_bug.pdf")
}

// SamePath reports whether two paths resolve to the same absolute path.
// The comparison is case-sensitive.
func SamePath(a, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, err
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false, err
	}
	return absA == absB, nil
}

// Plan resolves every placement to a stamp. It fails without touching any
// file when a precondition does not hold.
func Plan(req Request) ([]Stamp, error) {
	if len(req.Placements) == 0 {
		return nil, ErrNothingToSave
	}
	same, err := SamePath(req.Source, req.Output)
	if err != nil {
		return nil, fmt.Errorf("resolve output path: %w", err)
	}
	if same {
		return nil, ErrSameOutputPath
	}

	stamps := make([]Stamp, 0, len(req.Placements))
	for _, pl := range req.Placements {
		a, err := req.Assets.Get(pl.Kind, pl.Variant)
		if err != nil {
			return nil, fmt.Errorf("%s on page %d: %w", pl.Kind, pl.Page+1, err)
		}
		stamps = append(stamps, Stamp{
			Page:  pl.Page,
			Asset: a,
			Rect:  PlacementRect(pl.Anchor, pl.WidthIn, a.Size),
		})
	}
	return stamps, nil
}

// Description returns the pdfcpu stamp description placing the asset's
// top-left corner at the stamp rectangle's top-left corner. pdfcpu offsets
// are relative to the page's top-left corner with y pointing up.
func (s Stamp) Description() string {
	scale := s.Rect.Width / s.Asset.Size.Width
	return fmt.Sprintf("pos:tl, off:%.4f %.4f, scalefactor:%.6f abs, rot:0, op:1", s.Rect.X, -s.Rect.Y, scale)
}

func (s Stamp) watermark() (*model.Watermark, error) {
	wm, err := api.PDFWatermark(s.Asset.Path+":1", s.Description(), true, false, types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(s.Asset.Path), err)
	}
	wm.Dx = s.Rect.X
	wm.Dy = -s.Rect.Y
	return wm, nil
}

// Bake composites every placement onto a fresh copy of the source document
// and writes it to the output path. The output appears only once it is
// complete; on error nothing is written and the source is never modified.
func Bake(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	stamps, err := Plan(req)
	if err != nil {
		return "", err
	}

	src, err := os.ReadFile(req.Source)
	if err != nil {
		return "", fmt.Errorf("read source: %w", err)
	}

	byPage := make(map[int][]*model.Watermark)
	for _, s := range stamps {
		wm, err := s.watermark()
		if err != nil {
			return "", err
		}
		byPage[s.Page+1] = append(byPage[s.Page+1], wm)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	out, err := filepath.Abs(req.Output)
	if err != nil {
		return "", err
	}
	if err := writeAtomic(out, func(f *os.File) error {
		conf := model.NewDefaultConfiguration()
		return api.AddWatermarksSliceMap(bytes.NewReader(src), f, byPage, conf)
	}); err != nil {
		return "", fmt.Errorf("write %s: %w", filepath.Base(out), err)
	}

	logging.Logger().Info("Bake: saved", "output", out, "overlays", len(stamps), "elapsed", time.Since(start))
	return out, nil
}

// writeAtomic writes through a temporary file in the destination directory
// and renames it into place.
func writeAtomic(path string, write func(f *os.File) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".bake-*.pdf")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if err := tmp.Chmod(0o644); err != nil {
		logging.Logger().Debug("Bake: chmod temp file", "err", err)
	}
	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return err
	}
	return nil
}
