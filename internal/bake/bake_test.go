package bake

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"union-bug-placer/internal/asset"
	"union-bug-placer/internal/overlay"
	"union-bug-placer/internal/pdftest"
	"union-bug-placer/internal/render"
	"union-bug-placer/pkg/colorutil"
	"union-bug-placer/pkg/geometry"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture(t *testing.T) (dir, src string, store *asset.Store) {
	t.Helper()
	dir = t.TempDir()
	src = pdftest.WriteFile(t, dir, "flyer.pdf", pdftest.Letter, pdftest.Letter)
	assets := filepath.Join(dir, "assets")
	require.NoError(t, os.Mkdir(assets, 0o755))
	pdftest.WriteAssets(t, assets, 60, 30, asset.BugDarkFile, asset.BugLightFile, asset.IndiciaFile)
	return dir, src, asset.NewStore(assets)
}

func bugAt(x, y float64, page int) overlay.Placement {
	return overlay.Placement{
		Kind:    overlay.KindBug,
		Page:    page,
		Anchor:  geometry.NewPoint2D(x, y),
		WidthIn: 0.3,
		Variant: overlay.VariantDark,
	}
}

func TestPlacementRectScenario(t *testing.T) {
	aspect := 0.5
	r := PlacementRect(geometry.NewPoint2D(36, 36), 0.3, geometry.NewSize(60, 30))
	assert.InDelta(t, 36, r.X, 1e-9)
	assert.InDelta(t, 36, r.Y, 1e-9)
	assert.InDelta(t, 57.6, r.BottomRight().X, 1e-9)
	assert.InDelta(t, 36+21.6*aspect, r.BottomRight().Y, 1e-9)
}

func TestStampDescription(t *testing.T) {
	s := Stamp{
		Asset: &asset.Asset{Size: geometry.NewSize(60, 30)},
		Rect:  PlacementRect(geometry.NewPoint2D(36, 40), 0.3, geometry.NewSize(60, 30)),
	}
	assert.Equal(t, "pos:tl, off:36.0000 -40.0000, scalefactor:0.360000 abs, rot:0, op:1", s.Description())
}

func TestSuggestOutputPath(t *testing.T) {
	assert.Equal(t, filepath.Join("/work", "flyer_bug.pdf"), SuggestOutputPath("/work/flyer.pdf"))
	assert.Equal(t, filepath.Join("/work", "a.b_bug.pdf"), SuggestOutputPath("/work/a.b.PDF"))
}

func TestBakeNothingToSave(t *testing.T) {
	dir, src, store := fixture(t)
	out := filepath.Join(dir, "out.pdf")

	_, err := Bake(context.Background(), Request{Source: src, Output: out, Assets: store})
	assert.ErrorIs(t, err, ErrNothingToSave)
	assert.NoFileExists(t, out)
}

func TestBakeRejectsSamePath(t *testing.T) {
	dir, src, store := fixture(t)
	before, err := os.ReadFile(src)
	require.NoError(t, err)

	rel, err := filepath.Rel(mustWd(t), src)
	require.NoError(t, err)
	_, err = Bake(context.Background(), Request{
		Source:     src,
		Output:     rel,
		Placements: []overlay.Placement{bugAt(36, 36, 0)},
		Assets:     store,
	})
	assert.ErrorIs(t, err, ErrSameOutputPath)

	after, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temp files left behind")
}

func TestBakeMissingAssetAborts(t *testing.T) {
	dir := t.TempDir()
	src := pdftest.WriteFile(t, dir, "in.pdf", pdftest.Letter)
	store := asset.NewStore(filepath.Join(dir, "none"))
	out := filepath.Join(dir, "out.pdf")

	_, err := Bake(context.Background(), Request{
		Source:     src,
		Output:     out,
		Placements: []overlay.Placement{bugAt(36, 36, 0)},
		Assets:     store,
	})
	assert.ErrorIs(t, err, asset.ErrAssetUnavailable)
	assert.NoFileExists(t, out)
}

func TestBakeWritesStampedCopy(t *testing.T) {
	dir, src, store := fixture(t)
	before, err := os.ReadFile(src)
	require.NoError(t, err)
	out := filepath.Join(dir, "out.pdf")

	indicia := overlay.Placement{Kind: overlay.KindIndicia, Page: 1, Anchor: geometry.NewPoint2D(400, 36), WidthIn: 1}
	got, err := Bake(context.Background(), Request{
		Source:     src,
		Output:     out,
		Placements: []overlay.Placement{bugAt(36, 36, 0), bugAt(500, 700, 1), indicia},
		Assets:     store,
	})
	require.NoError(t, err)
	assert.Equal(t, out, got)

	n, err := api.PageCountFile(out)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	after, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, before, after, "source untouched")

	// Saving again from the source does not compound stamps.
	first, err := os.ReadFile(out)
	require.NoError(t, err)
	_, err = Bake(context.Background(), Request{
		Source:     src,
		Output:     out,
		Placements: []overlay.Placement{bugAt(36, 36, 0), bugAt(500, 700, 1), indicia},
		Assets:     store,
	})
	require.NoError(t, err)
	second, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.InDelta(t, len(first), len(second), 64)
}

func mustWd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	return wd
}

func TestBakedStampLandsAtAnchor(t *testing.T) {
	if testing.Short() {
		t.Skip("starts the pdfium runtime")
	}
	dir, src, store := fixture(t)
	out := filepath.Join(dir, "out.pdf")
	_, err := Bake(context.Background(), Request{
		Source:     src,
		Output:     out,
		Placements: []overlay.Placement{bugAt(36, 36, 0)},
		Assets:     store,
	})
	require.NoError(t, err)
	data, err := os.ReadFile(out)
	require.NoError(t, err)

	r, err := render.NewPdfiumRasterizer()
	require.NoError(t, err)
	defer r.Close()
	// 1 px per point.
	img, err := r.Rasterize(context.Background(), render.Source{ID: out, Data: data}, 0, 612, 792)
	require.NoError(t, err)

	minX, minY, maxX, maxY := img.Bounds().Max.X, img.Bounds().Max.Y, -1, -1
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.RGBAAt(x, y)
			if c.A < 128 || !colorutil.IsDark(colorutil.Luminance(float64(c.R), float64(c.G), float64(c.B))) {
				continue
			}
			minX, minY = min(minX, x), min(minY, y)
			maxX, maxY = max(maxX, x), max(maxY, y)
		}
	}
	require.GreaterOrEqual(t, maxX, 0, "no stamp drawn")
	// 0.3 in of a 2:1 asset anchored at (36, 36) covers (36, 36)-(57.6, 46.8).
	assert.InDelta(t, 36, minX, 1.5)
	assert.InDelta(t, 36, minY, 1.5)
	assert.InDelta(t, 57.6, maxX+1, 1.5)
	assert.InDelta(t, 46.8, maxY+1, 1.5)
}
