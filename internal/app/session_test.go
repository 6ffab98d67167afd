package app

import (
	"context"
	"image"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"union-bug-placer/internal/asset"
	"union-bug-placer/internal/bake"
	"union-bug-placer/internal/logging"
	"union-bug-placer/internal/overlay"
	"union-bug-placer/internal/pdftest"
	"union-bug-placer/internal/render"
	"union-bug-placer/internal/units"
	"union-bug-placer/pkg/geometry"

	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pageRasterizer fills page i with shades[i].
type pageRasterizer struct {
	shades []uint8
}

func (p *pageRasterizer) Rasterize(ctx context.Context, src render.Source, page, w, h int) (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	v := p.shades[page%len(p.shades)]
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = v, v, v, 255
	}
	return img, nil
}

func (p *pageRasterizer) Forget(string) {}
func (p *pageRasterizer) Close() error  { return nil }

type fixture struct {
	dir     string
	src     string
	session *Session
	store   *asset.Store
}

// newFixture opens a two-page Letter document whose first page rasterizes
// black and second page white, at an 800x600 viewport.
func newFixture(t *testing.T, assetFiles ...string) *fixture {
	t.Helper()
	dir := t.TempDir()
	src := pdftest.WriteFile(t, dir, "flyer.pdf", pdftest.Letter, pdftest.Letter)

	assets := filepath.Join(dir, "assets")
	require.NoError(t, os.Mkdir(assets, 0o755))
	if assetFiles == nil {
		assetFiles = []string{asset.BugDarkFile, asset.BugLightFile, asset.IndiciaFile}
	}
	pdftest.WriteAssets(t, assets, 60, 30, assetFiles...)
	store := asset.NewStore(assets)

	s := NewSession(DefaultConfig(), render.NewPipeline(&pageRasterizer{shades: []uint8{0, 255}}), store)
	t.Cleanup(s.Close)
	require.NoError(t, s.OpenDocument(src))
	s.SetViewport(geometry.NewSize(800, 600))
	require.NoError(t, s.RenderNow(context.Background()))
	return &fixture{dir: dir, src: src, session: s, store: store}
}

func TestClickScenario(t *testing.T) {
	f := newFixture(t)
	s := f.session

	r := s.Render()
	require.NotNil(t, r)
	assert.InDelta(t, 0.631, r.BaseScale, 0.001)

	require.NoError(t, s.Click(geometry.NewPoint2D(306, 250)))
	pl, ok := s.Placement(overlay.KindBug)
	require.True(t, ok)
	assert.InDelta(t, 484.9, pl.Anchor.X, 0.25)
	assert.InDelta(t, 396.2, pl.Anchor.Y, 0.25)
	assert.Equal(t, 0, pl.Page)
	assert.Equal(t, overlay.StatePlaced, s.State(overlay.KindBug))
}

func TestClickOutsideIsIgnored(t *testing.T) {
	f := newFixture(t)
	err := f.session.Click(geometry.NewPoint2D(700, 10))
	assert.ErrorIs(t, err, ErrOutsidePage)
	assert.Equal(t, overlay.StateInactive, f.session.State(overlay.KindBug))

	empty := NewSession(DefaultConfig(), render.NewPipeline(&pageRasterizer{shades: []uint8{255}}), f.store)
	defer empty.Close()
	assert.ErrorIs(t, empty.Click(geometry.NewPoint2D(1, 1)), ErrNoDocument)
}

func TestZoomKeepsAnchor(t *testing.T) {
	f := newFixture(t)
	s := f.session
	require.NoError(t, s.Click(geometry.NewPoint2D(100, 120)))
	before, _ := s.Placement(overlay.KindBug)
	oldPreview := s.Previews()
	require.Len(t, oldPreview, 1)
	oldScale := s.Render().DisplayScale()

	assert.Equal(t, 2.5, s.SetZoom(2.5))
	require.NoError(t, s.RenderNow(context.Background()))

	after, _ := s.Placement(overlay.KindBug)
	assert.Equal(t, before.Anchor, after.Anchor)

	newScale := s.Render().DisplayScale()
	newPreview := s.Previews()
	require.Len(t, newPreview, 1)
	ratio := newScale / oldScale
	assert.InDelta(t, oldPreview[0].Rect.X*ratio, newPreview[0].Rect.X, 1e-9)
	assert.InDelta(t, oldPreview[0].Rect.Y*ratio, newPreview[0].Rect.Y, 1e-9)

	assert.Equal(t, 3.0, s.SetZoom(10))
	assert.Equal(t, 0.5, s.SetZoom(0.1))
}

func TestContrastSelectsVariant(t *testing.T) {
	f := newFixture(t)
	s := f.session

	require.NoError(t, s.Click(geometry.NewPoint2D(100, 100)))
	pl, _ := s.Placement(overlay.KindBug)
	assert.Equal(t, overlay.VariantLight, pl.Variant, "black page")

	require.NoError(t, s.NextPage())
	require.NoError(t, s.RenderNow(context.Background()))
	require.NoError(t, s.Click(geometry.NewPoint2D(100, 100)))
	pl, _ = s.Placement(overlay.KindBug)
	assert.Equal(t, overlay.VariantDark, pl.Variant, "white page")

	s.SetTarget(overlay.KindIndicia)
	require.NoError(t, s.Click(geometry.NewPoint2D(50, 50)))
	pl, _ = s.Placement(overlay.KindIndicia)
	assert.Equal(t, overlay.VariantFixed, pl.Variant)
}

func TestVariantDeferredUntilRender(t *testing.T) {
	f := newFixture(t)
	s := f.session

	require.NoError(t, s.NextPage())
	require.NoError(t, s.RenderNow(context.Background()))
	require.NoError(t, s.PrevPage())

	// The black first page is not rendered yet: the variant is chosen by
	// the next render.
	require.NoError(t, s.SetManualPosition(overlay.KindBug, "1", "1"))
	require.NoError(t, s.RenderNow(context.Background()))
	pl, ok := s.Placement(overlay.KindBug)
	require.True(t, ok)
	assert.Equal(t, overlay.VariantLight, pl.Variant)
}

func TestManualPosition(t *testing.T) {
	f := newFixture(t)
	s := f.session

	require.NoError(t, s.SetManualPosition(overlay.KindBug, "0.5", " 1.25in "))
	pl, ok := s.Placement(overlay.KindBug)
	require.True(t, ok)
	assert.Equal(t, geometry.NewPoint2D(36, 90), pl.Anchor)

	err := s.SetManualPosition(overlay.KindBug, "abc", "1")
	assert.ErrorIs(t, err, units.ErrInvalidNumber)
	err = s.SetManualPosition(overlay.KindBug, "1", "")
	assert.ErrorIs(t, err, units.ErrInvalidNumber)
	pl, _ = s.Placement(overlay.KindBug)
	assert.Equal(t, geometry.NewPoint2D(36, 90), pl.Anchor, "unchanged")
}

func TestSetWidth(t *testing.T) {
	f := newFixture(t)
	s := f.session
	require.NoError(t, s.SetManualPosition(overlay.KindBug, "1", "1"))

	require.NoError(t, s.SetWidth(overlay.KindBug, 0.5))
	first, _ := s.Placement(overlay.KindBug)
	require.NoError(t, s.SetWidth(overlay.KindBug, 0.5))
	second, _ := s.Placement(overlay.KindBug)
	assert.Equal(t, first, second)

	assert.ErrorIs(t, s.SetWidth(overlay.KindBug, 0), overlay.ErrInvalidWidth)
	assert.ErrorIs(t, s.SetWidth(overlay.KindBug, -1), overlay.ErrInvalidWidth)
	assert.Equal(t, 0.5, s.Width(overlay.KindBug))
}

func TestAnchorsPreservedAcrossPages(t *testing.T) {
	f := newFixture(t)
	s := f.session
	require.NoError(t, s.Click(geometry.NewPoint2D(100, 100)))

	require.NoError(t, s.NextPage())
	require.NoError(t, s.RenderNow(context.Background()))
	assert.Empty(t, s.Previews(), "hidden on other pages")
	_, ok := s.Placement(overlay.KindBug)
	assert.False(t, ok)

	require.NoError(t, s.PrevPage())
	require.NoError(t, s.RenderNow(context.Background()))
	assert.Len(t, s.Previews(), 1)

	assert.ErrorIs(t, s.PrevPage(), ErrPageRange)
	require.NoError(t, s.GoToPage(1))
	assert.ErrorIs(t, s.NextPage(), ErrPageRange)
	assert.Equal(t, "Page 2 of 2", s.PageLabel())
}

func TestDisabledOverlayIsHiddenAndSkipped(t *testing.T) {
	f := newFixture(t)
	s := f.session
	require.NoError(t, s.Click(geometry.NewPoint2D(100, 100)))
	s.SetActive(overlay.KindBug, false)
	assert.Empty(t, s.Previews())
	assert.Empty(t, s.Placements())

	s.SetActive(overlay.KindBug, true)
	assert.Len(t, s.Placements(), 1)
}

func TestClearing(t *testing.T) {
	f := newFixture(t)
	s := f.session
	require.NoError(t, s.Click(geometry.NewPoint2D(100, 100)))
	s.SetTarget(overlay.KindIndicia)
	require.NoError(t, s.Click(geometry.NewPoint2D(150, 100)))
	assert.Len(t, s.Placements(), 2)

	s.ClearPage(overlay.KindIndicia)
	assert.Len(t, s.Placements(), 1)
	s.ClearAll()
	assert.Empty(t, s.Placements())
	assert.Equal(t, overlay.StateInactive, s.State(overlay.KindBug))
}

func TestCenterAndDefaultPlacement(t *testing.T) {
	f := newFixture(t)
	s := f.session

	assert.ErrorIs(t, s.CenterHorizontally(overlay.KindBug), ErrNotPlaced)

	require.NoError(t, s.PlaceDefault(overlay.KindBug))
	pl, _ := s.Placement(overlay.KindBug)
	// 0.3 in = 21.6 pt wide, 10.8 pt tall for a 2:1 asset.
	assert.InDelta(t, 612-21.6-9, pl.Anchor.X, 1e-9)
	assert.InDelta(t, 792-10.8-9, pl.Anchor.Y, 1e-9)

	require.NoError(t, s.CenterHorizontally(overlay.KindBug))
	pl, _ = s.Placement(overlay.KindBug)
	assert.InDelta(t, (612-21.6)/2, pl.Anchor.X, 1e-9)
	assert.InDelta(t, 792-10.8-9, pl.Anchor.Y, 1e-9)
}

func TestDefaultPlacementStaysInsideTrim(t *testing.T) {
	f := newFixture(t)
	s := f.session
	bleed := pdftest.WriteFile(t, f.dir, "bleed.pdf", pdftest.Page{Width: 630, Height: 810, Gray: 1, Bleed: 9})
	require.NoError(t, s.OpenDocument(bleed))

	require.NoError(t, s.PlaceDefault(overlay.KindBug))
	pl, _ := s.Placement(overlay.KindBug)
	assert.InDelta(t, 621-21.6-9, pl.Anchor.X, 1e-9)
	assert.InDelta(t, 801-10.8-9, pl.Anchor.Y, 1e-9)

	require.NoError(t, s.CenterHorizontally(overlay.KindBug))
	pl, _ = s.Placement(overlay.KindBug)
	assert.InDelta(t, 9+(612-21.6)/2, pl.Anchor.X, 1e-9)
}

func TestGridToggle(t *testing.T) {
	f := newFixture(t)
	var got []interface{}
	f.session.On(EventGridChanged, func(data interface{}) { got = append(got, data) })
	f.session.SetGrid(true)
	f.session.SetGrid(false)
	assert.Equal(t, []interface{}{true, false}, got)
	assert.False(t, f.session.Grid())
}

func TestSavePreconditions(t *testing.T) {
	f := newFixture(t)
	s := f.session
	out := filepath.Join(f.dir, "out.pdf")

	_, err := s.Save(context.Background(), out)
	assert.ErrorIs(t, err, bake.ErrNothingToSave)
	assert.NoFileExists(t, out)

	// Enabled without an anchor is still nothing to save.
	s.SetActive(overlay.KindIndicia, true)
	_, err = s.Save(context.Background(), out)
	assert.ErrorIs(t, err, bake.ErrNothingToSave)

	require.NoError(t, s.Click(geometry.NewPoint2D(100, 100)))
	before, err := os.ReadFile(f.src)
	require.NoError(t, err)
	_, err = s.Save(context.Background(), f.src)
	assert.ErrorIs(t, err, bake.ErrSameOutputPath)
	after, err := os.ReadFile(f.src)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSaveWritesOutput(t *testing.T) {
	f := newFixture(t)
	s := f.session
	require.NoError(t, s.Click(geometry.NewPoint2D(100, 100)))

	var saved string
	s.On(EventSaved, func(data interface{}) { saved = data.(string) })

	out := s.SuggestedOutput()
	assert.Equal(t, filepath.Join(f.dir, "flyer_bug.pdf"), out)
	path, err := s.Save(context.Background(), out)
	require.NoError(t, err)
	assert.Equal(t, out, path)
	assert.Equal(t, out, saved)
	assert.FileExists(t, out)
}

// pick mimics the save dialog: it creates the chosen file through the fyne
// storage layer, truncating it, and returns its path.
func pick(t *testing.T, path string) string {
	t.Helper()
	w, err := storage.Writer(storage.NewFileURI(path))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return w.URI().Path()
}

func TestCanSave(t *testing.T) {
	s := NewSession(DefaultConfig(), render.NewPipeline(&pageRasterizer{shades: []uint8{255}}), asset.NewStore(t.TempDir()))
	t.Cleanup(s.Close)
	assert.ErrorIs(t, s.CanSave(), ErrNoDocument)

	f := newFixture(t)
	assert.ErrorIs(t, f.session.CanSave(), bake.ErrNothingToSave)
	require.NoError(t, f.session.Click(geometry.NewPoint2D(100, 100)))
	assert.NoError(t, f.session.CanSave())
}

func TestSaveCreatedRestoresPickedSource(t *testing.T) {
	test.NewTempApp(t)
	f := newFixture(t)
	s := f.session
	require.NoError(t, s.Click(geometry.NewPoint2D(100, 100)))
	before, err := os.ReadFile(f.src)
	require.NoError(t, err)

	created := pick(t, f.src)
	truncated, err := os.ReadFile(f.src)
	require.NoError(t, err)
	require.Empty(t, truncated)

	_, err = s.SaveCreated(context.Background(), created, created)
	assert.ErrorIs(t, err, bake.ErrSameOutputPath)
	after, err := os.ReadFile(f.src)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSaveCreatedRemovesEmptyFileOnFailure(t *testing.T) {
	test.NewTempApp(t)
	f := newFixture(t, asset.IndiciaFile)
	s := f.session
	require.NoError(t, s.Click(geometry.NewPoint2D(100, 100)))

	// Missing bug assets make the bake fail after the picker created the file.
	created := pick(t, filepath.Join(f.dir, "out.pdf"))
	require.FileExists(t, created)
	_, err := s.SaveCreated(context.Background(), created, created)
	assert.ErrorIs(t, err, asset.ErrAssetUnavailable)
	assert.NoFileExists(t, created)
}

func TestSaveCreatedWithAddedExtension(t *testing.T) {
	test.NewTempApp(t)
	f := newFixture(t)
	s := f.session
	require.NoError(t, s.Click(geometry.NewPoint2D(100, 100)))

	created := pick(t, filepath.Join(f.dir, "out"))
	path, err := s.SaveCreated(context.Background(), created, created+".pdf")
	require.NoError(t, err)
	assert.Equal(t, created+".pdf", path)
	assert.FileExists(t, path)
	assert.NoFileExists(t, created)
}

func TestMissingAssetReportedOnce(t *testing.T) {
	h := logging.NewBufferedLogHandler(nil)
	logging.SetLogger(slog.New(h))
	t.Cleanup(func() { logging.SetLogger(nil) })

	f := newFixture(t, asset.BugDarkFile, asset.IndiciaFile)
	s := f.session

	// Black page selects the light variant, which is missing.
	require.NoError(t, s.Click(geometry.NewPoint2D(100, 100)))
	for i := 0; i < 3; i++ {
		assert.Empty(t, s.Previews())
	}
	require.NoError(t, s.Click(geometry.NewPoint2D(120, 100)))
	assert.Empty(t, s.Previews())
	assert.Equal(t, 1, h.Count("Asset: unavailable"))

	_, err := s.Save(context.Background(), filepath.Join(f.dir, "out.pdf"))
	assert.ErrorIs(t, err, asset.ErrAssetUnavailable)
}

func TestOpenFailureKeepsDocument(t *testing.T) {
	f := newFixture(t)
	s := f.session
	require.NoError(t, s.Click(geometry.NewPoint2D(100, 100)))

	err := s.OpenDocument(filepath.Join(f.dir, "missing.pdf"))
	assert.Error(t, err)
	require.NotNil(t, s.Document())
	assert.Equal(t, f.src, s.Document().Path)
	assert.Len(t, s.Placements(), 1)

	s.CloseDocument()
	assert.Nil(t, s.Document())
	assert.Empty(t, s.Placements())
	assert.Equal(t, "", s.PageLabel())
}

func TestBackgroundRenderDelivered(t *testing.T) {
	f := newFixture(t)
	s := f.session

	var once sync.Once
	rendered := make(chan float64, 1)
	s.On(EventRendered, func(data interface{}) {
		if r := data.(*render.Render); r.Zoom == 1.5 {
			once.Do(func() { rendered <- r.Zoom })
		}
	})
	s.SetZoom(1.5)

	select {
	case z := <-rendered:
		assert.Equal(t, 1.5, z)
	case <-time.After(5 * time.Second):
		t.Fatal("render not delivered")
	}
	assert.Equal(t, 1.5, s.Render().Zoom)
}

func TestReloadAfterChangeOnDisk(t *testing.T) {
	f := newFixture(t)
	s := f.session
	require.NoError(t, s.NextPage())
	require.NoError(t, s.RenderNow(context.Background()))
	require.NoError(t, s.Click(geometry.NewPoint2D(100, 100)))

	pdftest.WriteFile(t, f.dir, "flyer.pdf", pdftest.Letter)
	require.NoError(t, s.Reload())
	assert.Equal(t, 1, s.Document().NumPages())
	assert.Equal(t, 0, s.Page())
	assert.Empty(t, s.Placements(), "placement on the removed page is dropped")
}

func TestColorOfBlackPage(t *testing.T) {
	f := newFixture(t)
	r := f.session.Render()
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, r.Image.RGBAAt(10, 10))
}
