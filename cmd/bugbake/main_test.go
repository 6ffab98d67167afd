package main

import (
	"bytes"
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"

	"union-bug-placer/internal/app"
	"union-bug-placer/internal/asset"
	"union-bug-placer/internal/bake"
	"union-bug-placer/internal/pdftest"
	"union-bug-placer/internal/render"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	api.DisableConfigDir()
	os.Exit(m.Run())
}

// blackRasterizer renders every page black.
type blackRasterizer struct {
	closed bool
}

func (b *blackRasterizer) Rasterize(ctx context.Context, src render.Source, page, w, h int) (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	return img, nil
}

func (b *blackRasterizer) Forget(string) {}
func (b *blackRasterizer) Close() error  { b.closed = true; return nil }

func setup(t *testing.T) (dir, src string) {
	t.Helper()
	dir = t.TempDir()
	src = pdftest.WriteFile(t, dir, "flyer.pdf", pdftest.Letter, pdftest.Letter)
	pdftest.WriteAssets(t, dir, 60, 30, asset.BugDarkFile, asset.BugLightFile, asset.IndiciaFile)
	return dir, src
}

func noRasterizer(t *testing.T) func() (render.Rasterizer, error) {
	return func() (render.Rasterizer, error) {
		t.Fatal("rasterizer started for a fixed overlay")
		return nil, nil
	}
}

func TestRunIndiciaDoesNotSample(t *testing.T) {
	dir, src := setup(t)
	var w bytes.Buffer

	out, err := run(context.Background(), options{
		in: src, page: 2, x: 1, y: 1, kind: "indicia", assets: dir,
	}, noRasterizer(t), &w)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "flyer_bug.pdf"), out)
	assert.Contains(t, w.String(), "page 2 at (1.000, 1.000) in, 1.00 in wide, variant fixed")

	n, err := api.PageCountFile(out)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRunBugOnDarkPageUsesLight(t *testing.T) {
	dir, src := setup(t)
	r := &blackRasterizer{}
	var w bytes.Buffer

	_, err := run(context.Background(), options{
		in: src, out: filepath.Join(dir, "out.pdf"), page: 1, x: 0.5, y: 0.5, width: 0.4, kind: "bug", assets: dir,
	}, func() (render.Rasterizer, error) { return r, nil }, &w)
	require.NoError(t, err)

	assert.Contains(t, w.String(), "0.40 in wide, variant light")
	assert.True(t, r.closed)
}

func TestRunCornerPlacement(t *testing.T) {
	dir, src := setup(t)
	var w bytes.Buffer

	_, err := run(context.Background(), options{
		in: src, out: filepath.Join(dir, "out.pdf"), page: 1, kind: "indicia", corner: true, assets: dir,
	}, noRasterizer(t), &w)
	require.NoError(t, err)

	// 72x36 pt indicia, 9 pt in from the bottom-right of a Letter page
	assert.Contains(t, w.String(), "at (7.375, 10.375) in")

	// On a page with 9 pt of bleed the corner is taken from the trim box.
	bleed := pdftest.WriteFile(t, dir, "bleed.pdf", pdftest.Page{Width: 630, Height: 810, Gray: 1, Bleed: 9})
	w.Reset()
	_, err = run(context.Background(), options{
		in: bleed, out: filepath.Join(dir, "bleed_out.pdf"), page: 1, kind: "indicia", corner: true, assets: dir,
	}, noRasterizer(t), &w)
	require.NoError(t, err)
	assert.Contains(t, w.String(), "at (7.500, 10.500) in")
}

func TestRunRejectsBadInput(t *testing.T) {
	dir, src := setup(t)
	ctx := context.Background()
	var w bytes.Buffer

	_, err := run(ctx, options{in: src, page: 3, kind: "bug", assets: dir}, noRasterizer(t), &w)
	assert.True(t, errors.Is(err, app.ErrPageRange), "got %v", err)

	_, err = run(ctx, options{in: src, page: 1, kind: "logo", assets: dir}, noRasterizer(t), &w)
	assert.Error(t, err)

	_, err = run(ctx, options{in: src, out: src, page: 1, kind: "indicia", assets: dir}, noRasterizer(t), &w)
	assert.True(t, errors.Is(err, bake.ErrSameOutputPath), "got %v", err)

	_, err = run(ctx, options{in: src, page: 1, width: -1, kind: "indicia", assets: dir}, noRasterizer(t), &w)
	assert.Error(t, err)
}
