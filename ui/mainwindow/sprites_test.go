package mainwindow

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"union-bug-placer/internal/app"
	"union-bug-placer/internal/asset"
	"union-bug-placer/internal/overlay"
	"union-bug-placer/pkg/geometry"
	"union-bug-placer/ui/canvas"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedSource blocks rasterizing path "slow" until release is closed or
// the context ends.
type gatedSource struct {
	release chan struct{}
}

func (g *gatedSource) Get(ctx context.Context, path string, w, h int) (*image.RGBA, error) {
	if path == "slow" {
		select {
		case <-g.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if path == "broken" {
		return nil, errors.New("broken asset")
	}
	return image.NewRGBA(image.Rect(0, 0, w, h)), nil
}

func preview(kind overlay.Kind, path string) app.Preview {
	return app.Preview{
		Kind:    kind,
		Variant: overlay.VariantDark,
		Asset:   &asset.Asset{Path: path},
		Rect:    geometry.NewRect(10, 20, 30, 15),
	}
}

type deliveries struct {
	mu  sync.Mutex
	got [][]canvas.Sprite
}

func (d *deliveries) add(s []canvas.Sprite) {
	d.mu.Lock()
	d.got = append(d.got, s)
	d.mu.Unlock()
}

func TestSpriteLoaderDeliversInBackground(t *testing.T) {
	var d deliveries
	l := newSpriteLoader(&gatedSource{}, time.Second, d.add)

	l.Load([]app.Preview{preview(overlay.KindBug, "bug"), preview(overlay.KindIndicia, "broken")}, overlay.KindBug)
	l.Wait()

	require.Len(t, d.got, 1)
	sprites := d.got[0]
	require.Len(t, sprites, 1, "failed asset skipped")
	assert.True(t, sprites[0].Outline)
	assert.Equal(t, image.Rect(0, 0, 30, 15), sprites[0].Image.Bounds())
	assert.Equal(t, canvas.ModeFor(overlay.VariantDark), sprites[0].Mode)
}

func TestSpriteLoaderDropsSupersededLoad(t *testing.T) {
	var d deliveries
	src := &gatedSource{release: make(chan struct{})}
	l := newSpriteLoader(src, time.Second, d.add)

	l.Load([]app.Preview{preview(overlay.KindBug, "slow")}, overlay.KindBug)
	l.Load([]app.Preview{preview(overlay.KindIndicia, "fast")}, overlay.KindBug)
	close(src.release)
	l.Wait()

	require.Len(t, d.got, 1)
	require.Len(t, d.got[0], 1)
	assert.False(t, d.got[0][0].Outline)
}

func TestSpriteLoaderDoesNotBlockCaller(t *testing.T) {
	var d deliveries
	src := &gatedSource{release: make(chan struct{})}
	l := newSpriteLoader(src, time.Second, d.add)

	done := make(chan struct{})
	go func() {
		l.Load([]app.Preview{preview(overlay.KindBug, "slow")}, overlay.KindBug)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Load blocked on rasterization")
	}
	close(src.release)
	l.Wait()
	assert.Len(t, d.got, 1)
}
