package mainwindow

import (
	"context"
	"image"
	"sync"
	"time"

	"union-bug-placer/internal/app"
	"union-bug-placer/internal/logging"
	"union-bug-placer/internal/overlay"
	"union-bug-placer/ui/canvas"
)

// spriteSource rasterizes overlay assets at a pixel size.
type spriteSource interface {
	Get(ctx context.Context, path string, width, height int) (*image.RGBA, error)
}

// spriteLoader rasterizes overlay previews off the UI goroutine. Each load
// supersedes the previous one; a superseded load is cancelled and its result
// dropped, so deliver only ever sees the newest sprites.
type spriteLoader struct {
	source  spriteSource
	timeout time.Duration
	deliver func([]canvas.Sprite)

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newSpriteLoader(source spriteSource, timeout time.Duration, deliver func([]canvas.Sprite)) *spriteLoader {
	return &spriteLoader{source: source, timeout: timeout, deliver: deliver}
}

// Load starts rasterizing previews. The preview of target is outlined.
func (l *spriteLoader) Load(previews []app.Preview, target overlay.Kind) {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	l.gen++
	gen := l.gen
	l.cancel = cancel
	l.mu.Unlock()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer cancel()
		sprites := l.rasterize(ctx, previews, target)
		l.mu.Lock()
		defer l.mu.Unlock()
		if gen != l.gen || ctx.Err() == context.Canceled {
			return
		}
		l.deliver(sprites)
	}()
}

func (l *spriteLoader) rasterize(ctx context.Context, previews []app.Preview, target overlay.Kind) []canvas.Sprite {
	var sprites []canvas.Sprite
	for _, p := range previews {
		w, h := p.Rect.Size().Pixels()
		img, err := l.source.Get(ctx, p.Asset.Path, w, h)
		if err != nil {
			if ctx.Err() == nil {
				logging.Logger().Warn("Preview: overlay render failed", "kind", p.Kind, "err", err)
			}
			continue
		}
		sprites = append(sprites, canvas.Sprite{
			Image:   img,
			Rect:    p.Rect,
			Mode:    canvas.ModeFor(p.Variant),
			Outline: p.Kind == target,
		})
	}
	return sprites
}

// Wait blocks until every started load has finished.
func (l *spriteLoader) Wait() {
	l.wg.Wait()
}
