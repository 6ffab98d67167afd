package render

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"
)

// maxSprites bounds the sprite cache; it is flushed when full.
const maxSprites = 32

type spriteKey struct {
	path   string
	width  int
	height int
}

// Sprites rasterizes overlay asset PDFs at preview size and caches them.
type Sprites struct {
	rasterizer Rasterizer

	mu    sync.Mutex
	data  map[string][]byte
	cache map[spriteKey]*image.RGBA
}

// NewSprites returns an empty sprite cache backed by r.
func NewSprites(r Rasterizer) *Sprites {
	return &Sprites{
		rasterizer: r,
		data:       make(map[string][]byte),
		cache:      make(map[spriteKey]*image.RGBA),
	}
}

// Get returns page 1 of the PDF at path rendered to width x height pixels.
func (s *Sprites) Get(ctx context.Context, path string, width, height int) (*image.RGBA, error) {
	k := spriteKey{path: path, width: width, height: height}

	s.mu.Lock()
	if img, ok := s.cache[k]; ok {
		s.mu.Unlock()
		return img, nil
	}
	data, ok := s.data[path]
	s.mu.Unlock()

	if !ok {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read sprite: %w", err)
		}
		data = b
	}
	img, err := s.rasterizer.Rasterize(ctx, Source{ID: path, Data: data}, 0, width, height)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[path] = data
	if len(s.cache) >= maxSprites {
		s.cache = make(map[spriteKey]*image.RGBA)
	}
	s.cache[k] = img
	return img, nil
}

// Len returns the number of cached sprites.
func (s *Sprites) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cache)
}
