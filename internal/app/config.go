package app

import (
	"time"

	"union-bug-placer/internal/contrast"
	"union-bug-placer/internal/overlay"
	"union-bug-placer/internal/render"
)

// Config holds the session tunables. Nothing here is persisted.
type Config struct {
	// Page fit
	MarginFraction float64
	MinMargin      float64 // pixels per side
	MaxScale       float64

	// Zoom
	MinZoom float64
	MaxZoom float64

	// Viewport resizes are coalesced for this long before re-rendering.
	ResizeDebounce time.Duration

	// Contrast
	ContrastBox         int     // pixels
	ContrastSampleScale float64 // render scale for headless sampling

	// Overlay widths, inches
	DefaultBugWidth     float64
	MinBugWidth         float64
	MaxBugWidth         float64
	DefaultIndiciaWidth float64
	MinIndiciaWidth     float64
	MaxIndiciaWidth     float64

	GridSpacing float64 // inches
	SafeMargin  float64 // points, inset of the default placement

	AssetDir string // "" resolves next to the executable
}

// DefaultConfig returns the standard configuration.
func DefaultConfig() Config {
	return Config{
		MarginFraction:      0.05,
		MinMargin:           50,
		MaxScale:            2.0,
		MinZoom:             render.MinZoom,
		MaxZoom:             render.MaxZoom,
		ResizeDebounce:      300 * time.Millisecond,
		ContrastBox:         contrast.DefaultBox,
		ContrastSampleScale: 300.0 / 72.0,
		DefaultBugWidth:     0.3,
		MinBugWidth:         0.1,
		MaxBugWidth:         2.0,
		DefaultIndiciaWidth: 1.0,
		MinIndiciaWidth:     0.25,
		MaxIndiciaWidth:     4.0,
		GridSpacing:         0.25,
		SafeMargin:          9,
	}
}

// Fit returns the page fit parameters.
func (c Config) Fit() render.Fit {
	return render.Fit{MarginFraction: c.MarginFraction, MinMargin: c.MinMargin, MaxScale: c.MaxScale}
}

// Spec returns the overlay spec for kind with the configured widths.
func (c Config) Spec(kind overlay.Kind) overlay.Spec {
	s := overlay.SpecFor(kind)
	switch kind {
	case overlay.KindBug:
		s.DefaultWidth, s.MinWidth, s.MaxWidth = c.DefaultBugWidth, c.MinBugWidth, c.MaxBugWidth
	case overlay.KindIndicia:
		s.DefaultWidth, s.MinWidth, s.MaxWidth = c.DefaultIndiciaWidth, c.MinIndiciaWidth, c.MaxIndiciaWidth
	}
	return s
}

// Sampler returns the contrast sampler for the configured box.
func (c Config) Sampler() contrast.Sampler {
	return contrast.Sampler{Box: c.ContrastBox}
}
