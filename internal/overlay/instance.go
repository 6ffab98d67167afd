package overlay

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"union-bug-placer/internal/units"
	"union-bug-placer/pkg/geometry"
)

// ErrInvalidWidth is returned by Resize for a width that is not positive.
var ErrInvalidWidth = errors.New("overlay width must be greater than zero")

// State is the placement state of an Instance.
type State int

const (
	StateInactive State = iota
	StatePlaced
)

func (s State) String() string {
	if s == StatePlaced {
		return "placed"
	}
	return "inactive"
}

// Placement is the anchor of an overlay on one page.
type Placement struct {
	Kind    Kind
	Page    int              // zero-based page index
	Anchor  geometry.Point2D // top-left corner in document points
	WidthIn float64
	Variant Variant
}

// Rect returns the document-space rectangle covered by the placement for an
// asset of the given native size.
func (p Placement) Rect(asset geometry.Size) geometry.Rect {
	return Rect(p.Anchor, p.WidthIn, asset)
}

// Rect returns the rectangle of an overlay anchored at its top-left corner
// and scaled to widthIn inches, preserving the asset aspect ratio.
func Rect(anchor geometry.Point2D, widthIn float64, asset geometry.Size) geometry.Rect {
	w := units.InchesToPoints(widthIn)
	h := 0.0
	if asset.Width > 0 {
		h = asset.Height * (w / asset.Width)
	}
	return geometry.Rect{X: anchor.X, Y: anchor.Y, Width: w, Height: h}
}

// DefaultAnchor returns the anchor that puts an overlay of size in the
// bottom-right corner of the trim box, inset by margin points.
func DefaultAnchor(trim geometry.Rect, size geometry.Size, margin float64) geometry.Point2D {
	br := trim.BottomRight()
	return geometry.Point2D{
		X: br.X - size.Width - margin,
		Y: br.Y - size.Height - margin,
	}
}

// CenteredX returns the anchor x that centers an overlay of width w on a page.
func CenteredX(pageWidth, w float64) float64 {
	return (pageWidth - w) / 2
}

// Instance is the placement state of one overlay kind. Anchors are kept per
// page: placing on one page never moves or removes the anchor on another.
// Instance is not safe for concurrent use; the session owns it.
type Instance struct {
	spec       Spec
	active     bool
	widthIn    float64
	placements map[int]Placement
	current    int // page of the most recent placement, -1 if none
}

// NewInstance returns an inactive instance using spec's default width.
func NewInstance(spec Spec) *Instance {
	return &Instance{
		spec:       spec,
		widthIn:    spec.DefaultWidth,
		placements: make(map[int]Placement),
		current:    -1,
	}
}

func (in *Instance) Kind() Kind     { return in.spec.Kind }
func (in *Instance) Spec() Spec     { return in.spec }
func (in *Instance) Policy() Policy { return in.spec.Policy }
func (in *Instance) Active() bool   { return in.active }
func (in *Instance) Width() float64 { return in.widthIn }

// State reports Placed when the instance is active and has an anchor.
func (in *Instance) State() State {
	if in.active && len(in.placements) > 0 {
		return StatePlaced
	}
	return StateInactive
}

// Place anchors the overlay on page at p and activates it. p is not clamped
// to the page.
func (in *Instance) Place(p geometry.Point2D, page int) {
	prev, ok := in.placements[page]
	v := VariantFixed
	if ok {
		v = prev.Variant
	}
	in.placements[page] = Placement{Kind: in.spec.Kind, Page: page, Anchor: p, WidthIn: in.widthIn, Variant: v}
	in.current = page
	in.active = true
}

// SetVariant records the asset variant chosen for the anchor on page.
func (in *Instance) SetVariant(page int, v Variant) {
	if pl, ok := in.placements[page]; ok {
		pl.Variant = v
		in.placements[page] = pl
	}
}

// SelectVariant runs the kind's policy for the anchor on page and stores the
// result. The variant is stored even when sampling fails.
func (in *Instance) SelectVariant(page int, sample LuminanceFunc) (Variant, error) {
	v, err := in.spec.Policy.Select(sample)
	in.SetVariant(page, v)
	return v, err
}

// Resize sets the overlay width in inches. Anchors do not move: the overlay
// grows and shrinks from its top-left corner.
func (in *Instance) Resize(widthIn float64) error {
	if !(widthIn > 0) || math.IsInf(widthIn, 0) {
		return fmt.Errorf("%s: %g: %w", in.spec.Kind, widthIn, ErrInvalidWidth)
	}
	in.widthIn = widthIn
	for page, pl := range in.placements {
		pl.WidthIn = widthIn
		in.placements[page] = pl
	}
	return nil
}

// Clear removes every anchor and deactivates the instance.
func (in *Instance) Clear() {
	in.placements = make(map[int]Placement)
	in.current = -1
	in.active = false
}

// ClearPage removes the anchor on page. The instance is deactivated when no
// anchors remain.
func (in *Instance) ClearPage(page int) {
	delete(in.placements, page)
	if in.current == page {
		in.current = -1
		for p := range in.placements {
			if in.current < 0 || p < in.current {
				in.current = p
			}
		}
	}
	if len(in.placements) == 0 {
		in.active = false
	}
}

// SetActive toggles the instance. Enabling without an anchor is allowed; such
// an instance is skipped when baking.
func (in *Instance) SetActive(active bool) {
	in.active = active
}

// Anchor returns the anchor on page.
func (in *Instance) Anchor(page int) (geometry.Point2D, bool) {
	pl, ok := in.placements[page]
	return pl.Anchor, ok
}

// Placement returns the full placement on page.
func (in *Instance) Placement(page int) (Placement, bool) {
	pl, ok := in.placements[page]
	return pl, ok
}

// Current returns the most recently placed anchor and its page.
func (in *Instance) Current() (Placement, bool) {
	if in.current < 0 {
		return Placement{}, false
	}
	pl, ok := in.placements[in.current]
	return pl, ok
}

// Visible reports whether the overlay preview is drawn on page.
func (in *Instance) Visible(page int) bool {
	_, ok := in.placements[page]
	return in.active && ok
}

// Placements returns every anchor ordered by page.
func (in *Instance) Placements() []Placement {
	out := make([]Placement, 0, len(in.placements))
	for _, pl := range in.placements {
		out = append(out, pl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Page < out[j].Page })
	return out
}

// Bakeable returns the placements that should be written to the output:
// none when the instance is inactive.
func (in *Instance) Bakeable() []Placement {
	if !in.active {
		return nil
	}
	return in.Placements()
}
