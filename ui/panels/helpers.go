package panels

import (
	"fmt"

	"union-bug-placer/internal/overlay"
)

// placementStatus describes an overlay for the panel status line. pl is the
// placement on the current page, if any.
func placementStatus(state overlay.State, pl *overlay.Placement) string {
	if pl == nil {
		if state == overlay.StatePlaced {
			return "Placed on other pages"
		}
		return "Not placed"
	}
	s := fmt.Sprintf("Placed, %.2f in wide", pl.WidthIn)
	if pl.Variant != overlay.VariantFixed {
		s += fmt.Sprintf(" (%s)", pl.Variant)
	}
	return s
}
