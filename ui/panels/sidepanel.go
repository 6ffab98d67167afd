// Package panels provides UI panels for the application.
package panels

import (
	"union-bug-placer/internal/app"
	"union-bug-placer/internal/overlay"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// SidePanel holds the placement target, the grid toggle and one panel per
// overlay kind.
type SidePanel struct {
	session   *app.Session
	container fyne.CanvasObject

	targetRadio *widget.RadioGroup
	gridCheck   *widget.Check
	overlays    []*OverlayPanel
	syncing     bool
}

// NewSidePanel creates a new side panel.
func NewSidePanel(session *app.Session) *SidePanel {
	sp := &SidePanel{session: session}

	var labels []string
	for _, k := range overlay.Kinds() {
		labels = append(labels, k.Label())
	}
	sp.targetRadio = widget.NewRadioGroup(labels, func(label string) {
		if sp.syncing {
			return
		}
		for _, k := range overlay.Kinds() {
			if k.Label() == label {
				session.SetTarget(k)
			}
		}
	})
	sp.targetRadio.Required = true

	sp.gridCheck = widget.NewCheck("Show grid", func(checked bool) {
		if sp.syncing {
			return
		}
		session.SetGrid(checked)
	})

	items := []fyne.CanvasObject{
		widget.NewCard("Click places", "", sp.targetRadio),
		sp.gridCheck,
	}
	for _, k := range overlay.Kinds() {
		op := NewOverlayPanel(session, k)
		sp.overlays = append(sp.overlays, op)
		items = append(items, op.Container())
	}
	sp.container = container.NewVScroll(container.NewVBox(items...))

	sp.Sync()
	return sp
}

// Container returns the panel container.
func (sp *SidePanel) Container() fyne.CanvasObject {
	return sp.container
}

// SetOnError sets the callback for rejected edits in any overlay panel.
func (sp *SidePanel) SetOnError(fn func(err error)) {
	for _, op := range sp.overlays {
		op.SetOnError(fn)
	}
}

// Sync updates every control from the session.
func (sp *SidePanel) Sync() {
	sp.syncing = true
	sp.targetRadio.SetSelected(sp.session.Target().Label())
	sp.gridCheck.SetChecked(sp.session.Grid())
	sp.syncing = false

	for _, op := range sp.overlays {
		op.Sync()
	}
}
