package panels

import (
	"fmt"

	"union-bug-placer/internal/app"
	"union-bug-placer/internal/overlay"
	"union-bug-placer/internal/units"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// OverlayPanel holds the controls of one overlay kind.
type OverlayPanel struct {
	session   *app.Session
	kind      overlay.Kind
	container fyne.CanvasObject
	onError   func(err error)

	enableCheck *widget.Check
	widthSlider *widget.Slider
	widthLabel  *widget.Label
	xEntry      *widget.Entry
	yEntry      *widget.Entry
	statusLabel *widget.Label

	// set while controls are updated from the session
	syncing bool
}

// NewOverlayPanel creates the controls for kind.
func NewOverlayPanel(session *app.Session, kind overlay.Kind) *OverlayPanel {
	op := &OverlayPanel{session: session, kind: kind}
	spec := session.Config().Spec(kind)

	op.enableCheck = widget.NewCheck("Enabled", func(checked bool) {
		if op.syncing {
			return
		}
		session.SetActive(kind, checked)
	})

	op.widthLabel = widget.NewLabel("")
	op.widthSlider = widget.NewSlider(spec.MinWidth, spec.MaxWidth)
	op.widthSlider.Step = 0.01
	op.widthSlider.OnChanged = func(val float64) {
		op.widthLabel.SetText(fmt.Sprintf("Width: %s in", units.FormatSize(val)))
		if op.syncing {
			return
		}
		op.report(session.SetWidth(kind, val))
	}

	op.xEntry = widget.NewEntry()
	op.xEntry.SetPlaceHolder("X (in)")
	op.yEntry = widget.NewEntry()
	op.yEntry.SetPlaceHolder("Y (in)")
	op.xEntry.OnSubmitted = func(string) { op.applyPosition() }
	op.yEntry.OnSubmitted = func(string) { op.applyPosition() }
	applyBtn := widget.NewButton("Apply", op.applyPosition)

	centerBtn := widget.NewButton("Center", func() {
		op.report(session.CenterHorizontally(kind))
	})
	defaultBtn := widget.NewButton("Default", func() {
		op.report(session.PlaceDefault(kind))
	})
	clearPageBtn := widget.NewButton("Clear Page", func() {
		session.ClearPage(kind)
	})
	clearBtn := widget.NewButton("Clear All", func() {
		session.Clear(kind)
	})

	op.statusLabel = widget.NewLabel("")

	op.container = widget.NewCard(kind.Label(), "", container.NewVBox(
		op.enableCheck,
		op.widthLabel,
		op.widthSlider,
		container.NewGridWithColumns(3, op.xEntry, op.yEntry, applyBtn),
		container.NewGridWithColumns(2, centerBtn, defaultBtn),
		container.NewGridWithColumns(2, clearPageBtn, clearBtn),
		op.statusLabel,
	))

	op.Sync()
	return op
}

// Container returns the panel container.
func (op *OverlayPanel) Container() fyne.CanvasObject {
	return op.container
}

// SetOnError sets the callback for rejected edits.
func (op *OverlayPanel) SetOnError(fn func(err error)) {
	op.onError = fn
}

// Sync updates the controls from the session.
func (op *OverlayPanel) Sync() {
	op.syncing = true
	defer func() { op.syncing = false }()

	op.enableCheck.SetChecked(op.session.Active(op.kind))
	op.widthSlider.SetValue(op.session.Width(op.kind))
	op.widthLabel.SetText(fmt.Sprintf("Width: %s in", units.FormatSize(op.session.Width(op.kind))))

	pl, ok := op.session.Placement(op.kind)
	if !ok {
		op.xEntry.SetText("")
		op.yEntry.SetText("")
		op.statusLabel.SetText(placementStatus(op.session.State(op.kind), nil))
		return
	}
	in := units.PointToInches(pl.Anchor)
	op.xEntry.SetText(units.FormatCoord(in.X))
	op.yEntry.SetText(units.FormatCoord(in.Y))
	op.statusLabel.SetText(placementStatus(op.session.State(op.kind), &pl))
}

func (op *OverlayPanel) applyPosition() {
	op.report(op.session.SetManualPosition(op.kind, op.xEntry.Text, op.yEntry.Text))
}

func (op *OverlayPanel) report(err error) {
	if err != nil && op.onError != nil {
		op.onError(err)
	}
}
