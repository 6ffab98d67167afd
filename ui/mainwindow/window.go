// Package mainwindow provides the main application window.
package mainwindow

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"union-bug-placer/internal/app"
	"union-bug-placer/internal/document"
	"union-bug-placer/internal/logging"
	"union-bug-placer/internal/render"
	"union-bug-placer/internal/units"
	"union-bug-placer/internal/version"
	"union-bug-placer/pkg/geometry"
	"union-bug-placer/ui/canvas"
	"union-bug-placer/ui/panels"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
)

const (
	appTitle = "Union Bug Placer"

	// zoomStep is the zoom factor applied per mouse wheel step.
	zoomStep = 1.1

	spriteTimeout = 30 * time.Second
	saveTimeout   = 2 * time.Minute
)

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app       fyne.App
	session   *app.Session
	canvas    *canvas.PageCanvas
	sidePanel *panels.SidePanel
	statusBar *widget.Label

	pageLabel  *widget.Label
	prevBtn    *widget.Button
	nextBtn    *widget.Button
	zoomSlider *widget.Slider
	zoomLabel  *widget.Label
	saveBtn    *widget.Button

	spriteLoader *spriteLoader

	syncingZoom bool
	lastDir     string
}

// New creates a new main window.
func New(fyneApp fyne.App, session *app.Session, sprites *render.Sprites) *MainWindow {
	win := fyneApp.NewWindow(appTitle)

	mw := &MainWindow{
		Window:  win,
		app:     fyneApp,
		session: session,
	}
	mw.spriteLoader = newSpriteLoader(sprites, spriteTimeout, func(s []canvas.Sprite) {
		mw.canvas.SetSprites(s)
	})

	mw.setupUI()
	mw.setupMenus()
	mw.setupEventHandlers()
	mw.updateNavigation()

	return mw
}

// setupUI creates the main UI layout.
func (mw *MainWindow) setupUI() {
	mw.canvas = canvas.NewPageCanvas()
	mw.canvas.OnClick(mw.onCanvasClick)
	mw.canvas.OnZoomStep(mw.onZoomStep)
	mw.canvas.OnResize(mw.session.SetViewport)

	mw.sidePanel = panels.NewSidePanel(mw.session)
	mw.sidePanel.SetOnError(mw.showError)

	mw.statusBar = widget.NewLabel("Open a PDF to begin")

	toolbar := mw.createToolbar()

	canvasArea := container.NewBorder(
		toolbar,               // top
		nil,                   // bottom
		nil,                   // left
		nil,                   // right
		mw.canvas.Container(), // center
	)

	split := container.NewHSplit(
		mw.sidePanel.Container(),
		canvasArea,
	)
	split.SetOffset(0.25)

	content := container.NewBorder(
		nil,
		container.NewPadded(mw.statusBar),
		nil,
		nil,
		split,
	)

	mw.SetContent(content)
	mw.Resize(fyne.NewSize(1200, 850))
	mw.SetOnDropped(mw.onDropped)
	mw.Canvas().SetOnTypedKey(mw.onTypedKey)
}

// createToolbar creates the file, page and zoom controls.
func (mw *MainWindow) createToolbar() fyne.CanvasObject {
	openBtn := widget.NewButton("Open...", mw.onOpen)
	mw.saveBtn = widget.NewButton("Save...", mw.onSave)
	clearBtn := widget.NewButton("Clear", mw.session.ClearAll)

	mw.prevBtn = widget.NewButton("<", func() { mw.changePage(mw.session.PrevPage) })
	mw.nextBtn = widget.NewButton(">", func() { mw.changePage(mw.session.NextPage) })
	mw.pageLabel = widget.NewLabel("")

	cfg := mw.session.Config()
	mw.zoomLabel = widget.NewLabel("")
	mw.zoomSlider = widget.NewSlider(cfg.MinZoom, cfg.MaxZoom)
	mw.zoomSlider.Step = 0.05
	mw.zoomSlider.OnChanged = func(val float64) {
		mw.zoomLabel.SetText(fmt.Sprintf("%d%%", int(math.Round(val*100))))
		if mw.syncingZoom {
			return
		}
		mw.session.SetZoom(val)
	}
	mw.syncZoom(mw.session.Zoom())

	zoomBox := container.NewBorder(nil, nil, widget.NewLabel("Zoom:"), mw.zoomLabel, mw.zoomSlider)

	return container.NewBorder(nil, nil,
		container.NewHBox(openBtn, mw.saveBtn, clearBtn, widget.NewSeparator(),
			mw.prevBtn, mw.pageLabel, mw.nextBtn, widget.NewSeparator()),
		nil,
		zoomBox,
	)
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Open...", mw.onOpen),
		fyne.NewMenuItem("Save...", mw.onSave),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Close", mw.session.CloseDocument),
	)

	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Zoom In", func() { mw.onZoomStep(1) }),
		fyne.NewMenuItem("Zoom Out", func() { mw.onZoomStep(-1) }),
		fyne.NewMenuItem("Fit Page", func() { mw.session.SetZoom(1) }),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Previous Page", func() { mw.changePage(mw.session.PrevPage) }),
		fyne.NewMenuItem("Next Page", func() { mw.changePage(mw.session.NextPage) }),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Toggle Grid", func() { mw.session.SetGrid(!mw.session.Grid()) }),
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)

	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, viewMenu, helpMenu))
}

// setupEventHandlers registers for session events.
func (mw *MainWindow) setupEventHandlers() {
	mw.session.On(app.EventDocumentLoaded, func(data interface{}) {
		if doc, ok := data.(*document.Document); ok {
			mw.SetTitle(appTitle + " - " + doc.Name())
			mw.updateStatus(fmt.Sprintf("Loaded %s (%d pages)", doc.Name(), doc.NumPages()))
		}
		mw.updateNavigation()
		mw.sidePanel.Sync()
	})

	mw.session.On(app.EventDocumentClosed, func(interface{}) {
		mw.SetTitle(appTitle)
		mw.canvas.Clear()
		mw.updateNavigation()
		mw.sidePanel.Sync()
		mw.updateStatus("Open a PDF to begin")
	})

	mw.session.On(app.EventDocumentChanged, func(data interface{}) {
		path, _ := data.(string)
		dialog.ShowConfirm("Document changed",
			filepath.Base(path)+" was modified on disk. Reload it?",
			func(reload bool) {
				if !reload {
					mw.session.IgnoreChange()
					return
				}
				if err := mw.session.Reload(); err != nil {
					mw.showError(err)
				}
			}, mw.Window)
	})

	mw.session.On(app.EventPageChanged, func(interface{}) {
		mw.updateNavigation()
		mw.sidePanel.Sync()
	})

	mw.session.On(app.EventZoomChanged, func(data interface{}) {
		if z, ok := data.(float64); ok {
			mw.syncZoom(z)
		}
	})

	mw.session.On(app.EventRendered, func(data interface{}) {
		r, ok := data.(*render.Render)
		if !ok {
			return
		}
		mw.canvas.SetPage(r.Image)
		mw.updateGrid()
		mw.updateOverlays()
		mw.sidePanel.Sync()
	})

	mw.session.On(app.EventRenderFailed, func(data interface{}) {
		if err, ok := data.(error); ok {
			mw.updateStatus("Render failed: " + err.Error())
		}
	})

	mw.session.On(app.EventOverlayChanged, func(interface{}) {
		mw.updateOverlays()
		mw.sidePanel.Sync()
	})

	mw.session.On(app.EventGridChanged, func(interface{}) {
		mw.updateGrid()
		mw.sidePanel.Sync()
	})

	mw.session.On(app.EventSaved, func(data interface{}) {
		if path, ok := data.(string); ok {
			mw.updateStatus("Saved " + path)
		}
	})
}

// updateStatus updates the status bar text.
func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

// showError reports err in a dialog. Clicks outside the page are ignored.
func (mw *MainWindow) showError(err error) {
	if err == nil || errors.Is(err, app.ErrOutsidePage) {
		return
	}
	dialog.ShowError(err, mw.Window)
}

func (mw *MainWindow) updateNavigation() {
	mw.pageLabel.SetText(mw.session.PageLabel())
	doc := mw.session.Document()
	if doc == nil {
		mw.prevBtn.Disable()
		mw.nextBtn.Disable()
		mw.saveBtn.Disable()
		return
	}
	mw.saveBtn.Enable()
	if mw.session.Page() > 0 {
		mw.prevBtn.Enable()
	} else {
		mw.prevBtn.Disable()
	}
	if mw.session.Page() < doc.NumPages()-1 {
		mw.nextBtn.Enable()
	} else {
		mw.nextBtn.Disable()
	}
}

func (mw *MainWindow) syncZoom(z float64) {
	mw.syncingZoom = true
	mw.zoomSlider.SetValue(z)
	mw.zoomLabel.SetText(fmt.Sprintf("%d%%", int(math.Round(z*100))))
	mw.syncingZoom = false
}

// updateGrid draws the grid at the configured spacing for the current
// render.
func (mw *MainWindow) updateGrid() {
	r := mw.session.Render()
	if r == nil {
		mw.canvas.SetGrid(false, 0)
		return
	}
	spacing := units.InchesToPoints(mw.session.Config().GridSpacing) * r.DisplayScale()
	mw.canvas.SetGrid(mw.session.Grid(), spacing)
}

// updateOverlays rasterizes the visible overlays at their display size in
// the background. The target overlay is outlined.
func (mw *MainWindow) updateOverlays() {
	mw.spriteLoader.Load(mw.session.Previews(), mw.session.Target())
}

// Canvas callbacks

func (mw *MainWindow) onCanvasClick(p geometry.Point2D) {
	if mw.session.Document() == nil {
		return
	}
	mw.showError(mw.session.Click(p))
}

func (mw *MainWindow) onZoomStep(steps int) {
	mw.session.SetZoom(mw.session.Zoom() * math.Pow(zoomStep, float64(steps)))
}

func (mw *MainWindow) onTypedKey(ev *fyne.KeyEvent) {
	switch ev.Name {
	case fyne.KeyPageDown:
		mw.changePage(mw.session.NextPage)
	case fyne.KeyPageUp:
		mw.changePage(mw.session.PrevPage)
	}
}

func (mw *MainWindow) changePage(fn func() error) {
	if err := fn(); err != nil && !errors.Is(err, app.ErrPageRange) {
		mw.showError(err)
	}
}

// File handling

func (mw *MainWindow) openPath(path string) {
	mw.lastDir = filepath.Dir(path)
	if err := mw.session.OpenDocument(path); err != nil {
		mw.showError(fmt.Errorf("open %s: %w", filepath.Base(path), err))
	}
}

// location returns dir as a dialog location, or nil.
func location(dir string) fyne.ListableURI {
	if dir == "" {
		return nil
	}
	listable, err := storage.ListerForURI(storage.NewFileURI(dir))
	if err != nil {
		return nil
	}
	return listable
}

func (mw *MainWindow) onOpen() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		mw.openPath(reader.URI().Path())
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".pdf", ".PDF"}))
	if loc := location(mw.lastDir); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onDropped(_ fyne.Position, uris []fyne.URI) {
	for _, u := range uris {
		if strings.EqualFold(u.Extension(), ".pdf") {
			mw.openPath(u.Path())
			return
		}
	}
	mw.updateStatus("Drop a PDF file to open it")
}

func (mw *MainWindow) onSave() {
	if err := mw.session.CanSave(); err != nil {
		mw.showError(err)
		return
	}
	suggested := mw.session.SuggestedOutput()
	// The picker creates the chosen file before handing it back.
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		writer.Close()
		created := writer.URI().Path()
		path := created
		if !strings.EqualFold(filepath.Ext(path), ".pdf") {
			path += ".pdf"
		}
		mw.save(created, path)
	}, mw.Window)
	fd.SetFileName(filepath.Base(suggested))
	if loc := location(filepath.Dir(suggested)); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

// save bakes in the background and offers to show the result.
func (mw *MainWindow) save(created, path string) {
	mw.updateStatus("Saving " + filepath.Base(path) + "...")
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()

		out, err := mw.session.SaveCreated(ctx, created, path)
		if err != nil {
			mw.updateStatus("Save failed")
			mw.showError(err)
			return
		}
		dialog.ShowConfirm("Saved", "Saved "+filepath.Base(out)+". Show the folder?", func(show bool) {
			if show {
				mw.revealFolder(filepath.Dir(out))
			}
		}, mw.Window)
	}()
}

func (mw *MainWindow) revealFolder(dir string) {
	u, err := url.Parse(storage.NewFileURI(dir).String())
	if err != nil {
		return
	}
	if err := mw.app.OpenURL(u); err != nil {
		logging.Logger().Warn("Window: open folder failed", "dir", dir, "err", err)
	}
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About "+appTitle,
		fmt.Sprintf("%s %s\n\n"+
			"Places the union bug and postal indicia on PDF artwork.\n\n"+
			"Built: %s",
			appTitle, version.String(), version.BuildTime),
		mw.Window)
}
