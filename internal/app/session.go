// Package app owns the editing session: the loaded document, the current
// render, and the overlay placements, together with the events the UI
// listens to.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"union-bug-placer/internal/asset"
	"union-bug-placer/internal/bake"
	"union-bug-placer/internal/contrast"
	"union-bug-placer/internal/document"
	"union-bug-placer/internal/logging"
	"union-bug-placer/internal/overlay"
	"union-bug-placer/internal/render"
	"union-bug-placer/internal/units"
	"union-bug-placer/pkg/geometry"
)

var (
	// ErrNoDocument is returned by operations that need a loaded document.
	ErrNoDocument = errors.New("no document is open")
	// ErrOutsidePage is returned for a click outside the rendered page.
	// Callers ignore it.
	ErrOutsidePage = errors.New("click outside the page")
	// ErrNotPlaced is returned when an overlay has no anchor on the current page.
	ErrNotPlaced = errors.New("overlay is not placed on this page")
	// ErrPageRange is returned when navigating past either end of the document.
	ErrPageRange = errors.New("page out of range")
)

// EventType identifies different session events.
type EventType int

const (
	EventDocumentLoaded EventType = iota
	EventDocumentClosed
	EventDocumentChanged // source file modified on disk
	EventPageChanged
	EventZoomChanged
	EventRendered
	EventRenderFailed
	EventOverlayChanged
	EventGridChanged
	EventSaved
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// AssetStore resolves overlay assets.
type AssetStore interface {
	Get(kind overlay.Kind, v overlay.Variant) (*asset.Asset, error)
}

// Preview is an overlay to draw on the current render.
type Preview struct {
	Kind    overlay.Kind
	Variant overlay.Variant
	Asset   *asset.Asset
	Rect    geometry.Rect // display pixels
}

// Session holds the state of one editing session. All methods are safe to
// call from the UI goroutine while background renders complete.
type Session struct {
	mu sync.RWMutex

	cfg      Config
	renderer render.Renderer
	assets   AssetStore
	sampler  contrast.Sampler

	scheduler *render.Scheduler
	debounce  *render.Debouncer
	watcher   *FileWatcher
	done      chan struct{}
	closeOnce sync.Once

	doc      *document.Document
	page     int
	viewport geometry.Size
	zoom     float64
	current  *render.Render
	target   overlay.Kind
	grid     bool

	overlays map[overlay.Kind]*overlay.Instance
	// pages whose variant was chosen without a render to sample
	unsampled map[overlay.Kind]map[int]bool

	listeners map[EventType][]EventListener
}

// NewSession creates a session. Background renders are delivered until
// Close is called.
func NewSession(cfg Config, renderer render.Renderer, assets AssetStore) *Session {
	s := &Session{
		cfg:       cfg,
		renderer:  renderer,
		assets:    assets,
		sampler:   cfg.Sampler(),
		scheduler: render.NewScheduler(renderer),
		debounce:  render.NewDebouncer(cfg.ResizeDebounce),
		done:      make(chan struct{}),
		zoom:      1,
		target:    overlay.KindBug,
		listeners: make(map[EventType][]EventListener),
	}
	s.resetOverlays()
	go s.consume()
	return s
}

// Close stops background work.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.debounce.Stop()
		s.scheduler.Cancel()
		s.mu.Lock()
		if s.watcher != nil {
			s.watcher.Stop()
			s.watcher = nil
		}
		s.mu.Unlock()
		close(s.done)
	})
}

// On registers an event listener for the specified event type.
func (s *Session) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *Session) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

func (s *Session) resetOverlays() {
	s.overlays = make(map[overlay.Kind]*overlay.Instance)
	s.unsampled = make(map[overlay.Kind]map[int]bool)
	for _, k := range overlay.Kinds() {
		s.overlays[k] = overlay.NewInstance(s.cfg.Spec(k))
		s.unsampled[k] = make(map[int]bool)
	}
}

// Config returns the session configuration.
func (s *Session) Config() Config { return s.cfg }

// --- Document ---

// OpenDocument loads the PDF at path. On failure the session keeps its
// previous document.
func (s *Session) OpenDocument(path string) error {
	doc, err := document.Load(path)
	if err != nil {
		logging.Logger().Warn("Session: open failed", "path", path, "err", err)
		return err
	}

	s.scheduler.Cancel()
	s.mu.Lock()
	prev := s.doc
	s.doc = doc
	s.page = 0
	s.zoom = 1
	s.current = nil
	s.resetOverlays()
	if s.watcher != nil {
		s.watcher.Stop()
	}
	s.watcher = NewFileWatcher(doc.Path, time.Second)
	if s.watcher != nil {
		s.watcher.OnChange(func() { s.Emit(EventDocumentChanged, doc.Path) })
		s.watcher.Start()
	}
	s.mu.Unlock()

	if prev != nil {
		s.forget(prev)
	}
	logging.Logger().Info("Session: document loaded", "path", doc.Path, "pages", doc.NumPages())
	s.Emit(EventDocumentLoaded, doc)
	s.Refresh()
	return nil
}

// Reload re-reads the current document from disk, keeping placements that
// still fall on an existing page.
func (s *Session) Reload() error {
	s.mu.RLock()
	prev := s.doc
	s.mu.RUnlock()
	if prev == nil {
		return ErrNoDocument
	}
	doc, err := document.Load(prev.Path)
	if err != nil {
		return err
	}
	s.scheduler.Cancel()
	s.forget(prev)

	s.mu.Lock()
	s.doc = doc
	if s.watcher != nil {
		s.watcher.ResetBaseline()
	}
	if s.page >= doc.NumPages() {
		s.page = doc.NumPages() - 1
	}
	s.current = nil
	for _, in := range s.overlays {
		for _, pl := range in.Placements() {
			if pl.Page >= doc.NumPages() {
				in.ClearPage(pl.Page)
			}
		}
	}
	s.mu.Unlock()

	s.Emit(EventDocumentLoaded, doc)
	s.Refresh()
	return nil
}

// IgnoreChange keeps the loaded copy after the source changed on disk; the
// next change is reported again.
func (s *Session) IgnoreChange() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.watcher != nil {
		s.watcher.ResetBaseline()
	}
}

// CloseDocument drops the document and every placement.
func (s *Session) CloseDocument() {
	s.scheduler.Cancel()
	s.mu.Lock()
	prev := s.doc
	s.doc = nil
	s.current = nil
	s.page = 0
	s.resetOverlays()
	if s.watcher != nil {
		s.watcher.Stop()
		s.watcher = nil
	}
	s.mu.Unlock()

	if prev != nil {
		s.forget(prev)
	}
	s.Emit(EventDocumentClosed, nil)
}

func (s *Session) forget(doc *document.Document) {
	if f, ok := s.renderer.(interface{ Forget(id string) }); ok {
		f.Forget(render.SourceOf(doc).ID)
	}
}

// Document returns the loaded document or nil.
func (s *Session) Document() *document.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc
}

// --- Navigation and rendering ---

// Page returns the zero-based current page.
func (s *Session) Page() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.page
}

// PageLabel returns "Page N of M", or "" without a document.
func (s *Session) PageLabel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.doc == nil {
		return ""
	}
	return fmt.Sprintf("Page %d of %d", s.page+1, s.doc.NumPages())
}

// GoToPage shows page i.
func (s *Session) GoToPage(i int) error {
	s.mu.Lock()
	if s.doc == nil {
		s.mu.Unlock()
		return ErrNoDocument
	}
	if i < 0 || i >= s.doc.NumPages() {
		s.mu.Unlock()
		return fmt.Errorf("page %d: %w", i+1, ErrPageRange)
	}
	changed := i != s.page
	s.page = i
	s.mu.Unlock()

	if changed {
		s.Emit(EventPageChanged, i)
		s.Refresh()
	}
	return nil
}

// NextPage moves forward one page.
func (s *Session) NextPage() error {
	return s.GoToPage(s.Page() + 1)
}

// PrevPage moves back one page.
func (s *Session) PrevPage() error {
	return s.GoToPage(s.Page() - 1)
}

// Zoom returns the zoom level.
func (s *Session) Zoom() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.zoom
}

// SetZoom sets the zoom level, clamped to the configured range, and
// re-renders. It returns the applied zoom.
func (s *Session) SetZoom(z float64) float64 {
	z = render.ClampZoom(z, s.cfg.MinZoom, s.cfg.MaxZoom)
	s.mu.Lock()
	changed := z != s.zoom
	s.zoom = z
	s.mu.Unlock()

	if changed {
		s.Emit(EventZoomChanged, z)
		s.Refresh()
	}
	return z
}

// SetViewport records the viewport size. The re-render is debounced.
func (s *Session) SetViewport(size geometry.Size) {
	s.mu.Lock()
	changed := size != s.viewport
	s.viewport = size
	s.mu.Unlock()

	if changed {
		s.debounce.Trigger(s.Refresh)
	}
}

// Render returns the render currently on screen, or nil.
func (s *Session) Render() *render.Render {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Session) request() (render.Request, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.doc == nil || s.viewport.Width <= 0 || s.viewport.Height <= 0 {
		return render.Request{}, false
	}
	return render.Request{Doc: s.doc, Page: s.page, Viewport: s.viewport, Zoom: s.zoom}, true
}

// Refresh starts a background render of the current page. A newer Refresh
// supersedes any render still in flight.
func (s *Session) Refresh() {
	req, ok := s.request()
	if !ok {
		return
	}
	s.scheduler.Submit(req)
}

// RenderNow renders the current page on the calling goroutine and applies
// the result, superseding any background render.
func (s *Session) RenderNow(ctx context.Context) error {
	req, ok := s.request()
	if !ok {
		return ErrNoDocument
	}
	s.scheduler.Cancel()
	r, err := s.renderer.Render(ctx, req.Doc, req.Page, req.Viewport, req.Zoom)
	if err != nil {
		s.Emit(EventRenderFailed, err)
		return err
	}
	s.apply(req, r)
	return nil
}

func (s *Session) consume() {
	for {
		select {
		case <-s.done:
			return
		case res := <-s.scheduler.Results():
			if res.Generation != s.scheduler.Current() {
				continue
			}
			if res.Err != nil {
				if !errors.Is(res.Err, context.Canceled) {
					logging.Logger().Warn("Session: render failed", "err", res.Err)
					s.Emit(EventRenderFailed, res.Err)
				}
				continue
			}
			s.apply(res.Request, res.Render)
		}
	}
}

// apply installs r if it still matches the session's document and page.
func (s *Session) apply(req render.Request, r *render.Render) {
	s.mu.Lock()
	if s.doc == nil || s.doc != req.Doc || r.Page != s.page {
		s.mu.Unlock()
		return
	}
	s.current = r
	for kind, pages := range s.unsampled {
		if !pages[r.Page] {
			continue
		}
		delete(pages, r.Page)
		s.selectVariantLocked(kind, r.Page)
	}
	s.mu.Unlock()
	s.Emit(EventRendered, r)
}

// --- Overlays ---

// Target returns the overlay kind that clicks place.
func (s *Session) Target() overlay.Kind {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.target
}

// SetTarget selects the overlay kind that clicks place.
func (s *Session) SetTarget(kind overlay.Kind) {
	s.mu.Lock()
	s.target = kind
	s.mu.Unlock()
	s.Emit(EventOverlayChanged, kind)
}

// Click places the target overlay at display pixel px of the current
// render. Clicks outside the rendered page return ErrOutsidePage.
func (s *Session) Click(px geometry.Point2D) error {
	s.mu.Lock()
	if s.doc == nil || s.current == nil {
		s.mu.Unlock()
		return ErrNoDocument
	}
	p, ok := s.current.ToDocument(px)
	if !ok {
		s.mu.Unlock()
		return ErrOutsidePage
	}
	kind := s.target
	s.placeLocked(kind, p, s.current.Page)
	s.mu.Unlock()

	logging.Logger().Debug("Session: placed", "kind", kind, "x", p.X, "y", p.Y)
	s.Emit(EventOverlayChanged, kind)
	return nil
}

// SetManualPosition anchors kind at the typed position in inches on the
// current page. Invalid text leaves the overlay unchanged.
func (s *Session) SetManualPosition(kind overlay.Kind, xText, yText string) error {
	x, err := units.ParseInches(xText)
	if err != nil {
		return fmt.Errorf("X: %w", err)
	}
	y, err := units.ParseInches(yText)
	if err != nil {
		return fmt.Errorf("Y: %w", err)
	}
	return s.PlaceAt(kind, units.InchesToPoint(x, y))
}

// PlaceAt anchors kind at document point p on the current page.
func (s *Session) PlaceAt(kind overlay.Kind, p geometry.Point2D) error {
	s.mu.Lock()
	if s.doc == nil {
		s.mu.Unlock()
		return ErrNoDocument
	}
	s.placeLocked(kind, p, s.page)
	s.mu.Unlock()
	s.Emit(EventOverlayChanged, kind)
	return nil
}

func (s *Session) placeLocked(kind overlay.Kind, p geometry.Point2D, page int) {
	s.overlays[kind].Place(p, page)
	s.selectVariantLocked(kind, page)
}

// selectVariantLocked runs the kind's policy against the current render.
// Without a render of the page the choice is deferred to the next render.
func (s *Session) selectVariantLocked(kind overlay.Kind, page int) {
	in := s.overlays[kind]
	anchor, ok := in.Anchor(page)
	if !ok {
		return
	}
	r := s.current
	_, err := in.SelectVariant(page, func() (float64, error) {
		if r == nil || r.Page != page {
			return 0, errNoRender
		}
		return r.Luminance(s.sampler, anchor)
	})
	switch {
	case errors.Is(err, errNoRender):
		s.unsampled[kind][page] = true
	case err != nil:
		logging.Logger().Warn("Session: contrast sample failed", "kind", kind, "err", err)
	}
}

var errNoRender = errors.New("page not rendered")

// SetWidth sets the width of kind in inches. A width <= 0 is rejected and
// nothing changes.
func (s *Session) SetWidth(kind overlay.Kind, widthIn float64) error {
	s.mu.Lock()
	err := s.overlays[kind].Resize(widthIn)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.Emit(EventOverlayChanged, kind)
	return nil
}

// SetActive enables or disables kind.
func (s *Session) SetActive(kind overlay.Kind, active bool) {
	s.mu.Lock()
	s.overlays[kind].SetActive(active)
	s.mu.Unlock()
	s.Emit(EventOverlayChanged, kind)
}

// Clear removes every anchor of kind on every page.
func (s *Session) Clear(kind overlay.Kind) {
	s.mu.Lock()
	s.overlays[kind].Clear()
	s.unsampled[kind] = make(map[int]bool)
	s.mu.Unlock()
	s.Emit(EventOverlayChanged, kind)
}

// ClearPage removes the anchor of kind on the current page only.
func (s *Session) ClearPage(kind overlay.Kind) {
	s.mu.Lock()
	s.overlays[kind].ClearPage(s.page)
	delete(s.unsampled[kind], s.page)
	s.mu.Unlock()
	s.Emit(EventOverlayChanged, kind)
}

// ClearAll clears every overlay kind.
func (s *Session) ClearAll() {
	for _, k := range overlay.Kinds() {
		s.Clear(k)
	}
}

// CenterHorizontally centers kind on the trim width of the current page,
// keeping its y.
func (s *Session) CenterHorizontally(kind overlay.Kind) error {
	s.mu.Lock()
	if s.doc == nil {
		s.mu.Unlock()
		return ErrNoDocument
	}
	in := s.overlays[kind]
	anchor, ok := in.Anchor(s.page)
	if !ok {
		s.mu.Unlock()
		return ErrNotPlaced
	}
	trim, _ := s.doc.TrimBox(s.page)
	anchor.X = trim.X + overlay.CenteredX(trim.Width, units.InchesToPoints(in.Width()))
	s.placeLocked(kind, anchor, s.page)
	s.mu.Unlock()
	s.Emit(EventOverlayChanged, kind)
	return nil
}

// PlaceDefault anchors kind in the bottom-right corner of the current
// page's trim box, inset by the safe margin.
func (s *Session) PlaceDefault(kind overlay.Kind) error {
	s.mu.Lock()
	if s.doc == nil {
		s.mu.Unlock()
		return ErrNoDocument
	}
	in := s.overlays[kind]
	// Variants of a kind share one size.
	a, err := s.assets.Get(kind, in.Policy().Variants()[0])
	if err != nil {
		s.mu.Unlock()
		return err
	}
	trim, _ := s.doc.TrimBox(s.page)
	size := overlay.Rect(geometry.Point2D{}, in.Width(), a.Size).Size()
	s.placeLocked(kind, overlay.DefaultAnchor(trim, size, s.cfg.SafeMargin), s.page)
	s.mu.Unlock()
	s.Emit(EventOverlayChanged, kind)
	return nil
}

// Width returns the width of kind in inches.
func (s *Session) Width(kind overlay.Kind) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.overlays[kind].Width()
}

// Active reports whether kind is enabled.
func (s *Session) Active(kind overlay.Kind) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.overlays[kind].Active()
}

// Placement returns the placement of kind on the current page.
func (s *Session) Placement(kind overlay.Kind) (overlay.Placement, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.overlays[kind].Placement(s.page)
}

// Placements returns every placement that a save would write.
func (s *Session) Placements() []overlay.Placement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []overlay.Placement
	for _, k := range overlay.Kinds() {
		out = append(out, s.overlays[k].Bakeable()...)
	}
	return out
}

// State returns the placement state of kind.
func (s *Session) State(kind overlay.Kind) overlay.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.overlays[kind].State()
}

// Previews returns the overlays visible on the current render in display
// pixels. Overlays whose asset is unavailable are left out.
func (s *Session) Previews() []Preview {
	s.mu.RLock()
	r := s.current
	var pls []overlay.Placement
	if r != nil {
		for _, k := range overlay.Kinds() {
			in := s.overlays[k]
			if pl, ok := in.Placement(r.Page); ok && in.Visible(r.Page) {
				pls = append(pls, pl)
			}
		}
	}
	s.mu.RUnlock()

	var out []Preview
	for _, pl := range pls {
		a, err := s.assets.Get(pl.Kind, pl.Variant)
		if err != nil {
			continue
		}
		out = append(out, Preview{
			Kind:    pl.Kind,
			Variant: pl.Variant,
			Asset:   a,
			Rect:    units.RectToDisplay(pl.Rect(a.Size), r.DisplayScale()),
		})
	}
	return out
}

// --- Grid ---

// Grid reports whether the alignment grid is shown.
func (s *Session) Grid() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.grid
}

// SetGrid shows or hides the alignment grid.
func (s *Session) SetGrid(on bool) {
	s.mu.Lock()
	s.grid = on
	s.mu.Unlock()
	s.Emit(EventGridChanged, on)
}

// --- Save ---

// SuggestedOutput returns the default save path for the open document.
func (s *Session) SuggestedOutput() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.doc == nil {
		return ""
	}
	return bake.SuggestOutputPath(s.doc.Path)
}

// CanSave reports why a save would fail before any output path is chosen.
func (s *Session) CanSave() error {
	s.mu.RLock()
	loaded := s.doc != nil
	s.mu.RUnlock()
	if !loaded {
		return ErrNoDocument
	}
	if len(s.Placements()) == 0 {
		return bake.ErrNothingToSave
	}
	return nil
}

// SaveCreated is Save for a file picker that has already created, and
// truncated, the file at created before output is known. Choosing the
// source restores it from the loaded bytes; a created file that a failed
// or redirected save leaves empty is removed.
func (s *Session) SaveCreated(ctx context.Context, created, output string) (string, error) {
	s.mu.RLock()
	if s.doc == nil {
		s.mu.RUnlock()
		return "", ErrNoDocument
	}
	doc := s.doc
	s.mu.RUnlock()

	same, err := bake.SamePath(created, doc.Path)
	if err != nil {
		return "", fmt.Errorf("resolve output path: %w", err)
	}
	if same {
		if err := s.restoreSource(doc); err != nil {
			return "", err
		}
		return "", bake.ErrSameOutputPath
	}

	path, err := s.Save(ctx, output)
	if err != nil || !sameFile(created, path) {
		removeIfEmpty(created)
	}
	return path, err
}

// restoreSource rewrites the source document from the bytes it was loaded
// from, without reporting it as changed on disk.
func (s *Session) restoreSource(doc *document.Document) error {
	if err := os.WriteFile(doc.Path, doc.Data, 0o644); err != nil {
		return fmt.Errorf("restore %s: %w", doc.Name(), err)
	}
	logging.Logger().Warn("Session: restored source after picker overwrite", "path", doc.Path)
	s.mu.RLock()
	if s.doc == doc && s.watcher != nil {
		s.watcher.ResetBaseline()
	}
	s.mu.RUnlock()
	return nil
}

func sameFile(a, b string) bool {
	if b == "" {
		return false
	}
	same, err := bake.SamePath(a, b)
	return err == nil && same
}

func removeIfEmpty(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() || info.Size() != 0 {
		return
	}
	if err := os.Remove(path); err != nil {
		logging.Logger().Warn("Session: remove empty output", "path", path, "err", err)
	}
}

// Save bakes every active placement into output. It may be called from a
// worker goroutine; placements are copied before baking starts.
func (s *Session) Save(ctx context.Context, output string) (string, error) {
	s.mu.RLock()
	if s.doc == nil {
		s.mu.RUnlock()
		return "", ErrNoDocument
	}
	source := s.doc.Path
	s.mu.RUnlock()

	path, err := bake.Bake(ctx, bake.Request{
		Source:     source,
		Output:     output,
		Placements: s.Placements(),
		Assets:     s.assets,
	})
	if err != nil {
		logging.Logger().Warn("Session: save failed", "output", output, "err", err)
		return "", err
	}
	s.Emit(EventSaved, path)
	return path, nil
}
