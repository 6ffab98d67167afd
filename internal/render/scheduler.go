package render

import (
	"context"
	"sync"
	"time"

	"union-bug-placer/internal/document"
	"union-bug-placer/internal/logging"
	"union-bug-placer/pkg/geometry"
)

// Request describes a render to run in the background.
type Request struct {
	Doc      *document.Document
	Page     int
	Viewport geometry.Size
	Zoom     float64
}

// Result is a finished background render.
type Result struct {
	Generation uint64
	Request    Request
	Render     *Render
	Err        error
}

// Scheduler runs renders off the control thread. Each Submit supersedes the
// previous one: its context is cancelled and its result is never delivered.
// Results arrive on a single channel; the receiver should still compare the
// generation with Current before applying one.
type Scheduler struct {
	renderer Renderer

	mu      sync.Mutex
	gen     uint64
	cancel  context.CancelFunc
	results chan Result
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler for r.
func NewScheduler(r Renderer) *Scheduler {
	return &Scheduler{
		renderer: r,
		results:  make(chan Result, 1),
	}
}

// Results returns the channel finished renders are delivered on.
func (s *Scheduler) Results() <-chan Result {
	return s.results
}

// Current returns the generation of the latest submitted request.
func (s *Scheduler) Current() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// Submit starts a render for req and returns its generation.
func (s *Scheduler) Submit(req Request) uint64 {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()

		start := time.Now()
		r, err := s.renderer.Render(ctx, req.Doc, req.Page, req.Viewport, req.Zoom)
		if r != nil {
			r.Generation = gen
		}
		s.deliver(Result{Generation: gen, Request: req, Render: r, Err: err})
		logging.Logger().Debug("Render: finished", "page", req.Page+1, "gen", gen, "elapsed", time.Since(start), "err", err)
	}()
	return gen
}

// deliver hands res to the receiver if it is still the latest, replacing
// any undelivered older result.
func (s *Scheduler) deliver(res Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if res.Generation != s.gen {
		return
	}
	select {
	case <-s.results:
	default:
	}
	s.results <- res
}

// Cancel supersedes any in-flight render without starting a new one.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
}

// Wait blocks until every started render has returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Debouncer runs the last triggered function once no trigger has arrived
// for the delay.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
}

// NewDebouncer returns a trailing-edge debouncer.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Trigger schedules fn, replacing any pending function.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, fn)
}

// Stop drops the pending function, if any.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
