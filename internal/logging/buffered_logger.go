package logging

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

// BufferedLogHandler implements slog.Handler and keeps every record in
// memory. Tests use it to check what was reported:
//
//	handler := logging.NewBufferedLogHandler(nil)
//	logging.SetLogger(slog.New(handler))
//	// ... exercise the session ...
//	n := handler.Count("Asset: unavailable")
type BufferedLogHandler struct {
	level    slog.Leveler
	core     *bufferCore
	preAttrs []string // already group-prefixed
	groups   []string
}

type bufferCore struct {
	mu      sync.Mutex
	records []string
}

// NewBufferedLogHandler creates an empty handler. Pass nil to capture all
// levels.
func NewBufferedLogHandler(opts *slog.HandlerOptions) *BufferedLogHandler {
	h := &BufferedLogHandler{core: &bufferCore{}}
	if opts != nil && opts.Level != nil {
		h.level = opts.Level
	}
	return h
}

// Enabled implements slog.Handler.
func (h *BufferedLogHandler) Enabled(_ context.Context, level slog.Level) bool {
	if h.level == nil {
		return true
	}
	return level >= h.level.Level()
}

// Handle implements slog.Handler. Each record is stored as one line:
// LEVEL message key=value ...
func (h *BufferedLogHandler) Handle(_ context.Context, r slog.Record) error {
	var sb strings.Builder
	sb.WriteString(r.Level.String())
	sb.WriteByte(' ')
	sb.WriteString(r.Message)
	for _, a := range h.preAttrs {
		sb.WriteByte(' ')
		sb.WriteString(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		sb.WriteByte(' ')
		sb.WriteString(h.prefixed(a))
		return true
	})

	h.core.mu.Lock()
	h.core.records = append(h.core.records, sb.String())
	h.core.mu.Unlock()
	return nil
}

func (h *BufferedLogHandler) prefixed(a slog.Attr) string {
	if len(h.groups) == 0 {
		return a.String()
	}
	return strings.Join(h.groups, ".") + "." + a.String()
}

// WithAttrs implements slog.Handler.
func (h *BufferedLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.preAttrs = append([]string(nil), h.preAttrs...)
	for _, a := range attrs {
		next.preAttrs = append(next.preAttrs, h.prefixed(a))
	}
	return &next
}

// WithGroup implements slog.Handler.
func (h *BufferedLogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.groups = append(append([]string(nil), h.groups...), name)
	return &next
}

// Records returns a copy of the captured lines.
func (h *BufferedLogHandler) Records() []string {
	h.core.mu.Lock()
	defer h.core.mu.Unlock()
	return append([]string(nil), h.core.records...)
}

// Count returns how many captured lines contain s.
func (h *BufferedLogHandler) Count(s string) int {
	n := 0
	for _, rec := range h.Records() {
		if strings.Contains(rec, s) {
			n++
		}
	}
	return n
}

// Contains reports whether any captured line contains s.
func (h *BufferedLogHandler) Contains(s string) bool {
	return h.Count(s) > 0
}

// Reset drops all captured lines.
func (h *BufferedLogHandler) Reset() {
	h.core.mu.Lock()
	h.core.records = nil
	h.core.mu.Unlock()
}
