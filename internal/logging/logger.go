// Package logging holds the *slog.Logger shared by the placer's packages.
package logging

import (
	"log/slog"
	"sync/atomic"
)

// logger holds the package-level logger. Nil means discard.
var logger atomic.Pointer[slog.Logger]

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// SetLogger configures the package-level logger. Pass nil to discard all
// output.
//
// SetLogger is safe for concurrent use.
func SetLogger(sl *slog.Logger) {
	if sl == nil {
		logger.Store(newDiscardLogger())
	} else {
		logger.Store(sl)
	}
}

// Logger returns the package-level logger, or a discard logger if none has
// been set.
func Logger() *slog.Logger {
	l := logger.Load()
	if l == nil {
		l = newDiscardLogger()
		logger.Store(l)
	}
	return l
}
