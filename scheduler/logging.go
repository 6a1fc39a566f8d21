package scheduler

import (
	"os"
	"sync"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/izerolog"
	"github.com/joeycumines/logiface"
	"github.com/rs/zerolog"
)

// Logger is the structured logging sink used by the scheduler and by
// package runtime: a package-level configurable
// logger backed by logiface + izerolog (github.com/rs/zerolog) rather than
// a hand-rolled writer.
type Logger = logiface.Logger[logiface.Event]

var (
	globalLoggerMu sync.RWMutex
	globalLogger   *Logger

	// diagnosticThrottle rate-limits repeated, low-value diagnostic lines
	// (the per-error-type termination warnings, e.g. "bound reached") across the thousands
	// of iterations a single run can perform, so a noisy config does not
	// flood stderr. Backed by github.com/joeycumines/go-catrate, a
	// sliding-window rate limiter.
	diagnosticThrottle = catrate.NewLimiter(map[time.Duration]int{
		time.Second:      1,
		10 * time.Second: 3,
	})
)

// NewDefaultLogger builds a logiface logger backed by zerolog, writing JSON
// lines to w at or above the given level.
func NewDefaultLogger(w *os.File, level logiface.Level) *Logger {
	zl := zerolog.New(w).With().Timestamp().Logger()
	return izerolog.L.New(
		izerolog.L.WithZerolog(zl),
		izerolog.L.WithLevel(level),
	).Logger()
}

// SetLogger installs the package-wide default logger used when a Scheduler
// is constructed without an explicit one.
func SetLogger(l *Logger) {
	globalLoggerMu.Lock()
	defer globalLoggerMu.Unlock()
	globalLogger = l
}

func getDefaultLogger() *Logger {
	globalLoggerMu.RLock()
	defer globalLoggerMu.RUnlock()
	if globalLogger != nil {
		return globalLogger
	}
	return NewDefaultLogger(os.Stderr, logiface.LevelWarning)
}

// throttledWarn logs a Warning-level message under category at most a few
// times per window, to avoid flooding output across many iterations.
func throttledWarn(l *Logger, category, message string) {
	if _, ok := diagnosticThrottle.Allow(category); !ok {
		return
	}
	l.Warning().Str("category", category).Log(message)
}
