package concurrency

import (
	"sync"

	"github.com/fluxorio/txworker/pkg/core"
)

var (
	pkgLoggerMu sync.RWMutex
	pkgLogger   core.Logger
)

// SetDefaultLogger replaces the logger used by factories, waiters and
// executors that were not given one explicitly
func SetDefaultLogger(l core.Logger) {
	pkgLoggerMu.Lock()
	pkgLogger = l
	pkgLoggerMu.Unlock()
}

func defaultLogger() core.Logger {
	pkgLoggerMu.RLock()
	l := pkgLogger
	pkgLoggerMu.RUnlock()
	if l != nil {
		return l
	}

	pkgLoggerMu.Lock()
	defer pkgLoggerMu.Unlock()
	if pkgLogger == nil {
		pkgLogger = core.NewDefaultLogger()
	}
	return pkgLogger
}
