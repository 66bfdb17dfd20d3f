package pipeline

import (
	"io"
	"log"

	"github.com/banshee-data/canopy.report/internal/monitoring"
)

var (
	opsLogger  *log.Logger
	diagLogger *log.Logger
)

// SetLogWriters configures the logging streams for the pipeline package.
// A nil writer routes that stream back to the defaults:
// ops messages go to monitoring.Logf, diag messages to monitoring.Debugf.
func SetLogWriters(ops, diag io.Writer) {
	opsLogger = newLogger("[pipeline] ", ops)
	diagLogger = newLogger("[pipeline] ", diag)
}

func newLogger(prefix string, w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, prefix, log.LstdFlags|log.Lmicroseconds)
}

// opsf logs run-level events: start, finish, failures.
func opsf(format string, args ...interface{}) {
	if opsLogger != nil {
		opsLogger.Printf(format, args...)
		return
	}
	monitoring.Logf("[pipeline] "+format, args...)
}

// diagf logs per-tile detail.
func diagf(format string, args ...interface{}) {
	if diagLogger != nil {
		diagLogger.Printf(format, args...)
		return
	}
	monitoring.Debugf("[pipeline] "+format, args...)
}
