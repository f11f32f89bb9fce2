// Package persist implements the ambient logging and storage helpers
// shared by every component: a logrus-backed file logger with the
// startup/shutdown banner convention, and a bolt-backed database wrapper
// with versioned metadata checking.
package persist

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// BlockchainInfo identifies the chain a log file belongs to, stamped
// into the startup banner. Databases carry their own Metadata instead.
type BlockchainInfo struct {
	Name       string
	NetworkName string
}

// Logger wraps a logrus.Logger writing to a single file, with a
// verbose-gated Debug level and a Critical level that always panics
// after logging, used for conditions the caller cannot recover from.
type Logger struct {
	*logrus.Logger
	closer io.Closer
}

// NewFileLogger creates a logger that appends to filename, writing a
// STARTUP banner immediately. verbose controls whether Debug/Debugln
// calls are emitted.
func NewFileLogger(info BlockchainInfo, filename string, verbose bool) (*Logger, error) {
	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("persist: failed to open log file %s: %w", filename, err)
	}

	base := logrus.New()
	base.Out = f
	base.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	if verbose {
		base.Level = logrus.DebugLevel
	} else {
		base.Level = logrus.InfoLevel
	}

	l := &Logger{Logger: base, closer: f}
	l.Println("STARTUP", info.Name, info.NetworkName)
	return l, nil
}

// Println logs an info-level line, space-joining its arguments.
func (l *Logger) Println(v ...interface{}) {
	l.Logger.Infoln(v...)
}

// Debug logs a debug-level message if verbose logging is enabled.
func (l *Logger) Debug(v ...interface{}) {
	l.Logger.Debug(v...)
}

// Debugln logs a debug-level line if verbose logging is enabled.
func (l *Logger) Debugln(v ...interface{}) {
	l.Logger.Debugln(v...)
}

// Critical logs at the highest level and then panics; used for
// conditions that indicate a corrupted invariant rather than a
// recoverable runtime error.
func (l *Logger) Critical(v ...interface{}) {
	l.Logger.Errorln(v...)
	panic(fmt.Sprint(v...))
}

// Close writes the SHUTDOWN banner and closes the underlying file.
func (l *Logger) Close() error {
	l.Println("SHUTDOWN")
	return l.closer.Close()
}
