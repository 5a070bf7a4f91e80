package renderer

import (
	"io"
	"log"
	"os"
	"sync/atomic"
)

// Logger is the sink the renderer reports through. Debugf carries the
// per-resource upload chatter and is off unless enabled; Warnf and
// Errorf report recoverable frame problems (dropped overlay paints,
// failed rebinds).
type Logger interface {
	DebugEnabled() bool
	SetDebug(enabled bool)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// DefaultLogger writes info and debug to stdout, warnings and errors
// to stderr. The debug switch is atomic so a tooling goroutine can
// flip it while the frame loop logs.
type DefaultLogger struct {
	debug atomic.Bool
	out   *log.Logger
	err   *log.Logger
}

func NewDefaultLogger(prefix string, debug bool) *DefaultLogger {
	return newLoggerTo(os.Stdout, os.Stderr, prefix, debug)
}

func newLoggerTo(out, err io.Writer, prefix string, debug bool) *DefaultLogger {
	if prefix != "" {
		prefix = "[" + prefix + "] "
	}
	flags := log.LstdFlags | log.Lmicroseconds
	l := &DefaultLogger{
		out: log.New(out, prefix, flags),
		err: log.New(err, prefix, flags),
	}
	l.debug.Store(debug)
	return l
}

func (l *DefaultLogger) DebugEnabled() bool    { return l.debug.Load() }
func (l *DefaultLogger) SetDebug(enabled bool) { l.debug.Store(enabled) }

func (l *DefaultLogger) Debugf(format string, args ...any) {
	if !l.debug.Load() {
		return
	}
	l.out.Printf("debug: "+format, args...)
}

func (l *DefaultLogger) Infof(format string, args ...any) {
	l.out.Printf("info: "+format, args...)
}

func (l *DefaultLogger) Warnf(format string, args ...any) {
	l.err.Printf("warn: "+format, args...)
}

func (l *DefaultLogger) Errorf(format string, args ...any) {
	l.err.Printf("error: "+format, args...)
}

type nopLogger struct{}

// NewNopLogger returns a Logger that discards everything.
func NewNopLogger() Logger { return nopLogger{} }

func (nopLogger) DebugEnabled() bool    { return false }
func (nopLogger) SetDebug(bool)         {}
func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}
