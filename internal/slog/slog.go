// Package slog provides the leveled logging contract used throughout
// slircd. It keeps a minimal-interface philosophy (a plain
// Logger is just Printf) but adds levels, since a bouncer has enough
// independent subsystems - transport, handshake, channel actors, CRDT
// merge, access control - that undifferentiated Printf output stops
// being operable.
package slog

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync/atomic"
)

// Level orders log severities; a Logger configured at level L drops
// any call below L.
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Printfer is a minimal Logger contract, kept so code
// written against *log.Logger (or any Printf-shaped sink) still
// satisfies it.
type Printfer interface {
	Printf(format string, v ...interface{})
}

// Logger is a leveled sink wrapping a Printfer. The zero value is not
// usable; construct one with New.
type Logger struct {
	out   Printfer
	level atomic.Int32
}

// New returns a Logger writing through out at the given minimum level.
// A nil out discards everything, the same way a server
// silently drops logf calls when srv.logger is nil.
func New(out Printfer, level Level) *Logger {
	l := &Logger{out: out}
	l.level.Store(int32(level))
	return l
}

// NewStd returns a Logger backed by a standard library *log.Logger
// writing to w with the usual date/time prefix.
func NewStd(w io.Writer, level Level) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return New(log.New(w, "", log.LstdFlags), level)
}

// SetLevel adjusts the minimum level atomically; REHASH uses this to
// change verbosity without restarting the process.
func (l *Logger) SetLevel(level Level) { l.level.Store(int32(level)) }

func (l *Logger) enabled(level Level) bool {
	return l != nil && l.out != nil && level >= Level(l.level.Load())
}

func (l *Logger) log(level Level, format string, v ...interface{}) {
	if !l.enabled(level) {
		return
	}
	l.out.Printf("["+level.String()+"] "+format, v...)
}

func (l *Logger) Debugf(format string, v ...interface{}) { l.log(LevelDebug, format, v...) }
func (l *Logger) Infof(format string, v ...interface{})  { l.log(LevelInfo, format, v...) }
func (l *Logger) Warnf(format string, v ...interface{})  { l.log(LevelWarn, format, v...) }
func (l *Logger) Errorf(format string, v ...interface{}) { l.log(LevelError, format, v...) }

// Printf implements Printfer so a Logger can be threaded anywhere the
// teacher's narrower interface is expected, logged at LevelInfo.
func (l *Logger) Printf(format string, v ...interface{}) { l.log(LevelInfo, format, v...) }

var _ Printfer = (*Logger)(nil)
var _ fmt.Stringer = LevelDebug
