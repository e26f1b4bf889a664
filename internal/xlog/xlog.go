// Package xlog is the structured logging facade shared by every package in
// this module. It mirrors the shape of a small hand-rolled Logger interface
// (Log/Enabled), but the default implementation is backed by
// github.com/joeycumines/logiface over a github.com/rs/zerolog writer,
// rather than re-implementing a JSON/ANSI formatter.
package xlog

import (
	"os"
	"sync"
	"time"

	"github.com/joeycumines/izerolog"
	"github.com/joeycumines/logiface"
	"github.com/rs/zerolog"
)

// Level is the severity of a log Entry.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "debug"
	case Info:
		return "info"
	case Warn:
		return "warn"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Fields is a set of structured key/value pairs attached to an Entry.
type Fields map[string]any

// Entry is one structured log record.
type Entry struct {
	Level     Level
	Component string // "eventloop", "tcp", "udp", "timer", "threadpool", "threadgroup", "dataframe"
	Message   string
	Fields    Fields
	Err       error
}

// Logger is the minimal structured-logging capability every component in
// this module depends on.
type Logger interface {
	Log(Entry)
	Enabled(Level) bool
}

// zerologLogger adapts logiface+izerolog to the Logger interface.
type zerologLogger struct {
	l *logiface.Logger[*izerolog.Event]
}

func (z *zerologLogger) Enabled(level Level) bool {
	cur := z.l.Level()
	if cur == logiface.LevelDisabled {
		return false
	}
	return toLogifaceLevel(level) <= cur
}

func (z *zerologLogger) Log(e Entry) {
	b := z.l.Build(toLogifaceLevel(e.Level))
	if b == nil {
		return
	}
	b.Str("component", e.Component)
	for k, v := range e.Fields {
		switch val := v.(type) {
		case string:
			b.Str(k, val)
		case int:
			b.Int(k, val)
		case int64:
			b.Int64(k, val)
		case uint64:
			b.Uint64(k, val)
		case bool:
			b.Bool(k, val)
		case time.Duration:
			b.Dur(k, val)
		default:
			b.Interface(k, val)
		}
	}
	if e.Err != nil {
		b.Err(e.Err)
	}
	b.Log(e.Message)
}

func toLogifaceLevel(l Level) logiface.Level {
	switch l {
	case Debug:
		return logiface.LevelDebug
	case Info:
		return logiface.LevelInformational
	case Warn:
		return logiface.LevelWarning
	case Error:
		return logiface.LevelError
	default:
		return logiface.LevelInformational
	}
}

// NewZerolog builds a Logger writing structured JSON to w, filtering below
// minLevel.
func NewZerolog(w *os.File, minLevel Level) Logger {
	zl := zerolog.New(w).With().Timestamp().Logger()
	logger := izerolog.L.New(
		izerolog.L.WithZerolog(zl),
		izerolog.L.WithLevel(toLogifaceLevel(minLevel)),
	)
	return &zerologLogger{l: logger}
}

// noop discards every entry; used when a caller explicitly disables logging.
type noop struct{}

func (noop) Log(Entry)          {}
func (noop) Enabled(Level) bool { return false }

// NoOp returns a Logger that discards everything.
func NoOp() Logger { return noop{} }

var def struct {
	sync.RWMutex
	logger Logger
}

func init() {
	def.logger = NewZerolog(os.Stderr, Info)
}

// Default returns the package-level default Logger.
func Default() Logger {
	def.RLock()
	defer def.RUnlock()
	return def.logger
}

// SetDefault overrides the package-level default Logger. Tests use this to
// install a recording Logger.
func SetDefault(l Logger) {
	def.Lock()
	defer def.Unlock()
	if l == nil {
		l = NoOp()
	}
	def.logger = l
}

func Debugf(logger Logger, component, message string, fields Fields) {
	log(logger, Debug, component, message, nil, fields)
}

func Infof(logger Logger, component, message string, fields Fields) {
	log(logger, Info, component, message, nil, fields)
}

func Warnf(logger Logger, component, message string, fields Fields) {
	log(logger, Warn, component, message, nil, fields)
}

func Errorf(logger Logger, component, message string, err error, fields Fields) {
	log(logger, Error, component, message, err, fields)
}

func log(logger Logger, level Level, component, message string, err error, fields Fields) {
	if logger == nil {
		logger = Default()
	}
	if !logger.Enabled(level) {
		return
	}
	logger.Log(Entry{
		Level:     level,
		Component: component,
		Message:   message,
		Fields:    fields,
		Err:       err,
	})
}
