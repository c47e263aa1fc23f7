// Package logger provides the leveled, structured logger shared by every
// taskboard component. It wraps logrus behind a small interface so call sites
// never depend on the backend directly.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Logger is the logging surface used across the codebase.
type Logger interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
	WithError(err error) Logger
}

// Level mirrors the verbosity switches exposed on the CLI.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Options configures the root logger.
type Options struct {
	Level  Level
	Format string // "text" or "json"
	Output io.Writer
}

type entry struct {
	e *logrus.Entry
}

var (
	mu   sync.RWMutex
	root = newRoot()
)

func newRoot() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.WarnLevel)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}

// Configure replaces the root logger settings.
func Configure(opts Options) {
	mu.Lock()
	defer mu.Unlock()

	if opts.Output != nil {
		root.SetOutput(opts.Output)
	}
	if opts.Level != "" {
		root.SetLevel(parseLevel(opts.Level))
	}
	switch strings.ToLower(opts.Format) {
	case "json":
		root.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		root.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// SetVerbosity maps the --debug/--verbose CLI flags onto log levels.
// --verbose shows everything, --debug shows info and above.
func SetVerbosity(debug, verbose bool) {
	switch {
	case verbose:
		Configure(Options{Level: LevelDebug})
	case debug:
		Configure(Options{Level: LevelInfo})
	}
}

func parseLevel(level Level) logrus.Level {
	switch Level(strings.ToLower(string(level))) {
	case LevelDebug:
		return logrus.DebugLevel
	case LevelInfo:
		return logrus.InfoLevel
	case LevelError:
		return logrus.ErrorLevel
	default:
		return logrus.WarnLevel
	}
}

func base() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return entry{e: logrus.NewEntry(root)}
}

func (l entry) Debug(args ...interface{})                 { l.e.Debug(args...) }
func (l entry) Info(args ...interface{})                  { l.e.Info(args...) }
func (l entry) Warn(args ...interface{})                  { l.e.Warn(args...) }
func (l entry) Error(args ...interface{})                 { l.e.Error(args...) }
func (l entry) Debugf(format string, args ...interface{}) { l.e.Debugf(format, args...) }
func (l entry) Infof(format string, args ...interface{})  { l.e.Infof(format, args...) }
func (l entry) Warnf(format string, args ...interface{})  { l.e.Warnf(format, args...) }
func (l entry) Errorf(format string, args ...interface{}) { l.e.Errorf(format, args...) }

func (l entry) WithField(key string, value interface{}) Logger {
	return entry{e: l.e.WithField(key, value)}
}

func (l entry) WithFields(fields map[string]interface{}) Logger {
	return entry{e: l.e.WithFields(logrus.Fields(fields))}
}

func (l entry) WithError(err error) Logger {
	return entry{e: l.e.WithError(err)}
}

func Debug(args ...interface{}) { base().Debug(args...) }
func Info(args ...interface{})  { base().Info(args...) }
func Warn(args ...interface{})  { base().Warn(args...) }
func Error(args ...interface{}) { base().Error(args...) }

func WithField(key string, value interface{}) Logger {
	return base().WithField(key, value)
}

func WithFields(fields map[string]interface{}) Logger {
	return base().WithFields(fields)
}

func WithError(err error) Logger {
	return base().WithError(err)
}
