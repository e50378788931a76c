// Package hblog is the heartbeat agent's structured logging facility,
// trimmed from a general-purpose multi-sink logging package down to the
// single concern the agent needs: leveled, structured, optionally
// file-rotated logging of RPC and lifecycle events.
package hblog

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Fields is a typed alias over logrus.Fields so callers don't need to import
// logrus directly.
type Fields = logrus.Fields

// Options configures a Logger.
type Options struct {
	// Level is one of logrus's level strings ("debug", "info", "warn",
	// "error"); empty means "info".
	Level string
	// JSON selects the JSON formatter instead of the text formatter.
	JSON bool
	// FilePath, when non-empty, tees output to a lumberjack-rotated file.
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Logger wraps a *logrus.Logger with the fixed field set the agent attaches
// to every line (uuid, component).
type Logger struct {
	entry *logrus.Entry
}

// New builds a Logger per Options. Console color (via fatih/color, matching
// the teacher's console logging) is only enabled when stderr is a TTY.
func New(opts Options) *Logger {
	base := logrus.New()
	base.SetOutput(buildOutput(opts))

	if opts.JSON {
		base.SetFormatter(&logrus.JSONFormatter{})
	} else {
		base.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			DisableColors: !isTTY() || color.NoColor,
		})
	}

	base.SetLevel(parseLevel(opts.Level))

	return &Logger{entry: logrus.NewEntry(base)}
}

func buildOutput(opts Options) io.Writer {
	if opts.FilePath == "" {
		return os.Stderr
	}
	return io.MultiWriter(os.Stderr, &lumberjack.Logger{
		Filename:   opts.FilePath,
		MaxSize:    orDefault(opts.MaxSizeMB, 100),
		MaxBackups: orDefault(opts.MaxBackups, 3),
		MaxAge:     orDefault(opts.MaxAgeDays, 28),
	})
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func isTTY() bool {
	fi, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

func parseLevel(level string) logrus.Level {
	lv, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel
	}
	return lv
}

// With returns a derived Logger carrying the given fields on every line,
// used to pin uuid/component context for a component's lifetime.
func (l *Logger) With(fields Fields) *Logger {
	return &Logger{entry: l.entry.WithFields(fields)}
}

func (l *Logger) Debug(msg string, fields ...Fields) { l.log(logrus.DebugLevel, msg, fields) }
func (l *Logger) Info(msg string, fields ...Fields)  { l.log(logrus.InfoLevel, msg, fields) }
func (l *Logger) Warn(msg string, fields ...Fields)  { l.log(logrus.WarnLevel, msg, fields) }
func (l *Logger) Error(msg string, fields ...Fields) { l.log(logrus.ErrorLevel, msg, fields) }

func (l *Logger) log(level logrus.Level, msg string, fields []Fields) {
	entry := l.entry
	if len(fields) > 0 {
		entry = entry.WithFields(fields[0])
	}
	entry.Log(level, msg)
}
