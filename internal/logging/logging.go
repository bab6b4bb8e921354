// Package logging builds the slog logger of the timerctl binary: a console
// text handler fanned out with an optional rotated JSON file.
package logging

import (
	"io"
	"log/slog"

	multi "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation limits of the JSON log file
const (
	maxSizeMB  = 64
	maxBackups = 8
	maxAgeDays = 30
)

// Options configures New.
type Options struct {
	Level   slog.Level
	Console io.Writer
	File    string // empty disables the JSON file
}

// Logger is a slog.Logger whose level can change at runtime.
type Logger struct {
	*slog.Logger
	level *slog.LevelVar
	file  *lumberjack.Logger
}

// New creates the logger described by opts.
func New(opts Options) *Logger {
	l := &Logger{level: &slog.LevelVar{}}
	l.level.Set(opts.Level)

	handlerOpts := &slog.HandlerOptions{Level: l.level}
	handlers := []slog.Handler{
		slog.NewTextHandler(opts.Console, handlerOpts),
	}

	if opts.File != "" {
		l.file = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeDays,
			Compress:   true,
		}
		handlers = append(handlers, slog.NewJSONHandler(l.file, handlerOpts))
	}

	l.Logger = slog.New(multi.Fanout(handlers...))
	return l
}

// SetLevel changes the minimum level of every handler.
func (l *Logger) SetLevel(level slog.Level) {
	l.level.Set(level)
}

// Level returns the current minimum level.
func (l *Logger) Level() slog.Level {
	return l.level.Level()
}

// Close closes the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
