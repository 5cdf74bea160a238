// SPDX-FileCopyrightText: The wgarchive authors
//
// SPDX-License-Identifier: MIT

// Package logger provides the slog-based logging facility for wgarchive.
package logger

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// Logger is a type wrapper around the Go stdlib slog.Logger
type Logger struct {
	*slog.Logger
}

// New returns a new Logger that writes to STDERR. When STDERR is a terminal,
// output is colorized via tint, otherwise the plain text handler is used.
func New(level slog.Level) *Logger {
	output := os.Stderr
	if stat, err := output.Stat(); err == nil && stat.Mode()&os.ModeCharDevice != 0 {
		handler := tint.NewHandler(output, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
		return &Logger{slog.New(handler)}
	}
	return NewLogger(level, output)
}

// NewLogger returns a new Logger that writes text-formatted log output to the given
// io.Writer
func NewLogger(level slog.Level, output io.Writer) *Logger {
	return &Logger{slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: level}))}
}

// Err returns a slog.Attr for the given error
func Err(err error) slog.Attr {
	return slog.Any("error", err)
}
