// Copyright 2026 The Titlepack Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
)

// NewLogger creates the standard daemon logger: a JSON handler writing
// to stderr at the given level. It also sets the default slog logger so
// that library code calling slog.Info gets the same handler.
func NewLogger(level slog.Level) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}

// NewCommandLogger creates a structured logger for CLI commands. When
// stderr is a terminal it uses slog.TextHandler for human-readable
// output; when stderr is piped or redirected it uses slog.JSONHandler
// so the output matches the relay's log format.
func NewCommandLogger(level slog.Level) *slog.Logger {
	return newWriterLogger(os.Stderr, term.IsTerminal(int(os.Stderr.Fd())), level)
}

func newWriterLogger(writer io.Writer, text bool, level slog.Level) *slog.Logger {
	options := &slog.HandlerOptions{Level: level}
	if text {
		return slog.New(slog.NewTextHandler(writer, options))
	}
	return slog.New(slog.NewJSONHandler(writer, options))
}

// ParseLevel converts a level name ("debug", "info", "warn", "error")
// to a slog.Level. An empty string is Info.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if strings.TrimSpace(name) == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo, err
	}
	return level, nil
}
