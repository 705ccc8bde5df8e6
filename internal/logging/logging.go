// Package logging builds the zerolog loggers used across the client.
//
// Interactive commands get a human-readable console writer on stderr.
// The daemon gets a JSON log on a size-rotated file under the data
// directory, so long-running installs do not grow without bound.
package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Console returns a human-readable logger on stderr for CLI commands.
func Console(level string) zerolog.Logger {
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(w).Level(parseLevel(level)).With().Timestamp().Logger()
}

// File returns a JSON logger writing to a size-rotated file at path.
// Rotation keeps three compressed backups of 10 MB each.
func File(path, level string) zerolog.Logger {
	w := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
	return zerolog.New(w).Level(parseLevel(level)).With().Timestamp().Logger()
}

// Daemon returns a logger that writes JSON to the rotated file at path
// and mirrors human-readable output to stderr, for foreground daemon
// runs under a process manager.
func Daemon(path, level string) zerolog.Logger {
	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}
	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	w := zerolog.MultiLevelWriter(file, console)
	return zerolog.New(w).Level(parseLevel(level)).With().Timestamp().Logger()
}

// parseLevel maps a config level string to a zerolog level, falling
// back to info for anything unrecognized.
func parseLevel(s string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}
