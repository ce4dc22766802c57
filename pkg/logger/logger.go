package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation describes a rotated log file. Sizes are in megabytes, ages in days.
type Rotation struct {
	File       string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

// New builds the application logger writing to w, or stdout when w is nil.
// Records are JSON in prod and text everywhere else.
func New(w io.Writer, lvl string, addSource bool, environment string) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}

	level := parseLevel(lvl)

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: addSource,
	}
	var handler slog.Handler

	if strings.ToLower(environment) == "prod" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler).With(
		slog.String("environment", environment),
	)
}

// NewRotatingWriter returns a size-rotated file writer for r.File.
func NewRotatingWriter(r Rotation) io.WriteCloser {
	if r.MaxSize <= 0 {
		r.MaxSize = 100
	}
	if r.MaxBackups <= 0 {
		r.MaxBackups = 3
	}
	if r.MaxAge <= 0 {
		r.MaxAge = 28
	}

	return &lumberjack.Logger{
		Filename:   r.File,
		MaxSize:    r.MaxSize,
		MaxBackups: r.MaxBackups,
		MaxAge:     r.MaxAge,
		Compress:   r.Compress,
	}
}

// Output returns stdout, teed into a rotated file when r.File is set.
// The closer is nil when there is no file to close.
func Output(r Rotation) (io.Writer, io.Closer) {
	if r.File == "" {
		return os.Stdout, nil
	}

	file := NewRotatingWriter(r)
	return io.MultiWriter(os.Stdout, file), file
}

func parseLevel(level string) slog.Level {

	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
