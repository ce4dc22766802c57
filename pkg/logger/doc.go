// Package logger builds the gateway's structured log/slog logger. Output goes
// to stdout and, when a file is configured, to a lumberjack-rotated log file.
package logger
