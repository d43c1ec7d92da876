package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// parseLogLevel maps a --log-level value to a zap level. Empty means info.
func parseLogLevel(s string) (zapcore.Level, error) {
	switch s {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q (valid: debug, info, error)", s)
	}
}

// newLogger builds a development-style zap logger writing to w.
func newLogger(level zapcore.Level, w io.Writer) logr.Logger {
	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(w), level)
	return zapr.NewLogger(zap.New(core))
}

// openLogger returns the logger for a command. Full-screen commands own the
// terminal, so without a log file their logs are discarded. The returned
// function closes the log file.
func openLogger(level zapcore.Level, file string, fullscreen bool, stderr io.Writer) (logr.Logger, func(), error) {
	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return logr.Discard(), func() {}, fmt.Errorf("opening log file: %w", err)
		}
		return newLogger(level, f), func() { f.Close() }, nil
	}
	if fullscreen {
		return logr.Discard(), func() {}, nil
	}
	return newLogger(level, stderr), func() {}, nil
}
