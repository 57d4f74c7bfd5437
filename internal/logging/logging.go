// Package logging builds the bot's zap logger: colored console output
// for the operator and, optionally, a rotated JSON file for later
// inspection.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-colorable"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	// Level is a zap level name: debug, info, warn, error.
	Level string
	// File, when set, receives a JSON copy of every entry.
	File string
	// MaxSizeMB is the size at which File is rotated.
	MaxSizeMB int
	// MaxBackups is the number of rotated files kept.
	MaxBackups int
	// NoColor disables level colors on the console.
	NoColor bool
	// Console overrides stdout, mostly for tests.
	Console io.Writer
}

// New creates a logger from opts. The returned logger should be synced
// before exit.
func New(opts Options) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(defaultString(opts.Level, "info"))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}

	consoleConfig := zap.NewDevelopmentEncoderConfig()
	consoleConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	if opts.NoColor || os.Getenv("NO_COLOR") != "" {
		consoleConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	} else {
		consoleConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	console := opts.Console
	if console == nil {
		console = colorable.NewColorableStdout()
	}
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleConfig), zapcore.AddSync(console), level),
	}

	if opts.File != "" {
		fileConfig := zap.NewProductionEncoderConfig()
		fileConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    max(opts.MaxSizeMB, 1),
			MaxBackups: opts.MaxBackups,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileConfig), zapcore.AddSync(rotator), level))
	}

	return zap.New(zapcore.NewTee(cores...)), nil
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
