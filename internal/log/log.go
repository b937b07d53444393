// Package log holds the wallet's zerolog loggers. Every subsystem logs
// through its own component logger so output can be filtered by the
// "component" field.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the root logger. Component loggers are derived from it.
var Logger zerolog.Logger

// Component loggers.
var (
	Wallet    zerolog.Logger
	Storage   zerolog.Logger
	Tx        zerolog.Logger
	Paymaster zerolog.Logger
	Pending   zerolog.Logger
	Network   zerolog.Logger
)

const consoleTimeFormat = "15:04:05"

// Rotation of the log file.
const (
	fileMaxSizeMB  = 20
	fileMaxBackups = 5
	fileMaxAgeDays = 30
)

// logFile is the rotating file of the last Init, if any.
var logFile *lumberjack.Logger

func init() {
	// Stdout carries command output; logs go to stderr.
	setRoot(consoleWriter(os.Stderr), zerolog.InfoLevel)
}

// Init configures the root logger. Console output is colored unless json is
// set. A non-empty file additionally receives JSON lines, rotated by size.
func Init(level string, json bool, file string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stderr
	if !json {
		w = consoleWriter(os.Stderr)
	}

	Close()
	if file != "" {
		logFile = &lumberjack.Logger{
			Filename:   file,
			MaxSize:    fileMaxSizeMB,
			MaxBackups: fileMaxBackups,
			MaxAge:     fileMaxAgeDays,
			Compress:   true,
		}
		w = zerolog.MultiLevelWriter(w, logFile)
	}

	setRoot(w, lvl)
	return nil
}

// Close releases the log file opened by Init.
func Close() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

// SetOutput sends JSON logs at level to w. Tests use it to capture output.
func SetOutput(w io.Writer, level string) {
	lvl, err := ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	setRoot(w, lvl)
}

// ParseLevel maps a configured level name to a zerolog level. The empty
// string means info and "off" disables logging.
func ParseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "":
		return zerolog.InfoLevel, nil
	case "off":
		return zerolog.Disabled, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("log level %q: %w", level, err)
	}
	return lvl, nil
}

func consoleWriter(out io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{Out: out, TimeFormat: consoleTimeFormat}
}

func setRoot(w io.Writer, lvl zerolog.Level) {
	Logger = zerolog.New(w).Level(lvl).With().Timestamp().Logger()

	Wallet = component("wallet")
	Storage = component("storage")
	Tx = component("tx")
	Paymaster = component("paymaster")
	Pending = component("pending")
	Network = component("network")
}

func component(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}
