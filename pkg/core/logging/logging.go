// Package logging configures the process-wide structured logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/phuslu/log"
)

// Setup installs the default logger. format is "console" or "json".
func Setup(level, format string) {
	SetupWriter(os.Stderr, level, format)
}

// SetupWriter is Setup with an explicit destination.
func SetupWriter(w io.Writer, level, format string) {
	if level == "" {
		level = "info"
	}
	var writer log.Writer
	switch strings.ToLower(format) {
	case "json":
		writer = &log.IOWriter{Writer: w}
	default:
		writer = &log.ConsoleWriter{Writer: w, ColorOutput: w == os.Stderr, QuoteString: true}
	}
	log.DefaultLogger = log.Logger{
		Level:      log.ParseLevel(strings.ToLower(level)),
		Caller:     0,
		TimeFormat: "15:04:05",
		Writer:     writer,
	}
}
