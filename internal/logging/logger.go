package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LoggerType - Output format of a logger returned by New
type LoggerType uint8

// ConsoleLogger - Human readable lines, JSONLogger - one JSON object per line
const (
	ConsoleLogger LoggerType = iota
	JSONLogger
)

// Options - Settings for New
//   - Level defaults to zerolog.DebugLevel (the zero value)
//   - Type selects console or JSON output
//   - Out defaults to os.Stderr
type Options struct {
	Level zerolog.Level
	Type  LoggerType
	Out   io.Writer
}

// New - Returns a logger writing console formatted or JSON lines
func New(opts Options) zerolog.Logger {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	switch opts.Type {
	case ConsoleLogger:
		return zerolog.New(newConsoleWriter(out)).Level(opts.Level).
			With().Timestamp().Logger()
	default:
		return zerolog.New(out).Level(opts.Level).
			With().Timestamp().Logger()
	}
}

// Nop - Returns a logger that discards everything, the default of a database handle
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

// Component - Returns a child logger tagged with component and the database path
func Component(parent zerolog.Logger, component, path string) zerolog.Logger {
	return parent.With().Str("component", component).Str("path", path).Logger()
}

func newConsoleWriter(out io.Writer) zerolog.ConsoleWriter {
	cw := zerolog.ConsoleWriter{Out: out, NoColor: true, TimeFormat: time.RFC3339}

	cw.FormatLevel = func(i interface{}) string {
		return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
	}

	cw.FormatMessage = func(i interface{}) string {
		return fmt.Sprintf("message: \"%s\" |", i)
	}

	cw.FormatFieldName = func(i interface{}) string {
		return fmt.Sprintf("\"%s\": ", i)
	}

	cw.FormatFieldValue = func(i interface{}) string {
		return fmt.Sprintf("\"%s\" |", i)
	}

	return cw
}
