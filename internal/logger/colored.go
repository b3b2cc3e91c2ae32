package logger

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
)

// ColoredLogger renders levels in colour when the output is a terminal.
type ColoredLogger struct {
	*StandardLogger
}

// NewColoredLogger returns a logger for interactive terminal output. Colours
// are disabled for non-terminal writers and when NO_COLOR is set.
func NewColoredLogger(options ...Option) *ColoredLogger {
	std := NewStandardLogger(options...)

	std.formatter = &ColoredFormatter{
		timestampFormat: "15:04:05",
		enableColors:    isTerminal(std.output) && os.Getenv("NO_COLOR") == "",
	}

	return &ColoredLogger{StandardLogger: std}
}

// ColoredFormatter renders entries with coloured levels and faint fields.
type ColoredFormatter struct {
	timestampFormat string
	enableColors    bool
}

// Format converts the Entry into a coloured textual representation.
func (f *ColoredFormatter) Format(entry *Entry) ([]byte, error) {
	layout := f.timestampFormat
	if layout == "" {
		layout = time.RFC3339
	}

	level := entry.Level.String()
	if !f.enableColors {
		return formatEntry(entry, entry.Time.Format(layout), level, nil), nil
	}

	if c := levelColor(entry.Level); c != nil {
		level = c.Sprint(level)
	}
	faint := color.New(color.Faint)
	return formatEntry(entry, entry.Time.Format(layout), level, func(field Field) string {
		return faint.Sprint(fmt.Sprintf("%s=%v", field.Key, field.Value))
	}), nil
}
