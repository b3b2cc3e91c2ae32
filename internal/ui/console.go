package ui

import (
	"fmt"
	"io"
	"os"

	"mongoprov/internal/logger"
)

// Console coordinates logger output, progress indicators and plain text writes.
type Console struct {
	logger   logger.Logger
	progress logger.Progress
	output   io.Writer
}

// NewConsole builds a Console bound to log. A nil output means stdout; the
// progress indicator is chosen for the output (spinner on a terminal).
func NewConsole(log logger.Logger, output io.Writer) *Console {
	if output == nil {
		output = os.Stdout
	}
	return &Console{
		logger:   log,
		output:   output,
		progress: logger.NewProgress(output),
	}
}

// WithProgress replaces the progress indicator.
func (c *Console) WithProgress(p logger.Progress) *Console {
	c.progress = p
	return c
}

// Logger exposes the underlying logger.
func (c *Console) Logger() logger.Logger {
	return c.logger
}

// Output exposes the plain output writer.
func (c *Console) Output() io.Writer {
	return c.output
}

// Success logs a success message with a check mark prefix.
func (c *Console) Success(format string, args ...interface{}) {
	if c.logger == nil {
		return
	}
	c.logger.Info("✓ "+format, args...)
}

// StartProgress starts the progress indicator for operation.
func (c *Console) StartProgress(operation string) {
	if c.progress != nil {
		c.progress.Start(operation)
	}
}

// StopProgress marks operation as done.
func (c *Console) StopProgress(operation string) {
	if c.progress != nil {
		c.progress.Stop(operation)
	}
}

// FailProgress marks operation as failed.
func (c *Console) FailProgress(operation string) {
	if c.progress != nil {
		c.progress.Fail(operation)
	}
}

// WriteLine outputs formatted text without involving the logger.
func (c *Console) WriteLine(format string, args ...interface{}) {
	fmt.Fprintf(c.output, format+"\n", args...)
}
