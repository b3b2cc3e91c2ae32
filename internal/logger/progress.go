package logger

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Progress describes progress indicators that can be started and stopped.
type Progress interface {
	Start(operation string)
	Stop(operation string)
	Fail(operation string)
}

// SpinnerProgress renders a spinner while one operation is running.
type SpinnerProgress struct {
	mu      sync.Mutex
	output  io.Writer
	frames  []string
	stopCh  chan struct{}
	stopped chan struct{}
}

// NewSpinnerProgress creates a spinner writing to output.
func NewSpinnerProgress(output io.Writer) *SpinnerProgress {
	if output == nil {
		output = io.Discard
	}

	return &SpinnerProgress{
		output: output,
		frames: []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
	}
}

// Start begins rendering the spinner next to message. A running spinner is
// stopped first.
func (p *SpinnerProgress) Start(message string) {
	p.halt()

	p.mu.Lock()
	stopCh := make(chan struct{})
	stopped := make(chan struct{})
	p.stopCh, p.stopped = stopCh, stopped
	p.mu.Unlock()

	go func() {
		defer close(stopped)

		ticker := time.NewTicker(120 * time.Millisecond)
		defer ticker.Stop()

		for i := 0; ; i++ {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				p.mu.Lock()
				fmt.Fprintf(p.output, "\r%s %s", p.frames[i%len(p.frames)], message)
				p.mu.Unlock()
			}
		}
	}()
}

// Stop terminates the spinner and prints a success line.
func (p *SpinnerProgress) Stop(message string) {
	p.halt()
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.output, "\r✓ %s\n", message)
}

// Fail terminates the spinner and prints a failure line.
func (p *SpinnerProgress) Fail(message string) {
	p.halt()
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.output, "\r✕ %s\n", message)
}

func (p *SpinnerProgress) halt() {
	p.mu.Lock()
	stopCh, stopped := p.stopCh, p.stopped
	p.stopCh, p.stopped = nil, nil
	p.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-stopped
}

// LineProgress prints one line per state change. Used when the output is
// not a terminal, where carriage-return animation would garble logs.
type LineProgress struct {
	mu     sync.Mutex
	output io.Writer
}

// NewLineProgress creates a LineProgress writing to output.
func NewLineProgress(output io.Writer) *LineProgress {
	if output == nil {
		output = io.Discard
	}
	return &LineProgress{output: output}
}

func (p *LineProgress) Start(message string) {
	p.print("→", message)
}

func (p *LineProgress) Stop(message string) {
	p.print("✓", message)
}

func (p *LineProgress) Fail(message string) {
	p.print("✕", message)
}

func (p *LineProgress) print(mark, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.output, "%s %s\n", mark, message)
}

// NewProgress picks a spinner for terminals and a LineProgress otherwise.
func NewProgress(output io.Writer) Progress {
	if isTerminal(output) {
		return NewSpinnerProgress(output)
	}
	return NewLineProgress(output)
}
