package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	runewidth "github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// Status is the outcome shown next to a provisioned or verified item.
type Status string

const (
	StatusCreated   Status = "created"
	StatusUnchanged Status = "unchanged"
	StatusPlanned   Status = "planned"
	StatusFailed    Status = "failed"
	StatusPassed    Status = "passed"
	StatusUnknown   Status = "unknown"
)

// Printer renders terminal UI fragments used by the CLI.
type Printer struct {
	out     io.Writer
	success *color.Color
	info    *color.Color
	warn    *color.Color
	error   *color.Color
	faint   *color.Color
}

// NewPrinter writes to stdout, with colour when stdout is a terminal and
// NO_COLOR is unset.
func NewPrinter() *Printer {
	return NewPrinterTo(os.Stdout, isTerminal(os.Stdout) && os.Getenv("NO_COLOR") == "")
}

// NewPrinterTo writes to out with colour forced on or off.
func NewPrinterTo(out io.Writer, colors bool) *Printer {
	p := &Printer{
		out:     out,
		success: color.New(color.FgGreen, color.Bold),
		info:    color.New(color.FgBlue, color.Bold),
		warn:    color.New(color.FgYellow, color.Bold),
		error:   color.New(color.FgRed, color.Bold),
		faint:   color.New(color.Faint),
	}

	for _, c := range []*color.Color{p.success, p.info, p.warn, p.error, p.faint} {
		if colors {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// PrintBanner renders the application banner with the target database.
func (p *Printer) PrintBanner(target string) {
	lines := []string{
		"=========================================================",
		"  mongoprov: document store provisioning",
		"  target: " + target,
		"=========================================================",
	}
	for _, line := range lines {
		p.success.Fprintln(p.out, line)
	}
}

// PrintSeparator prints char repeated length times.
func (p *Printer) PrintSeparator(char string, length int) {
	if length <= 0 {
		return
	}
	fmt.Fprintln(p.out, strings.Repeat(char, length))
}

// PrintHeading prints a bold section title.
func (p *Printer) PrintHeading(title string) {
	p.info.Fprintln(p.out, title)
}

// PrintStatus renders `[ ✓ ] label (status) detail`.
func (p *Printer) PrintStatus(label string, status Status, detail string) {
	var mark string
	switch status {
	case StatusCreated, StatusPassed:
		mark = p.success.Sprint("✓")
	case StatusUnchanged:
		mark = p.info.Sprint("=")
	case StatusPlanned:
		mark = p.warn.Sprint("+")
	case StatusFailed:
		mark = p.error.Sprint("✕")
	default:
		mark = "-"
		status = StatusUnknown
	}

	line := fmt.Sprintf("[ %s ] %s (%s)", mark, label, status)
	if detail != "" {
		line += " " + p.faint.Sprint(detail)
	}
	fmt.Fprintln(p.out, line)
}

// PrintLines prints each line verbatim; lines starting with "//" are faint.
func (p *Printer) PrintLines(lines []string) {
	for _, line := range lines {
		if strings.HasPrefix(line, "//") {
			p.faint.Fprintln(p.out, line)
			continue
		}
		fmt.Fprintln(p.out, line)
	}
}

// PrintTable renders rows in columns padded to their display width, so
// emoji and wide characters line up.
func (p *Printer) PrintTable(headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			if w := runewidth.StringWidth(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}

	p.info.Fprintln(p.out, formatRow(headers, widths))
	for _, row := range rows {
		fmt.Fprintln(p.out, formatRow(row, widths))
	}
}

func formatRow(cells []string, widths []int) string {
	parts := make([]string, len(widths))
	for i := range widths {
		var cell string
		if i < len(cells) {
			cell = cells[i]
		}
		if i == len(widths)-1 {
			parts[i] = cell
			continue
		}
		parts[i] = runewidth.FillRight(cell, widths[i])
	}
	return strings.TrimRight(strings.Join(parts, "  "), " ")
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
