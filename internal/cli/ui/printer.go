package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

func paint(noColor bool, attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if noColor {
		c.DisableColor()
	}
	return c
}

// Printer writes coloured status lines
type Printer struct {
	w       io.Writer
	noColor bool
}

// NewPrinter creates a Printer on w
func NewPrinter(w io.Writer, noColor bool) *Printer {
	return &Printer{w: w, noColor: noColor}
}

// Writer returns the underlying writer
func (p *Printer) Writer() io.Writer {
	return p.w
}

// NoColor reports whether colours are disabled
func (p *Printer) NoColor() bool {
	return p.noColor
}

// Header prints a bold title with a rule under it
func (p *Printer) Header(title string) {
	paint(p.noColor, color.Bold, color.FgCyan).Fprintln(p.w, title)
	paint(p.noColor, color.FgHiBlack).Fprintln(p.w, strings.Repeat("─", width(title)))
}

// Success prints a green check line
func (p *Printer) Success(format string, args ...any) {
	paint(p.noColor, color.FgGreen, color.Bold).Fprintf(p.w, "✓ %s\n", fmt.Sprintf(format, args...))
}

// Info prints a cyan line
func (p *Printer) Info(format string, args ...any) {
	paint(p.noColor, color.FgCyan).Fprintf(p.w, "%s\n", fmt.Sprintf(format, args...))
}

// Skip prints a dimmed line for work that was already done
func (p *Printer) Skip(format string, args ...any) {
	paint(p.noColor, color.FgHiBlack).Fprintf(p.w, "- %s\n", fmt.Sprintf(format, args...))
}

// Warn prints a yellow warning line
func (p *Printer) Warn(format string, args ...any) {
	paint(p.noColor, color.FgYellow).Fprintf(p.w, "! %s\n", fmt.Sprintf(format, args...))
}

// Error prints a red error with optional suggestions
func (p *Printer) Error(message string, suggestions ...string) {
	paint(p.noColor, color.FgRed, color.Bold).Fprintf(p.w, "✗ %s\n", message)
	if len(suggestions) > 0 {
		paint(p.noColor, color.FgYellow).Fprintf(p.w, "  Did you mean: %s?\n", strings.Join(suggestions, ", "))
	}
}

// Table starts a table on the printer's writer
func (p *Printer) Table(headers ...string) *Table {
	return NewTable(p.w, p.noColor, headers...)
}
