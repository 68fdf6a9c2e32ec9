// Package ui renders command output: aligned tables, key/value blocks and
// coloured status lines.
package ui

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
)

// Table renders rows under a header with aligned columns
type Table struct {
	w       io.Writer
	headers []string
	rows    [][]string
	noColor bool
}

// NewTable creates a table with the given headers
func NewTable(w io.Writer, noColor bool, headers ...string) *Table {
	return &Table{w: w, headers: headers, noColor: noColor}
}

// AddRow adds a row. Missing cells render empty; extra cells are dropped.
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.headers))
	copy(row, cells)
	t.rows = append(t.rows, row)
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.rows)
}

// Render writes the table
func (t *Table) Render() {
	if len(t.headers) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = width(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			widths[i] = max(widths[i], width(cell))
		}
	}

	head := paint(t.noColor, color.Bold, color.FgCyan)
	rule := paint(t.noColor, color.FgHiBlack)

	t.line(widths, t.headers, head)
	seps := make([]string, len(widths))
	for i, w := range widths {
		seps[i] = strings.Repeat("─", w)
	}
	t.line(widths, seps, rule)
	for _, row := range t.rows {
		t.line(widths, row, nil)
	}
}

func (t *Table) line(widths []int, cells []string, c *color.Color) {
	var b strings.Builder
	for i, cell := range cells {
		if i > 0 {
			b.WriteString("  ")
		}
		if i == len(cells)-1 {
			b.WriteString(cell)
		} else {
			b.WriteString(padRight(cell, widths[i]))
		}
	}
	if c != nil {
		c.Fprintln(t.w, b.String())
		return
	}
	fmt.Fprintln(t.w, b.String())
}

func width(s string) int {
	return utf8.RuneCountInString(s)
}

func padRight(s string, w int) string {
	if n := width(s); n < w {
		return s + strings.Repeat(" ", w-n)
	}
	return s
}

// KeyValue renders "key: value" lines with aligned values
type KeyValue struct {
	w       io.Writer
	keys    []string
	values  []string
	noColor bool
}

// NewKeyValue creates an empty key/value block
func NewKeyValue(w io.Writer, noColor bool) *KeyValue {
	return &KeyValue{w: w, noColor: noColor}
}

// Add appends a pair
func (kv *KeyValue) Add(key string, value any) {
	kv.keys = append(kv.keys, key)
	kv.values = append(kv.values, fmt.Sprint(value))
}

// Render writes the block
func (kv *KeyValue) Render() {
	keyWidth := 0
	for _, k := range kv.keys {
		keyWidth = max(keyWidth, width(k)+1)
	}
	c := paint(kv.noColor, color.FgCyan)
	for i, k := range kv.keys {
		c.Fprint(kv.w, padRight(k+":", keyWidth))
		fmt.Fprintf(kv.w, " %s\n", kv.values[i])
	}
}
