// Package output renders the CLI's package listings: an aligned text table
// for terminals, plus JSON/CSV export for scripting. Width arithmetic is
// Unicode-aware via go-runewidth so CJK package names and versions pad
// correctly.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

// column is one table column: header text, the widest value seen so far,
// and whether the column is suppressed from output.
type column struct {
	header string
	width  int
	hidden bool
}

// Table lays out rows of locked-package fields with per-column padding.
// Columns are declared up front; widths grow as rows are measured.
type Table struct {
	columns   []column
	separator string
}

// NewTable returns an empty table with the default two-space separator.
func NewTable() *Table {
	return &Table{separator: "  "}
}

// AddColumn declares a column sized to its header.
func (t *Table) AddColumn(header string) *Table {
	t.columns = append(t.columns, column{header: header, width: DisplayWidth(header)})
	return t
}

// AddColumnWithMinWidth declares a column that never shrinks below minWidth,
// so short-valued columns like SYSTEM stay visually stable across runs.
func (t *Table) AddColumnWithMinWidth(header string, minWidth int) *Table {
	width := DisplayWidth(header)
	if minWidth > width {
		width = minWidth
	}
	t.columns = append(t.columns, column{header: header, width: width})
	return t
}

// AddConditionalColumn declares a column that is only rendered when visible
// is true. Hidden columns still consume a slot in FormatRow's value list, so
// callers can pass every field unconditionally.
func (t *Table) AddConditionalColumn(header string, visible bool) *Table {
	t.columns = append(t.columns, column{header: header, width: DisplayWidth(header), hidden: !visible})
	return t
}

// UpdateWidths widens columns to fit a row's values. Call once per row
// before rendering anything if rows should share a common layout.
func (t *Table) UpdateWidths(values ...string) *Table {
	for i, val := range values {
		if i >= len(t.columns) {
			break
		}
		if w := DisplayWidth(val); w > t.columns[i].width {
			t.columns[i].width = w
		}
	}
	return t
}

// HeaderRow returns the padded header line, skipping hidden columns.
func (t *Table) HeaderRow() string {
	var parts []string
	for _, col := range t.columns {
		if !col.hidden {
			parts = append(parts, ToWidth(col.header, col.width))
		}
	}
	return strings.Join(parts, t.separator)
}

// SeparatorRow returns the dashed line printed under the header.
func (t *Table) SeparatorRow() string {
	var parts []string
	for _, col := range t.columns {
		if !col.hidden {
			parts = append(parts, strings.Repeat("-", col.width))
		}
	}
	return strings.Join(parts, t.separator)
}

// FormatRow pads one value per declared column, dropping values whose
// column is hidden. Missing trailing values render as empty cells.
func (t *Table) FormatRow(values ...string) string {
	var parts []string
	for i, col := range t.columns {
		if col.hidden {
			continue
		}
		val := ""
		if i < len(values) {
			val = values[i]
		}
		parts = append(parts, ToWidth(val, col.width))
	}
	return strings.Join(parts, t.separator)
}

// ColumnCount reports the number of declared columns, hidden included.
func (t *Table) ColumnCount() int { return len(t.columns) }

// VisibleColumnCount reports how many columns will actually render.
func (t *Table) VisibleColumnCount() int {
	n := 0
	for _, col := range t.columns {
		if !col.hidden {
			n++
		}
	}
	return n
}

// Fprint writes the header and separator lines to w; data rows follow via
// FormatRow in the caller's loop.
func (t *Table) Fprint(w io.Writer) {
	_, _ = fmt.Fprintln(w, t.HeaderRow())
	_, _ = fmt.Fprintln(w, t.SeparatorRow())
}

// ShouldShowGroupColumn reports whether a GROUP column carries any signal:
// it does once some non-empty group holds two or more packages. A lockfile
// where every package sits alone in its own group renders without the
// column.
func ShouldShowGroupColumn(groups []string) bool {
	counts := make(map[string]int)
	for _, g := range groups {
		g = strings.TrimSpace(g)
		if g == "" {
			continue
		}
		counts[g]++
		if counts[g] >= 2 {
			return true
		}
	}
	return false
}

// DisplayWidth measures a string's terminal display width, counting
// double-width runes as two cells.
func DisplayWidth(s string) int {
	return runewidth.StringWidth(s)
}

// ToWidth left-aligns s within width display cells. Strings already at or
// beyond the width are returned unchanged, never truncated.
func ToWidth(s string, width int) string {
	pad := width - DisplayWidth(s)
	if pad <= 0 {
		return s
	}
	return s + strings.Repeat(" ", pad)
}
