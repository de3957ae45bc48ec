package table

import (
	"strings"
	"unicode/utf8"

	"github.com/zakazai/flatdb/internal/types"
)

// Format renders the table as a text grid:
//
//	+--+-----+
//	|id|name |
//	+--+-----+
//	|1 |Alice|
//	+--+-----+
//
// Each column is as wide as its longest cell, header included.
func (t *Table) Format() string {
	cells := make([][]string, 0, len(t.rows)+1)
	cells = append(cells, t.columns)
	for _, r := range t.rows {
		line := make([]string, len(t.columns))
		for i := range line {
			if i < len(r) {
				line[i] = types.FormatValue(r[i])
			}
		}
		cells = append(cells, line)
	}
	widths := make([]int, len(t.columns))
	for _, line := range cells {
		for i, c := range line {
			widths[i] = max(widths[i], utf8.RuneCountInString(c))
		}
	}

	var b strings.Builder
	border := func() {
		b.WriteByte('+')
		for _, w := range widths {
			b.WriteString(strings.Repeat("-", w))
			b.WriteByte('+')
		}
		b.WriteByte('\n')
	}
	border()
	for i, line := range cells {
		b.WriteByte('|')
		for j, c := range line {
			b.WriteString(c)
			b.WriteString(strings.Repeat(" ", widths[j]-utf8.RuneCountInString(c)))
			b.WriteByte('|')
		}
		b.WriteByte('\n')
		if i == 0 || i == len(cells)-1 {
			border()
		}
	}
	return b.String()
}

func (t *Table) String() string {
	return t.Format()
}
