package analysis

import (
	"strings"
)

// Head renders the first n rows as a Markdown table. n <= 0 defaults to 5.
func (t *Table) Head(n int) string {
	if n <= 0 {
		n = 5
	}
	if n > t.Rows {
		n = t.Rows
	}
	var b strings.Builder
	b.WriteString("|")
	for _, c := range t.Columns {
		b.WriteString(" ")
		b.WriteString(safeVal(c.Name))
		b.WriteString(" |")
	}
	b.WriteString("\n|")
	for range t.Columns {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for i := 0; i < n; i++ {
		b.WriteString("|")
		for _, c := range t.Columns {
			b.WriteString(" ")
			b.WriteString(safeVal(c.Format(i)))
			b.WriteString(" |")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
