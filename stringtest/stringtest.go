// Package stringtest builds expected text output in tests.
package stringtest

import "strings"

// Lines joins lines with LF line endings and terminates the last line, the
// way text files and line-oriented writers produce them.
//
// Example:
//
//	want := stringtest.Lines(
//		"[Input]",
//		"|..|U.|",
//		"[/Input]",
//	) // -> "[Input]\n|..|U.|\n[/Input]\n"
func Lines(lines ...string) string {
	if len(lines) == 0 {
		return ""
	}

	return strings.Join(lines, "\n") + "\n"
}

// Tabbed joins the fields of each row with tabs and the rows with [Lines].
func Tabbed(rows ...[]string) string {
	lines := make([]string, len(rows))
	for i, row := range rows {
		lines[i] = strings.Join(row, "\t")
	}

	return Lines(lines...)
}
