// Package stringtest builds expected multi-line strings for tests.
package stringtest

import "strings"

// Input dedents a raw string literal so test fixtures can be indented along
// with the surrounding code. One leading and one trailing newline are
// removed, then the common leading whitespace of all non-blank lines is
// stripped. Whitespace-only lines become empty.
//
// Example:
//
//	cfg := stringtest.Input(`
//		profile:
//		  cpu: true
//	`) // -> "profile:\n  cpu: true"
func Input(s string) string {
	s = strings.TrimPrefix(s, "\n")
	s = strings.TrimSuffix(s, "\n")

	lines := strings.Split(s, "\n")

	indent := -1

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}

		n := len(line) - len(strings.TrimLeft(line, " \t"))
		if indent < 0 || n < indent {
			indent = n
		}
	}

	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			lines[i] = ""
			continue
		}

		lines[i] = line[indent:]
	}

	return strings.Join(lines, "\n")
}

// JoinLF joins multiple strings with LF line endings.
// Use this to construct expected test output with explicit line endings.
//
// Example:
//
//	want := stringtest.JoinLF(
//		"line1",
//		"line2",
//	) // -> "line1\nline2"
func JoinLF(ss ...string) string {
	return strings.Join(ss, "\n")
}
