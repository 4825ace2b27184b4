// Package pathparse turns free-form mark input (a plain path, free text, or a
// grep-style "path:line[:column][:snippet]" string) into structured fields.
package pathparse

import (
	"regexp"
	"strconv"
)

// grepRe matches the whole input; the path segment is limited to word
// characters, slashes and dots.
var grepRe = regexp.MustCompile(`^([\w/.]+):(\d+)(?::(\d+))?(?::(.*))?$`)

// Parts holds the fields extracted from one input string.
type Parts struct {
	Name   string
	Body   string
	Path   string
	Line   int
	Column int
}

// Parse extracts path, line, column and snippet from input.
//
// Input that does not match the grep grammar is returned verbatim as name,
// body and path with a zero line and column. That fallback lets arbitrary
// text be marked, so it never produces an error.
func Parse(input string) Parts {
	if input == "" {
		return Parts{}
	}

	m := grepRe.FindStringSubmatch(input)
	if m == nil {
		return Parts{Name: input, Body: input, Path: input}
	}

	out := Parts{
		Path:   m[1],
		Line:   atoi(m[2]),
		Column: atoi(m[3]),
	}
	snippet := m[4]
	if snippet == "" {
		snippet = out.Path
	}
	out.Name = snippet
	out.Body = snippet
	return out
}

// atoi converts a matched digit run; overflowing or empty values become 0.
func atoi(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
