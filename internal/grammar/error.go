// SPDX-License-Identifier: MPL-2.0

package grammar

import (
	"fmt"
	"strconv"
	"strings"
)

// SyntaxError describes a grammar failure at a byte offset.
type SyntaxError struct {
	// Kind names the grammar, e.g. "atom" or "version".
	Kind string
	// Input is the complete text that failed to parse.
	Input string
	// Offset is the byte offset of the failure within Input.
	Offset int
	// Expected describes the token the parser wanted (optional).
	Expected string
	// Msg is a free-form description used for semantic failures (optional).
	Msg string
}

// Errorf returns a SyntaxError at the current offset. The arguments format
// the description of the expected token.
func (s *Scanner) Errorf(expected string, args ...any) *SyntaxError {
	if len(args) > 0 {
		expected = fmt.Sprintf(expected, args...)
	}
	return s.ErrorAt(s.pos, expected, "")
}

// ErrorAt returns a SyntaxError at an explicit offset.
func (s *Scanner) ErrorAt(offset int, expected, msg string) *SyntaxError {
	return &SyntaxError{
		Kind:     s.kind,
		Input:    s.input,
		Offset:   offset,
		Expected: expected,
		Msg:      msg,
	}
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "invalid %s %q", e.Kind, e.Input)
	switch {
	case e.Msg != "" && e.Expected != "":
		fmt.Fprintf(&b, ": %s, expected %s", e.Msg, e.Expected)
	case e.Msg != "":
		fmt.Fprintf(&b, ": %s", e.Msg)
	case e.Expected != "":
		fmt.Fprintf(&b, ": expected %s", e.Expected)
	}
	fmt.Fprintf(&b, " at offset %d", e.Offset)
	return b.String()
}

// Context renders the offending line with a caret under the failure offset.
// Multi-line input (dependency strings) is reduced to the line holding the
// offset.
func (e *SyntaxError) Context() string {
	line, col := e.line()
	return line + "\n" + strings.Repeat(" ", col) + "^"
}

// line returns the input line containing Offset and the column within it.
func (e *SyntaxError) line() (string, int) {
	off := min(max(e.Offset, 0), len(e.Input))
	start := strings.LastIndexByte(e.Input[:off], '\n') + 1
	end := strings.IndexByte(e.Input[off:], '\n')
	if end < 0 {
		end = len(e.Input)
	} else {
		end += off
	}
	// Tabs keep the caret aligned with the rendered line.
	line := strings.ReplaceAll(e.Input[start:end], "\t", " ")
	return line, off - start
}

// Shift returns a copy of e relocated into a larger input that embeds the
// original text at base. Dependency parsing uses it to report atom failures
// relative to the whole dependency string.
func (e *SyntaxError) Shift(kind, input string, base int) *SyntaxError {
	shifted := *e
	shifted.Kind = kind
	shifted.Input = input
	shifted.Offset = base + e.Offset
	if shifted.Msg == "" {
		shifted.Msg = "invalid " + e.Kind + " " + strconv.Quote(e.Input)
	} else {
		shifted.Msg = "invalid " + e.Kind + " " + strconv.Quote(e.Input) + ": " + e.Msg
	}
	return &shifted
}

func quoteByte(c byte) string {
	if c == 0 {
		return "end of input"
	}
	return strconv.QuoteRune(rune(c))
}
