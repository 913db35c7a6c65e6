// SPDX-License-Identifier: MPL-2.0

package grammar

import "strings"

type (
	// Class reports whether a byte belongs to a character class.
	Class func(c byte) bool

	// Scanner walks an input string one byte at a time. All grammars in this
	// module are ASCII-only, so byte offsets double as column numbers in
	// diagnostics.
	Scanner struct {
		kind  string
		input string
		pos   int
	}
)

// Common character classes.
var (
	Digit = Class(func(c byte) bool { return c >= '0' && c <= '9' })
	Lower = Class(func(c byte) bool { return c >= 'a' && c <= 'z' })
	Alpha = Class(func(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') })
	Alnum = Or(Alpha, Digit)
	Space = Class(func(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f' })
)

// Set returns a class matching any byte in chars.
func Set(chars string) Class {
	return func(c byte) bool { return strings.IndexByte(chars, c) >= 0 }
}

// Or returns a class matching a byte accepted by any of classes.
func Or(classes ...Class) Class {
	return func(c byte) bool {
		for _, cl := range classes {
			if cl(c) {
				return true
			}
		}
		return false
	}
}

// All reports whether every byte of s is in class c. The empty string is not.
func (c Class) All(s string) bool {
	if s == "" {
		return false
	}
	for i := range len(s) {
		if !c(s[i]) {
			return false
		}
	}
	return true
}

// NewScanner creates a Scanner. The kind names the grammar ("atom",
// "version", ...) and is used only in error messages.
func NewScanner(kind, input string) *Scanner {
	return &Scanner{kind: kind, input: input}
}

// Input returns the full text being scanned.
func (s *Scanner) Input() string { return s.input }

// Pos returns the current byte offset.
func (s *Scanner) Pos() int { return s.pos }

// Reset moves the scanner back to a previously saved offset.
func (s *Scanner) Reset(pos int) { s.pos = pos }

// EOF reports whether the whole input has been consumed.
func (s *Scanner) EOF() bool { return s.pos >= len(s.input) }

// Rest returns the unconsumed input.
func (s *Scanner) Rest() string { return s.input[s.pos:] }

// Peek returns the next byte without consuming it, or 0 at end of input.
func (s *Scanner) Peek() byte {
	if s.EOF() {
		return 0
	}
	return s.input[s.pos]
}

// PeekAt returns the byte n positions ahead, or 0 past the end.
func (s *Scanner) PeekAt(n int) byte {
	if s.pos+n >= len(s.input) {
		return 0
	}
	return s.input[s.pos+n]
}

// HasPrefix reports whether the unconsumed input starts with lit.
func (s *Scanner) HasPrefix(lit string) bool {
	return strings.HasPrefix(s.Rest(), lit)
}

// Accept consumes lit if the input continues with it.
func (s *Scanner) Accept(lit string) bool {
	if !s.HasPrefix(lit) {
		return false
	}
	s.pos += len(lit)
	return true
}

// AcceptByte consumes one byte if it belongs to class c.
func (s *Scanner) AcceptByte(c Class) bool {
	if s.EOF() || !c(s.input[s.pos]) {
		return false
	}
	s.pos++
	return true
}

// AcceptRun consumes the longest run of bytes in class c and returns it.
func (s *Scanner) AcceptRun(c Class) string {
	start := s.pos
	for !s.EOF() && c(s.input[s.pos]) {
		s.pos++
	}
	return s.input[start:s.pos]
}

// Advance consumes n bytes, stopping at end of input.
func (s *Scanner) Advance(n int) {
	s.pos = min(s.pos+n, len(s.input))
}

// Expect consumes lit or returns a SyntaxError naming it.
func (s *Scanner) Expect(lit string) error {
	if s.Accept(lit) {
		return nil
	}
	return s.Errorf("%q", lit)
}

// ExpectEOF fails unless the whole input has been consumed.
func (s *Scanner) ExpectEOF() error {
	if s.EOF() {
		return nil
	}
	return s.ErrorAt(s.pos, "end of input", "unexpected "+quoteByte(s.Peek()))
}
