// SPDX-License-Identifier: MPL-2.0

package restrict

import (
	"errors"
	"fmt"
	"strings"

	"pkgkit/internal/grammar"
	"pkgkit/pkg/atom"
)

// MaxQueryDepth bounds parenthesis and negation nesting in a query.
const MaxQueryDepth = 64

// ErrInvalidQuery is the sentinel error wrapped by QueryError.
var ErrInvalidQuery = errors.New("invalid package query")

type (
	// QueryError is returned by Parse for malformed queries, unknown
	// attributes and invalid regular expressions or atoms.
	QueryError struct {
		Syntax *grammar.SyntaxError
		// Err is the cause when a well-formed term was rejected.
		Err error
	}

	queryParser struct {
		sc    *grammar.Scanner
		depth int
	}
)

var (
	identChars = grammar.Or(grammar.Lower, grammar.Set("_"))
	blank      = grammar.Set(" \t")
)

// Error implements the error interface.
func (e *QueryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %v", e.Syntax, e.Err)
	}
	return e.Syntax.Error()
}

// Unwrap exposes ErrInvalidQuery, the positional error and the cause.
func (e *QueryError) Unwrap() []error {
	errs := []error{ErrInvalidQuery, e.Syntax}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Parse converts query text into a package restriction. Terms compare an
// attribute with a quoted string and combine with &&, || or ^^ inside
// parentheses; see the package documentation for the grammar.
func Parse(query string) (Package, error) {
	p := &queryParser{sc: grammar.NewScanner("package query", query)}
	p.space()
	r, err := p.sequence()
	if err != nil {
		return nil, err
	}
	p.space()
	if err := p.sc.ExpectEOF(); err != nil {
		return nil, p.wrap(err)
	}
	return r, nil
}

// MustParse is Parse for queries known to be valid. It panics on error.
func MustParse(query string) Package {
	r, err := Parse(query)
	if err != nil {
		panic(err)
	}
	return r
}

func (p *queryParser) wrap(err error) error {
	var syn *grammar.SyntaxError
	if errors.As(err, &syn) {
		return &QueryError{Syntax: syn}
	}
	return &QueryError{Syntax: p.sc.Errorf(""), Err: err}
}

func (p *queryParser) fail(offset int, expected string, cause error) error {
	return &QueryError{Syntax: p.sc.ErrorAt(offset, expected, ""), Err: cause}
}

func (p *queryParser) space() { p.sc.AcceptRun(blank) }

// sequence parses terms joined by one boolean operator. Mixing operators
// without parentheses is ambiguous and rejected.
func (p *queryParser) sequence() (Package, error) {
	first, err := p.term()
	if err != nil {
		return nil, err
	}
	terms := []Package{first}
	op := ""
	for {
		p.space()
		at := p.sc.Pos()
		next := ""
		for _, candidate := range []string{"&&", "||", "^^"} {
			if p.sc.Accept(candidate) {
				next = candidate
				break
			}
		}
		if next == "" {
			break
		}
		if op != "" && next != op {
			return nil, &QueryError{Syntax: p.sc.ErrorAt(at, "", fmt.Sprintf("%s after %s needs parentheses", next, op))}
		}
		op = next
		p.space()
		t, err := p.term()
		if err != nil {
			return nil, err
		}
		terms = append(terms, t)
	}

	switch op {
	case "&&":
		return And(terms...), nil
	case "||":
		return Or(terms...), nil
	case "^^":
		return Xor(terms...), nil
	}
	return first, nil
}

func (p *queryParser) term() (Package, error) {
	if p.depth >= MaxQueryDepth {
		return nil, &QueryError{Syntax: p.sc.ErrorAt(p.sc.Pos(), "", fmt.Sprintf("nested deeper than %d", MaxQueryDepth))}
	}
	p.depth++
	defer func() { p.depth-- }()

	switch {
	case p.sc.Accept("!"):
		p.space()
		r, err := p.term()
		if err != nil {
			return nil, err
		}
		return Not(r), nil
	case p.sc.Accept("("):
		p.space()
		r, err := p.sequence()
		if err != nil {
			return nil, err
		}
		p.space()
		if err := p.sc.Expect(")"); err != nil {
			return nil, p.wrap(err)
		}
		return r, nil
	}
	return p.expr()
}

func (p *queryParser) ident() (string, int, error) {
	at := p.sc.Pos()
	name := p.sc.AcceptRun(identChars)
	if name == "" {
		return "", at, p.wrap(p.sc.Errorf("attribute name"))
	}
	return name, at, nil
}

// expr parses one attribute comparison.
func (p *queryParser) expr() (Package, error) {
	name, at, err := p.ident()
	if err != nil {
		return nil, err
	}
	p.space()

	switch {
	case name == "maintainers" && p.keyword("contains"):
		m, err := p.maintainerTerm()
		if err != nil {
			return nil, err
		}
		return Maintainers(m), nil

	case name == "atom":
		return p.atomTerm()

	case p.keyword("is"):
		if err := p.none(); err != nil {
			return nil, err
		}
		r, err := Absent(name)
		if err != nil {
			return nil, p.fail(at, "", err)
		}
		return r, nil

	case p.keyword("contains"):
		opAt := p.sc.Pos()
		op := p.operator()
		if op == "!=" || op == "!~" {
			return nil, &QueryError{Syntax: p.sc.ErrorAt(opAt, `"==" or "=~"`, "negate the whole term instead")}
		}
		s, err := p.strRestrict(op)
		if err != nil {
			return nil, err
		}
		r, err := Contains(name, s)
		if err != nil {
			return nil, p.fail(at, "", err)
		}
		return r, nil
	}

	op := p.operator()
	if op == "" {
		return nil, p.wrap(p.sc.Errorf(`"is None", "contains" or a comparison operator`))
	}
	s, err := p.strRestrict(op)
	if err != nil {
		return nil, err
	}
	r, err := Attr(name, s)
	if err != nil {
		return nil, p.fail(at, "", err)
	}
	// Negation wraps the attribute so the result renders as query text.
	if negated(op) {
		return Not(r), nil
	}
	return r, nil
}

// maintainerTerm parses the restriction after "maintainers contains".
func (p *queryParser) maintainerTerm() (Maintainer, error) {
	invert := p.sc.Accept("!")
	p.space()
	name, at, err := p.ident()
	if err != nil {
		return nil, err
	}
	p.space()

	var m Maintainer
	if p.keyword("is") {
		if err := p.none(); err != nil {
			return nil, err
		}
		if m, err = MaintainerAbsent(name); err != nil {
			return nil, p.fail(at, "", err)
		}
	} else {
		op := p.operator()
		if op == "" {
			return nil, p.wrap(p.sc.Errorf(`"is None" or a comparison operator`))
		}
		s, err := p.strRestrict(op)
		if err != nil {
			return nil, err
		}
		if m, err = MaintainerAttr(name, s); err != nil {
			return nil, p.fail(at, "", err)
		}
		invert = invert != negated(op)
	}
	if invert {
		return Not(m), nil
	}
	return m, nil
}

func (p *queryParser) atomTerm() (Package, error) {
	op := p.operator()
	if op != "==" && op != "!=" {
		return nil, p.wrap(p.sc.Errorf(`"==" or "!="`))
	}
	p.space()
	at := p.sc.Pos()
	s, err := p.quoted()
	if err != nil {
		return nil, err
	}
	a, err := atom.Parse(s)
	if err != nil {
		return nil, p.fail(at+1, "atom", err)
	}
	if op == "!=" {
		return Not(Atom(a)), nil
	}
	return Atom(a), nil
}

// keyword consumes word when it is followed by a blank.
func (p *queryParser) keyword(word string) bool {
	at := p.sc.Pos()
	if !p.sc.Accept(word) {
		return false
	}
	if p.space(); p.sc.Pos() == at+len(word) {
		p.sc.Reset(at)
		return false
	}
	return true
}

func (p *queryParser) none() error {
	if p.sc.Accept("None") || p.sc.Accept("none") {
		return nil
	}
	return p.wrap(p.sc.Errorf(`"None"`))
}

// operator consumes a comparison operator and any blanks after it. It
// returns "" when none is present.
func (p *queryParser) operator() string {
	for _, op := range []string{"==", "!=", "=~", "!~"} {
		if p.sc.Accept(op) {
			p.space()
			return op
		}
	}
	return ""
}

// strRestrict parses the quoted operand of op. An empty op means "==".
func (p *queryParser) strRestrict(op string) (Str, error) {
	at := p.sc.Pos()
	s, err := p.quoted()
	if err != nil {
		return Str{}, err
	}
	if op == "=~" || op == "!~" {
		re, err := Regex(s)
		if err != nil {
			return Str{}, p.fail(at+1, "", err)
		}
		return re, nil
	}
	return Equal(s), nil
}

// quoted parses a non-empty string in double or single quotes. There are
// no escapes; a string holding one kind of quote uses the other.
func (p *queryParser) quoted() (string, error) {
	q := p.sc.Peek()
	if q != '"' && q != '\'' {
		return "", p.wrap(p.sc.Errorf("quoted string"))
	}
	p.sc.Advance(1)
	rest := p.sc.Rest()
	end := strings.IndexByte(rest, q)
	switch {
	case end < 0:
		return "", p.wrap(p.sc.ErrorAt(len(p.sc.Input()), string(q), "unterminated string"))
	case end == 0:
		return "", p.wrap(p.sc.ErrorAt(p.sc.Pos(), "", "empty string"))
	}
	p.sc.Advance(end + 1)
	return rest[:end], nil
}

func negated(op string) bool { return op == "!=" || op == "!~" }

// quote renders s for query text.
func quote(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	return "'" + s + "'"
}
