// SPDX-License-Identifier: MPL-2.0

package depspec

import (
	"errors"
	"fmt"
	"strings"

	"pkgkit/internal/grammar"
	"pkgkit/pkg/atom"
)

// DefaultMaxDepth is the group nesting limit applied when no WithMaxDepth
// option is given.
const DefaultMaxDepth = 256

// ErrInvalidDependencyTree is the sentinel error wrapped by InvalidTreeError.
var ErrInvalidDependencyTree = errors.New("invalid dependency tree")

type (
	// InvalidTreeError is returned when dependency text is malformed: an
	// unbalanced or empty group, a group operator not followed by "(", a
	// leaf that fails its own grammar, or nesting beyond the depth limit.
	InvalidTreeError struct {
		Value  string
		Syntax *grammar.SyntaxError
		// Err is the leaf parser's error when a leaf was rejected.
		Err error
	}

	// ParseOption configures parsing.
	ParseOption func(*parseOptions)

	parseOptions struct {
		maxDepth int
	}

	// grammarRules lists the group operators one metadata key accepts.
	grammarRules struct {
		kind         string
		anyOf        bool
		exactlyOneOf bool
		atMostOneOf  bool
	}

	token struct {
		text   string
		offset int
	}
)

var (
	dependencyRules = grammarRules{kind: "dependency", anyOf: true, exactlyOneOf: true}
	licenseRules    = grammarRules{kind: "license", anyOf: true}
	stringRules     = grammarRules{kind: "string"}
	requiredUse     = grammarRules{kind: "required use", anyOf: true, exactlyOneOf: true, atMostOneOf: true}
)

// Error implements the error interface.
func (e *InvalidTreeError) Error() string {
	if e.Syntax != nil {
		return e.Syntax.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("invalid dependency tree %q: %v", e.Value, e.Err)
	}
	return fmt.Sprintf("invalid dependency tree %q", e.Value)
}

// Unwrap exposes ErrInvalidDependencyTree, the positional syntax error and
// the leaf error when present.
func (e *InvalidTreeError) Unwrap() []error {
	errs := []error{ErrInvalidDependencyTree}
	if e.Syntax != nil {
		errs = append(errs, e.Syntax)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// WithMaxDepth sets the group nesting limit. Values below one select
// DefaultMaxDepth.
func WithMaxDepth(depth int) ParseOption {
	return func(o *parseOptions) {
		if depth > 0 {
			o.maxDepth = depth
		}
	}
}

// ParseDependencies parses a dependency class value (DEPEND, RDEPEND, ...).
func ParseDependencies(s string, opts ...ParseOption) (Tree[*atom.Atom], error) {
	return parse(s, dependencyRules, atom.Parse, opts)
}

// ParseLicense parses a LICENSE value.
func ParseLicense(s string, opts ...ParseOption) (Tree[string], error) {
	return parse(s, licenseRules, parseWord, opts)
}

// ParseStrings parses RESTRICT or PROPERTIES values, which allow only
// use-conditional and all-of groups.
func ParseStrings(s string, opts ...ParseOption) (Tree[string], error) {
	return parse(s, stringRules, parseWord, opts)
}

// ParseRequiredUse parses a REQUIRED_USE value.
func ParseRequiredUse(s string, opts ...ParseOption) (Tree[UseFlag], error) {
	return parse(s, requiredUse, parseUseFlag, opts)
}

func parseWord(s string) (string, error) {
	return s, nil
}

// parse builds a tree from text with an explicit stack of open groups. The
// stack bottom is a synthetic all-of holding the top-level nodes.
func parse[T any](s string, rules grammarRules, leaf func(string) (T, error), opts []ParseOption) (Tree[T], error) {
	o := parseOptions{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(&o)
	}

	sc := grammar.NewScanner(rules.kind, s)
	fail := func(offset int, expected, msg string) error {
		return &InvalidTreeError{Value: s, Syntax: sc.ErrorAt(offset, expected, msg)}
	}

	tokens := tokenize(s)
	type open struct {
		node   *Node[T]
		offset int
	}
	stack := []open{{node: AllOf[T]()}}

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]

		var group *Node[T]
		switch {
		case tok.text == "(":
			group = AllOf[T]()
		case tok.text == ")":
			if len(stack) == 1 {
				return nil, fail(tok.offset, "", "unbalanced ')'")
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if len(top.node.Children) == 0 {
				return nil, fail(top.offset, "", "empty "+top.node.Kind.String()+" group")
			}
			parent := stack[len(stack)-1].node
			parent.Children = append(parent.Children, top.node)
			continue
		case tok.text == "||" && rules.anyOf:
			group = AnyOf[T]()
		case tok.text == "^^" && rules.exactlyOneOf:
			group = ExactlyOneOf[T]()
		case tok.text == "??" && rules.atMostOneOf:
			group = AtMostOneOf[T]()
		case tok.text == "||" || tok.text == "^^" || tok.text == "??":
			return nil, fail(tok.offset, "", tok.text+" groups are not allowed in "+rules.kind+" values")
		case strings.HasSuffix(tok.text, "?") && len(tok.text) > 1:
			flag := strings.TrimSuffix(tok.text, "?")
			negated := strings.HasPrefix(flag, "!")
			flag = strings.TrimPrefix(flag, "!")
			if !atom.ValidUseFlag(flag) {
				return nil, fail(tok.offset, "USE flag name before '?'", "")
			}
			if negated {
				group = UseDisabled[T](flag)
			} else {
				group = UseEnabled[T](flag)
			}
		}

		if group == nil {
			v, err := leaf(tok.text)
			if err != nil {
				e := &InvalidTreeError{Value: s, Err: err}
				var se *grammar.SyntaxError
				if errors.As(err, &se) {
					e.Syntax = se.Shift(rules.kind, s, tok.offset)
				} else {
					e.Syntax = sc.ErrorAt(tok.offset, "", err.Error())
				}
				return nil, e
			}
			top := stack[len(stack)-1].node
			top.Children = append(top.Children, Leaf(v))
			continue
		}

		offset := tok.offset
		if group.Kind != KindAllOf {
			// Group operators must be followed by an opening parenthesis.
			if i+1 >= len(tokens) || tokens[i+1].text != "(" {
				next := len(s)
				if i+1 < len(tokens) {
					next = tokens[i+1].offset
				}
				return nil, fail(next, "'(' after "+tok.text, "")
			}
			i++
		}
		if len(stack) > o.maxDepth {
			return nil, fail(offset, "", fmt.Sprintf("groups nested deeper than %d", o.maxDepth))
		}
		stack = append(stack, open{node: group, offset: offset})
	}

	if len(stack) > 1 {
		return nil, fail(len(s), "')'", "unclosed group")
	}
	return Tree[T](stack[0].node.Children), nil
}

// tokenize splits s on runs of whitespace, remembering byte offsets.
func tokenize(s string) []token {
	var tokens []token
	start := -1
	for i := 0; i < len(s); i++ {
		if grammar.Space(s[i]) {
			if start >= 0 {
				tokens = append(tokens, token{text: s[start:i], offset: start})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		tokens = append(tokens, token{text: s[start:], offset: start})
	}
	return tokens
}
