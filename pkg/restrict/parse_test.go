// SPDX-License-Identifier: MPL-2.0

package restrict

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"pkgkit/internal/grammar"
	"pkgkit/pkg/atom"
	"pkgkit/pkg/metadata"
)

func testPackages(t *testing.T) []*metadata.Package {
	t.Helper()

	xml := &metadata.PackageXML{
		Maintainers: []metadata.Maintainer{
			{Email: "jane@example.org", Name: "Jane Doe", Type: metadata.MaintainerPerson, Proxied: "yes"},
			{Email: "crypto@example.org", Name: "Crypto", Type: metadata.MaintainerProject, Proxied: "no"},
		},
		LongDescription: "A library that pairs with dev-libs/openssl.",
	}
	defs := []struct {
		cpv   string
		cache string
		opts  []metadata.Option
	}{
		{
			"app-misc/foo-1.0",
			"EAPI=8\nSLOT=0\nDESCRIPTION=A crypto library\nKEYWORDS=amd64 ~arm64\nIUSE=+ssl doc\nHOMEPAGE=https://foo.example.org\n",
			[]metadata.Option{metadata.WithPackageXML(xml)},
		},
		{
			"app-misc/foo-2.0",
			"EAPI=8\nSLOT=2/2.1\nDESCRIPTION=A crypto library\nKEYWORDS=~amd64\nIUSE=ssl\n",
			[]metadata.Option{metadata.WithPackageXML(xml)},
		},
		{
			"dev-util/bar-3",
			"EAPI=7\nSLOT=0\nDESCRIPTION=Build tools\nKEYWORDS=amd64\n",
			nil,
		},
	}

	pkgs := make([]*metadata.Package, len(defs))
	for i, d := range defs {
		p, err := metadata.DecodeCache(atom.MustParseCPV(d.cpv), "test", []byte(d.cache), d.opts...)
		if err != nil {
			t.Fatalf("DecodeCache(%s) error: %v", d.cpv, err)
		}
		pkgs[i] = p
	}
	return pkgs
}

func filter(r Package, pkgs []*metadata.Package) []string {
	var out []string
	for _, p := range pkgs {
		if r.Matches(p) {
			out = append(out, p.CPV().String())
		}
	}
	return out
}

func TestParse_Filter(t *testing.T) {
	t.Parallel()

	pkgs := testPackages(t)
	const (
		foo1 = "app-misc/foo-1.0"
		foo2 = "app-misc/foo-2.0"
		bar  = "dev-util/bar-3"
	)

	tests := []struct {
		query string
		want  []string
	}{
		{`category == "app-misc"`, []string{foo1, foo2}},
		{`package != "foo"`, []string{bar}},
		{`version == "2.0"`, []string{foo2}},
		{`eapi == '7'`, []string{bar}},
		{`slot == "0"`, []string{foo1, bar}},
		{`subslot == "2.1"`, []string{foo2}},
		{`description =~ "(?i)CRYPTO"`, []string{foo1, foo2}},
		{`description !~ "crypto"`, []string{bar}},
		{`long_description is None`, []string{bar}},
		{`long_description =~ "openssl"`, []string{foo1, foo2}},
		{`keywords contains "amd64"`, []string{foo1, bar}},
		{`keywords contains =~ "^~"`, []string{foo1, foo2}},
		{`!keywords contains "~amd64"`, []string{foo1, bar}},
		{`iuse contains == "doc"`, []string{foo1}},
		{`iuse is None`, []string{bar}},
		{`homepage is none`, []string{foo2, bar}},
		{`maintainers is None`, []string{bar}},
		{`maintainers contains email == "jane@example.org"`, []string{foo1, foo2}},
		{`maintainers contains type == "project" `, []string{foo1, foo2}},
		{`maintainers contains !proxied == "yes"`, []string{foo1, foo2}},
		{`maintainers contains description is None`, []string{foo1, foo2}},
		{`!maintainers contains name =~ "Doe$"`, []string{bar}},
		{`slot == "0" && keywords contains "amd64"`, []string{foo1, bar}},
		{`slot == "2" || eapi == "7"`, []string{foo2, bar}},
		{`slot == "0" ^^ package == "foo"`, []string{foo2, bar}},
		{`(slot == "0" || slot == "2") && !(package == "bar")`, []string{foo1, foo2}},
		{`!(slot == "0" && package == "foo")`, []string{foo2, bar}},
		{`atom == ">=app-misc/foo-2"`, []string{foo2}},
		{`atom != "app-misc/foo:0"`, []string{foo2, bar}},
		{`  ( ( category == "dev-util" ) )  `, []string{bar}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			t.Parallel()

			r, err := Parse(tt.query)
			if err != nil {
				t.Fatalf("Parse() error: %v", err)
			}
			if got := filter(r, pkgs); !slices.Equal(got, tt.want) {
				t.Errorf("matched %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParse_RoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		query string
		want  string
	}{
		{`slot=="0"`, `slot == "0"`},
		{`slot != '0'`, `!slot == "0"`},
		{`description =~ 'say "hi"'`, `description =~ 'say "hi"'`},
		{`keywords contains "amd64"`, `keywords contains == "amd64"`},
		{`maintainers contains email != "x@y"`, `maintainers contains !email == "x@y"`},
		{`maintainers contains !email != "x@y"`, `maintainers contains email == "x@y"`},
		{`slot == "0" && (eapi == "8" || eapi == "7") && !iuse is None`, `(slot == "0" && (eapi == "8" || eapi == "7") && !iuse is None)`},
		{`atom != "<app-misc/foo-2"`, `!atom == "<app-misc/foo-2"`},
		{`slot == "0" ^^ slot == "1"`, `(slot == "0" ^^ slot == "1")`},
	}

	for _, tt := range tests {
		r, err := Parse(tt.query)
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", tt.query, err)
		}
		if got := r.String(); got != tt.want {
			t.Errorf("Parse(%q).String() = %q, want %q", tt.query, got, tt.want)
		}
		again, err := Parse(r.String())
		if err != nil {
			t.Fatalf("re-parse of %q error: %v", r.String(), err)
		}
		if again.String() != r.String() {
			t.Errorf("re-parse of %q = %q", r.String(), again.String())
		}
	}
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		query string
		msg   string
		cause error
	}{
		{"", "attribute name", nil},
		{`slot`, "comparison operator", nil},
		{`slot == 0`, "quoted string", nil},
		{`slot == ""`, "empty string", nil},
		{`slot == "0`, "unterminated string", nil},
		{`slot == "0" &&`, "attribute name", nil},
		{`slot == "0" && eapi == "8" || eapi == "7"`, "|| after && needs parentheses", nil},
		{`(slot == "0"`, `")"`, nil},
		{`slot == "0")`, "end of input", nil},
		{`slot is nil`, `"None"`, nil},
		{`slot contains "0"`, "list attribute", ErrUnknownAttribute},
		{`color == "red"`, `package attribute "color"`, ErrUnknownAttribute},
		{`keywords contains != "amd64"`, "negate the whole term", nil},
		{`maintainers contains phone == "1"`, `maintainer attribute "phone"`, ErrUnknownAttribute},
		{`description =~ "("`, "invalid regex", nil},
		{`atom == "not an atom"`, "atom", atom.ErrInvalidAtom},
		{`atom =~ "foo"`, `"==" or "!="`, nil},
		{strings.Repeat("(", MaxQueryDepth+1) + `slot == "0"` + strings.Repeat(")", MaxQueryDepth+1), "nested deeper", nil},
		{strings.Repeat("!", MaxQueryDepth+1) + `slot == "0"`, "nested deeper", nil},
	}

	for _, tt := range tests {
		_, err := Parse(tt.query)
		if err == nil {
			t.Errorf("Parse(%q) succeeded, want error", tt.query)
			continue
		}
		if !errors.Is(err, ErrInvalidQuery) {
			t.Errorf("Parse(%q) error %v is not ErrInvalidQuery", tt.query, err)
		}
		var syn *grammar.SyntaxError
		if !errors.As(err, &syn) {
			t.Errorf("Parse(%q) error %v carries no SyntaxError", tt.query, err)
		}
		if !strings.Contains(err.Error(), tt.msg) {
			t.Errorf("Parse(%q) error = %q, want it to mention %q", tt.query, err, tt.msg)
		}
		if tt.cause != nil && !errors.Is(err, tt.cause) {
			t.Errorf("Parse(%q) error %v does not wrap %v", tt.query, err, tt.cause)
		}
	}
}

func TestParse_NestingWithinLimit(t *testing.T) {
	t.Parallel()

	q := strings.Repeat("(", MaxQueryDepth-1) + `slot == "0"` + strings.Repeat(")", MaxQueryDepth-1)
	if _, err := Parse(q); err != nil {
		t.Errorf("Parse() of %d nested groups error: %v", MaxQueryDepth-1, err)
	}
}

func TestMustParse_Panics(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Error("MustParse() did not panic")
		}
	}()
	MustParse("slot")
}

func TestAttributes(t *testing.T) {
	t.Parallel()

	names := Attributes()
	if !slices.IsSorted(names) {
		t.Errorf("Attributes() = %v, not sorted", names)
	}
	for _, want := range []string{"category", "keywords", "maintainers", "long_description"} {
		if !slices.Contains(names, want) {
			t.Errorf("Attributes() missing %q", want)
		}
	}
}
