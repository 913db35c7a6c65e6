// SPDX-License-Identifier: MPL-2.0

package atom

import (
	"slices"
	"testing"
)

type testPackage struct {
	cpv     CPV
	slot    string
	subslot string
	repo    string
	iuse    []string
	enabled []string
}

func (p testPackage) CPV() CPV        { return p.cpv }
func (p testPackage) Slot() string    { return p.slot }
func (p testPackage) Subslot() string { return p.subslot }
func (p testPackage) Repo() string    { return p.repo }

func (p testPackage) Use(flag string) (enabled, declared bool) {
	return slices.Contains(p.enabled, flag), slices.Contains(p.iuse, flag)
}

type flagSet []string

func (f flagSet) Enabled(flag string) bool { return slices.Contains(f, flag) }

func pkg(cpv string) testPackage {
	return testPackage{cpv: MustParseCPV(cpv), slot: "0", subslot: "0", repo: "gentoo"}
}

func TestAtom_MatchesVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		atom    string
		version string
		want    bool
	}{
		{"cat/pkg", "1.0", true},
		{"=cat/pkg-1.0", "1.0", true},
		{"=cat/pkg-1.0", "1.0-r0", true},
		{"=cat/pkg-1.0", "1.0-r1", false},
		{"=cat/pkg-1.0", "1.00", true},
		{"<cat/pkg-1.0", "1.0_rc1", true},
		{"<cat/pkg-1.0", "1.0", false},
		{"<=cat/pkg-1.0", "1.0", true},
		{">cat/pkg-1.0", "1.0-r1", true},
		{">cat/pkg-1.0", "1.0", false},
		{">=cat/pkg-1.0", "1.0", true},
		{">=cat/pkg-1.0", "0.9", false},
		{"~cat/pkg-1.0", "1.0-r5", true},
		{"~cat/pkg-1.0", "1.0", true},
		{"~cat/pkg-1.0", "1.0.1", false},
		{"~cat/pkg-1.0", "1.0_p1", false},
		{"~cat/pkg-1.0-r2", "1.0-r1", false},
		{"~cat/pkg-1.0-r2", "1.0-r3", true},
		{"=cat/pkg-1.2*", "1.2", true},
		{"=cat/pkg-1.2*", "1.2.5", true},
		{"=cat/pkg-1.2*", "1.20", true},
		{"=cat/pkg-1.2*", "1.3", false},
		{"=cat/pkg-1.2*", "1.2-r1", true},
	}

	for _, tt := range tests {
		a := MustParse(tt.atom)
		p := pkg("cat/pkg-" + tt.version)
		if got := a.Matches(p); got != tt.want {
			t.Errorf("%q.Matches(%q) = %v, want %v", tt.atom, tt.version, got, tt.want)
		}
	}
}

func TestAtom_Matches_ExactReflexive(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"a/b-1", "a/b-1.0_rc2-r3", "dev-libs/foo-bar-2.0a"} {
		p := pkg(s)
		if !FromCPV(p.cpv).Matches(p) {
			t.Errorf("FromCPV(%q) does not match its own package", s)
		}
	}
}

func TestAtom_Matches_Predicates(t *testing.T) {
	t.Parallel()

	base := pkg("cat/pkg-1.0")
	base.slot, base.subslot = "2", "2.1"
	base.iuse = []string{"ssl", "gtk", "qt"}
	base.enabled = []string{"ssl"}

	tests := []struct {
		atom string
		want bool
	}{
		{"cat/pkg", true},
		{"cat/other", false},
		{"other/pkg", false},
		{"cat/pkg:2", true},
		{"cat/pkg:3", false},
		{"cat/pkg:2/2.1", true},
		{"cat/pkg:2/2.2", false},
		{"cat/pkg:*", true},
		{"cat/pkg:=", true},
		{"cat/pkg::gentoo", true},
		{"cat/pkg::overlay", false},
		{"cat/pkg[ssl]", true},
		{"cat/pkg[-ssl]", false},
		{"cat/pkg[-gtk,ssl]", true},
		{"cat/pkg[gtk]", false},
		{"cat/pkg[doc]", false},
		{"cat/pkg[doc(+)]", true},
		{"cat/pkg[doc(-)]", false},
		{"cat/pkg[-doc(-)]", true},
		{"cat/pkg[gtk?]", true},
		{"!cat/pkg:2", true},
	}

	for _, tt := range tests {
		if got := MustParse(tt.atom).Matches(base); got != tt.want {
			t.Errorf("%q.Matches() = %v, want %v", tt.atom, got, tt.want)
		}
	}
}

func TestAtom_EvaluateUseDeps(t *testing.T) {
	t.Parallel()

	tests := []struct {
		atom   string
		parent flagSet
		want   string
	}{
		{"cat/pkg[a,-b]", nil, "cat/pkg[a,-b]"},
		{"cat/pkg[a?]", flagSet{"a"}, "cat/pkg[a]"},
		{"cat/pkg[a?]", nil, "cat/pkg"},
		{"cat/pkg[!a?]", nil, "cat/pkg[-a]"},
		{"cat/pkg[!a?]", flagSet{"a"}, "cat/pkg"},
		{"cat/pkg[a=]", flagSet{"a"}, "cat/pkg[a]"},
		{"cat/pkg[a=]", nil, "cat/pkg[-a]"},
		{"cat/pkg[!a=]", flagSet{"a"}, "cat/pkg[-a]"},
		{"cat/pkg[!a=]", nil, "cat/pkg[a]"},
		{"cat/pkg[x,a(+)=,b?]", flagSet{"b"}, "cat/pkg[x,-a(+),b]"},
	}

	for _, tt := range tests {
		a := MustParse(tt.atom)
		got := a.EvaluateUseDeps(tt.parent).String()
		if got != tt.want {
			t.Errorf("EvaluateUseDeps(%q, %v) = %q, want %q", tt.atom, tt.parent, got, tt.want)
		}
		if a.String() != tt.atom {
			t.Errorf("EvaluateUseDeps mutated %q into %q", tt.atom, a.String())
		}
	}
}
