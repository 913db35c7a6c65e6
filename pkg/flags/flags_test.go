// SPDX-License-Identifier: MPL-2.0

package flags

import (
	"errors"
	"slices"
	"testing"

	"pkgkit/pkg/atom"
	"pkgkit/pkg/depspec"
	"pkgkit/pkg/metadata"
)

var _ depspec.FlagSet = Assignment{}

func mustPackage(t *testing.T, cpv, iuse string) *metadata.Package {
	t.Helper()
	p, err := metadata.DecodeCache(atom.MustParseCPV(cpv), "gentoo", []byte("SLOT=0\nIUSE="+iuse+"\n"))
	if err != nil {
		t.Fatalf("DecodeCache(%s) error: %v", cpv, err)
	}
	return p
}

func TestStatic_For(t *testing.T) {
	t.Parallel()

	p := mustPackage(t, "app-misc/foo-1.0", "+ssl -doc gtk qt")

	tests := []struct {
		name       string
		global     []string
		packageUse []string
		want       []string
	}{
		{"iuse defaults", nil, nil, []string{"ssl"}},
		{"global enables", []string{"gtk", "doc"}, nil, []string{"doc", "gtk", "ssl"}},
		{"global disables default", []string{"-ssl"}, nil, nil},
		{"global reset", []string{"-*", "qt"}, nil, []string{"qt"}},
		{"global flag outside iuse ignored", []string{"X"}, nil, []string{"ssl"}},
		{"package use wins", []string{"gtk"}, []string{"app-misc/foo -gtk qt"}, []string{"qt", "ssl"}},
		{"package use later entry wins", nil, []string{"app-misc/foo doc", "app-misc/foo -doc"}, []string{"ssl"}},
		{"package use version miss", nil, []string{">=app-misc/foo-2 doc"}, []string{"ssl"}},
		{"package use other package", nil, []string{"app-misc/bar doc"}, []string{"ssl"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var pu []PackageUse
			for _, line := range tt.packageUse {
				entry, err := ParsePackageUse(line)
				if err != nil {
					t.Fatalf("ParsePackageUse(%q) error: %v", line, err)
				}
				pu = append(pu, entry)
			}
			a := NewStatic(tt.global, pu).For(p)
			if got := a.EnabledFlags(); !slices.Equal(got, tt.want) && (len(got) != 0 || len(tt.want) != 0) {
				t.Errorf("EnabledFlags() = %v, want %v", got, tt.want)
			}
			if !slices.Equal(a.KnownFlags(), []string{"doc", "gtk", "qt", "ssl"}) {
				t.Errorf("KnownFlags() = %v", a.KnownFlags())
			}
		})
	}
}

func TestStatic_Global(t *testing.T) {
	t.Parallel()

	a := NewStatic([]string{"ssl", "doc", "-doc", "-X"}, nil).Global()
	if !a.Enabled("ssl") || a.Enabled("doc") || a.Enabled("X") {
		t.Errorf("Global() = %s", a)
	}
	if !a.Known("X") || a.Known("gtk") {
		t.Errorf("Global() universe = %v", a.KnownFlags())
	}
	if a.String() != "-X -doc ssl" {
		t.Errorf("String() = %q, want %q", a.String(), "-X -doc ssl")
	}
}

func TestNewAssignment(t *testing.T) {
	t.Parallel()

	a := NewAssignment([]string{"a"}, "b")
	if !a.Enabled("a") || a.Enabled("b") {
		t.Errorf("Enabled mismatch: %s", a)
	}
	if !a.Known("a") || !a.Known("b") || a.Known("c") {
		t.Errorf("Known mismatch: %v", a.KnownFlags())
	}
}

func TestParsePackageUse_Invalid(t *testing.T) {
	t.Parallel()

	for _, line := range []string{"", "app-misc/foo", ">=app-misc/foo ssl", "app-misc/foo +ssl", "app-misc/foo -"} {
		if _, err := ParsePackageUse(line); !errors.Is(err, ErrInvalidUse) {
			t.Errorf("ParsePackageUse(%q) error = %v, want ErrInvalidUse", line, err)
		}
	}
}
