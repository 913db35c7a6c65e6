// SPDX-License-Identifier: MPL-2.0

package repo

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"slices"
	"testing"

	"pkgkit/internal/testutil"
	"pkgkit/pkg/atom"
	"pkgkit/pkg/metadata"
)

const fooEbuild = `EAPI=8
DESCRIPTION="from ebuild"
SLOT="0"
IUSE="+ssl"
RDEPEND="ssl? ( dev-libs/openssl )"
`

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func writeEbuildTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{
		"profiles/repo_name":                    "local\n",
		"metadata/layout.conf":                  "masters = gentoo\nthin-manifests = true\n",
		"app-misc/foo/foo-1.0.ebuild":           fooEbuild,
		"app-misc/foo/foo-2.0.ebuild":           fooEbuild,
		"app-misc/foo/Manifest":                 "DIST foo-1.0.tar.gz 1 BLAKE2B 00\n",
		"app-misc/foo/metadata.xml":             "<pkgmetadata/>\n",
		"app-misc/foo/bar-3.0.ebuild":           fooEbuild,
		"app-misc/foo/files/foo.patch":          "",
		"dev-libs/openssl/openssl-3.ebuild":     "SLOT=\"0/3\"\n",
		"dev-libs/openssl/not-a-version.ebuild": "SLOT=0\n",
		"eclass/foo.eclass":                     "",
		".git/HEAD":                             "ref: main\n",
		// Valid cache for 1.0, stale cache for 2.0.
		"metadata/md5-cache/app-misc/foo-1.0": "DESCRIPTION=from cache\nSLOT=0\n_md5_=" + md5Hex(fooEbuild) + "\n",
		"metadata/md5-cache/app-misc/foo-2.0": "DESCRIPTION=stale\nSLOT=0\n_md5_=0123\n",
	})
	return root
}

func TestEbuildLocation(t *testing.T) {
	t.Parallel()

	root := writeEbuildTree(t)
	loc, err := NewEbuildLocation(root)
	if err != nil {
		t.Fatalf("NewEbuildLocation() error: %v", err)
	}
	if loc.Name() != "local" || loc.Root() != root {
		t.Errorf("Name() = %q, Root() = %q", loc.Name(), loc.Root())
	}
	if !slices.Equal(loc.Masters(), []string{"gentoo"}) {
		t.Errorf("Masters() = %v", loc.Masters())
	}

	r := mustOpen(t, loc)
	want := []string{"app-misc/foo-1.0", "app-misc/foo-2.0", "app-misc/foo-3.0", "dev-libs/openssl-3"}
	if got := cpvStrings(slices.Collect(r.List())); !slices.Equal(got, want) {
		t.Fatalf("List() = %v, want %v", got, want)
	}

	ctx := context.Background()
	tests := []struct {
		cpv  string
		desc string
	}{
		{"app-misc/foo-1.0", "from cache"},
		{"app-misc/foo-2.0", "from ebuild"},
	}
	for _, tt := range tests {
		p, err := r.Metadata(ctx, atom.MustParseCPV(tt.cpv))
		if err != nil {
			t.Fatalf("Metadata(%s) error: %v", tt.cpv, err)
		}
		if p.Description() != tt.desc {
			t.Errorf("Metadata(%s).Description() = %q, want %q", tt.cpv, p.Description(), tt.desc)
		}
		if p.Repo() != "local" {
			t.Errorf("Metadata(%s).Repo() = %q", tt.cpv, p.Repo())
		}
	}

	_, err = r.Metadata(ctx, atom.MustParseCPV("app-misc/foo-3.0"))
	if !errors.Is(err, ErrMismatch) || !errors.Is(err, metadata.ErrParse) {
		t.Errorf("Metadata(misnamed) error = %v, want ErrMismatch", err)
	}
}

func TestEbuildLocation_SyncPicksUpChanges(t *testing.T) {
	t.Parallel()

	root := writeEbuildTree(t)
	loc, err := NewEbuildLocation(root)
	if err != nil {
		t.Fatalf("NewEbuildLocation() error: %v", err)
	}
	r := mustOpen(t, loc)
	ctx := context.Background()
	if _, err := r.Metadata(ctx, atom.MustParseCPV("app-misc/foo-2.0")); err != nil {
		t.Fatalf("Metadata() error: %v", err)
	}

	testutil.MustWriteFile(t, root+"/app-misc/foo/foo-2.0.ebuild", "SLOT=\"2\"\n")
	testutil.MustWriteFile(t, root+"/app-misc/foo/foo-2.1.ebuild", "SLOT=\"2\"\n")
	testutil.MustRemove(t, root+"/dev-libs/openssl/openssl-3.ebuild")

	delta, err := r.Sync(ctx)
	if err != nil {
		t.Fatalf("Sync() error: %v", err)
	}
	if got := cpvStrings(delta.Added); !slices.Equal(got, []string{"app-misc/foo-2.1"}) {
		t.Errorf("Added = %v", got)
	}
	if got := cpvStrings(delta.Removed); !slices.Equal(got, []string{"dev-libs/openssl-3"}) {
		t.Errorf("Removed = %v", got)
	}
	if got := cpvStrings(delta.Changed); !slices.Equal(got, []string{"app-misc/foo-2.0"}) {
		t.Errorf("Changed = %v", got)
	}
}

func TestEbuildLocation_PackageXML(t *testing.T) {
	t.Parallel()

	root := writeEbuildTree(t)
	testutil.MustWriteFile(t, root+"/app-misc/foo/metadata.xml", `<pkgmetadata>
	<maintainer type="project"><email>misc@example.org</email><name>Misc</name></maintainer>
	<longdescription>Foo does
		things.</longdescription>
</pkgmetadata>
`)
	testutil.MustWriteFile(t, root+"/dev-libs/openssl/metadata.xml", "<pkgmetadata><maintainer>")
	loc, err := NewEbuildLocation(root)
	if err != nil {
		t.Fatalf("NewEbuildLocation() error: %v", err)
	}
	r := mustOpen(t, loc)
	ctx := context.Background()

	foo, err := r.Metadata(ctx, atom.MustParseCPV("app-misc/foo-1.0"))
	if err != nil {
		t.Fatalf("Metadata(foo) error: %v", err)
	}
	want := []metadata.Maintainer{{Email: "misc@example.org", Name: "Misc", Type: metadata.MaintainerProject, Proxied: "no"}}
	if !slices.Equal(foo.Maintainers(), want) {
		t.Errorf("Maintainers() = %+v, want %+v", foo.Maintainers(), want)
	}
	if foo.LongDescription() != "Foo does things." {
		t.Errorf("LongDescription() = %q", foo.LongDescription())
	}

	// Broken metadata.xml is ignored rather than failing the package.
	ssl, err := r.Metadata(ctx, atom.MustParseCPV("dev-libs/openssl-3"))
	if err != nil {
		t.Fatalf("Metadata(openssl) error: %v", err)
	}
	if len(ssl.Maintainers()) != 0 {
		t.Errorf("openssl Maintainers() = %+v, want none", ssl.Maintainers())
	}

	testutil.MustWriteFile(t, root+"/app-misc/foo/metadata.xml", "<pkgmetadata/>\n")
	delta, err := r.Sync(ctx)
	if err != nil {
		t.Fatalf("Sync() error: %v", err)
	}
	if got := cpvStrings(delta.Changed); !slices.Equal(got, []string{"app-misc/foo-1.0"}) {
		t.Errorf("Changed = %v, want [app-misc/foo-1.0]", got)
	}
	foo, err = r.Metadata(ctx, atom.MustParseCPV("app-misc/foo-1.0"))
	if err != nil {
		t.Fatalf("Metadata(foo) after sync error: %v", err)
	}
	if len(foo.Maintainers()) != 0 {
		t.Errorf("Maintainers() after sync = %+v, want none", foo.Maintainers())
	}
}

func TestEbuildLocation_Categories(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{
		"profiles/categories":       "# comment\napp-misc\n\nsys-apps\n",
		"app-misc/foo/foo-1.ebuild": "SLOT=0\n",
		"dev-libs/bar/bar-1.ebuild": "SLOT=0\n",
	})
	loc, err := NewEbuildLocation(root)
	if err != nil {
		t.Fatalf("NewEbuildLocation() error: %v", err)
	}
	view, err := loc.View(context.Background())
	if err != nil {
		t.Fatalf("View() error: %v", err)
	}
	if got := cpvStrings(view.List()); !slices.Equal(got, []string{"app-misc/foo-1"}) {
		t.Errorf("List() = %v, want only listed categories", got)
	}
}

func TestNewEbuildLocation_Errors(t *testing.T) {
	t.Parallel()

	if _, err := NewEbuildLocation(t.TempDir() + "/missing"); err == nil {
		t.Error("NewEbuildLocation(missing) succeeded")
	}

	root := t.TempDir()
	testutil.MustWriteFile(t, root+"/profiles/repo_name", "bad name\n")
	if _, err := NewEbuildLocation(root); err == nil {
		t.Error("NewEbuildLocation(invalid name) succeeded")
	}
}

func TestEbuildLocation_StaleSnapshot(t *testing.T) {
	t.Parallel()

	root := writeEbuildTree(t)
	loc, err := NewEbuildLocation(root)
	if err != nil {
		t.Fatalf("NewEbuildLocation() error: %v", err)
	}
	r := mustOpen(t, loc)
	before := r.Snapshot()
	ctx := context.Background()

	testutil.MustWriteFile(t, root+"/app-misc/foo/foo-2.0.ebuild", "SLOT=\"2\"\nKEYWORDS=\"amd64\"\n")
	testutil.MustRemove(t, root+"/dev-libs/openssl/openssl-3.ebuild")

	if _, err := before.Metadata(ctx, atom.MustParseCPV("app-misc/foo-2.0")); !errors.Is(err, ErrStale) {
		t.Errorf("Metadata(modified) error = %v, want ErrStale", err)
	}
	if _, err := before.Metadata(ctx, atom.MustParseCPV("dev-libs/openssl-3")); !errors.Is(err, ErrStale) {
		t.Errorf("Metadata(removed) error = %v, want ErrStale", err)
	}
	// Unchanged scripts still read through the old snapshot.
	if _, err := before.Metadata(ctx, atom.MustParseCPV("app-misc/foo-1.0")); err != nil {
		t.Errorf("Metadata(unchanged) error: %v", err)
	}

	if _, err := r.Sync(ctx); err != nil {
		t.Fatalf("Sync() error: %v", err)
	}
	p, err := r.Metadata(ctx, atom.MustParseCPV("app-misc/foo-2.0"))
	if err != nil {
		t.Fatalf("Metadata() after sync error: %v", err)
	}
	if p.Slot() != "2" {
		t.Errorf("Slot() after sync = %q, want %q", p.Slot(), "2")
	}
}

func TestEbuildLocation_Layout(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{
		"metadata/layout.conf":        "# overlay\nrepo-name = overlay\nmasters = gentoo  core\n\nsign-commits = false\n",
		"app-misc/foo/foo-1.0.ebuild": "SLOT=0\n",
	})
	loc, err := NewEbuildLocation(root)
	if err != nil {
		t.Fatalf("NewEbuildLocation() error: %v", err)
	}
	if loc.Name() != "overlay" {
		t.Errorf("Name() = %q, want %q", loc.Name(), "overlay")
	}
	if !slices.Equal(loc.Masters(), []string{"gentoo", "core"}) {
		t.Errorf("Masters() = %v, want [gentoo core]", loc.Masters())
	}

	broken := t.TempDir()
	testutil.WriteTree(t, broken, map[string]string{
		"metadata/layout.conf": "repo-name = \\uZZZZ\n",
	})
	if _, err := NewEbuildLocation(broken); err == nil {
		t.Error("NewEbuildLocation() should reject a malformed layout.conf escape")
	}

	literal := t.TempDir()
	testutil.WriteTree(t, literal, map[string]string{
		"metadata/layout.conf": "repo-name = literal\nmasters = ${EPREFIX}gentoo\n",
	})
	loc, err = NewEbuildLocation(literal)
	if err != nil {
		t.Fatalf("NewEbuildLocation() error: %v", err)
	}
	if !slices.Equal(loc.Masters(), []string{"${EPREFIX}gentoo"}) {
		t.Errorf("Masters() = %v, want values taken literally", loc.Masters())
	}
}
