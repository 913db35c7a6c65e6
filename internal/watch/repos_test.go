// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"context"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"pkgkit/internal/testutil"
	"pkgkit/pkg/atom"
	"pkgkit/pkg/repo"
)

func TestRepositories_SyncsOnChange(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{
		"profiles/repo_name":          "local\n",
		"app-misc/foo/foo-1.0.ebuild": "EAPI=8\nSLOT=\"0\"\n",
	})
	loc, err := repo.NewEbuildLocation(root)
	if err != nil {
		t.Fatalf("NewEbuildLocation() error: %v", err)
	}
	ctx := context.Background()
	local, err := repo.Open(ctx, loc)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	fake, err := repo.Open(ctx, repo.NewFakeLocation("memory"))
	if err != nil {
		t.Fatalf("Open(fake) error: %v", err)
	}

	deltas := make(chan repo.Delta, 10)
	w, err := Repositories(repo.NewSet(local, fake), Config{
		Patterns: []string{"*/*/*.ebuild"},
		Debounce: 50 * time.Millisecond,
		Logger:   quietLogger(),
	}, func(r *repo.Repository, d repo.Delta) {
		if r.Name() == "local" {
			deltas <- d
		}
	})
	if err != nil {
		t.Fatalf("Repositories() error: %v", err)
	}
	if len(w.Roots()) != 1 {
		t.Fatalf("Roots() = %v, want only the on-disk repository", w.Roots())
	}
	stop := startWatcher(t, w)
	defer stop()

	testutil.MustWriteFile(t, filepath.Join(root, "app-misc", "foo", "foo-1.1.ebuild"), "EAPI=8\nSLOT=\"0\"\n")

	select {
	case d := <-deltas:
		want := []atom.CPV{atom.MustParseCPV("app-misc/foo-1.1")}
		if !slices.EqualFunc(d.Added, want, func(a, b atom.CPV) bool { return a.Compare(b) == 0 }) {
			t.Errorf("Added = %v, want %v", d.Added, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for sync")
	}

	if !slices.ContainsFunc(slices.Collect(local.List()), func(c atom.CPV) bool { return c.String() == "app-misc/foo-1.1" }) {
		t.Error("repository snapshot does not list the new version")
	}
}

func TestRepositories_NoRootedLocations(t *testing.T) {
	t.Parallel()

	fake, err := repo.Open(context.Background(), repo.NewFakeLocation("memory"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if _, err := Repositories(repo.NewSet(fake), Config{}, nil); err == nil {
		t.Error("Repositories() with only in-memory repositories should fail")
	}
}
