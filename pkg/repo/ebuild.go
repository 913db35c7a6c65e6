// SPDX-License-Identifier: MPL-2.0

package repo

import (
	"bufio"
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/magiconair/properties"

	"pkgkit/pkg/atom"
	"pkgkit/pkg/metadata"
)

const ebuildExt = ".ebuild"

// nonCategoryDirs are top-level directories of a repository tree that never
// hold packages.
var nonCategoryDirs = []string{"eclass", "licenses", "metadata", "profiles", "scripts"}

type (
	// EbuildLocation is a repository laid out as category/package/*.ebuild
	// on the local filesystem. A matching entry in metadata/md5-cache is
	// preferred to extracting metadata from the build script.
	//
	// Views read file contents lazily. Each view records the size and
	// modification time of every build script it indexed, and a read of a
	// script that changed or vanished since then fails with ErrStale
	// instead of returning post-sync contents.
	EbuildLocation struct {
		root    string
		name    string
		masters []string
	}

	ebuildView struct {
		root  string
		files map[string]ebuildFile
		cpvs  []atom.CPV
	}

	ebuildFile struct {
		path     string
		stem     string
		declared atom.CPV
		size     int64
		modTime  time.Time
	}
)

// NewEbuildLocation opens the tree at root. The repository name comes from
// profiles/repo_name, then the repo-name key of metadata/layout.conf, then
// the directory name.
func NewEbuildLocation(root string) (*EbuildLocation, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("repository root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("repository root %s: not a directory", root)
	}

	l := &EbuildLocation{root: root, name: filepath.Base(filepath.Clean(root))}

	layout, err := readLayout(filepath.Join(root, "metadata", "layout.conf"))
	if err != nil {
		return nil, err
	}
	if n := layout.GetString("repo-name", ""); n != "" {
		l.name = n
	}
	l.masters = strings.Fields(layout.GetString("masters", ""))

	if data, err := os.ReadFile(filepath.Join(root, "profiles", "repo_name")); err == nil {
		if n := strings.TrimSpace(string(data)); n != "" {
			l.name = n
		}
	}
	if !atom.ValidRepo(l.name) {
		return nil, fmt.Errorf("repository %s: invalid name %q", root, l.name)
	}
	return l, nil
}

// readLayout loads layout.conf, a "key = value" file with '#' comments.
// Values are taken literally; a missing file yields an empty set.
func readLayout(path string) (*properties.Properties, error) {
	loader := &properties.Loader{Encoding: properties.UTF8, DisableExpansion: true, IgnoreMissing: true}
	p, err := loader.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return p, nil
}

// Name implements Location.
func (l *EbuildLocation) Name() string { return l.name }

// Root implements Rooted.
func (l *EbuildLocation) Root() string { return l.root }

// Masters returns the repositories this one inherits eclasses from, as
// listed in layout.conf.
func (l *EbuildLocation) Masters() []string { return slices.Clone(l.masters) }

// Sync implements Location. A local tree has no upstream, so Sync only
// checks that the tree is still present.
func (l *EbuildLocation) Sync(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := os.Stat(l.root); err != nil {
		return fmt.Errorf("repository root: %w", err)
	}
	return nil
}

// View implements Location. The package index is fixed when the view is
// created; file contents are read on demand.
func (l *EbuildLocation) View(ctx context.Context) (View, error) {
	categories, err := l.categories()
	if err != nil {
		return nil, err
	}

	v := &ebuildView{root: l.root, files: make(map[string]ebuildFile)}
	for _, cat := range categories {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := v.scanCategory(cat); err != nil {
			return nil, err
		}
	}
	slices.SortFunc(v.cpvs, atom.CompareCPV)
	return v, nil
}

// categories reads profiles/categories, falling back to the top-level
// directories of the tree.
func (l *EbuildLocation) categories() ([]string, error) {
	data, err := os.ReadFile(filepath.Join(l.root, "profiles", "categories"))
	if err == nil {
		var cats []string
		sc := bufio.NewScanner(bytes.NewReader(data))
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			if !atom.ValidCategory(line) {
				slog.Warn("invalid category skipped", "repo", l.name, "category", line)
				continue
			}
			cats = append(cats, line)
		}
		return cats, sc.Err()
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading categories: %w", err)
	}

	entries, err := os.ReadDir(l.root)
	if err != nil {
		return nil, fmt.Errorf("reading repository root: %w", err)
	}
	var cats []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || strings.HasPrefix(name, ".") || slices.Contains(nonCategoryDirs, name) {
			continue
		}
		if atom.ValidCategory(name) {
			cats = append(cats, name)
		}
	}
	return cats, nil
}

func (v *ebuildView) scanCategory(cat string) error {
	pkgs, err := os.ReadDir(filepath.Join(v.root, cat))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading category %s: %w", cat, err)
	}

	for _, p := range pkgs {
		if !p.IsDir() || !atom.ValidPackage(p.Name()) {
			continue
		}
		dir := filepath.Join(v.root, cat, p.Name())
		files, err := os.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("reading package %s/%s: %w", cat, p.Name(), err)
		}
		for _, f := range files {
			if f.IsDir() || !strings.HasSuffix(f.Name(), ebuildExt) {
				continue
			}
			info, err := f.Info()
			if os.IsNotExist(err) {
				continue
			}
			if err != nil {
				return fmt.Errorf("reading package %s/%s: %w", cat, p.Name(), err)
			}
			v.add(cat, p.Name(), filepath.Join(dir, f.Name()), info)
		}
	}
	return nil
}

// add indexes one build script. The version always comes from the file
// name; a file naming another package keeps that name as its declared
// identity so reading it reports the mismatch.
func (v *ebuildView) add(cat, pkg, path string, info os.FileInfo) {
	stem := strings.TrimSuffix(filepath.Base(path), ebuildExt)
	declared, err := atom.ParseCPV(cat + "/" + stem)
	if err != nil {
		slog.Warn("unparsable build script name skipped", "path", path, "error", err)
		return
	}

	cpv := atom.CPV{Category: cat, Package: pkg, Version: declared.Version}
	file := ebuildFile{path: path, stem: stem, size: info.Size(), modTime: info.ModTime()}
	if declared.Package != pkg {
		file.declared = declared
	}
	key := cpv.String()
	if _, dup := v.files[key]; dup {
		slog.Warn("duplicate build script skipped", "path", path)
		return
	}
	v.files[key] = file
	v.cpvs = append(v.cpvs, cpv)
}

func (v *ebuildView) List() []atom.CPV { return v.cpvs }

func (v *ebuildView) Read(ctx context.Context, cpv atom.CPV) (Source, error) {
	if err := ctx.Err(); err != nil {
		return Source{}, err
	}
	f, ok := v.files[cpv.String()]
	if !ok {
		return Source{}, fmt.Errorf("%s: %w", cpv, os.ErrNotExist)
	}
	script, err := f.read()
	if err != nil {
		return Source{}, err
	}

	pkgXML, err := os.ReadFile(filepath.Join(filepath.Dir(f.path), "metadata.xml"))
	if err != nil && !os.IsNotExist(err) {
		return Source{}, err
	}

	cachePath := filepath.Join(v.root, "metadata", "md5-cache", cpv.Category, f.stem)
	if cache, err := os.ReadFile(cachePath); err == nil && cacheValid(cache, script) {
		return Source{Data: cache, Format: FormatCache, Declared: f.declared, Path: cachePath, PackageXML: pkgXML}, nil
	}
	return Source{Data: script, Format: FormatEbuild, Declared: f.declared, Path: f.path, PackageXML: pkgXML}, nil
}

// read returns the script's contents if it is unchanged since the view
// indexed it.
func (f ebuildFile) read() ([]byte, error) {
	info, err := os.Stat(f.path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: removed: %w", f.path, ErrStale)
	}
	if err != nil {
		return nil, err
	}
	if info.Size() != f.size || !info.ModTime().Equal(f.modTime) {
		return nil, fmt.Errorf("%s: modified: %w", f.path, ErrStale)
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) != f.size {
		return nil, fmt.Errorf("%s: modified: %w", f.path, ErrStale)
	}
	return data, nil
}

// cacheValid reports whether the cache entry's _md5_ matches the script.
func cacheValid(cache, script []byte) bool {
	values, err := metadata.ReadCacheValues(cache)
	if err != nil {
		return false
	}
	sum := md5.Sum(script)
	return strings.EqualFold(values[metadata.KeyMD5], hex.EncodeToString(sum[:]))
}
