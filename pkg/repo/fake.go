// SPDX-License-Identifier: MPL-2.0

package repo

import (
	"context"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"pkgkit/pkg/atom"
)

type (
	// FakeLocation is an in-memory Location. Every View is a copy, so later
	// edits never reach a snapshot that already exists.
	FakeLocation struct {
		name string

		mu       sync.Mutex
		sources  map[string]fakeSource
		syncErr  error
		syncs    int
		readHook func(atom.CPV)
	}

	fakeSource struct {
		cpv atom.CPV
		src Source
	}

	fakeView struct {
		sources map[string]fakeSource
		hook    func(atom.CPV)
	}

	// fakeFile is the TOML fixture layout:
	//
	//	name = "test"
	//
	//	[[package]]
	//	cpv = "app-misc/foo-1.0"
	//	[package.keys]
	//	SLOT = "0"
	//	RDEPEND = "dev-libs/bar"
	//
	//	[[package]]
	//	cpv = "app-misc/foo-2.0"
	//	ebuild = '''
	//	SLOT="0"
	//	'''
	//	metadata_xml = '''
	//	<pkgmetadata><maintainer><email>dev@example.org</email></maintainer></pkgmetadata>
	//	'''
	fakeFile struct {
		Name     string        `toml:"name"`
		Packages []fakePackage `toml:"package"`
	}

	fakePackage struct {
		CPV      string            `toml:"cpv"`
		Declared string            `toml:"declared"`
		Keys     map[string]string `toml:"keys"`
		Ebuild   string            `toml:"ebuild"`
		XML      string            `toml:"metadata_xml"`
	}
)

// NewFakeLocation returns an empty in-memory location.
func NewFakeLocation(name string) *FakeLocation {
	return &FakeLocation{name: name, sources: make(map[string]fakeSource)}
}

// LoadFakeLocation reads a TOML fixture file.
func LoadFakeLocation(path string) (*FakeLocation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fake repository: %w", err)
	}
	return ParseFakeLocation(data)
}

// ParseFakeLocation decodes a TOML fixture.
func ParseFakeLocation(data []byte) (*FakeLocation, error) {
	var f fakeFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing fake repository TOML: %w", err)
	}
	if f.Name == "" {
		return nil, fmt.Errorf("fake repository: missing name")
	}

	loc := NewFakeLocation(f.Name)
	for _, p := range f.Packages {
		cpv, err := atom.ParseCPV(p.CPV)
		if err != nil {
			return nil, fmt.Errorf("fake repository %s: %w", f.Name, err)
		}
		var src Source
		switch {
		case p.Ebuild != "" && p.Keys != nil:
			return nil, fmt.Errorf("fake repository %s: %s: keys and ebuild are exclusive", f.Name, p.CPV)
		case p.Ebuild != "":
			src = Source{Data: []byte(p.Ebuild), Format: FormatEbuild}
		default:
			src = Source{Data: CacheBody(p.Keys), Format: FormatCache}
		}
		if p.XML != "" {
			src.PackageXML = []byte(p.XML)
		}
		if p.Declared != "" {
			if src.Declared, err = atom.ParseCPV(p.Declared); err != nil {
				return nil, fmt.Errorf("fake repository %s: %w", f.Name, err)
			}
		}
		loc.Put(cpv, src)
	}
	return loc, nil
}

// CacheBody renders keys as a cache entry with sorted keys.
func CacheBody(keys map[string]string) []byte {
	var b strings.Builder
	for _, k := range slices.Sorted(maps.Keys(keys)) {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(keys[k])
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// Name implements Location.
func (f *FakeLocation) Name() string { return f.name }

// Put adds or replaces the definition of cpv.
func (f *FakeLocation) Put(cpv atom.CPV, src Source) {
	if src.Path == "" {
		src.Path = "fake:" + cpv.String()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sources[cpv.String()] = fakeSource{cpv: cpv, src: src}
}

// PutCache adds a cache entry built from keys.
func (f *FakeLocation) PutCache(cpv string, keys map[string]string) {
	f.Put(atom.MustParseCPV(cpv), Source{Data: CacheBody(keys), Format: FormatCache})
}

// Remove deletes cpv.
func (f *FakeLocation) Remove(cpv atom.CPV) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sources, cpv.String())
}

// FailSync makes every following Sync return err; nil clears it.
func (f *FakeLocation) FailSync(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncErr = err
}

// OnRead installs a hook called before every read of views created from
// now on.
func (f *FakeLocation) OnRead(hook func(atom.CPV)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readHook = hook
}

// Syncs returns how many times Sync succeeded.
func (f *FakeLocation) Syncs() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.syncs
}

// Sync implements Location.
func (f *FakeLocation) Sync(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.syncErr != nil {
		return f.syncErr
	}
	f.syncs++
	return nil
}

// View implements Location.
func (f *FakeLocation) View(context.Context) (View, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &fakeView{sources: maps.Clone(f.sources), hook: f.readHook}, nil
}

func (v *fakeView) List() []atom.CPV {
	cpvs := make([]atom.CPV, 0, len(v.sources))
	for _, s := range v.sources {
		cpvs = append(cpvs, s.cpv)
	}
	slices.SortFunc(cpvs, atom.CompareCPV)
	return cpvs
}

func (v *fakeView) Read(ctx context.Context, cpv atom.CPV) (Source, error) {
	if err := ctx.Err(); err != nil {
		return Source{}, err
	}
	if v.hook != nil {
		v.hook(cpv)
		if err := ctx.Err(); err != nil {
			return Source{}, err
		}
	}
	s, ok := v.sources[cpv.String()]
	if !ok {
		return Source{}, fmt.Errorf("%s: %w", cpv, os.ErrNotExist)
	}
	return s.src, nil
}
