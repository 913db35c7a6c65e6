// SPDX-License-Identifier: MPL-2.0

package restrict

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"pkgkit/pkg/atom"
	"pkgkit/pkg/metadata"
)

// ErrUnknownAttribute is returned for attribute names no restriction knows.
var ErrUnknownAttribute = errors.New("unknown attribute")

type (
	// Package restricts package metadata.
	Package = Restrict[*metadata.Package]

	// Maintainer restricts one metadata.xml maintainer.
	Maintainer = Restrict[metadata.Maintainer]

	attr[T any] struct {
		name string
		get  func(T) string
		r    Restrict[string]
	}

	absent[T any] struct {
		name string
		get  func(T) string
	}

	list struct {
		name string
		get  func(*metadata.Package) []string
		r    Restrict[string]
	}

	emptyList struct {
		name string
		get  func(*metadata.Package) []string
	}

	maintainers struct{ r Maintainer }

	noMaintainers struct{}

	atomRestrict struct{ a *atom.Atom }
)

var (
	// stringAttrs are the single-valued package attributes.
	stringAttrs = map[string]func(*metadata.Package) string{
		"category":         func(p *metadata.Package) string { return p.CPV().Category },
		"package":          func(p *metadata.Package) string { return p.CPV().Package },
		"version":          func(p *metadata.Package) string { return p.CPV().Version.String() },
		"repo":             (*metadata.Package).Repo,
		"eapi":             (*metadata.Package).EAPI,
		"description":      (*metadata.Package).Description,
		"slot":             (*metadata.Package).Slot,
		"subslot":          (*metadata.Package).Subslot,
		"long_description": (*metadata.Package).LongDescription,
	}

	// listAttrs are the multi-valued package attributes.
	listAttrs = map[string]func(*metadata.Package) []string{
		"homepage":       (*metadata.Package).Homepage,
		"keywords":       (*metadata.Package).Keywords,
		"inherited":      (*metadata.Package).Inherited,
		"defined_phases": (*metadata.Package).DefinedPhases,
		"iuse": func(p *metadata.Package) []string {
			iuse := p.IUse()
			flags := make([]string, len(iuse))
			for i, u := range iuse {
				flags[i] = u.Flag
			}
			return flags
		},
	}

	maintainerAttrs = map[string]func(metadata.Maintainer) string{
		"email":       func(m metadata.Maintainer) string { return m.Email },
		"name":        func(m metadata.Maintainer) string { return m.Name },
		"description": func(m metadata.Maintainer) string { return m.Description },
		"type":        func(m metadata.Maintainer) string { return string(m.Type) },
		"proxied":     func(m metadata.Maintainer) string { return m.Proxied },
	}
)

// Attributes returns the names of the package attributes restrictions can
// be built on, sorted.
func Attributes() []string {
	names := slices.Collect(maps.Keys(stringAttrs))
	names = append(names, slices.Collect(maps.Keys(listAttrs))...)
	names = append(names, "maintainers")
	slices.Sort(names)
	return names
}

// Attr restricts a single-valued package attribute such as description or
// slot.
func Attr(name string, r Restrict[string]) (Package, error) {
	get, ok := stringAttrs[name]
	if !ok {
		return nil, unknown("package", name)
	}
	return attr[*metadata.Package]{name: name, get: get, r: r}, nil
}

// Contains matches packages with at least one value of the multi-valued
// attribute name, such as keywords or homepage, matching r.
func Contains(name string, r Restrict[string]) (Package, error) {
	get, ok := listAttrs[name]
	if !ok {
		return nil, unknown("list", name)
	}
	return list{name: name, get: get, r: r}, nil
}

// Absent matches packages that leave the attribute unset: an empty
// string, an empty list, or no maintainers.
func Absent(name string) (Package, error) {
	if name == "maintainers" {
		return noMaintainers{}, nil
	}
	if get, ok := stringAttrs[name]; ok {
		return absent[*metadata.Package]{name: name, get: get}, nil
	}
	if get, ok := listAttrs[name]; ok {
		return emptyList{name: name, get: get}, nil
	}
	return nil, unknown("package", name)
}

// Maintainers matches packages with at least one maintainer matching r.
func Maintainers(r Maintainer) Package { return maintainers{r: r} }

// MaintainerAttr restricts a maintainer field: email, name, description,
// type or proxied.
func MaintainerAttr(name string, r Restrict[string]) (Maintainer, error) {
	get, ok := maintainerAttrs[name]
	if !ok {
		return nil, unknown("maintainer", name)
	}
	return attr[metadata.Maintainer]{name: name, get: get, r: r}, nil
}

// MaintainerAbsent matches maintainers that leave the field empty.
func MaintainerAbsent(name string) (Maintainer, error) {
	get, ok := maintainerAttrs[name]
	if !ok {
		return nil, unknown("maintainer", name)
	}
	return absent[metadata.Maintainer]{name: name, get: get}, nil
}

// Atom matches packages satisfying a's name, version, slot and repository
// constraints. USE dependencies see every flag as disabled.
func Atom(a *atom.Atom) Package { return atomRestrict{a: a} }

func unknown(kind, name string) error {
	return fmt.Errorf("%w: %s attribute %q", ErrUnknownAttribute, kind, name)
}

func (a attr[T]) Matches(v T) bool { return a.r.Matches(a.get(v)) }
func (a attr[T]) String() string   { return a.name + " " + a.r.String() }

func (a absent[T]) Matches(v T) bool { return a.get(v) == "" }
func (a absent[T]) String() string   { return a.name + " is None" }

func (l list) Matches(p *metadata.Package) bool {
	return slices.ContainsFunc(l.get(p), l.r.Matches)
}

func (l list) String() string { return l.name + " contains " + l.r.String() }

func (l emptyList) Matches(p *metadata.Package) bool { return len(l.get(p)) == 0 }
func (l emptyList) String() string                   { return l.name + " is None" }

func (m maintainers) Matches(p *metadata.Package) bool {
	return slices.ContainsFunc(p.Maintainers(), m.r.Matches)
}

func (m maintainers) String() string { return "maintainers contains " + m.r.String() }

func (noMaintainers) Matches(p *metadata.Package) bool { return len(p.Maintainers()) == 0 }
func (noMaintainers) String() string                   { return "maintainers is None" }

func (a atomRestrict) Matches(p *metadata.Package) bool {
	return a.a.Matches(metadata.Configure(p, nil))
}

func (a atomRestrict) String() string { return "atom == " + quote(a.a.String()) }
