// SPDX-License-Identifier: MPL-2.0

package metadata

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"pkgkit/pkg/atom"
	"pkgkit/pkg/depspec"
)

// ErrParse is the sentinel error wrapped by ParseError.
var ErrParse = errors.New("metadata parse error")

// IUSE default markers.
const (
	IUseNoDefault IUseDefault = iota
	IUseEnabled
	IUseDisabled
)

type (
	// IUseDefault is the "+" or "-" prefix of an IUSE entry.
	IUseDefault int

	// IUse is one declared USE flag with its default.
	IUse struct {
		Flag    string
		Default IUseDefault
	}

	// Package is the immutable metadata of one package version.
	Package struct {
		cpv           atom.CPV
		repo          string
		eapi          string
		slot          string
		subslot       string
		description   string
		homepage      []string
		keywords      []string
		iuse          []IUse
		inherited     []string
		definedPhases []string
		deps          [numClasses]depspec.Tree[*atom.Atom]
		license       depspec.Tree[string]
		restrict      depspec.Tree[string]
		properties    depspec.Tree[string]
		requiredUse   depspec.Tree[depspec.UseFlag]
		srcURI        string
		md5           string
		fingerprint   uint64
		xml           *PackageXML
	}

	// ParseError reports metadata that fails its grammar or semantic checks.
	ParseError struct {
		CPV string
		// Key is the offending metadata key, empty for errors that are not
		// tied to one key.
		Key Key
		Err error
	}
)

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s: %s: %v", e.CPV, e.Key, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.CPV, e.Err)
}

// Unwrap exposes ErrParse and the underlying cause.
func (e *ParseError) Unwrap() []error {
	return []error{ErrParse, e.Err}
}

// String renders the IUSE entry.
func (u IUse) String() string {
	switch u.Default {
	case IUseEnabled:
		return "+" + u.Flag
	case IUseDisabled:
		return "-" + u.Flag
	default:
		return u.Flag
	}
}

// CPV returns the package identity.
func (p *Package) CPV() atom.CPV { return p.cpv }

// Repo returns the name of the repository the package came from.
func (p *Package) Repo() string { return p.repo }

// EAPI returns the package EAPI, "0" when unset.
func (p *Package) EAPI() string { return p.eapi }

// Slot returns the package slot.
func (p *Package) Slot() string { return p.slot }

// Subslot returns the subslot, which defaults to the slot.
func (p *Package) Subslot() string { return p.subslot }

// Description returns DESCRIPTION.
func (p *Package) Description() string { return p.description }

// Homepage returns the HOMEPAGE URLs.
func (p *Package) Homepage() []string { return slices.Clone(p.homepage) }

// Keywords returns KEYWORDS.
func (p *Package) Keywords() []string { return slices.Clone(p.keywords) }

// IUse returns the declared USE flags.
func (p *Package) IUse() []IUse { return slices.Clone(p.iuse) }

// Inherited returns the inherited eclass names.
func (p *Package) Inherited() []string { return slices.Clone(p.inherited) }

// DefinedPhases returns the phase functions the build script defines.
func (p *Package) DefinedPhases() []string { return slices.Clone(p.definedPhases) }

// Dependencies returns the dependency tree of a class. Trees are shared and
// must not be modified.
func (p *Package) Dependencies(c Class) depspec.Tree[*atom.Atom] {
	if c < 0 || c >= numClasses {
		return nil
	}
	return p.deps[c]
}

// License returns the LICENSE tree.
func (p *Package) License() depspec.Tree[string] { return p.license }

// Restrict returns the RESTRICT tree.
func (p *Package) Restrict() depspec.Tree[string] { return p.restrict }

// Properties returns the PROPERTIES tree.
func (p *Package) Properties() depspec.Tree[string] { return p.properties }

// RequiredUse returns the REQUIRED_USE tree.
func (p *Package) RequiredUse() depspec.Tree[depspec.UseFlag] { return p.requiredUse }

// SrcURI returns SRC_URI unparsed.
func (p *Package) SrcURI() string { return p.srcURI }

// MD5 returns the build script checksum recorded by the cache entry, if any.
func (p *Package) MD5() string { return p.md5 }

// Fingerprint returns the content hash of the definition the metadata was
// parsed from.
func (p *Package) Fingerprint() uint64 { return p.fingerprint }

// HasIUse reports whether the package declares flag.
func (p *Package) HasIUse(flag string) bool {
	return slices.ContainsFunc(p.iuse, func(u IUse) bool { return u.Flag == flag })
}

// String returns "cat/pkg-ver::repo".
func (p *Package) String() string {
	if p.repo == "" {
		return p.cpv.String()
	}
	return p.cpv.String() + "::" + p.repo
}

// build assembles a Package from raw key values, parsing every structured
// key. It is shared by the cache decoder and the build script extractor.
func build(cpv atom.CPV, repo string, values map[Key]string, fingerprint uint64, o options) (*Package, error) {
	opts := o.parse
	p := &Package{
		cpv:         cpv,
		repo:        repo,
		eapi:        values[KeyEAPI],
		description: values[KeyDescription],
		homepage:    strings.Fields(values[KeyHomepage]),
		keywords:    strings.Fields(values[KeyKeywords]),
		srcURI:      values[KeySrcURI],
		md5:         values[KeyMD5],
		fingerprint: fingerprint,
		xml:         o.xml,
	}
	fail := func(k Key, err error) error {
		return &ParseError{CPV: cpv.String(), Key: k, Err: err}
	}

	if p.eapi == "" {
		p.eapi = "0"
	}

	slot, ok := values[KeySlot]
	if !ok || strings.TrimSpace(slot) == "" {
		return nil, fail(KeySlot, errors.New("missing SLOT"))
	}
	p.slot, p.subslot, _ = strings.Cut(strings.TrimSpace(slot), "/")
	if !atom.ValidSlot(p.slot) || (p.subslot != "" && !atom.ValidSlot(p.subslot)) {
		return nil, fail(KeySlot, fmt.Errorf("invalid slot %q", slot))
	}
	if p.subslot == "" {
		p.subslot = p.slot
	}

	for _, tok := range strings.Fields(values[KeyIUse]) {
		u := IUse{Flag: tok}
		switch tok[0] {
		case '+':
			u = IUse{Flag: tok[1:], Default: IUseEnabled}
		case '-':
			u = IUse{Flag: tok[1:], Default: IUseDisabled}
		}
		if !atom.ValidUseFlag(u.Flag) {
			return nil, fail(KeyIUse, fmt.Errorf("invalid USE flag %q", tok))
		}
		p.iuse = append(p.iuse, u)
	}

	if inherit, ok := values[KeyInherit]; ok {
		p.inherited = strings.Fields(inherit)
	} else {
		// _eclasses_ alternates eclass names and checksums.
		fields := strings.Fields(values[KeyEclasses])
		for i := 0; i < len(fields); i += 2 {
			p.inherited = append(p.inherited, fields[i])
		}
	}

	if phases := strings.Fields(values[KeyDefinedPhases]); len(phases) > 0 && phases[0] != "-" {
		p.definedPhases = phases
	}

	var err error
	for c := range numClasses {
		if p.deps[c], err = depspec.ParseDependencies(values[c.Key()], opts...); err != nil {
			return nil, fail(c.Key(), err)
		}
	}
	if p.license, err = depspec.ParseLicense(values[KeyLicense], opts...); err != nil {
		return nil, fail(KeyLicense, err)
	}
	if p.restrict, err = depspec.ParseStrings(values[KeyRestrict], opts...); err != nil {
		return nil, fail(KeyRestrict, err)
	}
	if p.properties, err = depspec.ParseStrings(values[KeyProperties], opts...); err != nil {
		return nil, fail(KeyProperties, err)
	}
	if p.requiredUse, err = depspec.ParseRequiredUse(values[KeyRequiredUse], opts...); err != nil {
		return nil, fail(KeyRequiredUse, err)
	}

	return p, nil
}
