// SPDX-License-Identifier: MPL-2.0

package repo

import (
	"context"

	"github.com/cespare/xxhash/v2"

	"pkgkit/pkg/atom"
	"pkgkit/pkg/metadata"
)

// Source formats.
const (
	// FormatCache is a "KEY=value" metadata cache entry.
	FormatCache Format = iota + 1
	// FormatEbuild is a build script whose metadata is extracted statically.
	FormatEbuild
)

type (
	// Format identifies how a Source is decoded.
	Format int

	// Source is the raw definition of one package version.
	Source struct {
		Data   []byte
		Format Format
		// Declared is the package the definition names for itself, when it
		// can say so independently of its location. A zero value skips the
		// location check.
		Declared atom.CPV
		// Path locates the definition for diagnostics.
		Path string
		// PackageXML is the package's metadata.xml, if it has one.
		PackageXML []byte
	}

	// Location supplies package definitions. Implementations never need to
	// be aware of generations: every View they hand out is used for exactly
	// one snapshot.
	Location interface {
		// Name is the repository name used in "::repo" qualifiers.
		Name() string
		// Sync refreshes the location from its upstream, if it has one.
		Sync(ctx context.Context) error
		// View captures the location's current package set.
		View(ctx context.Context) (View, error)
	}

	// View is a fixed package set. List must return the same identifiers on
	// every call; Read may be called concurrently.
	View interface {
		List() []atom.CPV
		Read(ctx context.Context, cpv atom.CPV) (Source, error)
	}

	// Rooted is implemented by locations backed by a directory, so callers
	// can watch it for changes.
	Rooted interface {
		Root() string
	}
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatCache:
		return "md5-cache"
	case FormatEbuild:
		return "ebuild"
	default:
		return "unknown"
	}
}

// Fingerprint hashes everything a parse of the source depends on. It equals
// metadata.Fingerprint(Data) when there is no metadata.xml.
func (s Source) Fingerprint() uint64 {
	if len(s.PackageXML) == 0 {
		return metadata.Fingerprint(s.Data)
	}
	d := xxhash.New()
	_, _ = d.Write(s.Data)
	_, _ = d.Write([]byte{0})
	_, _ = d.Write(s.PackageXML)
	return d.Sum64()
}
