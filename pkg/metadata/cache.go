// SPDX-License-Identifier: MPL-2.0

package metadata

import (
	"bufio"
	"bytes"
	"fmt"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"

	"pkgkit/pkg/atom"
	"pkgkit/pkg/depspec"
)

type (
	// Option configures decoding.
	Option func(*options)

	options struct {
		parse []depspec.ParseOption
		xml   *PackageXML
	}
)

// WithMaxDepth limits group nesting in every dependency-style key.
func WithMaxDepth(depth int) Option {
	return func(o *options) {
		o.parse = append(o.parse, depspec.WithMaxDepth(depth))
	}
}

// WithPackageXML attaches the package's metadata.xml data.
func WithPackageXML(x *PackageXML) Option {
	return func(o *options) { o.xml = x }
}

// Fingerprint returns the content hash used as the metadata cache key.
func Fingerprint(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// DecodeCache parses a cache entry made of "KEY=value" lines.
func DecodeCache(cpv atom.CPV, repo string, data []byte, opts ...Option) (*Package, error) {
	values, err := ReadCacheValues(data)
	if err != nil {
		return nil, &ParseError{CPV: cpv.String(), Err: err}
	}
	return build(cpv, repo, values, Fingerprint(data), collect(opts))
}

// ReadCacheValues splits a cache entry into its raw key values. Unknown keys
// are dropped; lines without '=' are an error.
func ReadCacheValues(data []byte) (map[Key]string, error) {
	values := make(map[Key]string)
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for n := 1; sc.Scan(); n++ {
		line := sc.Text()
		if line == "" {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("line %d: expected KEY=value", n)
		}
		if knownKeys[Key(k)] {
			values[Key(k)] = v
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read cache entry: %w", err)
	}
	return values, nil
}

// EncodeCache renders a package as a cache entry with keys in sorted order.
// Empty keys are omitted. Decoding the result yields equivalent metadata.
func EncodeCache(p *Package) []byte {
	values := map[Key]string{
		KeyEAPI:        p.eapi,
		KeyDescription: p.description,
		KeyHomepage:    strings.Join(p.homepage, " "),
		KeyKeywords:    strings.Join(p.keywords, " "),
		KeyInherit:     strings.Join(p.inherited, " "),
		KeyLicense:     p.license.String(),
		KeyRestrict:    p.restrict.String(),
		KeyProperties:  p.properties.String(),
		KeyRequiredUse: p.requiredUse.String(),
		KeySrcURI:      p.srcURI,
		KeyMD5:         p.md5,
	}
	values[KeySlot] = p.slot
	if p.subslot != p.slot {
		values[KeySlot] += "/" + p.subslot
	}
	iuse := make([]string, 0, len(p.iuse))
	for _, u := range p.iuse {
		iuse = append(iuse, u.String())
	}
	values[KeyIUse] = strings.Join(iuse, " ")
	values[KeyDefinedPhases] = strings.Join(p.definedPhases, " ")
	if len(p.definedPhases) == 0 {
		values[KeyDefinedPhases] = "-"
	}
	for c := range numClasses {
		values[c.Key()] = p.deps[c].String()
	}

	keys := make([]Key, 0, len(values))
	for k, v := range values {
		if v != "" {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	var b bytes.Buffer
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s\n", k, values[k])
	}
	return b.Bytes()
}

func collect(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
