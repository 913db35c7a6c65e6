// SPDX-License-Identifier: MPL-2.0

package metadata

import "fmt"

// Metadata keys as they appear in cache entries and build scripts.
const (
	KeyBDepend       Key = "BDEPEND"
	KeyDefinedPhases Key = "DEFINED_PHASES"
	KeyDepend        Key = "DEPEND"
	KeyDescription   Key = "DESCRIPTION"
	KeyEAPI          Key = "EAPI"
	KeyHomepage      Key = "HOMEPAGE"
	KeyIDepend       Key = "IDEPEND"
	KeyInherit       Key = "INHERIT"
	KeyIUse          Key = "IUSE"
	KeyKeywords      Key = "KEYWORDS"
	KeyLicense       Key = "LICENSE"
	KeyPDepend       Key = "PDEPEND"
	KeyProperties    Key = "PROPERTIES"
	KeyRDepend       Key = "RDEPEND"
	KeyRequiredUse   Key = "REQUIRED_USE"
	KeyRestrict      Key = "RESTRICT"
	KeySlot          Key = "SLOT"
	KeySrcURI        Key = "SRC_URI"
	KeyEclasses      Key = "_eclasses_"
	KeyMD5           Key = "_md5_"
)

// Dependency classes in the order build tools evaluate them.
const (
	ClassDepend Class = iota
	ClassBDepend
	ClassIDepend
	ClassRDepend
	ClassPDepend

	numClasses
)

type (
	// Key names a metadata variable.
	Key string

	// Class is a dependency class.
	Class int
)

// knownKeys lists every key the decoder understands. Unknown keys in cache
// entries are ignored.
var knownKeys = map[Key]bool{
	KeyBDepend: true, KeyDefinedPhases: true, KeyDepend: true, KeyDescription: true,
	KeyEAPI: true, KeyHomepage: true, KeyIDepend: true, KeyInherit: true, KeyIUse: true,
	KeyKeywords: true, KeyLicense: true, KeyPDepend: true, KeyProperties: true,
	KeyRDepend: true, KeyRequiredUse: true, KeyRestrict: true, KeySlot: true,
	KeySrcURI: true, KeyEclasses: true, KeyMD5: true,
}

var classKeys = [numClasses]Key{
	ClassDepend:  KeyDepend,
	ClassBDepend: KeyBDepend,
	ClassIDepend: KeyIDepend,
	ClassRDepend: KeyRDepend,
	ClassPDepend: KeyPDepend,
}

// Classes returns every dependency class.
func Classes() []Class {
	return []Class{ClassDepend, ClassBDepend, ClassIDepend, ClassRDepend, ClassPDepend}
}

// Key returns the metadata key holding the class.
func (c Class) Key() Key {
	if c < 0 || c >= numClasses {
		return Key(fmt.Sprintf("Class(%d)", int(c)))
	}
	return classKeys[c]
}

// String returns the metadata key name of the class.
func (c Class) String() string { return string(c.Key()) }

// ParseClass returns the class named by a metadata key, case-sensitively.
func ParseClass(name string) (Class, bool) {
	for c, k := range classKeys {
		if string(k) == name {
			return Class(c), true
		}
	}
	return 0, false
}
