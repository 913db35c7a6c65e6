// SPDX-License-Identifier: MPL-2.0

package metadata

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
)

// Maintainer types.
const (
	MaintainerPerson  MaintainerType = "person"
	MaintainerProject MaintainerType = "project"
)

type (
	// MaintainerType is the type attribute of a maintainer element.
	MaintainerType string

	// Maintainer is one maintainer listed in a package's metadata.xml.
	// Email is always set; the other text fields may be empty.
	Maintainer struct {
		Email       string
		Name        string
		Description string
		Type        MaintainerType
		// Proxied is "yes", "proxy" or "no".
		Proxied string
	}

	// PackageXML is the per-package data of metadata.xml shared by every
	// version of the package.
	PackageXML struct {
		Maintainers []Maintainer
		// LongDescription is the English long description with whitespace
		// collapsed, or empty.
		LongDescription string
	}

	xmlDocument struct {
		Maintainers []xmlMaintainer `xml:"maintainer"`
		LongDescs   []xmlLangText   `xml:"longdescription"`
	}

	xmlMaintainer struct {
		Type        string `xml:"type,attr"`
		Proxied     string `xml:"proxied,attr"`
		Email       string `xml:"email"`
		Name        string `xml:"name"`
		Description string `xml:"description"`
	}

	xmlLangText struct {
		Lang  string `xml:"lang,attr"`
		Inner string `xml:",innerxml"`
	}
)

// ParsePackageXML decodes a metadata.xml document. Maintainers without an
// email address are rejected.
func ParsePackageXML(data []byte) (*PackageXML, error) {
	var doc xmlDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("metadata.xml: %w", err)
	}

	x := &PackageXML{}
	for i, m := range doc.Maintainers {
		email := strings.TrimSpace(m.Email)
		if email == "" {
			return nil, fmt.Errorf("metadata.xml: maintainer %d: missing email", i+1)
		}
		maint := Maintainer{
			Email:       email,
			Name:        strings.TrimSpace(m.Name),
			Description: strings.TrimSpace(m.Description),
			Type:        MaintainerType(m.Type),
			Proxied:     m.Proxied,
		}
		if maint.Type != MaintainerProject {
			maint.Type = MaintainerPerson
		}
		if maint.Proxied != "yes" && maint.Proxied != "proxy" {
			maint.Proxied = "no"
		}
		x.Maintainers = append(x.Maintainers, maint)
	}

	for _, d := range doc.LongDescs {
		if d.Lang != "" && d.Lang != "en" {
			continue
		}
		text, err := innerText(d.Inner)
		if err != nil {
			return nil, fmt.Errorf("metadata.xml: longdescription: %w", err)
		}
		x.LongDescription = strings.Join(strings.Fields(text), " ")
		break
	}
	return x, nil
}

// innerText returns the character data of an XML fragment, dropping the
// markup of nested elements such as <pkg>.
func innerText(fragment string) (string, error) {
	var b strings.Builder
	dec := xml.NewDecoder(strings.NewReader(fragment))
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return b.String(), nil
		}
		if err != nil {
			return "", err
		}
		if cd, ok := tok.(xml.CharData); ok {
			b.Write(cd)
		}
	}
}

// Maintainers returns the package's maintainers from metadata.xml.
func (p *Package) Maintainers() []Maintainer {
	if p.xml == nil {
		return nil
	}
	return slices.Clone(p.xml.Maintainers)
}

// LongDescription returns the English long description from metadata.xml,
// or "" when there is none.
func (p *Package) LongDescription() string {
	if p.xml == nil {
		return ""
	}
	return p.xml.LongDescription
}
