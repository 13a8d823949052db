// Package feedtest provides a fake V2 gallery feed for tests.
//
// [NewServer] starts an httptest server that answers the Search(),
// FindPackagesById() and Packages(Id,Version) endpoints from an in-memory
// package list, rendering Atom documents shaped like the PowerShell Gallery's.
// [Feed] and [Entry] render the same documents without a server.
package feedtest

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

// Package is one package version served by the fake feed.
type Package struct {
	ID           string
	Version      string
	Description  string
	Authors      string
	Tags         string // Space-separated, as the gallery sends them
	ItemType     string // "Module" or "Script"; empty omits the property
	Published    string
	Dependencies string
}

// Prerelease reports whether the version carries a prerelease label.
func (p Package) Prerelease() bool {
	core, _, _ := strings.Cut(p.Version, "+")
	return strings.Contains(core, "-")
}

const (
	nsAtom = "http://www.w3.org/2005/Atom"
	nsData = "http://schemas.microsoft.com/ado/2007/08/dataservices"
	nsMeta = "http://schemas.microsoft.com/ado/2007/08/dataservices/metadata"

	updated = "2024-01-01T00:00:00Z"
)

// Feed renders pkgs as an Atom feed rooted at base.
func Feed(base string, pkgs ...Package) []byte {
	var b bytes.Buffer
	b.WriteString(`<?xml version="1.0" encoding="utf-8"?>` + "\n")
	fmt.Fprintf(&b, `<feed xml:base="%s" xmlns="%s" xmlns:d="%s" xmlns:m="%s">`, esc(base), nsAtom, nsData, nsMeta)
	fmt.Fprintf(&b, "<id>%s/Packages</id><title type=\"text\">Packages</title><updated>%s</updated>", esc(base), updated)
	for _, p := range pkgs {
		writeEntry(&b, base, p, "")
	}
	b.WriteString("</feed>\n")
	return b.Bytes()
}

// Entry renders p as a standalone Atom entry document, the shape returned by
// the Packages(Id,Version) endpoint.
func Entry(base string, p Package) []byte {
	var b bytes.Buffer
	b.WriteString(`<?xml version="1.0" encoding="utf-8"?>` + "\n")
	writeEntry(&b, base, p, fmt.Sprintf(` xml:base="%s" xmlns="%s" xmlns:d="%s" xmlns:m="%s"`, esc(base), nsAtom, nsData, nsMeta))
	return b.Bytes()
}

func writeEntry(b *bytes.Buffer, base string, p Package, rootAttrs string) {
	fmt.Fprintf(b, "<entry%s>", rootAttrs)
	fmt.Fprintf(b, "<id>%s/Packages(Id='%s',Version='%s')</id>", esc(base), esc(p.ID), esc(p.Version))
	fmt.Fprintf(b, "<title type=\"text\">%s</title><updated>%s</updated>", esc(p.ID), updated)
	fmt.Fprintf(b, "<author><name>%s</name></author>", esc(p.Authors))
	fmt.Fprintf(b, "<content type=\"application/zip\" src=\"%s/package/%s/%s\"/>", esc(base), esc(p.ID), esc(p.Version))
	b.WriteString("<m:properties>")
	prop(b, "Id", p.ID)
	prop(b, "Version", p.Version)
	prop(b, "NormalizedVersion", p.Version)
	fmt.Fprintf(b, "<d:IsPrerelease m:type=\"Edm.Boolean\">%t</d:IsPrerelease>", p.Prerelease())
	prop(b, "Description", p.Description)
	prop(b, "Authors", p.Authors)
	prop(b, "Tags", p.Tags)
	prop(b, "ItemType", p.ItemType)
	prop(b, "Dependencies", p.Dependencies)
	if p.Published != "" {
		fmt.Fprintf(b, "<d:Published m:type=\"Edm.DateTime\">%s</d:Published>", esc(p.Published))
	}
	b.WriteString("</m:properties></entry>")
}

// prop writes a string property, or an m:null placeholder when v is empty.
func prop(b *bytes.Buffer, name, v string) {
	if v == "" {
		fmt.Fprintf(b, "<d:%s m:null=\"true\"/>", name)
		return
	}
	fmt.Fprintf(b, "<d:%s>%s</d:%s>", name, esc(v), name)
}

func esc(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
