// Package feed parses NuGet V2 OData Atom payloads into raw property records.
//
// A V2 gallery answers Search(), FindPackagesById() and Packages(...) with an
// Atom document whose entries each carry an m:properties block:
//
//	<entry>
//	  <content type="application/zip" src="https://host/api/v2/package/Foo/1.0.0"/>
//	  <m:properties>
//	    <d:Id>Foo</d:Id>
//	    <d:Version>1.0.0</d:Version>
//	    <d:Tags m:null="true"/>
//	  </m:properties>
//	</entry>
//
// The parser performs no semantic validation: every property child becomes a
// string value keyed by its local name. Interpreting the values is left to the
// resource package.
package feed

import (
	"bytes"
	"encoding/xml"
	"io"

	"github.com/matzehuels/psfind/pkg/errors"
)

// Namespaces used by V2 OData feeds.
const (
	AtomNamespace         = "http://www.w3.org/2005/Atom"
	MetadataNamespace     = "http://schemas.microsoft.com/ado/2007/08/dataservices/metadata"
	DataServicesNamespace = "http://schemas.microsoft.com/ado/2007/08/dataservices"
)

// KeyContentSrc is the record key holding the entry's content download URL.
const KeyContentSrc = "ContentSrc"

// Record is the property block of one feed entry, keyed by property name
// without namespace prefix. Properties marked m:null="true" are absent.
type Record map[string]string

// Get returns the value for key and whether it was present.
func (r Record) Get(key string) (string, bool) {
	v, ok := r[key]
	return v, ok
}

// Parse extracts every property block in body, in document order.
//
// A well-formed document without property blocks yields an empty slice and a
// nil error. Malformed markup, including an empty body, fails with
// MALFORMED_RESPONSE and never returns partial records.
func Parse(body []byte) ([]Record, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.Strict = true

	records := []Record{}
	var (
		entry   *entryState
		sawRoot bool
		depth   int
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeMalformedResponse, err, "invalid feed markup")
		}

		switch t := tok.(type) {
		case xml.StartElement:
			sawRoot = true
			depth++
			switch {
			case isProperties(t.Name):
				rec, err := readProperties(dec, t)
				if err != nil {
					return nil, err
				}
				depth--
				if entry != nil {
					entry.records = append(entry.records, rec)
				} else {
					records = append(records, rec)
				}
			case t.Name.Local == "entry":
				entry = &entryState{}
			case t.Name.Local == "content" && entry != nil:
				entry.src = attr(t, "src")
			}
		case xml.EndElement:
			depth--
			if t.Name.Local == "entry" && entry != nil {
				records = append(records, entry.flush()...)
				entry = nil
			}
		}
	}

	if !sawRoot {
		return nil, errors.New(errors.ErrCodeMalformedResponse, "empty feed document")
	}
	if depth != 0 {
		return nil, errors.New(errors.ErrCodeMalformedResponse, "truncated feed document")
	}
	return records, nil
}

type entryState struct {
	src     string
	records []Record
}

func (e *entryState) flush() []Record {
	if e.src != "" {
		for _, rec := range e.records {
			if _, ok := rec[KeyContentSrc]; !ok {
				rec[KeyContentSrc] = e.src
			}
		}
	}
	return e.records
}

// readProperties consumes a properties element whose start tag has already
// been read.
func readProperties(dec *xml.Decoder, start xml.StartElement) (Record, error) {
	rec := Record{}
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeMalformedResponse, err, "invalid %s block", start.Name.Local)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if isNull(t) {
				if err := dec.Skip(); err != nil {
					return nil, errors.Wrap(errors.ErrCodeMalformedResponse, err, "invalid property %s", t.Name.Local)
				}
				continue
			}
			var value string
			if err := dec.DecodeElement(&value, &t); err != nil {
				return nil, errors.Wrap(errors.ErrCodeMalformedResponse, err, "invalid property %s", t.Name.Local)
			}
			rec[t.Name.Local] = value
		case xml.EndElement:
			return rec, nil
		}
	}
}

// isMetadata matches the metadata namespace, or the bare "m" prefix when the
// document omits the xmlns declaration.
func isMetadata(space string) bool {
	return space == MetadataNamespace || space == "m"
}

func isProperties(name xml.Name) bool {
	return name.Local == "properties" && isMetadata(name.Space)
}

func isNull(el xml.StartElement) bool {
	for _, a := range el.Attr {
		if a.Name.Local == "null" && isMetadata(a.Name.Space) {
			return a.Value == "true"
		}
	}
	return false
}

func attr(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
