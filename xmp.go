// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package rawmeta

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const xmpNamespaceExif = "http://ns.adobe.com/exif/1.0/"

var xmpSkipNamespaces = map[string]bool{
	"xmlns": true,
	"http://www.w3.org/1999/02/22-rdf-syntax-ns#": true,
}

// XMPProperty is a property of the XMP packet in a CR3 file.
type XMPProperty struct {
	// Namespace is the namespace URI, e.g. http://ns.adobe.com/xap/1.0/.
	Namespace string

	// Name is the local name with the first letter in upper case, e.g. Rating.
	Name string

	// Value is a string, a []string for lists with more than one item,
	// or a float64 for GPS coordinates.
	Value any
}

type xmpMeta struct {
	RDF struct {
		Descriptions []xmpDescription `xml:"Description"`
	} `xml:"RDF"`
}

// Only the attribute form and the most common list elements are handled.
type xmpDescription struct {
	Attrs     []xml.Attr `xml:",any,attr"`
	Creator   xmpList    `xml:"creator"`
	Publisher xmpList    `xml:"publisher"`
	Subject   xmpList    `xml:"subject"`
	Rights    xmpList    `xml:"rights"`

	GPSLatitude  string `xml:"GPSLatitude"`
	GPSLongitude string `xml:"GPSLongitude"`
}

// xmpList is an rdf:Seq, rdf:Bag or rdf:Alt.
type xmpList struct {
	XMLName xml.Name
	Seq     []string `xml:"Seq>li"`
	Bag     []string `xml:"Bag>li"`
	Alt     []string `xml:"Alt>li"`
}

func (l xmpList) items() []string {
	return append(append(append([]string(nil), l.Seq...), l.Bag...), l.Alt...)
}

// Properties decodes the XMP packet in b.
func (b *XMPBox) Properties() ([]XMPProperty, error) {
	var meta xmpMeta
	if err := xml.NewDecoder(bytes.NewReader(b.Data)).Decode(&meta); err != nil {
		return nil, fmt.Errorf("XMP at offset %d: %w", b.Offset, err)
	}

	var props []XMPProperty
	for _, desc := range meta.RDF.Descriptions {
		for _, attr := range desc.Attrs {
			if xmpSkipNamespaces[attr.Name.Space] || attr.Name.Local == "xmlns" {
				continue
			}
			props = append(props, XMPProperty{
				Namespace: attr.Name.Space,
				Name:      firstUpper(attr.Name.Local),
				Value:     attr.Value,
			})
		}

		for _, l := range []xmpList{desc.Creator, desc.Publisher, desc.Subject, desc.Rights} {
			items := l.items()
			if len(items) == 0 || l.XMLName.Local == "" {
				continue
			}
			// A single item is a plain string, as ExifTool does it.
			var v any = items
			if len(items) == 1 {
				v = items[0]
			}
			props = append(props, XMPProperty{Namespace: l.XMLName.Space, Name: firstUpper(l.XMLName.Local), Value: v})
		}

		for _, gps := range []struct{ name, s string }{
			{"GPSLatitude", desc.GPSLatitude},
			{"GPSLongitude", desc.GPSLongitude},
		} {
			if gps.s == "" {
				continue
			}
			if deg, err := parseXMPGPSCoordinate(gps.s); err == nil {
				props = append(props, XMPProperty{Namespace: xmpNamespaceExif, Name: gps.name, Value: deg})
			}
		}
	}

	return props, nil
}

func firstUpper(s string) string {
	if s == "" {
		return ""
	}
	r, n := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[n:]
}

// parseXMPGPSCoordinate parses "26,34.951N", "26.5825N" or "-80.2002"
// into decimal degrees.
func parseXMPGPSCoordinate(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty coordinate")
	}

	var negative bool
	switch s[len(s)-1] {
	case 'S', 's', 'W', 'w':
		negative = true
		s = s[:len(s)-1]
	case 'N', 'n', 'E', 'e':
		s = s[:len(s)-1]
	}

	var degrees float64
	if degStr, minStr, found := strings.Cut(s, ","); found {
		d, err := strconv.ParseFloat(degStr, 64)
		if err != nil {
			return 0, fmt.Errorf("parsing degrees: %w", err)
		}
		m, err := strconv.ParseFloat(minStr, 64)
		if err != nil {
			return 0, fmt.Errorf("parsing minutes: %w", err)
		}
		degrees = d + m/60
	} else {
		var err error
		if degrees, err = strconv.ParseFloat(s, 64); err != nil {
			return 0, fmt.Errorf("parsing decimal: %w", err)
		}
	}

	if negative {
		degrees = -degrees
	}
	return degrees, nil
}
