// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package rawmeta

import (
	"fmt"
	"sort"
)

// Namespace selects a tag table. The same numeric id may mean different
// things in different namespaces.
type Namespace uint8

const (
	NamespaceNone Namespace = iota
	NamespaceCommon
	NamespaceExif
	NamespaceGPS
	NamespaceDNG
)

func (ns Namespace) String() string {
	switch ns {
	case NamespaceCommon:
		return "Common"
	case NamespaceExif:
		return "EXIF"
	case NamespaceGPS:
		return "GPS"
	case NamespaceDNG:
		return "DNG"
	default:
		return "None"
	}
}

// Tag is a symbolic tag within a namespace.
type Tag struct {
	Namespace Namespace
	ID        uint16
	Name      string
}

func (t Tag) String() string {
	return fmt.Sprintf("%s.%s", t.Namespace, t.Name)
}

type tagTable struct {
	byID   map[uint16]string
	byName map[string]uint16
}

var tagTables = map[Namespace]*tagTable{
	NamespaceCommon: newTagTable(tagsCommon),
	NamespaceExif:   newTagTable(tagsExif),
	NamespaceGPS:    newTagTable(tagsGPS),
	NamespaceDNG:    newTagTable(tagsDNG),
}

func newTagTable(m map[uint16]string) *tagTable {
	t := &tagTable{byID: m, byName: make(map[string]uint16, len(m))}
	for id, name := range m {
		t.byName[name] = id
	}
	return t
}

// LookupTag returns the tag with the given id in ns.
// Unknown ids are not an error; they return false.
func LookupTag(ns Namespace, id uint16) (Tag, bool) {
	t, found := tagTables[ns]
	if !found {
		return Tag{}, false
	}
	name, found := t.byID[id]
	if !found {
		return Tag{}, false
	}
	return Tag{Namespace: ns, ID: id, Name: name}, true
}

// LookupTagName returns the tag with the given name in ns.
func LookupTagName(ns Namespace, name string) (Tag, bool) {
	t, found := tagTables[ns]
	if !found {
		return Tag{}, false
	}
	id, found := t.byName[name]
	if !found {
		return Tag{}, false
	}
	return Tag{Namespace: ns, ID: id, Name: name}, true
}

// TagName returns the name of id in ns, or UnknownPrefix followed by
// the hex id, e.g. UnknownTag_0xabcd.
func TagName(ns Namespace, id uint16) string {
	if t, found := LookupTag(ns, id); found {
		return t.Name
	}
	return fmt.Sprintf("%s0x%04x", UnknownPrefix, id)
}

// Tags returns all tags in ns sorted by id.
func (ns Namespace) Tags() []Tag {
	t, found := tagTables[ns]
	if !found {
		return nil
	}
	tags := make([]Tag, 0, len(t.byID))
	for id, name := range t.byID {
		tags = append(tags, Tag{Namespace: ns, ID: id, Name: name})
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].ID < tags[j].ID })
	return tags
}
