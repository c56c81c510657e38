// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package rawmeta

import (
	"sync"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestLookupTag(t *testing.T) {
	c := qt.New(t)

	for _, test := range []struct {
		ns   Namespace
		id   uint16
		name string
	}{
		{NamespaceCommon, 0x0112, "Orientation"},
		{NamespaceCommon, 0x8769, "ExifIFDPointer"},
		{NamespaceCommon, 0x0002, "PanaWidth"},
		{NamespaceExif, 0x829a, "ExposureTime"},
		{NamespaceExif, 0x013c, "HostComputer"},
		{NamespaceExif, 0x0001, "InteropIndex"},
		{NamespaceGPS, 0x0002, "GPSLatitude"},
		{NamespaceGPS, 0x001f, "GPSHPositioningError"},
		{NamespaceDNG, 0xc612, "DNGVersion"},
	} {
		tag, found := LookupTag(test.ns, test.id)
		c.Assert(found, qt.IsTrue, qt.Commentf("%s 0x%04x", test.ns, test.id))
		c.Assert(tag, qt.Equals, Tag{Namespace: test.ns, ID: test.id, Name: test.name})
		c.Assert(TagName(test.ns, test.id), qt.Equals, test.name)

		back, found := LookupTagName(test.ns, test.name)
		c.Assert(found, qt.IsTrue)
		c.Assert(back.ID, qt.Equals, test.id)
	}
}

func TestLookupTagNotFound(t *testing.T) {
	c := qt.New(t)

	_, found := LookupTag(NamespaceGPS, 0xfffe)
	c.Assert(found, qt.IsFalse)
	_, found = LookupTag(NamespaceNone, 0x0112)
	c.Assert(found, qt.IsFalse)
	_, found = LookupTag(Namespace(42), 0x0112)
	c.Assert(found, qt.IsFalse)
	_, found = LookupTagName(NamespaceExif, "NoSuchTag")
	c.Assert(found, qt.IsFalse)

	c.Assert(TagName(NamespaceGPS, 0xfffe), qt.Equals, "UnknownTag_0xfffe")
	c.Assert(TagName(NamespaceDNG, 0x0001), qt.Equals, "UnknownTag_0x0001")
}

func TestNamespaceTags(t *testing.T) {
	c := qt.New(t)

	c.Assert(NamespaceCommon.String(), qt.Equals, "Common")
	c.Assert(NamespaceExif.String(), qt.Equals, "EXIF")
	c.Assert(NamespaceGPS.String(), qt.Equals, "GPS")
	c.Assert(NamespaceDNG.String(), qt.Equals, "DNG")
	c.Assert(NamespaceNone.String(), qt.Equals, "None")

	for _, ns := range []Namespace{NamespaceCommon, NamespaceExif, NamespaceGPS, NamespaceDNG} {
		tags := ns.Tags()
		c.Assert(len(tags) > 0, qt.IsTrue)
		names := make(map[string]bool)
		for i, tag := range tags {
			if i > 0 {
				c.Assert(tags[i-1].ID < tag.ID, qt.IsTrue)
			}
			c.Assert(names[tag.Name], qt.IsFalse, qt.Commentf("duplicate name %s in %s", tag.Name, ns))
			names[tag.Name] = true
		}
	}
	c.Assert(NamespaceGPS.Tags(), qt.HasLen, 32)
	c.Assert(NamespaceNone.Tags(), qt.IsNil)

	c.Assert(Tag{Namespace: NamespaceExif, ID: 0x829a, Name: "ExposureTime"}.String(), qt.Equals, "EXIF.ExposureTime")
}

func TestLookupTagConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := 0; id <= 0xffff; id += 7 {
				LookupTag(NamespaceExif, uint16(id))
			}
		}()
	}
	wg.Wait()
}

func BenchmarkLookupTag(b *testing.B) {
	for i := 0; i < b.N; i++ {
		LookupTag(NamespaceExif, 0x829a)
	}
}
