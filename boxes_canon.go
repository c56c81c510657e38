// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package rawmeta

import (
	"bytes"
	"fmt"

	"github.com/rwcarlsen/goexif/tiff"
)

// CanonBox is the Canon metadata uuid box in moov.
type CanonBox struct {
	BoxHeader
	CNCV *CNCVBox
	CTBO *CTBOBox

	// CMT1 to CMT4 are the TIFF directories of the image.
	CMT1, CMT2, CMT3, CMT4 *CMTBox

	Vendor []*VendorBox
}

func (b *CanonBox) Header() BoxHeader { return b.BoxHeader }

// CMT returns the CMT boxes in order.
func (b *CanonBox) CMT() []*CMTBox {
	return []*CMTBox{b.CMT1, b.CMT2, b.CMT3, b.CMT4}
}

var canonSchema = NewSchema(TypeUUID,
	Slot{Type: TypeCNCV, Reader: BoxReaderFunc(readCNCV), Required: true},
	Slot{Type: TypeCTBO, Reader: BoxReaderFunc(readCTBO)},
	Slot{Type: TypeCMT1, Reader: BoxReaderFunc(readCMT), Required: true},
	Slot{Type: TypeCMT2, Reader: BoxReaderFunc(readCMT), Required: true},
	Slot{Type: TypeCMT3, Reader: BoxReaderFunc(readCMT), Required: true},
	Slot{Type: TypeCMT4, Reader: BoxReaderFunc(readCMT), Required: true},
)

func readCanon(r *Reader, h BoxHeader) (Box, error) {
	c, err := ReadComposite(r, h, canonSchema)
	if err != nil {
		return nil, err
	}
	return &CanonBox{
		BoxHeader: h,
		CNCV:      first[*CNCVBox](c, TypeCNCV),
		CTBO:      first[*CTBOBox](c, TypeCTBO),
		CMT1:      first[*CMTBox](c, TypeCMT1),
		CMT2:      first[*CMTBox](c, TypeCMT2),
		CMT3:      first[*CMTBox](c, TypeCMT3),
		CMT4:      first[*CMTBox](c, TypeCMT4),
		Vendor:    c.Vendor,
	}, nil
}

// CNCVBox holds the compressor version, e.g. "CanonCR3_001/00.09.00/00.00.00".
type CNCVBox struct {
	BoxHeader
	Version string
}

func (b *CNCVBox) Header() BoxHeader { return b.BoxHeader }

func readCNCV(r *Reader, h BoxHeader) (Box, error) {
	return decodeLeaf(r, h, func(p *payload) Box {
		v := p.next(p.remaining(), "version")
		return &CNCVBox{BoxHeader: h, Version: printableString(string(trimBytesNulls(v)))}
	})
}

// CTBOEntry locates one of the top-level boxes of a CR3 file.
type CTBOEntry struct {
	Index  uint32
	Offset uint64
	Size   uint64
}

// CTBOBox is the Canon track box offset table.
type CTBOBox struct {
	BoxHeader
	Entries []CTBOEntry
}

func (b *CTBOBox) Header() BoxHeader { return b.BoxHeader }

func readCTBO(r *Reader, h BoxHeader) (Box, error) {
	return decodeLeaf(r, h, func(p *payload) Box {
		b := &CTBOBox{BoxHeader: h}
		b.Entries = make([]CTBOEntry, p.readCount(20, "entry"))
		for i := range b.Entries {
			b.Entries[i] = CTBOEntry{
				Index:  p.read4("index"),
				Offset: p.read8("offset"),
				Size:   p.read8("size"),
			}
		}
		return b
	})
}

// CMTBox holds a TIFF structure with one directory of metadata tags.
type CMTBox struct {
	BoxHeader
	Data []byte
}

func (b *CMTBox) Header() BoxHeader { return b.BoxHeader }

func readCMT(r *Reader, h BoxHeader) (Box, error) {
	return decodeLeaf(r, h, func(p *payload) Box {
		return &CMTBox{BoxHeader: h, Data: p.readBytes(p.remaining(), "tiff")}
	})
}

// Namespace returns the tag namespace of the directory in b.
// CMT3 holds Canon maker notes, which have no namespace in the catalog.
func (b *CMTBox) Namespace() Namespace {
	switch b.Type {
	case TypeCMT1:
		return NamespaceCommon
	case TypeCMT2:
		return NamespaceExif
	case TypeCMT4:
		return NamespaceGPS
	default:
		return NamespaceNone
	}
}

// TagValue is a tag read from a TIFF directory.
type TagValue struct {
	Tag

	// Known is false if the catalog has no name for the id.
	Known bool

	Count uint32

	// Value is the decoded value formatted as a string.
	Value string
}

// Tags decodes the TIFF structure in b.
// Tags not in the catalog are kept, named UnknownTag_0xabcd.
func (b *CMTBox) Tags() ([]TagValue, error) {
	t, err := tiff.Decode(bytes.NewReader(b.Data))
	if err != nil {
		return nil, fmt.Errorf("%s at offset %d: decode tiff: %w", b.Type, b.Offset, err)
	}
	ns := b.Namespace()
	var tags []TagValue
	for _, dir := range t.Dirs {
		for _, tt := range dir.Tags {
			tv := TagValue{Count: tt.Count, Value: tiffValueString(tt)}
			tv.Tag, tv.Known = LookupTag(ns, tt.Id)
			if !tv.Known {
				tv.Tag = Tag{Namespace: ns, ID: tt.Id, Name: TagName(ns, tt.Id)}
			}
			tags = append(tags, tv)
		}
	}
	return tags, nil
}

func tiffValueString(t *tiff.Tag) string {
	if t.Format() == tiff.StringVal {
		s, err := t.StringVal()
		if err == nil {
			return printableString(s)
		}
	}
	return t.String()
}
