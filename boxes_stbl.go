// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package rawmeta

import "encoding/binary"

// MinfBox is the media information box.
type MinfBox struct {
	BoxHeader
	Stbl   *StblBox
	Vendor []*VendorBox
}

func (b *MinfBox) Header() BoxHeader { return b.BoxHeader }

var minfSchema = NewSchema(TypeMinf,
	Slot{Type: TypeStbl, Reader: BoxReaderFunc(readStbl), Required: true},
)

func readMinf(r *Reader, h BoxHeader) (Box, error) {
	c, err := ReadComposite(r, h, minfSchema)
	if err != nil {
		return nil, err
	}
	return &MinfBox{
		BoxHeader: h,
		Stbl:      first[*StblBox](c, TypeStbl),
		Vendor:    c.Vendor,
	}, nil
}

// StblBox is the sample table box.
type StblBox struct {
	BoxHeader
	Stsd *StsdBox
	Stsz *StszBox

	// ChunkOffsets is the co64 box if present, else the stco box, else nil.
	ChunkOffsets *ChunkOffsetBox

	Vendor []*VendorBox
}

func (b *StblBox) Header() BoxHeader { return b.BoxHeader }

var stblSchema = NewSchema(TypeStbl,
	Slot{Type: TypeStsd, Reader: BoxReaderFunc(readStsd), Required: true},
	Slot{Type: TypeStsz, Reader: BoxReaderFunc(readStsz), Required: true},
	Slot{Type: TypeStco, Reader: BoxReaderFunc(readChunkOffsets)},
	Slot{Type: TypeCo64, Reader: BoxReaderFunc(readChunkOffsets)},
)

func readStbl(r *Reader, h BoxHeader) (Box, error) {
	c, err := ReadComposite(r, h, stblSchema)
	if err != nil {
		return nil, err
	}
	b := &StblBox{
		BoxHeader: h,
		Stsd:      first[*StsdBox](c, TypeStsd),
		Stsz:      first[*StszBox](c, TypeStsz),
		Vendor:    c.Vendor,
	}
	if co := first[*ChunkOffsetBox](c, TypeCo64); co != nil {
		b.ChunkOffsets = co
	} else {
		b.ChunkOffsets = first[*ChunkOffsetBox](c, TypeStco)
	}
	return b, nil
}

// StsdBox is the sample description box.
type StsdBox struct {
	BoxHeader
	Version    uint8
	EntryCount uint32

	// Entries are the sample entries, e.g. CRAW in CR3 files.
	Entries []*VendorBox
}

func (b *StsdBox) Header() BoxHeader { return b.BoxHeader }

// Sample entries are type specific; they are all kept as vendor boxes.
var stsdSchema = NewSchema(TypeStsd)

func readStsd(r *Reader, h BoxHeader) (Box, error) {
	const fixed = 8
	if h.PayloadSize() < fixed {
		return nil, &TruncatedError{Offset: h.PayloadOffset(), Need: fixed, What: "stsd payload"}
	}
	if err := r.Seek(h.PayloadOffset()); err != nil {
		return nil, err
	}
	var buf [fixed]byte
	if err := r.sr.readFull(buf[:], "stsd entry count"); err != nil {
		return nil, err
	}

	c, err := ReadComposite(r, h, stsdSchema)
	if err != nil {
		return nil, err
	}
	b := &StsdBox{
		BoxHeader:  h,
		Version:    buf[0],
		EntryCount: binary.BigEndian.Uint32(buf[4:]),
		Entries:    c.Vendor,
	}
	if int(b.EntryCount) != len(b.Entries) {
		r.opts.Warnf("%s: stsd declares %d entries, found %d", r.Path(), b.EntryCount, len(b.Entries))
	}
	return b, nil
}

// StszBox is the sample size box.
type StszBox struct {
	BoxHeader

	// SampleSize is the size of every sample, or 0 if sizes are listed in Sizes.
	SampleSize  uint32
	SampleCount uint32
	Sizes       []uint32
}

func (b *StszBox) Header() BoxHeader { return b.BoxHeader }

// SampleSizeAt returns the size of sample i.
func (b *StszBox) SampleSizeAt(i int) (uint32, bool) {
	if b == nil || i < 0 || i >= int(b.SampleCount) {
		return 0, false
	}
	if b.SampleSize != 0 {
		return b.SampleSize, true
	}
	if i >= len(b.Sizes) {
		return 0, false
	}
	return b.Sizes[i], true
}

func readStsz(r *Reader, h BoxHeader) (Box, error) {
	return decodeLeaf(r, h, func(p *payload) Box {
		p.readFullBox()
		b := &StszBox{BoxHeader: h}
		b.SampleSize = p.read4("sample size")
		if b.SampleSize != 0 {
			b.SampleCount = p.read4("sample count")
			return b
		}
		n := p.readCount(4, "sample")
		b.SampleCount = uint32(n)
		b.Sizes = make([]uint32, n)
		for i := range b.Sizes {
			b.Sizes[i] = p.read4("sample size entry")
		}
		return b
	})
}

// ChunkOffsetBox is a stco or co64 box.
type ChunkOffsetBox struct {
	BoxHeader
	Offsets []uint64
}

func (b *ChunkOffsetBox) Header() BoxHeader { return b.BoxHeader }

func readChunkOffsets(r *Reader, h BoxHeader) (Box, error) {
	return decodeLeaf(r, h, func(p *payload) Box {
		p.readFullBox()
		b := &ChunkOffsetBox{BoxHeader: h}
		if h.Type == TypeCo64 {
			b.Offsets = make([]uint64, p.readCount(8, "chunk offset"))
			for i := range b.Offsets {
				b.Offsets[i] = p.read8("chunk offset")
			}
			return b
		}
		b.Offsets = make([]uint64, p.readCount(4, "chunk offset"))
		for i := range b.Offsets {
			b.Offsets[i] = uint64(p.read4("chunk offset"))
		}
		return b
	})
}
