// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package rawmeta

import (
	"bytes"
	"encoding/binary"

	"github.com/google/uuid"
)

// mkBox returns a compact box of type typ holding the concatenated payloads.
func mkBox(typ string, payloads ...[]byte) []byte {
	p := bytes.Join(payloads, nil)
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, uint32(8+len(p)))
	buf.WriteString(typ)
	buf.Write(p)
	return buf.Bytes()
}

// mkBoxExtended returns a box using the 64-bit size form.
func mkBoxExtended(typ string, payloads ...[]byte) []byte {
	p := bytes.Join(payloads, nil)
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, uint32(sizeExtended))
	buf.WriteString(typ)
	binary.Write(&buf, binary.BigEndian, uint64(16+len(p)))
	buf.Write(p)
	return buf.Bytes()
}

func mkUUIDBox(u uuid.UUID, payloads ...[]byte) []byte {
	p := bytes.Join(payloads, nil)
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, uint32(24+len(p)))
	buf.WriteString("uuid")
	buf.Write(u[:])
	buf.Write(p)
	return buf.Bytes()
}

func mkFullBox(typ string, version uint8, flags uint32, payloads ...[]byte) []byte {
	vf := be32(uint32(version)<<24 | flags&0xffffff)
	return mkBox(typ, append([][]byte{vf}, payloads...)...)
}

func be16(v uint16) []byte { return binary.BigEndian.AppendUint16(nil, v) }
func be32(v uint32) []byte { return binary.BigEndian.AppendUint32(nil, v) }
func be64(v uint64) []byte { return binary.BigEndian.AppendUint64(nil, v) }

func cat(parts ...[]byte) []byte { return bytes.Join(parts, nil) }

// mkTIFF returns a little endian TIFF structure with one IFD.
func mkTIFF(entries ...tiffEntry) []byte {
	const ifdOffset = 8
	dataOffset := ifdOffset + 2 + 12*len(entries) + 4

	var ifd, data bytes.Buffer
	le := binary.LittleEndian
	binary.Write(&ifd, le, uint16(len(entries)))
	for _, e := range entries {
		binary.Write(&ifd, le, e.id)
		binary.Write(&ifd, le, e.typ)
		binary.Write(&ifd, le, e.count)
		if len(e.val) <= 4 {
			var v [4]byte
			copy(v[:], e.val)
			ifd.Write(v[:])
			continue
		}
		binary.Write(&ifd, le, uint32(dataOffset+data.Len()))
		data.Write(e.val)
	}
	binary.Write(&ifd, le, uint32(0))

	return cat([]byte("II*\x00"), binary.LittleEndian.AppendUint32(nil, ifdOffset), ifd.Bytes(), data.Bytes())
}

type tiffEntry struct {
	id    uint16
	typ   uint16
	count uint32
	val   []byte
}

func tiffASCII(id uint16, s string) tiffEntry {
	return tiffEntry{id: id, typ: 2, count: uint32(len(s) + 1), val: append([]byte(s), 0)}
}

func tiffShort(id uint16, v uint16) tiffEntry {
	return tiffEntry{id: id, typ: 3, count: 1, val: binary.LittleEndian.AppendUint16(nil, v)}
}

// CR3 fixture values.
const (
	testCNCV        = "CanonCR3_001/00.09.00/00.00.00"
	testMake        = "Canon"
	testModel       = "Canon EOS R5"
	testXMP         = `<x:xmpmeta xmlns:x="adobe:ns:meta/"></x:xmpmeta>`
	testTimescale   = 1
	testDuration    = 1
	testSampleSize  = 64
	testPrvwWidth   = 1620
	testPrvwHeight  = 1080
	testLanguageUND = 0x55c4
)

var testJPEG = []byte{0xff, 0xd8, 0xff, 0xd9}

func mkMdhdV0(timescale, duration uint32, lang uint16) []byte {
	return mkFullBox("mdhd", 0, 0, be32(0), be32(0), be32(timescale), be32(duration), be16(lang), be16(0))
}

func mkHdlr(handler, name string) []byte {
	return mkFullBox("hdlr", 0, 0, be32(0), []byte(handler), make([]byte, 12), append([]byte(name), 0))
}

func mkTrak(mdhd, hdlr []byte, chunkOffset uint64) []byte {
	craw := mkBox("CRAW", make([]byte, 82))
	stbl := mkBox("stbl",
		mkFullBox("stsd", 0, 0, be32(1), craw),
		mkFullBox("stsz", 0, 0, be32(testSampleSize), be32(1)),
		mkFullBox("co64", 0, 0, be32(1), be64(chunkOffset)),
	)
	minf := mkBox("minf", mkFullBox("vmhd", 0, 1, make([]byte, 8)), stbl)
	mdia := mkBox("mdia", mdhd, hdlr, minf)
	return mkBox("trak", mkFullBox("tkhd", 0, 0, make([]byte, 80)), mdia)
}

func mkCanon() []byte {
	cmt1 := mkTIFF(tiffASCII(0x010f, testMake), tiffASCII(0x0110, testModel), tiffShort(0x0112, 1), tiffShort(0xabcd, 7))
	cmt2 := mkTIFF(tiffShort(0x8827, 100))
	cmt3 := mkTIFF(tiffShort(0x0001, 42))
	cmt4 := mkTIFF(tiffEntry{id: 0x0000, typ: 1, count: 4, val: []byte{2, 3, 0, 0}})

	ctbo := cat(be32(2),
		be32(1), be64(0x100), be64(0x200),
		be32(2), be64(0x300), be64(0x400),
	)

	return mkUUIDBox(UUIDCanon,
		mkBox("CNCV", []byte(testCNCV)),
		mkBox("CCTP", be32(0), be32(1), be32(3)),
		mkBox("CTBO", ctbo),
		mkBox("CMT1", cmt1),
		mkBox("CMT2", cmt2),
		mkBox("CMT3", cmt3),
		mkBox("CMT4", cmt4),
	)
}

func mkPreview() []byte {
	prvw := mkBox("PRVW",
		be32(0), be16(1),
		be16(testPrvwWidth), be16(testPrvwHeight),
		be16(1), be32(uint32(len(testJPEG))), testJPEG,
	)
	return mkUUIDBox(UUIDPreview, make([]byte, 8), prvw)
}

// mkCR3 returns a minimal CR3 file with one image track whose only
// sample is the payload of mdat.
func mkCR3() []byte {
	return mkCR3With(mkMdhdV0(testTimescale, testDuration, testLanguageUND))
}

func mkCR3With(mdhd []byte) []byte {
	build := func(chunkOffset uint64) []byte {
		ftyp := mkBox("ftyp", []byte("crx "), be32(1), []byte("crx "), []byte("isom"))
		moov := mkBox("moov",
			mkCanon(),
			mkFullBox("mvhd", 0, 0, make([]byte, 96)),
			mkTrak(mdhd, mkHdlr("vide", "Image"), chunkOffset),
		)
		xmp := mkUUIDBox(UUIDXMP, []byte(testXMP))
		return cat(ftyp, moov, xmp, mkPreview())
	}
	prefix := build(0)
	mdatOffset := uint64(len(prefix)) + 8
	return cat(build(mdatOffset), mkBox("mdat", make([]byte, testSampleSize)))
}

// mdatPayloadOffset returns the offset of the mdat payload in b.
func mdatPayloadOffset(b []byte) uint64 {
	return uint64(bytes.LastIndex(b, []byte("mdat"))) + 4
}
