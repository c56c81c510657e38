// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package rawmeta

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// FourCC is a four byte box type code.
// It is compared as raw bytes and is only rendered as text for diagnostics.
type FourCC [4]byte

// ParseFourCC returns the FourCC for the 4 byte string s.
func ParseFourCC(s string) (FourCC, error) {
	var f FourCC
	if len(s) != 4 {
		return f, fmt.Errorf("fourcc %q: must be 4 bytes, got %d", s, len(s))
	}
	copy(f[:], s)
	return f, nil
}

func fourCC(s string) FourCC {
	f, err := ParseFourCC(s)
	if err != nil {
		panic(err)
	}
	return f
}

// Uint32 returns f as a big-endian uint32.
func (f FourCC) Uint32() uint32 {
	return binary.BigEndian.Uint32(f[:])
}

// Compare returns -1, 0 or +1 depending on whether f sorts before, equal to or after o.
func (f FourCC) Compare(o FourCC) int {
	return bytes.Compare(f[:], o[:])
}

// String returns f as text if all bytes are printable ASCII,
// else as a hex number.
func (f FourCC) String() string {
	for _, b := range f {
		if b < 0x20 || b > 0x7e {
			return fmt.Sprintf("0x%08x", f.Uint32())
		}
	}
	return string(f[:])
}

// Box types known to this package.
var (
	TypeFtyp = fourCC("ftyp")
	TypeMoov = fourCC("moov")
	TypeMvhd = fourCC("mvhd")
	TypeTrak = fourCC("trak")
	TypeTkhd = fourCC("tkhd")
	TypeMdia = fourCC("mdia")
	TypeMdhd = fourCC("mdhd")
	TypeHdlr = fourCC("hdlr")
	TypeMinf = fourCC("minf")
	TypeVmhd = fourCC("vmhd")
	TypeNmhd = fourCC("nmhd")
	TypeDinf = fourCC("dinf")
	TypeStbl = fourCC("stbl")
	TypeStsd = fourCC("stsd")
	TypeStts = fourCC("stts")
	TypeStsc = fourCC("stsc")
	TypeStsz = fourCC("stsz")
	TypeStco = fourCC("stco")
	TypeCo64 = fourCC("co64")
	TypeMdat = fourCC("mdat")
	TypeFree = fourCC("free")
	TypeUUID = fourCC("uuid")

	// Canon CR3.
	TypeCNCV = fourCC("CNCV")
	TypeCCTP = fourCC("CCTP")
	TypeCTBO = fourCC("CTBO")
	TypeCMT1 = fourCC("CMT1")
	TypeCMT2 = fourCC("CMT2")
	TypeCMT3 = fourCC("CMT3")
	TypeCMT4 = fourCC("CMT4")
	TypeTHMB = fourCC("THMB")
	TypePRVW = fourCC("PRVW")
)
