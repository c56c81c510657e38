// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package rawmeta

import (
	"bytes"
	"errors"
	"io"
	"math"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/google/uuid"
)

func readTestHeader(b []byte) (BoxHeader, uint64, error) {
	r := NewReader(bytes.NewReader(b), Options{})
	h, err := r.ReadHeader()
	if err != nil {
		return h, 0, err
	}
	pos, err := r.Pos()
	return h, pos, err
}

func TestReadHeader(t *testing.T) {
	c := qt.New(t)

	c.Run("Compact", func(c *qt.C) {
		h, pos, err := readTestHeader(mkBox("moov", make([]byte, 10)))
		c.Assert(err, qt.IsNil)
		c.Assert(h.Type, qt.Equals, TypeMoov)
		c.Assert(h.Size, qt.Equals, uint64(18))
		c.Assert(h.HeaderSize, qt.Equals, uint64(8))
		c.Assert(h.Extended, qt.IsFalse)
		c.Assert(h.End(), qt.Equals, uint64(18))
		c.Assert(h.PayloadSize(), qt.Equals, uint64(10))
		c.Assert(pos, qt.Equals, uint64(8))
	})

	c.Run("Extended", func(c *qt.C) {
		h, pos, err := readTestHeader(mkBoxExtended("mdat", make([]byte, 10)))
		c.Assert(err, qt.IsNil)
		c.Assert(h.Type, qt.Equals, TypeMdat)
		c.Assert(h.Size, qt.Equals, uint64(26))
		c.Assert(h.HeaderSize, qt.Equals, uint64(16))
		c.Assert(h.Extended, qt.IsTrue)
		c.Assert(pos, qt.Equals, uint64(16))
	})

	c.Run("Large extended size", func(c *qt.C) {
		b := cat(be32(1), []byte("mdat"), be64(math.MaxUint32+100))
		h, _, err := readTestHeader(b)
		c.Assert(err, qt.IsNil)
		c.Assert(h.Size, qt.Equals, uint64(math.MaxUint32+100))
	})

	c.Run("UUID", func(c *qt.C) {
		h, pos, err := readTestHeader(mkUUIDBox(UUIDXMP, []byte("xmp")))
		c.Assert(err, qt.IsNil)
		c.Assert(h.Type, qt.Equals, TypeUUID)
		c.Assert(h.UserType, qt.Equals, UUIDXMP)
		c.Assert(h.IsUUID(UUIDXMP), qt.IsTrue)
		c.Assert(h.IsUUID(UUIDCanon), qt.IsFalse)
		c.Assert(h.HeaderSize, qt.Equals, uint64(24))
		c.Assert(h.PayloadSize(), qt.Equals, uint64(3))
		c.Assert(pos, qt.Equals, uint64(24))
	})

	c.Run("Size to end", func(c *qt.C) {
		h, _, err := readTestHeader(cat(be32(0), []byte("mdat"), make([]byte, 4)))
		c.Assert(err, qt.IsNil)
		c.Assert(h.Size, qt.Equals, uint64(0))
	})

	c.Run("Non printable type", func(c *qt.C) {
		h, _, err := readTestHeader(cat(be32(8), []byte{0, 1, 2, 3}))
		c.Assert(err, qt.IsNil)
		c.Assert(h.Type, qt.Equals, FourCC{0, 1, 2, 3})
		c.Assert(h.Type.String(), qt.Equals, "0x00010203")
	})

	c.Run("Size smaller than header", func(c *qt.C) {
		for _, b := range [][]byte{
			cat(be32(7), []byte("moov")),
			cat(be32(1), []byte("moov"), be64(15)),
			cat(be32(1), []byte("moov"), be64(0)),
			cat(be32(20), []byte("uuid"), make([]byte, 16)),
		} {
			_, _, err := readTestHeader(b)
			var serr *StructureError
			c.Assert(err, qt.ErrorAs, &serr)
			c.Assert(IsInvalidFormat(err), qt.IsTrue)
		}
	})

	c.Run("Truncated", func(c *qt.C) {
		for _, b := range [][]byte{
			nil,
			{0, 0, 0},
			cat(be32(1), []byte("mdat"), []byte{0, 0}),
			cat(be32(40), []byte("uuid"), make([]byte, 8)),
		} {
			_, _, err := readTestHeader(b)
			c.Assert(IsTruncated(err), qt.IsTrue, qt.Commentf("%v", b))
			c.Assert(IsInvalidFormat(err), qt.IsTrue)
			c.Assert(errors.Is(err, io.ErrUnexpectedEOF), qt.IsTrue)
		}
	})
}

func TestBoxHeaderAppendBinary(t *testing.T) {
	c := qt.New(t)

	for _, b := range [][]byte{
		mkBox("moov", make([]byte, 3)),
		mkBoxExtended("mdat", make([]byte, 3)),
		mkUUIDBox(UUIDCanon, make([]byte, 3)),
	} {
		h, _, err := readTestHeader(b)
		c.Assert(err, qt.IsNil)
		out, err := h.AppendBinary(nil)
		c.Assert(err, qt.IsNil)
		c.Assert(out, qt.DeepEquals, b[:h.HeaderSize])
	}

	big := BoxHeader{Type: TypeMdat, Size: math.MaxUint32 + 1}
	out, err := big.AppendBinary(nil)
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.HasLen, 16)
	h, _, err := readTestHeader(out)
	c.Assert(err, qt.IsNil)
	c.Assert(h.Size, qt.Equals, uint64(math.MaxUint32+1))

	_, err = BoxHeader{Type: TypeUUID, Size: 8, UserType: uuid.New()}.AppendBinary(nil)
	c.Assert(err, qt.IsNotNil)
}

func TestFourCC(t *testing.T) {
	c := qt.New(t)

	f, err := ParseFourCC("crx ")
	c.Assert(err, qt.IsNil)
	c.Assert(f, qt.Equals, BrandCR3)
	c.Assert(f.String(), qt.Equals, "crx ")
	c.Assert(f.Uint32(), qt.Equals, uint32(0x63727820))

	_, err = ParseFourCC("toolong")
	c.Assert(err, qt.ErrorMatches, `fourcc "toolong": must be 4 bytes, got 7`)

	c.Assert(TypeFtyp.Compare(TypeMoov), qt.Equals, -1)
	c.Assert(TypeMoov.Compare(TypeFtyp), qt.Equals, 1)
	c.Assert(TypeMoov.Compare(fourCC("moov")), qt.Equals, 0)
	// Raw bytes, not text: upper case sorts before lower case.
	c.Assert(TypeCMT1.Compare(TypeCo64), qt.Equals, -1)
}
