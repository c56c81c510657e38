// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package rawmeta

import (
	"bytes"
	"testing"

	"github.com/abema/go-mp4"
	qt "github.com/frankban/quicktest"
)

// Compare the top-level and moov box layout with an independent parser.
func TestReadFileMatchesGoMP4(t *testing.T) {
	c := qt.New(t)

	data := mkCR3()
	f := readTestFile(c, data, Options{})

	type span struct {
		Type   string
		Offset uint64
		Size   uint64
	}

	var ours []span
	for _, b := range f.Boxes {
		h := b.Header()
		ours = append(ours, span{h.Type.String(), h.Offset, h.Size})
	}
	for _, b := range []Box{f.Moov.Canon, f.Moov.Traks[0]} {
		h := b.Header()
		ours = append(ours, span{h.Type.String(), h.Offset, h.Size})
	}

	var theirs []span
	_, err := mp4.ReadBoxStructure(bytes.NewReader(data), func(h *mp4.ReadHandle) (any, error) {
		bi := h.BoxInfo
		if len(h.Path) > 2 {
			return nil, nil
		}
		if len(h.Path) == 2 && bi.Type != mp4.StrToBoxType("uuid") && bi.Type != mp4.BoxTypeTrak() {
			return nil, nil
		}
		theirs = append(theirs, span{bi.Type.String(), bi.Offset, bi.Size})
		if bi.Type == mp4.BoxTypeMoov() {
			return h.Expand()
		}
		return nil, nil
	})
	c.Assert(err, qt.IsNil)

	// go-mp4 visits moov children before the following top-level boxes.
	var want []span
	want = append(want, theirs[0], theirs[1])
	want = append(want, theirs[4:]...)
	want = append(want, theirs[2], theirs[3])
	c.Assert(ours, qt.DeepEquals, want)
}

func TestReadMdhdVersion1(t *testing.T) {
	c := qt.New(t)

	const (
		creation  = 5_000_000_000
		timescale = 90000
		duration  = 1 << 40
	)

	var payload bytes.Buffer
	_, err := mp4.Marshal(&payload, &mp4.Mdhd{
		FullBox:            mp4.FullBox{Version: 1},
		CreationTimeV1:     creation,
		ModificationTimeV1: creation + 1,
		Timescale:          timescale,
		DurationV1:         duration,
		Language:           [3]byte{'e' - 0x60, 'n' - 0x60, 'g' - 0x60},
	}, mp4.Context{})
	c.Assert(err, qt.IsNil)

	mdhd := mkBox("mdhd", payload.Bytes())
	f := readTestFile(c, mkCR3With(mdhd), Options{})

	m := f.Moov.Traks[0].Mdia.Mdhd
	c.Assert(m.Version, qt.Equals, uint8(1))
	c.Assert(m.CreationTime, qt.Equals, uint64(creation))
	c.Assert(m.ModificationTime, qt.Equals, uint64(creation+1))
	c.Assert(m.Timescale, qt.Equals, uint32(timescale))
	c.Assert(m.Duration, qt.Equals, uint64(duration))
	c.Assert(m.Language, qt.Equals, "eng")
}

func TestReadMdhdInvalid(t *testing.T) {
	c := qt.New(t)

	c.Run("Short", func(c *qt.C) {
		_, err := ReadFile(bytes.NewReader(mkCR3With(mkFullBox("mdhd", 0, 0, make([]byte, 8)))), Options{})
		c.Assert(IsTruncated(err), qt.IsTrue)
	})

	c.Run("Short version 1", func(c *qt.C) {
		_, err := ReadFile(bytes.NewReader(mkCR3With(mkFullBox("mdhd", 1, 0, make([]byte, 20)))), Options{})
		var terr *TruncatedError
		c.Assert(err, qt.ErrorAs, &terr)
		c.Assert(terr.What, qt.Equals, "mdhd payload")
		c.Assert(terr.Need, qt.Equals, uint64(mdhdMinPayloadSizeV1))
	})
}
