// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package rawmeta

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/abema/go-mp4"
)

// MdiaBox is the media box of a track.
type MdiaBox struct {
	BoxHeader
	Mdhd   *MdhdBox
	Hdlr   *HdlrBox
	Minf   *MinfBox
	Vendor []*VendorBox
}

func (b *MdiaBox) Header() BoxHeader { return b.BoxHeader }

var mdiaSchema = NewSchema(TypeMdia,
	Slot{Type: TypeMdhd, Reader: BoxReaderFunc(readMdhd), Required: true},
	Slot{Type: TypeHdlr, Reader: BoxReaderFunc(readHdlr), Required: true},
	Slot{Type: TypeMinf, Reader: BoxReaderFunc(readMinf), Required: true},
)

func readMdia(r *Reader, h BoxHeader) (Box, error) {
	c, err := ReadComposite(r, h, mdiaSchema)
	if err != nil {
		return nil, err
	}
	return &MdiaBox{
		BoxHeader: h,
		Mdhd:      first[*MdhdBox](c, TypeMdhd),
		Hdlr:      first[*HdlrBox](c, TypeHdlr),
		Minf:      first[*MinfBox](c, TypeMinf),
		Vendor:    c.Vendor,
	}, nil
}

// MdhdBox is the media header box.
type MdhdBox struct {
	BoxHeader
	Version uint8

	// Times are seconds since midnight, Jan. 1, 1904, in UTC.
	CreationTime     uint64
	ModificationTime uint64

	Timescale uint32
	Duration  uint64

	// Language is the ISO-639-2/T code, e.g. "und".
	Language string
}

func (b *MdhdBox) Header() BoxHeader { return b.BoxHeader }

// Full box, then 4 x 32 bit (version 0) or 3 x 64 + 32 bit (version 1)
// times, then language and pre_defined.
const (
	mdhdMinPayloadSize   = 4 + 16 + 4
	mdhdMinPayloadSizeV1 = 4 + 28 + 4
)

func readMdhd(r *Reader, h BoxHeader) (Box, error) {
	if h.PayloadSize() < mdhdMinPayloadSize {
		return nil, &TruncatedError{Offset: h.PayloadOffset(), Need: mdhdMinPayloadSize, What: "mdhd payload"}
	}
	p, err := r.payload(h)
	if err != nil {
		return nil, err
	}
	defer p.close()
	if p.b[0] == 1 && len(p.b) < mdhdMinPayloadSizeV1 {
		return nil, &TruncatedError{Offset: h.PayloadOffset(), Need: mdhdMinPayloadSizeV1, What: "mdhd payload"}
	}

	var m mp4.Mdhd
	if _, err := mp4.Unmarshal(bytes.NewReader(p.b), h.PayloadSize(), &m, mp4.Context{}); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, &TruncatedError{Offset: h.PayloadOffset(), Need: h.PayloadSize(), What: "mdhd payload", Err: err}
		}
		return nil, r.structureError(h, fmt.Sprintf("decode mdhd: %s", err))
	}

	lang := make([]byte, len(m.Language))
	for i, c := range m.Language {
		// Each character is packed as 5 bits, offset by 0x60.
		lang[i] = c + 0x60
	}

	return &MdhdBox{
		BoxHeader:        h,
		Version:          m.GetVersion(),
		CreationTime:     m.GetCreationTime(),
		ModificationTime: m.GetModificationTime(),
		Timescale:        m.Timescale,
		Duration:         m.GetDuration(),
		Language:         string(lang),
	}, nil
}

// HdlrBox is the handler reference box.
type HdlrBox struct {
	BoxHeader
	HandlerType FourCC
	Name        string
}

func (b *HdlrBox) Header() BoxHeader { return b.BoxHeader }

func readHdlr(r *Reader, h BoxHeader) (Box, error) {
	return decodeLeaf(r, h, func(p *payload) Box {
		p.readFullBox()
		p.read4("pre_defined")
		b := &HdlrBox{BoxHeader: h}
		b.HandlerType = p.readFourCC("handler type")
		p.next(12, "reserved")
		b.Name = decodeHandlerName(p.next(p.remaining(), "name"))
		return b
	})
}
