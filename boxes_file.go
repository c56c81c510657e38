// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package rawmeta

import (
	"fmt"

	"github.com/google/uuid"
)

// User types of the uuid boxes in Canon CR3 files.
var (
	UUIDCanon   = uuid.MustParse("85c0b687-820f-11e0-8111-f4ce462b6a48")
	UUIDXMP     = uuid.MustParse("be7acfcb-97a9-42e8-9c71-999491e3afac")
	UUIDPreview = uuid.MustParse("eaf42b5e-1c98-4b88-b9fb-b7dc406e4d16")
)

// BrandCR3 is the ftyp major brand of Canon CR3 files.
var BrandCR3 = fourCC("crx ")

// File is the box tree of a whole stream.
type File struct {
	// Size is the stream length.
	Size uint64

	Ftyp    *FtypBox
	Moov    *MoovBox
	XMP     *XMPBox
	Preview *PreviewBox

	// Boxes holds every top-level box in file order.
	Boxes []Box

	// Vendor holds the top-level boxes not interpreted, in file order.
	Vendor []*VendorBox
}

// IsCR3 reports whether f has the Canon CR3 major brand.
func (f *File) IsCR3() bool {
	return f.Ftyp != nil && f.Ftyp.MajorBrand == BrandCR3
}

var fileSchema = NewSchema(FourCC{},
	Slot{Type: TypeFtyp, Reader: BoxReaderFunc(readFtyp), Required: true},
	Slot{Type: TypeMoov, Reader: BoxReaderFunc(readMoov), Required: true},
	Slot{Type: TypeUUID, Reader: BoxReaderFunc(readFileUUID), Multiple: true},
)

func readFile(r *Reader) (*File, error) {
	size, err := r.sr.size()
	if err != nil {
		return nil, err
	}
	if err := r.Seek(0); err != nil {
		return nil, err
	}

	root := BoxHeader{Size: size}
	c, err := ReadComposite(r, root, fileSchema)
	if err != nil {
		return nil, err
	}

	f := &File{
		Size:   size,
		Ftyp:   first[*FtypBox](c, TypeFtyp),
		Moov:   first[*MoovBox](c, TypeMoov),
		Boxes:  c.Children,
		Vendor: c.Vendor,
	}
	for _, b := range c.All(TypeUUID) {
		switch v := b.(type) {
		case *XMPBox:
			if f.XMP == nil {
				f.XMP = v
			}
		case *PreviewBox:
			if f.Preview == nil {
				f.Preview = v
			}
		}
	}
	return f, nil
}

func readFileUUID(r *Reader, h BoxHeader) (Box, error) {
	switch h.UserType {
	case UUIDXMP:
		return decodeLeaf(r, h, func(p *payload) Box {
			return &XMPBox{BoxHeader: h, Data: p.readBytes(p.remaining(), "XMP packet")}
		})
	case UUIDPreview:
		return readPreview(r, h)
	default:
		return VendorReader.ReadBox(r, h)
	}
}

// FtypBox is the file type box.
type FtypBox struct {
	BoxHeader
	MajorBrand       FourCC
	MinorVersion     uint32
	CompatibleBrands []FourCC
}

func (b *FtypBox) Header() BoxHeader { return b.BoxHeader }

func readFtyp(r *Reader, h BoxHeader) (Box, error) {
	return decodeLeaf(r, h, func(p *payload) Box {
		b := &FtypBox{
			BoxHeader:    h,
			MajorBrand:   p.readFourCC("major brand"),
			MinorVersion: p.read4("minor version"),
		}
		for p.remaining() >= 4 {
			b.CompatibleBrands = append(b.CompatibleBrands, p.readFourCC("compatible brand"))
		}
		return b
	})
}

// XMPBox holds the XMP packet of a CR3 file.
type XMPBox struct {
	BoxHeader
	Data []byte
}

func (b *XMPBox) Header() BoxHeader { return b.BoxHeader }

// PreviewBox is the uuid box holding the CR3 preview JPEG.
type PreviewBox struct {
	BoxHeader
	Prvw *PrvwBox
}

func (b *PreviewBox) Header() BoxHeader { return b.BoxHeader }

// PrvwBox locates the preview JPEG.
type PrvwBox struct {
	BoxHeader
	Width  uint16
	Height uint16

	// JPEGOffset and JPEGSize locate the JPEG stream in the file.
	JPEGOffset uint64
	JPEGSize   uint32
}

func (b *PrvwBox) Header() BoxHeader { return b.BoxHeader }

var previewSchema = NewSchema(TypeUUID,
	Slot{Type: TypePRVW, Reader: BoxReaderFunc(readPrvw), Required: true},
)

func readPreview(r *Reader, h BoxHeader) (Box, error) {
	// 8 bytes of unknown data precede the PRVW box.
	const skip = 8
	if h.PayloadSize() < skip {
		return nil, &TruncatedError{Offset: h.PayloadOffset(), Need: skip, What: "preview uuid payload"}
	}
	if err := r.Seek(h.PayloadOffset() + skip); err != nil {
		return nil, err
	}
	c, err := ReadComposite(r, h, previewSchema)
	if err != nil {
		return nil, err
	}
	return &PreviewBox{BoxHeader: h, Prvw: first[*PrvwBox](c, TypePRVW)}, nil
}

func readPrvw(r *Reader, h BoxHeader) (Box, error) {
	return decodeLeaf(r, h, func(p *payload) Box {
		p.read4("unknown")
		p.read2("unknown")
		b := &PrvwBox{BoxHeader: h}
		b.Width = p.read2("width")
		b.Height = p.read2("height")
		p.read2("unknown")
		b.JPEGSize = p.read4("jpeg size")
		b.JPEGOffset = h.PayloadOffset() + uint64(p.off)
		if int64(b.JPEGSize) > int64(p.remaining()) {
			stop(&TruncatedError{Offset: b.JPEGOffset, Need: uint64(b.JPEGSize), What: "PRVW jpeg"})
		}
		p.next(int(b.JPEGSize), "jpeg")
		return b
	})
}

// MoovBox is the movie box.
type MoovBox struct {
	BoxHeader

	// Canon is the Canon metadata box of CR3 files.
	Canon *CanonBox

	Traks  []*TrakBox
	Vendor []*VendorBox
}

func (b *MoovBox) Header() BoxHeader { return b.BoxHeader }

var moovSchema = NewSchema(TypeMoov,
	Slot{Type: TypeUUID, Reader: BoxReaderFunc(readMoovUUID), Multiple: true},
	Slot{Type: TypeTrak, Reader: BoxReaderFunc(readTrak), Required: true, Multiple: true},
)

func readMoov(r *Reader, h BoxHeader) (Box, error) {
	c, err := ReadComposite(r, h, moovSchema)
	if err != nil {
		return nil, err
	}
	b := &MoovBox{
		BoxHeader: h,
		Traks:     all[*TrakBox](c, TypeTrak),
		Vendor:    c.Vendor,
	}
	for _, canon := range all[*CanonBox](c, TypeUUID) {
		if b.Canon != nil {
			r.opts.Warnf("%s: ignoring extra Canon uuid box %s", r.Path(), canon.BoxHeader)
			continue
		}
		b.Canon = canon
	}
	return b, nil
}

func readMoovUUID(r *Reader, h BoxHeader) (Box, error) {
	if h.UserType == UUIDCanon {
		return readCanon(r, h)
	}
	return VendorReader.ReadBox(r, h)
}

// TrakBox is a track box.
type TrakBox struct {
	BoxHeader
	Mdia   *MdiaBox
	Vendor []*VendorBox
}

func (b *TrakBox) Header() BoxHeader { return b.BoxHeader }

var trakSchema = NewSchema(TypeTrak,
	Slot{Type: TypeMdia, Reader: BoxReaderFunc(readMdia), Required: true},
)

func readTrak(r *Reader, h BoxHeader) (Box, error) {
	c, err := ReadComposite(r, h, trakSchema)
	if err != nil {
		return nil, err
	}
	return &TrakBox{
		BoxHeader: h,
		Mdia:      first[*MdiaBox](c, TypeMdia),
		Vendor:    c.Vendor,
	}, nil
}

// Sample returns the file offset and size of sample i.
// It assumes one sample per chunk, which is how CR3 image tracks are laid out.
func (b *TrakBox) Sample(i int) (offset, size uint64, err error) {
	if b.Mdia == nil || b.Mdia.Minf == nil || b.Mdia.Minf.Stbl == nil {
		return 0, 0, fmt.Errorf("trak at offset %d: no sample table", b.Offset)
	}
	stbl := b.Mdia.Minf.Stbl
	if stbl.ChunkOffsets == nil || i < 0 || i >= len(stbl.ChunkOffsets.Offsets) {
		return 0, 0, fmt.Errorf("trak at offset %d: no chunk offset for sample %d", b.Offset, i)
	}
	sz, ok := stbl.Stsz.SampleSizeAt(i)
	if !ok {
		return 0, 0, fmt.Errorf("trak at offset %d: no size for sample %d", b.Offset, i)
	}
	return stbl.ChunkOffsets.Offsets[i], uint64(sz), nil
}
