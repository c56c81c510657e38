// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package rawmeta

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/google/uuid"
)

const (
	headerSizeCompact  = 8
	headerSizeExtended = 16
	userTypeSize       = 16

	// sizeExtended in the 32-bit size field means a 64-bit size follows the type.
	sizeExtended = 1
	// sizeToEnd in the 32-bit size field means the box extends to the end of its container.
	sizeToEnd = 0
)

// BoxHeader is the prolog common to all boxes.
type BoxHeader struct {
	// Type is the box type.
	Type FourCC

	// Size is the total box size including the header.
	// A zero Size as read from the stream means the box extends to the end
	// of its container; the composite engine resolves it before use.
	Size uint64

	// Offset is the stream position of the first header byte.
	Offset uint64

	// HeaderSize is the number of prolog bytes: 8 or 16, plus 16 for uuid boxes.
	HeaderSize uint64

	// Extended is set when the size was stored in the 64-bit field.
	Extended bool

	// UserType is the extended type of uuid boxes.
	UserType uuid.UUID
}

// End returns the offset of the first byte after the box.
func (h BoxHeader) End() uint64 {
	return h.Offset + h.Size
}

// PayloadOffset returns the offset of the first payload byte.
func (h BoxHeader) PayloadOffset() uint64 {
	return h.Offset + h.HeaderSize
}

// PayloadSize returns the number of payload bytes.
func (h BoxHeader) PayloadSize() uint64 {
	if h.Size < h.HeaderSize {
		return 0
	}
	return h.Size - h.HeaderSize
}

// IsUUID reports whether h is an uuid box with the given user type.
func (h BoxHeader) IsUUID(u uuid.UUID) bool {
	return h.Type == TypeUUID && h.UserType == u
}

func (h BoxHeader) String() string {
	if h.Type == TypeUUID {
		return fmt.Sprintf("%s[%s]@%d+%d", h.Type, h.UserType, h.Offset, h.Size)
	}
	return fmt.Sprintf("%s@%d+%d", h.Type, h.Offset, h.Size)
}

// AppendBinary appends the wire form of h to b.
// The 64-bit form is used if h was read in that form or if Size does not fit in 32 bits.
func (h BoxHeader) AppendBinary(b []byte) ([]byte, error) {
	extended := h.Extended || h.Size > math.MaxUint32
	minSize := uint64(headerSizeCompact)
	if extended {
		minSize = headerSizeExtended
	}
	if h.Type == TypeUUID {
		minSize += userTypeSize
	}
	if h.Size < minSize {
		return b, fmt.Errorf("box %s: size %d is smaller than its header (%d)", h.Type, h.Size, minSize)
	}
	if extended {
		b = binary.BigEndian.AppendUint32(b, sizeExtended)
		b = append(b, h.Type[:]...)
		b = binary.BigEndian.AppendUint64(b, h.Size)
	} else {
		b = binary.BigEndian.AppendUint32(b, uint32(h.Size))
		b = append(b, h.Type[:]...)
	}
	if h.Type == TypeUUID {
		b = append(b, h.UserType[:]...)
	}
	return b, nil
}

// ReadHeader parses a box header at the current position.
// On success the stream is positioned at the first payload byte.
func (r *Reader) ReadHeader() (BoxHeader, error) {
	var h BoxHeader
	start, err := r.sr.pos()
	if err != nil {
		return h, err
	}
	h.Offset = start

	buf := r.sr.buf[:]
	if err := r.sr.readFull(buf[:headerSizeCompact], "box header"); err != nil {
		return h, err
	}
	size32 := binary.BigEndian.Uint32(buf[:4])
	copy(h.Type[:], buf[4:8])
	h.Size = uint64(size32)
	h.HeaderSize = headerSizeCompact

	if size32 == sizeExtended {
		if err := r.sr.readFull(buf[:8], "extended box size"); err != nil {
			return h, err
		}
		h.Size = binary.BigEndian.Uint64(buf[:8])
		h.HeaderSize = headerSizeExtended
		h.Extended = true
	}

	if h.Type == TypeUUID {
		if err := r.sr.readFull(buf[:userTypeSize], "uuid user type"); err != nil {
			return h, err
		}
		copy(h.UserType[:], buf[:userTypeSize])
		h.HeaderSize += userTypeSize
	}

	if h.Size != sizeToEnd || h.Extended {
		if h.Size < h.HeaderSize {
			return h, r.structureError(h, fmt.Sprintf("box size %d is smaller than its header (%d)", h.Size, h.HeaderSize))
		}
		if h.Size > math.MaxUint64-h.Offset {
			return h, r.structureError(h, fmt.Sprintf("box size %d overflows", h.Size))
		}
	}

	return h, nil
}
