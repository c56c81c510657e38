// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package rawmeta

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"sync"
)

type pooledBytes struct {
	b []byte
}

var pooledBytesPool = &sync.Pool{
	New: func() any {
		return &pooledBytes{
			b: make([]byte, 1024),
		}
	},
}

func getPooledBytes(length int) *pooledBytes {
	b := pooledBytesPool.Get().(*pooledBytes)
	if length > cap(b.b) {
		b.b = make([]byte, length)
	}
	b.b = b.b[:length]
	return b
}

func putPooledBytes(br *pooledBytes) {
	br.b = br.b[:0]
	pooledBytesPool.Put(br)
}

// stopError is the panic payload used by the read helpers below.
// It is recovered at the box boundary by recoverStop.
type stopError struct {
	err error
}

func recoverStop(errp *error) {
	if r := recover(); r != nil {
		s, ok := r.(stopError)
		if !ok {
			panic(r)
		}
		*errp = s.err
	}
}

func stop(err error) {
	panic(stopError{err: err})
}

// streamReader is a wrapper around a ReadSeeker that tracks box boundaries.
// Note that this is not thread safe.
type streamReader struct {
	r   io.ReadSeeker
	buf [16]byte
}

func (e *streamReader) pos() (uint64, error) {
	n, err := e.r.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, &SeekError{Err: err}
	}
	return uint64(n), nil
}

func (e *streamReader) seek(pos uint64) error {
	if pos > math.MaxInt64 {
		return &SeekError{Offset: pos, Err: errors.New("offset overflows int64")}
	}
	if _, err := e.r.Seek(int64(pos), io.SeekStart); err != nil {
		return &SeekError{Offset: pos, Err: err}
	}
	return nil
}

func (e *streamReader) size() (uint64, error) {
	cur, err := e.r.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, &SeekError{Err: err}
	}
	end, err := e.r.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, &SeekError{Err: err}
	}
	if _, err := e.r.Seek(cur, io.SeekStart); err != nil {
		return 0, &SeekError{Offset: uint64(cur), Err: err}
	}
	return uint64(end), nil
}

// readFull reads len(b) bytes at the current position.
// A short read is reported as a TruncatedError naming what.
func (e *streamReader) readFull(b []byte, what string) error {
	start, err := e.pos()
	if err != nil {
		return err
	}
	if _, err := io.ReadFull(e.r, b); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return &TruncatedError{Offset: start, Need: uint64(len(b)), What: what, Err: io.ErrUnexpectedEOF}
		}
		return err
	}
	return nil
}

// payload is a fully buffered box payload.
// The read helpers panic with a stopError on short reads, see decodeLeaf.
type payload struct {
	h   BoxHeader
	br  *pooledBytes
	b   []byte
	off int
}

func (p *payload) close() {
	if p.br != nil {
		putPooledBytes(p.br)
		p.br = nil
	}
}

// remaining returns the number of unread payload bytes.
func (p *payload) remaining() int {
	return len(p.b) - p.off
}

func (p *payload) next(n int, what string) []byte {
	if n < 0 || n > p.remaining() {
		stop(&TruncatedError{
			Offset: p.h.PayloadOffset() + uint64(p.off),
			Need:   uint64(n),
			What:   p.h.Type.String() + " " + what,
		})
	}
	b := p.b[p.off : p.off+n]
	p.off += n
	return b
}

func (p *payload) read1(what string) uint8 {
	return p.next(1, what)[0]
}

func (p *payload) read2(what string) uint16 {
	return binary.BigEndian.Uint16(p.next(2, what))
}

func (p *payload) read4(what string) uint32 {
	return binary.BigEndian.Uint32(p.next(4, what))
}

func (p *payload) read8(what string) uint64 {
	return binary.BigEndian.Uint64(p.next(8, what))
}

func (p *payload) readFourCC(what string) FourCC {
	var f FourCC
	copy(f[:], p.next(4, what))
	return f
}

// readBytes returns a copy of the next n bytes.
func (p *payload) readBytes(n int, what string) []byte {
	b := p.next(n, what)
	c := make([]byte, len(b))
	copy(c, b)
	return c
}

// readFullBox reads the version and flags of an ISO full box.
func (p *payload) readFullBox() (version uint8, flags uint32) {
	vf := p.read4("version and flags")
	return uint8(vf >> 24), vf & 0xffffff
}

// readCount reads a 32-bit entry count and checks that count entries of
// entrySize bytes fit in the rest of the payload.
func (p *payload) readCount(entrySize int, what string) int {
	count := p.read4(what + " count")
	if uint64(count)*uint64(entrySize) > uint64(p.remaining()) {
		stop(&TruncatedError{
			Offset: p.h.PayloadOffset() + uint64(p.off),
			Need:   uint64(count) * uint64(entrySize),
			What:   p.h.Type.String() + " " + what,
		})
	}
	return int(count)
}
