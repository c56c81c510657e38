// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package rawmeta

import (
	"fmt"
	"io"
)

// Box is a decoded box.
type Box interface {
	// Header returns the header the box was read from.
	Header() BoxHeader
}

// BoxReader decodes a box whose header has already been read.
//
// ReadBox is called with r positioned at the first payload byte of h.
// It must not read past h.End(). It may stop short of it; the caller
// resynchronizes to h.End().
type BoxReader interface {
	ReadBox(r *Reader, h BoxHeader) (Box, error)
}

// BoxReaderFunc adapts a function to BoxReader.
type BoxReaderFunc func(r *Reader, h BoxHeader) (Box, error)

// ReadBox calls f(r, h).
func (f BoxReaderFunc) ReadBox(r *Reader, h BoxHeader) (Box, error) {
	return f(r, h)
}

// Reader is a positioned box stream shared by all box readers of one parse.
// It is not safe for concurrent use; the parse owns the underlying stream
// for its whole duration.
type Reader struct {
	sr   *streamReader
	opts Options

	// Types of the containers currently being read, outermost first.
	path []FourCC
}

// NewReader returns a Reader reading from r.
func NewReader(r io.ReadSeeker, opts Options) *Reader {
	opts.init()
	return &Reader{
		sr:   &streamReader{r: r},
		opts: opts,
	}
}

// Pos returns the current stream position.
func (r *Reader) Pos() (uint64, error) {
	return r.sr.pos()
}

// Seek sets the stream position to the absolute offset off.
func (r *Reader) Seek(off uint64) error {
	return r.sr.seek(off)
}

// ReadFull reads exactly len(b) bytes.
func (r *Reader) ReadFull(b []byte) error {
	return r.sr.readFull(b, "box payload")
}

// Path returns the slash separated types of the containers being read.
func (r *Reader) Path() string {
	return formatPath(r.path)
}

// enter pushes t on the container path and returns the func that pops it.
func (r *Reader) enter(t FourCC) func() {
	if t == (FourCC{}) {
		return func() {}
	}
	r.path = append(r.path, t)
	return func() {
		r.path = r.path[:len(r.path)-1]
	}
}

func (r *Reader) structureError(h BoxHeader, reason string) error {
	return &StructureError{
		Path:   r.Path(),
		Type:   h.Type,
		Offset: h.Offset,
		Reason: reason,
	}
}

// payload buffers the payload of h, which must fit in MaxRetainSize.
// It's important to call close on the payload when done.
func (r *Reader) payload(h BoxHeader) (*payload, error) {
	n := h.PayloadSize()
	if n > uint64(r.opts.MaxRetainSize) {
		return nil, r.structureError(h, fmt.Sprintf("payload of %d bytes exceeds max %d", n, r.opts.MaxRetainSize))
	}
	if err := r.Seek(h.PayloadOffset()); err != nil {
		return nil, err
	}
	br := getPooledBytes(int(n))
	if err := r.sr.readFull(br.b, h.Type.String()+" payload"); err != nil {
		putPooledBytes(br)
		return nil, err
	}
	return &payload{h: h, br: br, b: br.b}, nil
}

// decodeLeaf buffers the payload of h and decodes it with fn.
// Short reads inside fn are returned as errors.
func decodeLeaf(r *Reader, h BoxHeader, fn func(p *payload) Box) (b Box, err error) {
	p, err := r.payload(h)
	if err != nil {
		return nil, err
	}
	defer p.close()
	defer recoverStop(&err)

	b = fn(p)
	if n := p.remaining(); n > 0 {
		r.opts.Debugf("%s: %d trailing payload bytes in %s", r.Path(), n, h)
	}
	return b, nil
}
