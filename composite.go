// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package rawmeta

import "fmt"

// Slot describes a child box type a composite box recognizes.
type Slot struct {
	// Type is the child box type.
	Type FourCC

	// Reader decodes the child.
	Reader BoxReader

	// Required children must be present, else the composite fails with a MissingChildError.
	Required bool

	// Multiple allows repeated children. A repeated child in a slot
	// without Multiple is a DuplicateChildError.
	Multiple bool
}

// Schema is the set of children a composite box recognizes.
// Children of other types are read as vendor boxes.
type Schema struct {
	// Type is the composite box type.
	Type FourCC

	slots []Slot
	index map[FourCC]int
}

// NewSchema creates a schema for the composite box typ.
// A later slot replaces an earlier slot of the same type.
func NewSchema(typ FourCC, slots ...Slot) *Schema {
	s := &Schema{
		Type:  typ,
		index: make(map[FourCC]int),
	}
	s.add(slots...)
	return s
}

func (s *Schema) add(slots ...Slot) {
	for _, sl := range slots {
		if sl.Reader == nil {
			panic(fmt.Sprintf("rawmeta: slot %s in schema %s has no reader", sl.Type, s.Type))
		}
		if i, found := s.index[sl.Type]; found {
			s.slots[i] = sl
			continue
		}
		s.index[sl.Type] = len(s.slots)
		s.slots = append(s.slots, sl)
	}
}

// With returns a copy of s with the given slots added or replaced.
func (s *Schema) With(slots ...Slot) *Schema {
	s2 := NewSchema(s.Type, s.slots...)
	s2.add(slots...)
	return s2
}

// Lookup returns the slot for t.
func (s *Schema) Lookup(t FourCC) (Slot, bool) {
	i, found := s.index[t]
	if !found {
		return Slot{}, false
	}
	return s.slots[i], true
}

// Slots returns the slots of s in declaration order.
func (s *Schema) Slots() []Slot {
	return append([]Slot(nil), s.slots...)
}

// Composite is a box whose payload is a sequence of child boxes.
type Composite struct {
	BoxHeader

	// Children holds every child in file order.
	Children []Box

	// Vendor holds the children not interpreted by the schema, in file order.
	Vendor []*VendorBox

	slots map[FourCC][]Box
}

// Header returns the composite's header.
func (c *Composite) Header() BoxHeader {
	return c.BoxHeader
}

// First returns the first child read into slot t, or nil.
func (c *Composite) First(t FourCC) Box {
	if bs := c.slots[t]; len(bs) > 0 {
		return bs[0]
	}
	return nil
}

// All returns the children read into slot t in file order.
func (c *Composite) All(t FourCC) []Box {
	return c.slots[t]
}

// CompositeReader returns a BoxReader that reads boxes of schema s into a *Composite.
func CompositeReader(s *Schema) BoxReader {
	return BoxReaderFunc(func(r *Reader, h BoxHeader) (Box, error) {
		c, err := ReadComposite(r, h, s)
		if err != nil {
			return nil, err
		}
		return c, nil
	})
}

// ReadComposite reads the children of the composite box h from the current
// stream position up to h.End().
//
// Children are dispatched by type to the schema's slot readers; unknown
// types are read as vendor boxes. A tail too short to hold a box header is
// skipped as padding. After the last child, the stream is
// positioned at h.End() whatever the child readers consumed, and only then
// are required children checked. Errors from children are returned unchanged.
func ReadComposite(r *Reader, h BoxHeader, s *Schema) (*Composite, error) {
	defer r.enter(h.Type)()

	c := &Composite{
		BoxHeader: h,
		slots:     make(map[FourCC][]Box),
	}

	end := h.End()
	current, err := r.Pos()
	if err != nil {
		return nil, err
	}

	for current < end {
		if end-current < headerSizeCompact {
			r.opts.Debugf("%s: %d bytes of padding at offset %d", r.Path(), end-current, current)
			break
		}

		child, err := r.ReadHeader()
		if err != nil {
			return nil, err
		}
		if child.Size == sizeToEnd && !child.Extended {
			child.Size = end - child.Offset
			if child.Size < child.HeaderSize {
				return nil, r.structureError(child, fmt.Sprintf("box extends to container end %d but header needs %d bytes", end, child.HeaderSize))
			}
		}
		if child.End() > end {
			return nil, r.structureError(child, fmt.Sprintf("box end %d exceeds container end %d", child.End(), end))
		}

		if err := c.readChild(r, s, child); err != nil {
			return nil, err
		}

		pos, err := r.Pos()
		if err != nil {
			return nil, err
		}
		switch {
		case pos > child.End():
			return nil, r.structureError(child, fmt.Sprintf("reader consumed %d bytes past the box end", pos-child.End()))
		case pos < child.End():
			if err := r.Seek(child.End()); err != nil {
				return nil, err
			}
		}

		if child.End() <= current {
			return nil, r.structureError(child, "no progress")
		}
		current = child.End()
	}

	if err := r.Seek(end); err != nil {
		return nil, err
	}

	for _, sl := range s.slots {
		if sl.Required && len(c.slots[sl.Type]) == 0 {
			return nil, &MissingChildError{Path: r.Path(), Parent: h.Type, Child: sl.Type}
		}
	}

	return c, nil
}

func (c *Composite) readChild(r *Reader, s *Schema, child BoxHeader) error {
	sl, found := s.Lookup(child.Type)
	if !found {
		r.opts.Debugf("Vendor box found in %s: %s", r.Path(), child)
		v, err := ReadVendorBox(r, child)
		if err != nil {
			return err
		}
		c.Vendor = append(c.Vendor, v)
		c.Children = append(c.Children, v)
		return nil
	}

	if !sl.Multiple && len(c.slots[child.Type]) > 0 {
		return &DuplicateChildError{
			Path:   r.Path(),
			Parent: c.Type,
			Child:  child.Type,
			Offset: child.Offset,
		}
	}

	b, err := sl.Reader.ReadBox(r, child)
	if err != nil {
		return err
	}
	c.slots[child.Type] = append(c.slots[child.Type], b)
	c.Children = append(c.Children, b)
	if v, ok := b.(*VendorBox); ok {
		c.Vendor = append(c.Vendor, v)
	}
	return nil
}

// first returns the first child in slot t as a T.
func first[T Box](c *Composite, t FourCC) T {
	v, _ := c.First(t).(T)
	return v
}

// all returns the children in slot t that are a T.
func all[T Box](c *Composite, t FourCC) []T {
	var vs []T
	for _, b := range c.All(t) {
		if v, ok := b.(T); ok {
			vs = append(vs, v)
		}
	}
	return vs
}
