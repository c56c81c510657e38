// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package rawmeta

// VendorBox is a box whose type the enclosing schema does not interpret.
type VendorBox struct {
	BoxHeader

	// Data is the raw payload if Options.RetainVendorData is set
	// and the payload fits in Options.MaxRetainSize, else nil.
	Data []byte
}

// Header returns the box header.
func (b *VendorBox) Header() BoxHeader {
	return b.BoxHeader
}

// VendorReader reads any box as a *VendorBox.
var VendorReader BoxReader = BoxReaderFunc(func(r *Reader, h BoxHeader) (Box, error) {
	v, err := ReadVendorBox(r, h)
	if err != nil {
		return nil, err
	}
	return v, nil
})

// ReadVendorBox reads the box h without interpreting it and leaves the
// stream at h.End(). The box type is never a reason to fail.
func ReadVendorBox(r *Reader, h BoxHeader) (*VendorBox, error) {
	v := &VendorBox{BoxHeader: h}

	if r.opts.RetainVendorData && h.PayloadSize() > 0 {
		if n := h.PayloadSize(); n <= uint64(r.opts.MaxRetainSize) {
			if err := r.Seek(h.PayloadOffset()); err != nil {
				return nil, err
			}
			v.Data = make([]byte, n)
			if err := r.sr.readFull(v.Data, h.Type.String()+" payload"); err != nil {
				return nil, err
			}
		} else {
			r.opts.Warnf("%s: not retaining %d byte payload of %s", r.Path(), n, h)
		}
	}

	if err := r.Seek(h.End()); err != nil {
		return nil, err
	}
	return v, nil
}
