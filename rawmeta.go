// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

// Package rawmeta decodes the ISO Base Media File Format box tree of camera
// raw files such as Canon CR3, and catalogs the TIFF/EXIF/GPS/DNG tag
// identifiers found in their metadata directories.
package rawmeta

import (
	"fmt"
	"io"
	"runtime"
	"time"
)

// UnknownPrefix is used as prefix for unknown tags.
const UnknownPrefix = "UnknownTag_"

// 10 MB should be plenty for box payloads held in memory.
const defaultMaxRetainSize = 10 * 1024 * 1024

// Options contains the options for ReadFile, ReadFiles and NewReader.
type Options struct {
	// If set, the raw payloads of vendor boxes are kept in VendorBox.Data.
	RetainVendorData bool

	// MaxRetainSize is the maximum size in bytes of a payload held in memory.
	// Leaf boxes larger than this fail to decode; larger vendor payloads are not retained.
	// Default value is 10 MB.
	MaxRetainSize int64

	// Timeout is the maximum time ReadFile will spend on one stream.
	// If set to 0, ReadFile will not time out.
	// On a timeout the parse keeps running in the background until it fails
	// or completes, so the stream must not be reused.
	Timeout time.Duration

	// Concurrency is the maximum number of files ReadFiles parses at once.
	// Default value is runtime.NumCPU().
	Concurrency int

	// Warnf will be called for each warning.
	Warnf func(string, ...any)

	// Debugf will be called with tracing output while walking the tree.
	Debugf func(string, ...any)
}

func (o *Options) init() {
	if o.MaxRetainSize <= 0 {
		o.MaxRetainSize = defaultMaxRetainSize
	}
	if o.Concurrency <= 0 {
		o.Concurrency = runtime.NumCPU()
	}
	if o.Warnf == nil {
		o.Warnf = func(string, ...any) {}
	}
	if o.Debugf == nil {
		o.Debugf = func(string, ...any) {}
	}
}

// ReadFile reads the box tree of the whole stream r.
// The stream length bounds the top-level boxes.
func ReadFile(r io.ReadSeeker, opts Options) (f *File, err error) {
	if r == nil {
		return nil, fmt.Errorf("no reader provided")
	}

	br := NewReader(r, opts)

	read := func() (f *File, err error) {
		defer recoverStop(&err)
		return readFile(br)
	}

	if br.opts.Timeout <= 0 {
		return read()
	}

	type result struct {
		f   *File
		err error
	}
	resc := make(chan result, 1)
	go func() {
		f, err := read()
		resc <- result{f, err}
	}()

	select {
	case <-time.After(br.opts.Timeout):
		return nil, fmt.Errorf("timed out after %s", br.opts.Timeout)
	case res := <-resc:
		return res.f, res.err
	}
}
