// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package rawmeta

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidFormat matches, via errors.Is, every error that signals a corrupt
// or truncated container.
var ErrInvalidFormat = errors.New("rawmeta: invalid format")

// IsInvalidFormat reports whether err signals a corrupt or truncated container.
func IsInvalidFormat(err error) bool {
	return errors.Is(err, ErrInvalidFormat)
}

// IsTruncated reports whether err is, or wraps, a TruncatedError.
func IsTruncated(err error) bool {
	var terr *TruncatedError
	return errors.As(err, &terr)
}

// TruncatedError is returned when fewer bytes are available than a header
// or a declared span requires.
type TruncatedError struct {
	Offset uint64
	Need   uint64
	What   string
	Err    error
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("rawmeta: truncated %s at offset %d: need %d bytes", e.What, e.Offset, e.Need)
}

func (e *TruncatedError) Unwrap() error { return e.Err }

func (e *TruncatedError) Is(target error) bool { return target == ErrInvalidFormat }

// StructureError is returned when a box violates the nesting rules of its
// container: it extends past its parent, is smaller than its own header,
// or a reader consumed more than the box declared.
type StructureError struct {
	Path   string
	Type   FourCC
	Offset uint64
	Reason string
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("rawmeta: %s: box %s at offset %d: %s", pathOrRoot(e.Path), e.Type, e.Offset, e.Reason)
}

func (e *StructureError) Is(target error) bool { return target == ErrInvalidFormat }

// MissingChildError is returned when a container lacks a required child.
type MissingChildError struct {
	Path   string
	Parent FourCC
	Child  FourCC
}

func (e *MissingChildError) Error() string {
	return fmt.Sprintf("rawmeta: %s: %s box not found, corrupt file?", pathOrRoot(e.Path), e.Child)
}

func (e *MissingChildError) Is(target error) bool { return target == ErrInvalidFormat }

// DuplicateChildError is returned when a container holds a second child for
// a slot that allows only one.
type DuplicateChildError struct {
	Path   string
	Parent FourCC
	Child  FourCC
	Offset uint64
}

func (e *DuplicateChildError) Error() string {
	return fmt.Sprintf("rawmeta: %s: duplicate %s box at offset %d", pathOrRoot(e.Path), e.Child, e.Offset)
}

func (e *DuplicateChildError) Is(target error) bool { return target == ErrInvalidFormat }

// SeekError is returned when the underlying stream fails to report or change
// its position. It is an I/O failure, not a format error.
type SeekError struct {
	Offset uint64
	Err    error
}

func (e *SeekError) Error() string {
	return fmt.Sprintf("rawmeta: seek to %d: %v", e.Offset, e.Err)
}

func (e *SeekError) Unwrap() error { return e.Err }

// FileError records the file a ReadFiles failure belongs to.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

func pathOrRoot(p string) string {
	if p == "" {
		return "<root>"
	}
	return p
}

func formatPath(path []FourCC) string {
	var sb strings.Builder
	for i, t := range path {
		if i > 0 {
			sb.WriteByte('/')
		}
		sb.WriteString(t.String())
	}
	return sb.String()
}
