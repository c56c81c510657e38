// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package rawmeta

import (
	"bytes"
	"strings"
	"unicode"

	"golang.org/x/text/encoding/charmap"
)

func printableString(s string) string {
	ss := strings.Map(func(r rune) rune {
		if unicode.IsGraphic(r) {
			return r
		}
		return -1
	}, s)

	return strings.TrimSpace(ss)
}

func trimBytesNulls(b []byte) []byte {
	var lo, hi int
	for lo = 0; lo < len(b) && b[lo] == 0; lo++ {
	}
	for hi = len(b) - 1; hi >= 0 && b[hi] == 0; hi-- {
	}
	if lo > hi {
		return nil
	}
	return b[lo : hi+1]
}

// decodeHandlerName decodes the name field of a hdlr box.
// ISO files store a null terminated UTF-8 string; QuickTime files store
// a length prefixed Mac Roman string.
func decodeHandlerName(b []byte) string {
	if len(b) > 0 && int(b[0]) == len(b)-1 {
		s, err := charmap.Macintosh.NewDecoder().Bytes(b[1:])
		if err == nil {
			return printableString(string(s))
		}
	}
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return printableString(string(b))
}
