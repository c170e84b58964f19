// Copyright (c) Elliot Nunn
// Licensed under the MIT license

// Package mac provides the wire-format primitives shared by the HFS codec:
// MacRoman text transcoding, the classic case-fold table, the catalog
// collation permutation, and Pascal-string packing.
package mac

import (
	"golang.org/x/text/encoding/charmap"
)

// Encode converts a host string to MacRoman bytes.
// Returns ok=false if the string contains a character MacRoman cannot represent.
func Encode(s string) (b []byte, ok bool) {
	b, err := charmap.Macintosh.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, false
	}
	return b, true
}

// Decode converts MacRoman bytes to a host string. Every byte value 0x00-0xff
// has a defined MacRoman mapping, so this never fails.
func Decode(b []byte) string {
	s, err := charmap.Macintosh.NewDecoder().Bytes(b)
	if err != nil {
		// charmap.Macintosh assigns every byte a rune, so this is unreachable
		// in practice; fall back to the raw bytes rather than panic.
		return string(b)
	}
	return string(s)
}
