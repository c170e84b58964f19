// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package resourcefork

import (
	"encoding/binary"
	"testing"
)

// buildFork assembles a minimal, hand-rolled resource fork containing a
// single resource, typ/id, holding content.
func buildFork(typ [4]byte, id int16, content []byte) []byte {
	const (
		headerLen = 16
		mapHdrLen = 28
	)
	dataOffset := uint32(headerLen)
	dataLen := uint32(4 + len(content))
	mapOffset := dataOffset + dataLen
	typeListOffset := uint32(mapHdrLen)
	refListOffset := typeListOffset + 2 + 8
	mapLen := refListOffset + 12

	buf := make([]byte, mapOffset+mapLen)
	binary.BigEndian.PutUint32(buf[0:], dataOffset)
	binary.BigEndian.PutUint32(buf[4:], mapOffset)
	binary.BigEndian.PutUint32(buf[8:], dataLen)
	binary.BigEndian.PutUint32(buf[12:], mapLen)

	binary.BigEndian.PutUint32(buf[dataOffset:], uint32(len(content)))
	copy(buf[dataOffset+4:], content)

	binary.BigEndian.PutUint16(buf[mapOffset+24:], uint16(typeListOffset))
	binary.BigEndian.PutUint16(buf[mapOffset+26:], 0xFFFF)

	tl := mapOffset + typeListOffset
	binary.BigEndian.PutUint16(buf[tl:], 0) // 1 type
	copy(buf[tl+2:], typ[:])
	binary.BigEndian.PutUint16(buf[tl+6:], 0) // 1 resource of this type
	binary.BigEndian.PutUint16(buf[tl+8:], uint16(refListOffset-typeListOffset))

	rl := mapOffset + refListOffset
	binary.BigEndian.PutUint16(buf[rl:], uint16(id))
	binary.BigEndian.PutUint16(buf[rl+2:], 0xFFFF)
	binary.BigEndian.PutUint32(buf[rl+4:], 0) // attr 0, data offset 0 within data section

	return buf
}

func TestLookupFound(t *testing.T) {
	want := []byte("boot block content, 1024 bytes worth in the real format")
	fork := buildFork([4]byte{'b', 'o', 'o', 't'}, 1, want)

	got, ok := Lookup(fork, [4]byte{'b', 'o', 'o', 't'}, 1)
	if !ok {
		t.Fatal("Lookup reported not found")
	}
	if string(got) != string(want) {
		t.Fatalf("Lookup = %q, want %q", got, want)
	}
}

func TestLookupMissingType(t *testing.T) {
	fork := buildFork([4]byte{'b', 'o', 'o', 't'}, 1, []byte("x"))
	if _, ok := Lookup(fork, [4]byte{'F', 'N', 'D', 'R'}, 1); ok {
		t.Fatal("Lookup found a type that was never written")
	}
}

func TestLookupMissingID(t *testing.T) {
	fork := buildFork([4]byte{'b', 'o', 'o', 't'}, 1, []byte("x"))
	if _, ok := Lookup(fork, [4]byte{'b', 'o', 'o', 't'}, 2); ok {
		t.Fatal("Lookup found an ID that was never written")
	}
}

func TestLookupTruncated(t *testing.T) {
	fork := buildFork([4]byte{'b', 'o', 'o', 't'}, 1, []byte("x"))
	if _, ok := Lookup(fork[:10], [4]byte{'b', 'o', 'o', 't'}, 1); ok {
		t.Fatal("Lookup should fail on truncated data, not panic or succeed")
	}
}
