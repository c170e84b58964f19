// Copyright (c) Elliot Nunn
// Licensed under the MIT license

// Package resourcefork reads a single resource out of a resource fork's raw
// bytes: just enough of the classic resource-fork format (data offset, map
// offset, type list, reference list) to find one type/ID pair. It does not
// interpret resource contents.
package resourcefork

import "encoding/binary"

// Lookup finds the data of resource (typ, id) within a resource fork's raw
// bytes. It returns ok=false on any malformed or absent lookup rather than
// an error: callers (boot-block patching) treat a miss as "leave things
// zeroed", per spec.md §4.7.
func Lookup(data []byte, typ [4]byte, id int16) (res []byte, ok bool) {
	if len(data) < 16 {
		return nil, false
	}
	dataOffset := binary.BigEndian.Uint32(data[0:])
	mapOffset := binary.BigEndian.Uint32(data[4:])
	if int(mapOffset)+30 > len(data) {
		return nil, false
	}

	typeListOffset := mapOffset + uint32(binary.BigEndian.Uint16(data[mapOffset+24:]))
	if int(typeListOffset)+2 > len(data) {
		return nil, false
	}
	typeCount := int(binary.BigEndian.Uint16(data[typeListOffset:])) + 1

	pos := int(typeListOffset) + 2
	for i := 0; i < typeCount; i++ {
		if pos+8 > len(data) {
			return nil, false
		}
		var t [4]byte
		copy(t[:], data[pos:pos+4])
		count := int(binary.BigEndian.Uint16(data[pos+4:])) + 1
		refListOffset := int(typeListOffset) + int(binary.BigEndian.Uint16(data[pos+6:]))

		if t == typ {
			return lookupInRefList(data, refListOffset, count, id, dataOffset)
		}
		pos += 8
	}
	return nil, false
}

func lookupInRefList(data []byte, refListOffset, count int, id int16, dataOffset uint32) ([]byte, bool) {
	for i := 0; i < count; i++ {
		pos := refListOffset + i*12
		if pos+12 > len(data) {
			return nil, false
		}
		thisID := int16(binary.BigEndian.Uint16(data[pos:]))
		if thisID != id {
			continue
		}
		dataRelOffset := binary.BigEndian.Uint32(data[pos+4:]) & 0xffffff
		start := int(dataOffset + dataRelOffset)
		if start+4 > len(data) {
			return nil, false
		}
		length := int(binary.BigEndian.Uint32(data[start:]))
		start += 4
		if start+length > len(data) {
			return nil, false
		}
		return data[start : start+length], true
	}
	return nil, false
}
