// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package resourcefork

import "encoding/binary"

// Build assembles a minimal resource fork holding exactly one resource,
// typ/id, with the given content. Used by the writer to synthesize the
// Desktop file's STR  resource (spec.md §4.7's Desktop-database
// placeholder); the reader side is Lookup, for boot-block patching.
func Build(typ [4]byte, id int16, content []byte) []byte {
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
