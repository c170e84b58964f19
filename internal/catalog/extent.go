// Copyright (c) Elliot Nunn
// Licensed under the MIT license

// Package catalog implements the catalog- and extents-file record formats:
// marshalling File/Folder/Thread records to and from B*-tree leaf values,
// catalog/thread key construction, and the three-extent descriptor used by
// both the catalog and the extents-overflow file.
package catalog

import "encoding/binary"

// Extent is one (first allocation block, block count) pair.
type Extent struct {
	StartBlock uint16
	BlockCount uint16
}

// ExtentRecord is the fixed three-extent descriptor HFS embeds in catalog
// file records and extents-overflow leaf values: 12 bytes, six u16s.
type ExtentRecord [3]Extent

func (r ExtentRecord) Marshal() []byte {
	b := make([]byte, 12)
	for i, e := range r {
		binary.BigEndian.PutUint16(b[i*4:], e.StartBlock)
		binary.BigEndian.PutUint16(b[i*4+2:], e.BlockCount)
	}
	return b
}

func UnmarshalExtentRecord(b []byte) ExtentRecord {
	var r ExtentRecord
	for i := range r {
		r[i].StartBlock = binary.BigEndian.Uint16(b[i*4:])
		r[i].BlockCount = binary.BigEndian.Uint16(b[i*4+2:])
	}
	return r
}

// TotalBlocks sums the block counts of every populated extent.
func (r ExtentRecord) TotalBlocks() int {
	n := 0
	for _, e := range r {
		n += int(e.BlockCount)
	}
	return n
}
