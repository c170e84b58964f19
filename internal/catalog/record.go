// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package catalog

import (
	"encoding/binary"
	"fmt"

	"github.com/elliotnunn/machfs/internal/mac"
)

// Catalog record types, the cdrType byte of every leaf value.
const (
	RecFolder       = 1
	RecFile         = 2
	RecFolderThread = 3
	RecFileThread   = 4
)

// Extents-overflow fork selector, per spec.md §4.5.
const (
	ForkData = 0x00
	ForkRsrc = 0xFF
)

// FileRecord is the fixed 102-byte file catalog record (the classic FilRec),
// Finder metadata plus the data/resource fork placement.
type FileRecord struct {
	Locked          bool
	Type, Creator   [4]byte
	FinderFlags     uint16
	X, Y            int16
	CNID            uint32
	DataStartBlock  uint16
	DataLogicalLen  uint32
	DataPhysicalLen uint32
	RsrcStartBlock  uint16
	RsrcLogicalLen  uint32
	RsrcPhysicalLen uint32
	CrDate          uint32
	MdDate          uint32
	BkDate          uint32
	DataExtents     ExtentRecord
	RsrcExtents     ExtentRecord
}

func (r FileRecord) Marshal() []byte {
	b := make([]byte, 102)
	b[0] = RecFile
	// b[1] cdrResrv2 stays 0
	if r.Locked {
		b[2] = 1
	}
	// b[3] filType stays 0
	copy(b[4:8], r.Type[:])
	copy(b[8:12], r.Creator[:])
	binary.BigEndian.PutUint16(b[12:], r.FinderFlags)
	binary.BigEndian.PutUint16(b[14:], uint16(r.Y))
	binary.BigEndian.PutUint16(b[16:], uint16(r.X))
	// b[18:20] fdFldr stays 0
	binary.BigEndian.PutUint32(b[20:], r.CNID)
	binary.BigEndian.PutUint16(b[24:], r.DataStartBlock)
	binary.BigEndian.PutUint32(b[26:], r.DataLogicalLen)
	binary.BigEndian.PutUint32(b[30:], r.DataPhysicalLen)
	binary.BigEndian.PutUint16(b[34:], r.RsrcStartBlock)
	binary.BigEndian.PutUint32(b[36:], r.RsrcLogicalLen)
	binary.BigEndian.PutUint32(b[40:], r.RsrcPhysicalLen)
	binary.BigEndian.PutUint32(b[44:], r.CrDate)
	binary.BigEndian.PutUint32(b[48:], r.MdDate)
	binary.BigEndian.PutUint32(b[52:], r.BkDate)
	// b[56:72] filFndrInfo (extended Finder info) stays reserved/0
	// b[72:74] filClpSize stays 0 (spec.md §4.4: clump size 0)
	copy(b[74:86], r.DataExtents.Marshal())
	copy(b[86:98], r.RsrcExtents.Marshal())
	// b[98:102] filResrv stays 0
	return b
}

func UnmarshalFileRecord(b []byte) (FileRecord, error) {
	if len(b) < 102 {
		return FileRecord{}, fmt.Errorf("catalog: file record too short (%d bytes)", len(b))
	}
	if b[0] != RecFile {
		return FileRecord{}, fmt.Errorf("catalog: cdrType %d, want file (%d)", b[0], RecFile)
	}
	var r FileRecord
	r.Locked = b[2]&1 != 0
	copy(r.Type[:], b[4:8])
	copy(r.Creator[:], b[8:12])
	r.FinderFlags = binary.BigEndian.Uint16(b[12:])
	r.Y = int16(binary.BigEndian.Uint16(b[14:]))
	r.X = int16(binary.BigEndian.Uint16(b[16:]))
	r.CNID = binary.BigEndian.Uint32(b[20:])
	r.DataStartBlock = binary.BigEndian.Uint16(b[24:])
	r.DataLogicalLen = binary.BigEndian.Uint32(b[26:])
	r.DataPhysicalLen = binary.BigEndian.Uint32(b[30:])
	r.RsrcStartBlock = binary.BigEndian.Uint16(b[34:])
	r.RsrcLogicalLen = binary.BigEndian.Uint32(b[36:])
	r.RsrcPhysicalLen = binary.BigEndian.Uint32(b[40:])
	r.CrDate = binary.BigEndian.Uint32(b[44:])
	r.MdDate = binary.BigEndian.Uint32(b[48:])
	r.BkDate = binary.BigEndian.Uint32(b[52:])
	r.DataExtents = UnmarshalExtentRecord(b[74:86])
	r.RsrcExtents = UnmarshalExtentRecord(b[86:98])
	return r, nil
}

// FolderRecord is the fixed 70-byte folder catalog record (the classic
// DirRec). FinderFlags/X/Y are carried inside the DInfo block at the real
// Mac OS offsets (frRect is left zero) so that round-tripping a folder
// preserves its Finder metadata, per spec.md §3/§8.
type FolderRecord struct {
	FinderFlags uint16
	X, Y        int16
	Valence     uint16
	CNID        uint32
	CrDate      uint32
	MdDate      uint32
	BkDate      uint32
}

func (r FolderRecord) Marshal() []byte {
	b := make([]byte, 70)
	b[0] = RecFolder
	// b[1] cdrResrv2, b[2:4] dirFlags stay 0
	binary.BigEndian.PutUint16(b[4:], r.Valence)
	binary.BigEndian.PutUint32(b[6:], r.CNID)
	binary.BigEndian.PutUint32(b[10:], r.CrDate)
	binary.BigEndian.PutUint32(b[14:], r.MdDate)
	binary.BigEndian.PutUint32(b[18:], r.BkDate)
	// dirUsrInfo (DInfo) begins at b[22:38]: frRect(8) frFlags(2) frLocation(4) frView(2)
	binary.BigEndian.PutUint16(b[30:], r.FinderFlags)
	binary.BigEndian.PutUint16(b[32:], uint16(r.Y))
	binary.BigEndian.PutUint16(b[34:], uint16(r.X))
	// b[38:54] dirFndrInfo, b[54:70] dirResrv stay reserved/0
	return b
}

func UnmarshalFolderRecord(b []byte) (FolderRecord, error) {
	if len(b) < 70 {
		return FolderRecord{}, fmt.Errorf("catalog: folder record too short (%d bytes)", len(b))
	}
	if b[0] != RecFolder {
		return FolderRecord{}, fmt.Errorf("catalog: cdrType %d, want folder (%d)", b[0], RecFolder)
	}
	var r FolderRecord
	r.Valence = binary.BigEndian.Uint16(b[4:])
	r.CNID = binary.BigEndian.Uint32(b[6:])
	r.CrDate = binary.BigEndian.Uint32(b[10:])
	r.MdDate = binary.BigEndian.Uint32(b[14:])
	r.BkDate = binary.BigEndian.Uint32(b[18:])
	r.FinderFlags = binary.BigEndian.Uint16(b[30:])
	r.Y = int16(binary.BigEndian.Uint16(b[32:]))
	r.X = int16(binary.BigEndian.Uint16(b[34:]))
	return r, nil
}

// ThreadRecord maps a CNID back to its parent and name, so that a catalog
// walk can assemble paths without tracking them separately.
type ThreadRecord struct {
	IsFolder   bool
	ParentCNID uint32
	Name       []byte // MacRoman bytes, unpadded
}

func (r ThreadRecord) Marshal() []byte {
	b := make([]byte, 14)
	if r.IsFolder {
		b[0] = RecFolderThread
	} else {
		b[0] = RecFileThread
	}
	binary.BigEndian.PutUint32(b[10:], r.ParentCNID)
	return append(b, mac.PString(r.Name)...)
}

func UnmarshalThreadRecord(b []byte) (ThreadRecord, error) {
	if len(b) < 15 {
		return ThreadRecord{}, fmt.Errorf("catalog: thread record too short (%d bytes)", len(b))
	}
	var r ThreadRecord
	switch b[0] {
	case RecFolderThread:
		r.IsFolder = true
	case RecFileThread:
		r.IsFolder = false
	default:
		return ThreadRecord{}, fmt.Errorf("catalog: cdrType %d, want thread (%d or %d)", b[0], RecFolderThread, RecFileThread)
	}
	r.ParentCNID = binary.BigEndian.Uint32(b[10:])
	nlen := int(b[14])
	if 15+nlen > len(b) {
		return ThreadRecord{}, fmt.Errorf("catalog: thread record name overruns record")
	}
	r.Name = append([]byte(nil), b[15:15+nlen]...)
	return r, nil
}
