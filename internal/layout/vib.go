// Copyright (c) Elliot Nunn
// Licensed under the MIT license

// Package layout implements the two pieces of an HFS image that sit
// outside the catalog: the allocation-block packer (spec.md §4.3) and the
// Volume Information Block (spec.md §4.6), classic HFS's MDB.
package layout

import (
	"encoding/binary"
	"fmt"

	"github.com/elliotnunn/machfs/internal/catalog"
	"github.com/elliotnunn/machfs/internal/mac"
)

const VIBSize = 162

// VIB is the Volume Information Block. Field names follow the real MDB
// layout (drSigWord, drAlBlkSiz, ...) so the byte offsets below can be
// cross-checked directly against Inside Macintosh: Files, per spec.md §9's
// note to trust literal byte positions over the source's truncated write
// struct.
type VIB struct {
	CreateDate     uint32
	ModifyDate     uint32
	Attributes     uint16
	RootFileCount  uint16
	BitmapStart    uint16 // drVBMSt, always 3
	AllocPtr       uint16 // drAllocPtr, search hint, always 0
	TotalAllocBlks uint16 // drNmAlBlks, N
	AllocBlockSize uint32 // drAlBlkSiz, B
	ClumpSize      uint32 // drClpSiz, = B
	AllocBlockZero uint16 // drAlBlSt, first allocation block
	NextCNID       uint32
	FreeBlocks     uint16
	VolumeName     []byte // MacRoman, unpadded, <=27 bytes
	LastBackup     uint32
	BackupSeqNum   uint16
	WriteCount     uint32
	XTClumpSize    uint32 // = B
	CTClumpSize    uint32 // = B
	RootDirCount   uint16
	TotalFileCount uint32
	TotalDirCount  uint32
	FinderInfo     [8]uint32 // 32 bytes, see spec.md §4.7
	XTFileSize     uint32
	XTExtents      catalog.ExtentRecord
	CTFileSize     uint32
	CTExtents      catalog.ExtentRecord
}

func (v VIB) Marshal() []byte {
	b := make([]byte, VIBSize)
	copy(b[0:2], "BD")
	binary.BigEndian.PutUint32(b[2:], v.CreateDate)
	binary.BigEndian.PutUint32(b[6:], v.ModifyDate)
	binary.BigEndian.PutUint16(b[10:], v.Attributes)
	binary.BigEndian.PutUint16(b[12:], v.RootFileCount)
	binary.BigEndian.PutUint16(b[14:], v.BitmapStart)
	binary.BigEndian.PutUint16(b[16:], v.AllocPtr)
	binary.BigEndian.PutUint16(b[18:], v.TotalAllocBlks)
	binary.BigEndian.PutUint32(b[20:], v.AllocBlockSize)
	binary.BigEndian.PutUint32(b[24:], v.ClumpSize)
	binary.BigEndian.PutUint16(b[28:], v.AllocBlockZero)
	binary.BigEndian.PutUint32(b[30:], v.NextCNID)
	binary.BigEndian.PutUint16(b[34:], v.FreeBlocks)
	copy(b[36:64], mac.PString(v.VolumeName)) // 28 bytes: 1 length + up to 27, zero-padded
	binary.BigEndian.PutUint32(b[64:], v.LastBackup)
	binary.BigEndian.PutUint16(b[68:], v.BackupSeqNum)
	binary.BigEndian.PutUint32(b[70:], v.WriteCount)
	binary.BigEndian.PutUint32(b[74:], v.XTClumpSize)
	binary.BigEndian.PutUint32(b[78:], v.CTClumpSize)
	binary.BigEndian.PutUint16(b[82:], v.RootDirCount)
	binary.BigEndian.PutUint32(b[84:], v.TotalFileCount)
	binary.BigEndian.PutUint32(b[88:], v.TotalDirCount)
	for i, w := range v.FinderInfo {
		binary.BigEndian.PutUint32(b[92+i*4:], w)
	}
	// b[124:130]: drVCSize/drVBMCSize/drCtlCSize, always zero (in-memory cache sizes)
	binary.BigEndian.PutUint32(b[130:], v.XTFileSize)
	copy(b[134:146], v.XTExtents.Marshal())
	binary.BigEndian.PutUint32(b[146:], v.CTFileSize)
	copy(b[150:162], v.CTExtents.Marshal())
	return b
}

func UnmarshalVIB(b []byte) (VIB, error) {
	if len(b) < VIBSize {
		return VIB{}, fmt.Errorf("layout: VIB buffer too short (%d bytes)", len(b))
	}
	if string(b[0:2]) != "BD" {
		return VIB{}, fmt.Errorf("layout: bad VIB signature %q, want \"BD\"", b[0:2])
	}
	var v VIB
	v.CreateDate = binary.BigEndian.Uint32(b[2:])
	v.ModifyDate = binary.BigEndian.Uint32(b[6:])
	v.Attributes = binary.BigEndian.Uint16(b[10:])
	v.RootFileCount = binary.BigEndian.Uint16(b[12:])
	v.BitmapStart = binary.BigEndian.Uint16(b[14:])
	v.AllocPtr = binary.BigEndian.Uint16(b[16:])
	v.TotalAllocBlks = binary.BigEndian.Uint16(b[18:])
	v.AllocBlockSize = binary.BigEndian.Uint32(b[20:])
	v.ClumpSize = binary.BigEndian.Uint32(b[24:])
	v.AllocBlockZero = binary.BigEndian.Uint16(b[28:])
	v.NextCNID = binary.BigEndian.Uint32(b[30:])
	v.FreeBlocks = binary.BigEndian.Uint16(b[34:])
	nlen := int(b[36])
	if nlen > 27 {
		return VIB{}, fmt.Errorf("layout: volume name length %d exceeds 27", nlen)
	}
	v.VolumeName = append([]byte(nil), b[37:37+nlen]...)
	v.LastBackup = binary.BigEndian.Uint32(b[64:])
	v.BackupSeqNum = binary.BigEndian.Uint16(b[68:])
	v.WriteCount = binary.BigEndian.Uint32(b[70:])
	v.XTClumpSize = binary.BigEndian.Uint32(b[74:])
	v.CTClumpSize = binary.BigEndian.Uint32(b[78:])
	v.RootDirCount = binary.BigEndian.Uint16(b[82:])
	v.TotalFileCount = binary.BigEndian.Uint32(b[84:])
	v.TotalDirCount = binary.BigEndian.Uint32(b[88:])
	for i := range v.FinderInfo {
		v.FinderInfo[i] = binary.BigEndian.Uint32(b[92+i*4:])
	}
	v.XTFileSize = binary.BigEndian.Uint32(b[130:])
	v.XTExtents = catalog.UnmarshalExtentRecord(b[134:146])
	v.CTFileSize = binary.BigEndian.Uint32(b[146:])
	v.CTExtents = catalog.UnmarshalExtentRecord(b[150:162])
	return v, nil
}
