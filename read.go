// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package machfs

import (
	"encoding/binary"
	"fmt"

	"github.com/elliotnunn/machfs/internal/btree"
	"github.com/elliotnunn/machfs/internal/catalog"
	"github.com/elliotnunn/machfs/internal/layout"
	"github.com/elliotnunn/machfs/internal/mac"
)

// extKey is the decoded form of an extents-overflow leaf key: which fork,
// which file, and how many allocation blocks of that fork are already
// accounted for by earlier extent records (spec.md §4.5).
type extKey struct {
	fork byte
	cnid uint32
	acc  uint16
}

// Read parses img as a complete HFS volume image, discarding v's current
// contents and replacing them with what the image describes.
func (v *Volume) Read(img []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &MalformedError{Detail: fmt.Sprint(r)}
		}
	}()

	if len(img) < 1024+layout.VIBSize {
		return &MalformedError{Detail: "image too short to hold a VIB"}
	}
	vib, verr := layout.UnmarshalVIB(img[1024 : 1024+layout.VIBSize])
	if verr != nil {
		return &MalformedError{Detail: verr.Error()}
	}

	blockSize := int(vib.AllocBlockSize)
	if blockSize < 512 || blockSize%512 != 0 {
		return &MalformedError{Detail: fmt.Sprintf("allocation block size %d implausible", blockSize)}
	}
	firstByte := int(vib.AllocBlockZero) * 512
	if end := firstByte + int(vib.TotalAllocBlks)*blockSize; end > len(img) {
		return &MalformedError{Detail: fmt.Sprintf("volume claims %d allocation blocks, image only holds enough for less", vib.TotalAllocBlks)}
	}

	xtBytes, xerr := sliceExtents(img, firstByte, blockSize, vib.XTExtents)
	if xerr != nil {
		return &MalformedError{Detail: "extents-overflow file: " + xerr.Error()}
	}
	overflow := make(map[extKey]catalog.ExtentRecord)
	if len(xtBytes) > 0 {
		xtRecords, werr := btree.Walk(xtBytes)
		if werr != nil {
			return &MalformedError{Detail: "extents-overflow tree: " + werr.Error()}
		}
		for _, rec := range xtRecords {
			if len(rec.Key) < catalog.ExtentsKeyLen || len(rec.Value) < 12 {
				return &MalformedError{Detail: "malformed extents-overflow record"}
			}
			k := extKey{
				fork: rec.Key[0],
				cnid: binary.BigEndian.Uint32(rec.Key[1:5]),
				acc:  binary.BigEndian.Uint16(rec.Key[5:7]),
			}
			overflow[k] = catalog.UnmarshalExtentRecord(rec.Value)
		}
	}

	ctBytes, cerr := sliceExtents(img, firstByte, blockSize, vib.CTExtents)
	if cerr != nil {
		return &MalformedError{Detail: "catalog file: " + cerr.Error()}
	}
	catRecords, werr := btree.Walk(ctBytes)
	if werr != nil {
		return &MalformedError{Detail: "catalog tree: " + werr.Error()}
	}

	*v = Volume{}
	v.CrDate = macTimeToGo(vib.CreateDate)
	v.MdDate = macTimeToGo(vib.ModifyDate)
	v.BkDate = macTimeToGo(vib.LastBackup)
	v.Name = mac.Decode(vib.VolumeName)

	folderByCNID := map[uint32]*Folder{catalog.CNIDRootFolder: &v.Folder}
	rootSeen := false

	type pendingChild struct {
		parentCNID uint32
		name       string
		file       *File
		folder     *Folder
	}
	var pending []pendingChild

	for _, rec := range catRecords {
		if len(rec.Key) < 5 {
			return &MalformedError{Detail: "catalog key too short"}
		}
		if len(rec.Value) < 1 {
			return &MalformedError{Detail: "catalog value empty"}
		}

		switch rec.Value[0] {
		case catalog.RecFile:
			fr, ferr := catalog.UnmarshalFileRecord(rec.Value)
			if ferr != nil {
				return &MalformedError{Detail: ferr.Error()}
			}
			parentCNID, name, kerr := splitCatalogKey(rec.Key)
			if kerr != nil {
				return &MalformedError{Detail: kerr.Error()}
			}

			data, derr := readFork(img, firstByte, blockSize, fr.DataExtents, fr.CNID, catalog.ForkData, fr.DataPhysicalLen, fr.DataLogicalLen, overflow)
			if derr != nil {
				return &MalformedError{Detail: fmt.Sprintf("file %q data fork: %s", name, derr)}
			}
			rsrc, rerr := readFork(img, firstByte, blockSize, fr.RsrcExtents, fr.CNID, catalog.ForkRsrc, fr.RsrcPhysicalLen, fr.RsrcLogicalLen, overflow)
			if rerr != nil {
				return &MalformedError{Detail: fmt.Sprintf("file %q resource fork: %s", name, rerr)}
			}

			file := &File{
				Type:    fr.Type,
				Creator: fr.Creator,
				Flags:   fr.FinderFlags,
				X:       fr.X,
				Y:       fr.Y,
				Locked:  fr.Locked,
				CrDate:  macTimeToGo(fr.CrDate),
				MdDate:  macTimeToGo(fr.MdDate),
				BkDate:  macTimeToGo(fr.BkDate),
				Data:    data,
				Rsrc:    rsrc,
			}
			pending = append(pending, pendingChild{parentCNID: parentCNID, name: name, file: file})

		case catalog.RecFolder:
			dr, derr := catalog.UnmarshalFolderRecord(rec.Value)
			if derr != nil {
				return &MalformedError{Detail: derr.Error()}
			}
			parentCNID, name, kerr := splitCatalogKey(rec.Key)
			if kerr != nil {
				return &MalformedError{Detail: kerr.Error()}
			}

			if dr.CNID == catalog.CNIDRootFolder {
				v.Folder.Flags = dr.FinderFlags
				v.Folder.X = dr.X
				v.Folder.Y = dr.Y
				v.Folder.CrDate = macTimeToGo(dr.CrDate)
				v.Folder.MdDate = macTimeToGo(dr.MdDate)
				v.Folder.BkDate = macTimeToGo(dr.BkDate)
				v.Name = name
				rootSeen = true
				continue
			}

			folder := &Folder{
				Flags:  dr.FinderFlags,
				X:      dr.X,
				Y:      dr.Y,
				CrDate: macTimeToGo(dr.CrDate),
				MdDate: macTimeToGo(dr.MdDate),
				BkDate: macTimeToGo(dr.BkDate),
			}
			folderByCNID[dr.CNID] = folder
			pending = append(pending, pendingChild{parentCNID: parentCNID, name: name, folder: folder})

		default:
			// Thread records (types 3/4) carry no information the main
			// records above don't already give us.
		}
	}

	if !rootSeen {
		return &MalformedError{Detail: "catalog has no root-folder record"}
	}

	for _, pc := range pending {
		parent, ok := folderByCNID[pc.parentCNID]
		if !ok {
			return &MalformedError{Detail: fmt.Sprintf("catalog entry %q has no parent folder (CNID %d)", pc.name, pc.parentCNID)}
		}
		if pc.file != nil {
			parent.Place(pc.name, pc.file)
		} else {
			parent.Place(pc.name, pc.folder)
		}
	}

	stripDesktopPlaceholders(&v.Folder)
	return nil
}

// splitCatalogKey recovers the parent CNID and decoded name from a raw
// catalog main-record key (4-byte parent CNID + Pascal name).
func splitCatalogKey(key []byte) (parentCNID uint32, name string, err error) {
	parentCNID = binary.BigEndian.Uint32(key[0:4])
	nlen := int(key[4])
	if 5+nlen > len(key) {
		return 0, "", fmt.Errorf("catalog key name overruns key")
	}
	return parentCNID, mac.Decode(key[5 : 5+nlen]), nil
}

// sliceExtents concatenates the allocation blocks named by rec, without
// consulting the overflow map -- used only for the extents-overflow and
// catalog files themselves, which by construction never need a fourth
// extent to hold their own B*-tree.
func sliceExtents(img []byte, firstByte, blockSize int, rec catalog.ExtentRecord) ([]byte, error) {
	var out []byte
	for _, e := range rec {
		if e.BlockCount == 0 {
			continue
		}
		chunk, err := extentBytes(img, firstByte, blockSize, e)
		if err != nil {
			return nil, err
		}
		out = append(out, chunk...)
	}
	return out, nil
}

func extentBytes(img []byte, firstByte, blockSize int, e catalog.Extent) ([]byte, error) {
	start := firstByte + int(e.StartBlock)*blockSize
	length := int(e.BlockCount) * blockSize
	if start < 0 || length < 0 || start+length > len(img) {
		return nil, fmt.Errorf("extent (start=%d count=%d) runs past end of image", e.StartBlock, e.BlockCount)
	}
	return img[start : start+length], nil
}

// readFork assembles a fork's bytes, chasing the extents-overflow file past
// the catalog record's primary three extents when the fork's physical
// length demands it, per spec.md §4.5, then truncates to the logical
// length.
func readFork(img []byte, firstByte, blockSize int, primary catalog.ExtentRecord, cnid uint32, fork byte, physicalLen, logicalLen uint32, overflow map[extKey]catalog.ExtentRecord) ([]byte, error) {
	if physicalLen == 0 {
		return nil, nil
	}
	physBlocks := int((physicalLen + uint32(blockSize) - 1) / uint32(blockSize))

	var out []byte
	acc := 0
	cur := primary
	for {
		progressed := false
		for _, e := range cur {
			if e.BlockCount == 0 {
				continue
			}
			chunk, err := extentBytes(img, firstByte, blockSize, e)
			if err != nil {
				return nil, err
			}
			out = append(out, chunk...)
			acc += int(e.BlockCount)
			progressed = true
		}
		if acc >= physBlocks {
			break
		}
		if !progressed {
			return nil, fmt.Errorf("extent chase stalled at block %d of %d", acc, physBlocks)
		}
		next, ok := overflow[extKey{fork: fork, cnid: cnid, acc: uint16(acc)}]
		if !ok {
			return nil, fmt.Errorf("fork needs more extents past block %d but extents-overflow has none", acc)
		}
		cur = next
	}

	if uint32(len(out)) < logicalLen {
		return nil, fmt.Errorf("fork has %d bytes on disk, logical length is %d", len(out), logicalLen)
	}
	return out[:logicalLen], nil
}

// stripDesktopPlaceholders removes the transient Desktop-database files a
// write with WriteOptions.Desktopdb may have spliced into root, per
// spec.md §4.7: present only for the duration of serialisation.
func stripDesktopPlaceholders(root *Folder) {
	wanted := map[string]struct{ typ, creator [4]byte }{
		"Desktop":    {[4]byte{'F', 'N', 'D', 'R'}, [4]byte{'E', 'R', 'I', 'K'}},
		"Desktop DB": {[4]byte{'B', 'T', 'F', 'L'}, [4]byte{'D', 'M', 'G', 'R'}},
		"Desktop DF": {[4]byte{'D', 'T', 'F', 'L'}, [4]byte{'D', 'M', 'G', 'R'}},
	}
	for name, sig := range wanted {
		child, ok := root.Get(name)
		if !ok {
			continue
		}
		if f, ok := child.(*File); ok && f.Type == sig.typ && f.Creator == sig.creator {
			root.Delete(name)
		}
	}
}
