// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package machfs

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/elliotnunn/machfs/internal/bootblock"
	"github.com/elliotnunn/machfs/internal/btree"
	"github.com/elliotnunn/machfs/internal/catalog"
	"github.com/elliotnunn/machfs/internal/layout"
	"github.com/elliotnunn/machfs/internal/mac"
	"github.com/elliotnunn/machfs/internal/resourcefork"
)

// WriteOptions configures Volume.Write, mirroring the source's
// write(size=..., align=..., desktopdb=..., bootable=..., startapp=...)
// keyword defaults (spec.md §10.3).
type WriteOptions struct {
	Size  int // image size in bytes; 0 means 800KiB
	Align int // allocation-block alignment; 0 means 512

	Desktopdb bool // splice in transient Desktop/Desktop DB/Desktop DF placeholders
	Bootable  bool // patch boot blocks from an embedded System file

	// StartApp names the startup application as path components under the
	// volume root (not including the volume name). Nil disables it.
	StartApp []string
}

// Write serialises v as a self-contained HFS image of exactly opts.Size
// bytes. The volume tree is not modified, except transiently during the
// call if opts.Desktopdb is set.
func (v *Volume) Write(opts WriteOptions) (img []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			img = nil
			if e, ok := r.(error); ok {
				err = e
			} else {
				err = fmt.Errorf("machfs: %v", r)
			}
		}
	}()

	size := opts.Size
	if size == 0 {
		size = 800 * 1024
	}
	align := opts.Align
	if align == 0 {
		align = 512
	}

	geo, gerr := layout.PlanGeometry(size, align)
	if gerr != nil {
		return nil, &BadSizeError{Requested: size, Reason: gerr.Error()}
	}

	volName, ok := mac.Encode(v.Name)
	if !ok {
		return nil, &BadNameError{Name: v.Name, Reason: "not representable in MacRoman"}
	}
	if len(volName) == 0 || len(volName) > 27 {
		return nil, &BadNameError{Name: v.Name, Reason: "volume name must encode to 1-27 bytes"}
	}
	if bytes.IndexByte(volName, ':') >= 0 {
		return nil, &BadNameError{Name: v.Name, Reason: "volume name must not contain ':'"}
	}

	acc := layout.NewAccumulator(geo)

	// The extents-overflow file is always empty, per spec.md §4.5.
	xtBytes := btree.Build(nil, catalog.ExtentsKeyLen, geo.AllocBlockSize)
	xtStart, xtCount := mustAppend(acc, geo, xtBytes)

	if opts.Desktopdb {
		cleanup := addDesktopPlaceholders(&v.Folder, size, geo.AllocBlockSize)
		defer cleanup()
	}

	w := &writeWalk{
		geo:      geo,
		acc:      acc,
		nextCNID: catalog.CNIDFirstUser,
		startApp: opts.StartApp,
	}

	// The root folder gets its own catalog main+thread record, parented
	// under the synthetic CNID 1, exactly like every other folder -- it is
	// not special-cased away during the walk below.
	rootFr := catalog.FolderRecord{
		FinderFlags: v.Folder.Flags,
		X:           v.Folder.X,
		Y:           v.Folder.Y,
		Valence:     uint16(v.Folder.Len()),
		CNID:        catalog.CNIDRootFolder,
		CrDate:      goToMacTime(v.Folder.CrDate),
		MdDate:      goToMacTime(v.Folder.MdDate),
		BkDate:      goToMacTime(v.Folder.BkDate),
	}
	w.records = append(w.records, btree.Record{Key: catalog.Key(catalog.CNIDRootParent, volName), Value: rootFr.Marshal()})
	rootThr := catalog.ThreadRecord{IsFolder: true, ParentCNID: catalog.CNIDRootParent, Name: volName}
	w.records = append(w.records, btree.Record{Key: catalog.ThreadKey(catalog.CNIDRootFolder), Value: rootThr.Marshal()})

	w.walk(&v.Folder, catalog.CNIDRootFolder, nil, true)

	sort.Slice(w.records, func(i, j int) bool {
		return bytes.Compare(mac.CatalogSortKey(w.records[i].Key), mac.CatalogSortKey(w.records[j].Key)) < 0
	})
	catBytes := btree.Build(w.records, catalog.MaxKeyLen, geo.AllocBlockSize)
	ctStart, ctCount := mustAppend(acc, geo, catBytes)

	var bootBlocks [1024]byte
	var finderInfo [8]uint32
	if opts.Bootable && w.sysFound {
		patched := bootblock.Patch(w.sysBootBytes, w.sysName, w.finderName, w.startAppFolderCNID, w.startAppName)
		bootBlocks = patched
		finderInfo = bootblock.FinderInfoSlots(w.sysFolderCNID, w.startAppFolderCNID, w.startAppName)
	}

	vib := layout.VIB{
		CreateDate:     goToMacTime(v.CrDate),
		ModifyDate:     goToMacTime(v.MdDate),
		Attributes:     1 << 8, // cleanly unmounted
		RootFileCount:  uint16(w.rootFileCount),
		BitmapStart:    3,
		AllocPtr:       0,
		TotalAllocBlks: uint16(geo.TotalBlocks),
		AllocBlockSize: uint32(geo.AllocBlockSize),
		ClumpSize:      uint32(geo.AllocBlockSize),
		AllocBlockZero: uint16(geo.FirstBlockByte / 512),
		NextCNID:       w.nextCNID,
		FreeBlocks:     uint16(geo.TotalBlocks - acc.UsedBlocks()),
		VolumeName:     volName,
		LastBackup:     goToMacTime(v.BkDate),
		BackupSeqNum:   0,
		WriteCount:     0,
		XTClumpSize:    uint32(geo.AllocBlockSize),
		CTClumpSize:    uint32(geo.AllocBlockSize),
		RootDirCount:   uint16(w.rootDirCount),
		TotalFileCount: uint32(w.totalFiles),
		TotalDirCount:  uint32(w.totalDirs),
		FinderInfo:     finderInfo,
		XTFileSize:     uint32(len(xtBytes)),
		XTExtents:      catalog.ExtentRecord{{StartBlock: uint16(xtStart), BlockCount: uint16(xtCount)}},
		CTFileSize:     uint32(len(catBytes)),
		CTExtents:      catalog.ExtentRecord{{StartBlock: uint16(ctStart), BlockCount: uint16(ctCount)}},
	}
	vibBlock := make([]byte, 512)
	copy(vibBlock, vib.Marshal())

	bitmap := mac.Bitmap(geo.TotalBlocks, acc.UsedBlocks())
	bitmapBlock := make([]byte, geo.BitmapBlocks*512)
	copy(bitmapBlock, bitmap)

	out := make([]byte, 0, size)
	out = append(out, bootBlocks[:]...)
	out = append(out, vibBlock...)
	out = append(out, bitmapBlock...)
	out = append(out, acc.Bytes()...)

	pad := size - len(out) - 2*512
	if pad < 0 {
		return nil, &OutOfSpaceError{Needed: len(out) + 2*512, Available: size}
	}
	out = append(out, make([]byte, pad)...)
	out = append(out, vibBlock...)
	out = append(out, make([]byte, 512)...)
	return out, nil
}

func mustAppend(acc *layout.Accumulator, geo layout.Geometry, data []byte) (start, count int) {
	start, count, err := acc.Append(data)
	if err != nil {
		panic(&OutOfSpaceError{Needed: mac.PadUp(len(data), geo.AllocBlockSize) / geo.AllocBlockSize, Available: geo.TotalBlocks - acc.UsedBlocks()})
	}
	return start, count
}

// writeWalk carries the mutable state threaded through the depth-first
// catalog walk: CNID assignment, fork placement, and boot-block discovery.
type writeWalk struct {
	geo layout.Geometry
	acc *layout.Accumulator

	nextCNID uint32
	records  []btree.Record

	totalFiles, totalDirs        int
	rootFileCount, rootDirCount int

	sysFound      bool
	sysFolderCNID uint32
	sysName       []byte
	finderName    []byte
	sysBootBytes  []byte

	startApp           []string
	startAppFolderCNID uint32
	startAppName       []byte
}

// walk visits every child of f (whose own CNID is cnid), in insertion
// order, recursing fully into each subfolder before moving to the next
// sibling -- the same pre-order the source's iter_paths produces.
func (w *writeWalk) walk(f *Folder, cnid uint32, pathSoFar []string, isRoot bool) {
	for _, name := range f.Names() {
		child, _ := f.Get(name)

		encName, ok := mac.Encode(name)
		if !ok {
			panic(&BadNameError{Name: name, Reason: "not representable in MacRoman"})
		}
		if len(encName) == 0 || len(encName) > 31 {
			panic(&BadNameError{Name: name, Reason: "name must encode to 1-31 bytes"})
		}
		if bytes.IndexByte(encName, ':') >= 0 {
			panic(&BadNameError{Name: name, Reason: "name must not contain ':'"})
		}

		childCNID := w.nextCNID
		w.nextCNID++

		childPath := make([]string, len(pathSoFar)+1)
		copy(childPath, pathSoFar)
		childPath[len(pathSoFar)] = name

		switch c := child.(type) {
		case *File:
			w.totalFiles++
			if isRoot {
				w.rootFileCount++
			}
			w.addFile(f, c, cnid, childCNID, encName, childPath)

		case *Folder:
			w.totalDirs++
			if isRoot {
				w.rootDirCount++
			}

			fr := catalog.FolderRecord{
				FinderFlags: c.Flags,
				X:           c.X,
				Y:           c.Y,
				Valence:     uint16(c.Len()),
				CNID:        childCNID,
				CrDate:      goToMacTime(c.CrDate),
				MdDate:      goToMacTime(c.MdDate),
				BkDate:      goToMacTime(c.BkDate),
			}
			w.records = append(w.records, btree.Record{Key: catalog.Key(cnid, encName), Value: fr.Marshal()})
			thr := catalog.ThreadRecord{IsFolder: true, ParentCNID: cnid, Name: encName}
			w.records = append(w.records, btree.Record{Key: catalog.ThreadKey(childCNID), Value: thr.Marshal()})

			w.walk(c, childCNID, childPath, false)

		default:
			panic(fmt.Sprintf("machfs: folder child %q is neither *File nor *Folder", name))
		}
	}
}

func (w *writeWalk) addFile(parent *Folder, c *File, parentCNID, childCNID uint32, encName []byte, childPath []string) {
	var dataStart, dataCount, rsrcStart, rsrcCount int
	if len(c.Data) > 0 {
		dataStart, dataCount = mustAppend(w.acc, w.geo, c.Data)
	}
	if len(c.Rsrc) > 0 {
		rsrcStart, rsrcCount = mustAppend(w.acc, w.geo, c.Rsrc)
	}
	if dataCount > 0xffff || rsrcCount > 0xffff {
		panic(&OverflowUnsupportedError{Path: string(encName)})
	}

	fr := catalog.FileRecord{
		Locked:          c.Locked,
		Type:            c.Type,
		Creator:         c.Creator,
		FinderFlags:     c.Flags,
		X:               c.X,
		Y:               c.Y,
		CNID:            childCNID,
		DataStartBlock:  uint16(dataStart),
		DataLogicalLen:  uint32(len(c.Data)),
		DataPhysicalLen: uint32(dataCount * w.geo.AllocBlockSize),
		RsrcStartBlock:  uint16(rsrcStart),
		RsrcLogicalLen:  uint32(len(c.Rsrc)),
		RsrcPhysicalLen: uint32(rsrcCount * w.geo.AllocBlockSize),
		CrDate:          goToMacTime(c.CrDate),
		MdDate:          goToMacTime(c.MdDate),
		BkDate:          goToMacTime(c.BkDate),
		DataExtents:     catalog.ExtentRecord{{StartBlock: uint16(dataStart), BlockCount: uint16(dataCount)}},
		RsrcExtents:     catalog.ExtentRecord{{StartBlock: uint16(rsrcStart), BlockCount: uint16(rsrcCount)}},
	}
	w.records = append(w.records, btree.Record{Key: catalog.Key(parentCNID, encName), Value: fr.Marshal()})
	thr := catalog.ThreadRecord{IsFolder: false, ParentCNID: parentCNID, Name: encName}
	w.records = append(w.records, btree.Record{Key: catalog.ThreadKey(childCNID), Value: thr.Marshal()})

	if !w.sysFound && bootblock.IsSystemFileType(c.Type) && len(c.Rsrc) > 0 {
		if res, ok := resourcefork.Lookup(c.Rsrc, bootblock.BootResourceType, bootblock.BootResourceID); ok && len(res) == 1024 {
			if fndrName, fok := siblingFinderName(parent); fok {
				w.sysFound = true
				w.sysFolderCNID = parentCNID
				w.sysName = encName
				w.finderName = fndrName
				w.sysBootBytes = append([]byte(nil), res...)
			}
		}
	}

	if w.startApp != nil && pathEqual(childPath, w.startApp) {
		w.startAppFolderCNID = parentCNID
		w.startAppName = encName
	}
}

// siblingFinderName looks within f for a File of type "FNDR", returning its
// MacRoman-encoded name.
func siblingFinderName(f *Folder) ([]byte, bool) {
	for _, name := range f.Names() {
		child, _ := f.Get(name)
		file, ok := child.(*File)
		if !ok || !bootblock.IsFinderType(file.Type) {
			continue
		}
		enc, ok := mac.Encode(name)
		if !ok {
			continue
		}
		return enc, true
	}
	return nil, false
}

func pathEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// addDesktopPlaceholders splices the transient Desktop-database files into
// root before a write and returns a function that removes exactly what it
// added, per spec.md §4.7's "present only during serialisation" note.
func addDesktopPlaceholders(root *Folder, size, allocBlockSize int) (cleanup func()) {
	added := []string{"Desktop"}

	desktop := &File{Type: [4]byte{'F', 'N', 'D', 'R'}, Creator: [4]byte{'E', 'R', 'I', 'K'}, Flags: 0x4000}
	desktop.Rsrc = resourcefork.Build([4]byte{'S', 'T', 'R', ' '}, 0, append([]byte{10}, []byte("Finder 1.0")...))
	root.Place("Desktop", desktop)

	if size >= 2*1024*1024 {
		db := &File{Type: [4]byte{'B', 'T', 'F', 'L'}, Creator: [4]byte{'D', 'M', 'G', 'R'}, Flags: 0x4000}
		db.Data = btree.Build(nil, catalog.MaxKeyLen, allocBlockSize)
		root.Place("Desktop DB", db)

		df := &File{Type: [4]byte{'D', 'T', 'F', 'L'}, Creator: [4]byte{'D', 'M', 'G', 'R'}, Flags: 0x4000}
		root.Place("Desktop DF", df)

		added = append(added, "Desktop DB", "Desktop DF")
	}

	return func() {
		for _, name := range added {
			root.Delete(name)
		}
	}
}
