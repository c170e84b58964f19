// Copyright (c) Elliot Nunn
// Licensed under the MIT license

// Package machfs reads and writes in-memory images of classic Macintosh
// HFS ("plain" HFS, the MFS successor, not HFS+) volumes.
package machfs

import "time"

// File is a leaf node in the tree: Finder metadata plus a data fork and a
// resource fork. Either fork may be empty.
type File struct {
	Type, Creator [4]byte
	Flags         uint16
	X, Y          int16
	Locked        bool
	CrDate        time.Time
	MdDate        time.Time
	BkDate        time.Time
	Data          []byte
	Rsrc          []byte
}

// Folder is an interior node: Finder metadata plus an ordered, case-
// insensitive collection of named children (Files and Folders).
type Folder struct {
	Flags  uint16
	X, Y   int16
	CrDate time.Time
	MdDate time.Time
	BkDate time.Time

	children *nameMap
}

func (f *Folder) ensure() *nameMap {
	if f.children == nil {
		f.children = newNameMap()
	}
	return f.children
}

// Get returns the child stored under name (case-insensitively), and
// whether one exists.
func (f *Folder) Get(name string) (any, bool) {
	if f.children == nil {
		return nil, false
	}
	return f.children.get(name)
}

// Place inserts or replaces the child named name. It does not validate
// name; Volume.Write rejects names that are empty, longer than 31 MacRoman
// bytes, contain ':', or are not MacRoman-representable. value is *File or
// *Folder.
func (f *Folder) Place(name string, value any) {
	f.ensure().put(name, value)
}

// Delete removes the child named name, if present.
func (f *Folder) Delete(name string) {
	if f.children != nil {
		f.children.delete(name)
	}
}

// Names returns child names in insertion (preferred-case) order.
func (f *Folder) Names() []string {
	if f.children == nil {
		return nil
	}
	return f.children.names()
}

// Len reports the number of direct children.
func (f *Folder) Len() int {
	if f.children == nil {
		return 0
	}
	return len(f.children.order)
}

// Volume is a Folder (the root) plus the volume-level name and timestamps.
// On write it also carries boot blocks derived from an embedded System
// file, if one is present and WriteOptions.Bootable is set.
type Volume struct {
	Folder

	Name string // host-side text; encoded to MacRoman on write

	// Volume-level timestamps, distinct from the root folder's own.
	CrDate time.Time
	MdDate time.Time
	BkDate time.Time
}
