// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package catalog

import "encoding/binary"

// Well-known CNIDs, per spec.md §3.
const (
	CNIDRootParent = 1
	CNIDRootFolder = 2
	CNIDExtents    = 3
	CNIDCatalog    = 4
	CNIDFirstUser  = 16
)

// MaxKeyLen is the declared key length of the catalog B*-tree, per spec.md
// §4.4. Keys built by Key (4-byte parent CNID + a Pascal name of at most 32
// bytes) are at most 36 bytes; index records pad them to this length.
const MaxKeyLen = 37

// ExtentsKeyLen is the declared key length of the extents-overflow tree.
const ExtentsKeyLen = 7

// Key builds a catalog leaf record's raw key: the 4-byte parent CNID
// followed by the unpadded, MacRoman-encoded Pascal name.
func Key(parentCNID uint32, name []byte) []byte {
	k := make([]byte, 5, 5+len(name))
	binary.BigEndian.PutUint32(k, parentCNID)
	k[4] = byte(len(name))
	return append(k, name...)
}

// ThreadKey builds the key for a CNID's thread record: the CNID followed by
// a zero-length Pascal name.
func ThreadKey(cnid uint32) []byte {
	k := make([]byte, 5)
	binary.BigEndian.PutUint32(k, cnid)
	return k
}

// ExtentsKey builds an extents-overflow leaf record's raw key: fork
// selector, CNID, and the starting allocation-block index within the fork.
func ExtentsKey(cnid uint32, fork byte, startBlock uint16) []byte {
	k := make([]byte, 7)
	k[0] = fork
	binary.BigEndian.PutUint32(k[1:], cnid)
	binary.BigEndian.PutUint16(k[5:], startBlock)
	return k
}
