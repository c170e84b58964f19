// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package btree

import "encoding/binary"

// pendingLeaf and pendingIndex are the two node-payload shapes used while
// assembling a tree, before final on-disk node numbers are known.
type pendingLeaf struct {
	key, value []byte
}

type pendingIndex struct {
	key   []byte
	child *node // resolved to a node index once numbering is final
}

// Build assembles a complete B*-tree file from pre-sorted (key, value)
// pairs: a header node, synthesised index levels, the leaf level, enough
// map nodes to extend the used-node bitmap past 2048 nodes, and a tail of
// free nodes padding the file to a whole number of clumpSize-sized chunks.
//
// keyLen is the fixed, padded key length index records use (37 for the
// catalog file, 7 for extents-overflow, per spec.md §4.2).
func Build(records []Record, keyLen, clumpSize int) []byte {
	leafLevel := buildLeafLevel(records)

	levels := [][]*node{leafLevel} // levels[0] = leaf, increasing toward root
	for len(levels[len(levels)-1]) > 1 {
		levels = append(levels, buildIndexLevel(levels[len(levels)-1]))
	}
	for i, lvl := range levels {
		for _, n := range lvl {
			n.height = byte(i + 1)
		}
	}

	coreCount := 1 // header
	for _, lvl := range levels {
		coreCount += len(lvl)
	}

	mapNodes := 0
	for 2048+mapNodes*mapBitsPerNode < coreCount+mapNodes {
		mapNodes++
	}

	nodesPerClump := clumpSize / nodeSize
	if nodesPerClump < 1 {
		nodesPerClump = 1
	}
	usedTotal := coreCount + mapNodes
	totalNodes := padNodeCount(usedTotal, nodesPerClump)
	for 2048+mapNodes*mapBitsPerNode < totalNodes {
		mapNodes++
		usedTotal = coreCount + mapNodes
		totalNodes = padNodeCount(usedTotal, nodesPerClump)
	}
	freeNodes := totalNodes - usedTotal

	bitsRemaining := usedTotal - headerBitmapBits
	var mapNodeList []*node
	for i := 0; i < mapNodes; i++ {
		take := bitsRemaining
		if take > mapBitsPerNode {
			take = mapBitsPerNode
		}
		if take < 0 {
			take = 0
		}
		mapNodeList = append(mapNodeList, &node{
			ntype:   typeMap,
			records: []interface{}{mapBitmapBytes(take)},
		})
		bitsRemaining -= take
	}

	var freeNodeList []*node
	for i := 0; i < freeNodes; i++ {
		freeNodeList = append(freeNodeList, &node{ntype: typeIndex})
	}

	// On-disk order: header, root level, ..., first index level, leaf
	// level, map nodes, free nodes.
	ordered := []*node{nil} // header filled in below
	for i := len(levels) - 1; i >= 0; i-- {
		ordered = append(ordered, levels[i]...)
	}
	ordered = append(ordered, mapNodeList...)
	ordered = append(ordered, freeNodeList...)

	index := make(map[*node]uint32, len(ordered))
	for i, n := range ordered {
		if n != nil {
			index[n] = uint32(i)
		}
	}

	linkSameType(levels[0])
	for i := 1; i < len(levels); i++ {
		linkSameType(levels[i])
	}
	linkSameType(mapNodeList)
	applyLinks(index)

	for _, lvl := range levels[1:] {
		for _, n := range lvl {
			packed := make([]interface{}, len(n.records))
			for j, r := range n.records {
				p := r.(pendingIndex)
				packed[j] = packIndexRecord(p.key, keyLen, index[p.child])
			}
			n.records = packed
		}
	}
	for _, n := range leafLevel {
		packed := make([]interface{}, len(n.records))
		for j, r := range n.records {
			p := r.(pendingLeaf)
			packed[j] = packLeafRecord(p.key, p.value)
		}
		n.records = packed
	}

	var firstLeaf, lastLeaf uint32
	if len(leafLevel) > 0 {
		firstLeaf = index[leafLevel[0]]
		lastLeaf = index[leafLevel[len(leafLevel)-1]]
	}

	headerOnes := usedTotal
	if headerOnes > headerBitmapBits {
		headerOnes = headerBitmapBits
	}
	ordered[0] = &node{
		ntype: typeHeader,
		records: []interface{}{
			headerRecord(uint32(len(levels)), firstLeaf, lastLeaf, keyLen, uint32(totalNodes), uint32(freeNodes), uint32(len(records))),
			make([]byte, 128),
			bitmapBytes(headerOnes),
		},
	}

	out := make([]byte, 0, totalNodes*nodeSize)
	for _, n := range ordered {
		out = append(out, n.bytes()...)
	}
	return out
}

func padNodeCount(n, multiple int) int {
	if n%multiple == 0 {
		return n
	}
	return n + multiple - n%multiple
}

func buildLeafLevel(records []Record) []*node {
	var nodes []*node
	for i := 0; i < len(records); i += maxLeafRecords {
		end := i + maxLeafRecords
		if end > len(records) {
			end = len(records)
		}
		n := &node{ntype: typeLeaf}
		for _, r := range records[i:end] {
			n.records = append(n.records, pendingLeaf{key: r.Key, value: r.Value})
		}
		nodes = append(nodes, n)
	}
	if len(nodes) == 0 {
		nodes = append(nodes, &node{ntype: typeLeaf})
	}
	return nodes
}

func buildIndexLevel(children []*node) []*node {
	var nodes []*node
	for i := 0; i < len(children); i += maxIndexRecords {
		end := i + maxIndexRecords
		if end > len(children) {
			end = len(children)
		}
		n := &node{ntype: typeIndex}
		for _, c := range children[i:end] {
			n.records = append(n.records, pendingIndex{key: firstKeyOf(c), child: c})
		}
		nodes = append(nodes, n)
	}
	return nodes
}

func firstKeyOf(n *node) []byte {
	switch r := n.records[0].(type) {
	case pendingLeaf:
		return r.key
	case pendingIndex:
		return r.key
	default:
		panic("btree: unpacked record in non-leaf, non-index node")
	}
}

// linkSameType assigns forward/backward links within one level's worth of
// same-type nodes; applyLinks resolves them to node indices afterward.
func linkSameType(nodes []*node) {
	for i, n := range nodes {
		if i > 0 {
			n.blinkNode = nodes[i-1]
		}
		if i < len(nodes)-1 {
			n.flinkNode = nodes[i+1]
		}
	}
}

func applyLinks(index map[*node]uint32) {
	for n := range index {
		if n.flinkNode != nil {
			n.flink = index[n.flinkNode]
		}
		if n.blinkNode != nil {
			n.blink = index[n.blinkNode]
		}
	}
}

func bitmapBytes(setBits int) []byte {
	out := make([]byte, headerBitmapBytes)
	for i := 0; i < setBits && i < headerBitmapBits; i++ {
		out[i/8] |= 1 << (7 - uint(i%8))
	}
	return out
}

func mapBitmapBytes(setBits int) []byte {
	out := make([]byte, (mapBitsPerNode+7)/8)
	for i := 0; i < setBits && i < mapBitsPerNode; i++ {
		out[i/8] |= 1 << (7 - uint(i%8))
	}
	return out
}

func headerRecord(depth, firstLeaf, lastLeaf uint32, keyLen int, totalNodes, freeNodes, leafRecords uint32) []byte {
	b := make([]byte, 106)
	binary.BigEndian.PutUint16(b[0:], uint16(depth))
	binary.BigEndian.PutUint32(b[2:], 1) // root node index
	binary.BigEndian.PutUint32(b[6:], leafRecords)
	binary.BigEndian.PutUint32(b[10:], firstLeaf)
	binary.BigEndian.PutUint32(b[14:], lastLeaf)
	binary.BigEndian.PutUint16(b[18:], nodeSize)
	binary.BigEndian.PutUint16(b[20:], uint16(keyLen))
	binary.BigEndian.PutUint32(b[22:], totalNodes)
	binary.BigEndian.PutUint32(b[26:], freeNodes)
	return b
}
