// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package btree

import (
	"encoding/binary"
	"fmt"
)

// Walk parses a complete on-disk B*-tree (starting at its header node) and
// returns every leaf record's raw (key, value) pair in leaf-chain order.
// It is defensive about malformed input: out-of-range node numbers, bad
// record-offset tables, and node-chain loops are all reported as errors
// rather than causing a panic or an infinite loop.
func Walk(tree []byte) ([]Record, error) {
	if len(tree) < nodeSize {
		return nil, fmt.Errorf("btree: tree shorter than one node (%d bytes)", len(tree))
	}
	nodeCount := len(tree) / nodeSize

	header, err := readNode(tree, 0, nodeCount)
	if err != nil {
		return nil, fmt.Errorf("btree: header node: %w", err)
	}
	if header.ntype != typeHeader {
		return nil, fmt.Errorf("btree: node 0 has type %d, want header", header.ntype)
	}
	if len(header.records) < 1 {
		return nil, fmt.Errorf("btree: header node has no header record")
	}
	hrec := header.records[0].([]byte)
	if len(hrec) < 18 {
		return nil, fmt.Errorf("btree: header record too short")
	}
	firstLeaf := binary.BigEndian.Uint32(hrec[10:])

	var out []Record
	seen := make(map[uint32]bool)
	idx := firstLeaf
	for idx != 0 {
		if seen[idx] {
			return nil, fmt.Errorf("btree: leaf chain loops back to node %d", idx)
		}
		seen[idx] = true

		n, err := readNode(tree, idx, nodeCount)
		if err != nil {
			return nil, fmt.Errorf("btree: leaf node %d: %w", idx, err)
		}
		if n.ntype != typeLeaf {
			return nil, fmt.Errorf("btree: node %d has type %d, want leaf", idx, n.ntype)
		}
		for _, rec := range n.records {
			r := rec.([]byte)
			if len(r) < 1 {
				return nil, fmt.Errorf("btree: empty leaf record in node %d", idx)
			}
			klen := int(r[0])
			start := 1 + klen
			if start%2 != 0 {
				start++
			}
			if start > len(r) {
				return nil, fmt.Errorf("btree: leaf record in node %d has truncated key", idx)
			}
			key := append([]byte(nil), r[1:1+klen]...)
			value := append([]byte(nil), r[start:]...)
			out = append(out, Record{Key: key, Value: value})
		}
		idx = n.flink
	}
	return out, nil
}

// readNode parses the descriptor, record count, and offset table of node
// number n, returning its records as raw byte slices.
func readNode(tree []byte, n uint32, nodeCount int) (*node, error) {
	if int(n) >= nodeCount {
		return nil, fmt.Errorf("node number %d out of range (tree has %d nodes)", n, nodeCount)
	}
	buf := tree[int(n)*nodeSize : int(n)*nodeSize+nodeSize]

	flink := binary.BigEndian.Uint32(buf[0:])
	blink := binary.BigEndian.Uint32(buf[4:])
	ntype := buf[8]
	height := buf[9]
	count := binary.BigEndian.Uint16(buf[10:])

	if count > 248 {
		return nil, fmt.Errorf("record count %d implausible for a 512-byte node", count)
	}

	out := &node{flink: flink, blink: blink, ntype: ntype, height: height}
	offsets := make([]uint16, count+1)
	for i := range offsets {
		pos := nodeSize - 2*(i+1)
		if pos < descLen {
			return nil, fmt.Errorf("offset table overruns node body")
		}
		offsets[i] = binary.BigEndian.Uint16(buf[pos:])
	}
	for i := 0; i < int(count); i++ {
		start, end := offsets[i], offsets[i+1]
		if start > end || int(end) > len(buf) || start < descLen {
			return nil, fmt.Errorf("record %d has out-of-order offsets (%d, %d)", i, start, end)
		}
		out.records = append(out.records, append([]byte(nil), buf[start:end]...))
	}
	return out, nil
}
