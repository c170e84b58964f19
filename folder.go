// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package machfs

import "github.com/elliotnunn/machfs/internal/mac"

// nameMap is a case-insensitive, insertion-ordered string-keyed map: the
// Go equivalent of the source's AbstractFolder, which keeps a "preferred"
// dict (original case, insertion order) and a "main" dict (folded key ->
// value) side by side. Folding uses the classic HFS case-fold table, which
// folds ASCII letters only; the catalog collation table also equates some
// accented high-half pairs that this fold keeps distinct.
type nameMap struct {
	order  []string          // preferred-case names, insertion order
	byFold map[string]string // folded key -> preferred name
	values map[string]any    // folded key -> value
}

func newNameMap() *nameMap {
	return &nameMap{
		byFold: make(map[string]string),
		values: make(map[string]any),
	}
}

func foldKey(name string) string {
	b, ok := mac.Encode(name)
	if !ok {
		// Names reaching here should already be validated MacRoman; fall
		// back to folding the UTF-8 bytes directly rather than panicking
		// on a lookup.
		b = []byte(name)
	}
	return mac.FoldName(b)
}

func (m *nameMap) get(name string) (any, bool) {
	key := foldKey(name)
	v, ok := m.values[key]
	return v, ok
}

func (m *nameMap) put(name string, value any) {
	key := foldKey(name)
	if _, exists := m.values[key]; !exists {
		m.order = append(m.order, name)
	} else {
		// Replacing a value keeps the original preferred-case position.
		for i, n := range m.order {
			if foldKey(n) == key {
				m.order[i] = name
				break
			}
		}
	}
	m.byFold[key] = name
	m.values[key] = value
}

func (m *nameMap) delete(name string) {
	key := foldKey(name)
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	delete(m.byFold, key)
	for i, n := range m.order {
		if foldKey(n) == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

func (m *nameMap) names() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}
