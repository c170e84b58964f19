// Copyright (c) Elliot Nunn
// Licensed under the MIT license

// Package volumecache memoizes parsed *machfs.Volume images for CLI batch
// runs (verify/dump over many images, or repeated -cache invocations), so a
// volume already parsed in this process isn't re-parsed. Admission and
// eviction follow a TinyLFU policy, same as the teacher's block cache.
package volumecache

import (
	"fmt"
	"os"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-tinylfu"

	"github.com/elliotnunn/machfs"
)

// identity is what makes a cache entry valid: the path plus the stat
// fields that change whenever the underlying file's content does.
type identity struct {
	path    string
	size    int64
	modTime int64
}

type entry struct {
	id  identity
	vol *machfs.Volume
}

// Cache holds up to size parsed volumes, evicting the least valuable under
// TinyLFU's admission policy when full.
type Cache struct {
	mu sync.Mutex
	c  *tinylfu.T[string, *entry]
}

// New returns a cache admitting at most size entries.
func New(size int) *Cache {
	if size <= 0 {
		size = 1
	}
	return &Cache{c: tinylfu.New[string, *entry](size, size*10, entryHash)}
}

func entryHash(k string) uint64 { return xxhash.Sum64String(k) }

// Load returns the parsed volume at path, reusing a cached parse if path's
// size and modification time haven't changed since it was cached.
func (c *Cache) Load(path string) (*machfs.Volume, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("volumecache: %w", err)
	}
	id := identity{path: path, size: info.Size(), modTime: info.ModTime().UnixNano()}

	c.mu.Lock()
	if e, ok := c.c.Get(path); ok && e.id == id {
		c.mu.Unlock()
		return e.vol, nil
	}
	c.mu.Unlock()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("volumecache: %w", err)
	}
	vol := &machfs.Volume{}
	if err := vol.Read(raw); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.c.Add(path, &entry{id: id, vol: vol})
	c.mu.Unlock()
	return vol, nil
}

// ContentHash returns a stable, non-cryptographic identity hash for raw
// image bytes, used by the CLI's verify subcommand as a first check before
// comparing two images byte for byte.
func ContentHash(raw []byte) uint64 {
	return xxhash.Sum64(raw)
}
