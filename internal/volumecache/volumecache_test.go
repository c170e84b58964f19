// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package volumecache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/elliotnunn/machfs"
)

func writeTestImage(t *testing.T, path, name string) {
	t.Helper()
	v := &machfs.Volume{Name: name}
	img, err := v.Write(machfs.WriteOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, img, 0o666); err != nil {
		t.Fatal(err)
	}
}

func TestLoadCachesByPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vol.img")
	writeTestImage(t, path, "First")

	c := New(4)
	v1, err := c.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	v2, err := c.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if v1 != v2 {
		t.Fatal("second Load of an unchanged path returned a different *machfs.Volume, want the cached one")
	}
	if v1.Name != "First" {
		t.Fatalf("Name = %q, want First", v1.Name)
	}
}

func TestLoadInvalidatesOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vol.img")
	writeTestImage(t, path, "First")

	c := New(4)
	v1, err := c.Load(path)
	if err != nil {
		t.Fatal(err)
	}

	// Force a distinct mtime so the stat-based identity check sees a change
	// even on filesystems with coarse timestamp resolution.
	future := time.Now().Add(time.Hour)
	writeTestImage(t, path, "Second")
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}

	v2, err := c.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if v1 == v2 {
		t.Fatal("Load returned the stale cached volume after the file changed")
	}
	if v2.Name != "Second" {
		t.Fatalf("Name = %q, want Second", v2.Name)
	}
}

func TestContentHashDeterministicAndSensitive(t *testing.T) {
	a := []byte("hello hfs")
	b := []byte("hello hfs")
	c := []byte("hello HFS")

	if ContentHash(a) != ContentHash(b) {
		t.Fatal("ContentHash differed for identical inputs")
	}
	if ContentHash(a) == ContentHash(c) {
		t.Fatal("ContentHash collided for differing inputs")
	}
}
