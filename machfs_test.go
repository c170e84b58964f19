// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package machfs

import (
	"bytes"
	"fmt"
	"testing"
	"time"
)

func sampleTime() time.Time {
	return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
}

func TestWriteReadEmptyVolume(t *testing.T) {
	v := &Volume{Name: "Untitled", CrDate: sampleTime(), MdDate: sampleTime(), BkDate: sampleTime()}

	img, err := v.Write(WriteOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(img) != 800*1024 {
		t.Fatalf("image length = %d, want 800KiB", len(img))
	}

	var got Volume
	if err := got.Read(img); err != nil {
		t.Fatal(err)
	}
	if got.Name != "Untitled" {
		t.Fatalf("Name = %q, want Untitled", got.Name)
	}
	if got.Folder.Len() != 0 {
		t.Fatalf("root has %d children, want 0", got.Folder.Len())
	}
}

func TestWriteReadSingleFile(t *testing.T) {
	v := &Volume{Name: "single file", CrDate: sampleTime(), MdDate: sampleTime(), BkDate: sampleTime()}

	data := bytes.Repeat([]byte{0xAB}, 1234)
	rsrc := bytes.Repeat([]byte{0xCD}, 4096)
	f := &File{
		Type:    [4]byte{'T', 'E', 'X', 'T'},
		Creator: [4]byte{'t', 't', 'x', 't'},
		CrDate:  sampleTime(),
		MdDate:  sampleTime(),
		BkDate:  sampleTime(),
		Data:    data,
		Rsrc:    rsrc,
	}
	v.Folder.Place("Readme", f)

	img, err := v.Write(WriteOptions{})
	if err != nil {
		t.Fatal(err)
	}

	var got Volume
	if err := got.Read(img); err != nil {
		t.Fatal(err)
	}

	child, ok := got.Folder.Get("Readme")
	if !ok {
		t.Fatal("Readme not found after round trip")
	}
	gf, ok := child.(*File)
	if !ok {
		t.Fatalf("Readme is a %T, want *File", child)
	}
	if !bytes.Equal(gf.Data, data) {
		t.Fatalf("data fork length = %d, want %d", len(gf.Data), len(data))
	}
	if !bytes.Equal(gf.Rsrc, rsrc) {
		t.Fatalf("resource fork length = %d, want %d", len(gf.Rsrc), len(rsrc))
	}
	if gf.Type != f.Type || gf.Creator != f.Creator {
		t.Fatalf("type/creator = %v/%v, want %v/%v", gf.Type, gf.Creator, f.Type, f.Creator)
	}
}

func TestWriteReadManyFilesAndFolders(t *testing.T) {
	v := &Volume{Name: "ElmoTest", CrDate: sampleTime(), MdDate: sampleTime(), BkDate: sampleTime()}

	sub := &Folder{CrDate: sampleTime(), MdDate: sampleTime(), BkDate: sampleTime()}
	for i := 0; i < 100; i++ {
		name := fmt.Sprintf("File %03d", i)
		sub.Place(name, &File{
			CrDate: sampleTime(), MdDate: sampleTime(), BkDate: sampleTime(),
			Data: []byte(name),
		})
	}
	v.Folder.Place("Contents", sub)

	img, err := v.Write(WriteOptions{})
	if err != nil {
		t.Fatal(err)
	}

	var got Volume
	if err := got.Read(img); err != nil {
		t.Fatal(err)
	}

	child, ok := got.Folder.Get("Contents")
	if !ok {
		t.Fatal("Contents not found")
	}
	gsub, ok := child.(*Folder)
	if !ok {
		t.Fatalf("Contents is a %T, want *Folder", child)
	}
	if gsub.Len() != 100 {
		t.Fatalf("Contents has %d children, want 100", gsub.Len())
	}
	for i := 0; i < 100; i++ {
		name := fmt.Sprintf("File %03d", i)
		c, ok := gsub.Get(name)
		if !ok {
			t.Fatalf("%s missing after round trip", name)
		}
		gf := c.(*File)
		if string(gf.Data) != name {
			t.Fatalf("%s data = %q, want %q", name, gf.Data, name)
		}
	}
}

func TestCaseInsensitiveLookup(t *testing.T) {
	v := &Volume{Name: "Untitled", CrDate: sampleTime(), MdDate: sampleTime(), BkDate: sampleTime()}
	v.Folder.Place("ALPHA", &File{CrDate: sampleTime(), MdDate: sampleTime(), BkDate: sampleTime()})

	if _, ok := v.Folder.Get("alpha"); !ok {
		t.Fatal("case-insensitive lookup of alpha failed")
	}

	// Placing under a different case replaces the same entry rather than
	// adding a second one.
	v.Folder.Place("alpha", &File{CrDate: sampleTime(), MdDate: sampleTime(), BkDate: sampleTime()})
	if v.Folder.Len() != 1 {
		t.Fatalf("root has %d children, want 1 after case-insensitive replace", v.Folder.Len())
	}
}

func TestWriteRejectsUndersizeImage(t *testing.T) {
	v := &Volume{Name: "BadSize", CrDate: sampleTime(), MdDate: sampleTime(), BkDate: sampleTime()}
	_, err := v.Write(WriteOptions{Size: 399 * 1024})
	if err == nil {
		t.Fatal("expected an error for a 399KiB image")
	}
	if _, ok := err.(*BadSizeError); !ok {
		t.Fatalf("error = %T, want *BadSizeError", err)
	}
}

func TestWriteReportsOutOfSpace(t *testing.T) {
	v := &Volume{Name: "OutOfSpace", CrDate: sampleTime(), MdDate: sampleTime(), BkDate: sampleTime()}
	v.Folder.Place("Big", &File{
		CrDate: sampleTime(), MdDate: sampleTime(), BkDate: sampleTime(),
		Data: make([]byte, 900*1024),
	})
	_, err := v.Write(WriteOptions{Size: 400 * 1024})
	if err == nil {
		t.Fatal("expected an out-of-space error")
	}
	if _, ok := err.(*OutOfSpaceError); !ok {
		t.Fatalf("error = %T, want *OutOfSpaceError", err)
	}
}

func TestWriteRejectsBadName(t *testing.T) {
	v := &Volume{Name: "Untitled", CrDate: sampleTime(), MdDate: sampleTime(), BkDate: sampleTime()}
	v.Folder.Place("bad:name", &File{CrDate: sampleTime(), MdDate: sampleTime(), BkDate: sampleTime()})
	_, err := v.Write(WriteOptions{})
	if _, ok := err.(*BadNameError); !ok {
		t.Fatalf("error = %T, want *BadNameError", err)
	}
}

func TestReadRejectsTruncatedImage(t *testing.T) {
	var v Volume
	err := v.Read(make([]byte, 100))
	if _, ok := err.(*MalformedError); !ok {
		t.Fatalf("error = %T, want *MalformedError", err)
	}
}

func TestDesktopPlaceholdersAreTransientAndStrippedOnRead(t *testing.T) {
	v := &Volume{Name: "Untitled", CrDate: sampleTime(), MdDate: sampleTime(), BkDate: sampleTime()}

	img, err := v.Write(WriteOptions{Desktopdb: true, Size: 2 * 1024 * 1024})
	if err != nil {
		t.Fatal(err)
	}
	if v.Folder.Len() != 0 {
		t.Fatalf("root has %d children after Write, want 0 (placeholders must be removed post-write)", v.Folder.Len())
	}

	var got Volume
	if err := got.Read(img); err != nil {
		t.Fatal(err)
	}
	if got.Folder.Len() != 0 {
		t.Fatalf("root has %d children after Read, want 0 (Desktop placeholders must be stripped)", got.Folder.Len())
	}
}
