// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package appledouble

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestBuildFileSidecarParseRoundTrip(t *testing.T) {
	want := AppleDouble{
		CreateTime: time.Date(2001, 2, 3, 4, 5, 6, 0, time.UTC),
		ModTime:    time.Date(2002, 2, 3, 4, 5, 6, 0, time.UTC),
		BkTime:     time.Date(2003, 2, 3, 4, 5, 6, 0, time.UTC),
		AccTime:    time.Date(2004, 2, 3, 4, 5, 6, 0, time.UTC),
		Locked:     true,
		Flags:      FlagIsInvisible,
		Type:       [4]byte{'T', 'E', 'X', 'T'},
		Creator:    [4]byte{'t', 't', 'x', 't'},
	}
	rsrc := []byte("a small resource fork")

	sidecar := want.BuildFileSidecar(rsrc)

	got, gotRsrc, err := Parse(sidecar)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(gotRsrc, rsrc) {
		t.Fatalf("resource fork = %q, want %q", gotRsrc, rsrc)
	}
	if got.Type != want.Type || got.Creator != want.Creator {
		t.Fatalf("type/creator = %v/%v, want %v/%v", got.Type, got.Creator, want.Type, want.Creator)
	}
	if got.Flags != want.Flags {
		t.Fatalf("flags = %#x, want %#x", got.Flags, want.Flags)
	}
	if !got.Locked {
		t.Fatal("Locked did not round trip")
	}
	if !got.ModTime.Equal(want.ModTime) {
		t.Fatalf("ModTime = %v, want %v", got.ModTime, want.ModTime)
	}
}

func TestBuildFileSidecarEmptyResourceFork(t *testing.T) {
	var ad AppleDouble
	sidecar := ad.BuildFileSidecar(nil)

	_, rsrc, err := Parse(sidecar)
	if err != nil {
		t.Fatal(err)
	}
	if len(rsrc) != 0 {
		t.Fatalf("resource fork = %d bytes, want 0", len(rsrc))
	}
}

func TestBuildDirSidecarHasNoResourceFork(t *testing.T) {
	ad := AppleDouble{View: 256}
	sidecar := ad.BuildDirSidecar()

	_, rsrc, err := Parse(sidecar)
	if err != nil {
		t.Fatal(err)
	}
	if rsrc != nil {
		t.Fatalf("directory sidecar carries a resource fork: %q", rsrc)
	}
}

func TestParseRejectsBadMagic(t *testing.T) {
	bogus := make([]byte, 32)
	if _, _, err := Parse(bogus); err == nil {
		t.Fatal("expected an error for a non-appledouble buffer")
	}
}

func TestParseRejectsTruncatedTable(t *testing.T) {
	ad := AppleDouble{Type: [4]byte{'A', 'P', 'P', 'L'}}
	sidecar := ad.BuildFileSidecar([]byte("rsrc"))
	if _, _, err := Parse(sidecar[:10]); err == nil {
		t.Fatal("expected an error for a truncated sidecar")
	}
}

func TestDumpDescribesSidecarContents(t *testing.T) {
	ad := AppleDouble{Type: [4]byte{'A', 'P', 'P', 'L'}, Creator: [4]byte{'x', 'y', 'z', 'w'}}
	sidecar := ad.BuildFileSidecar([]byte("body"))

	out, err := Dump(bytes.NewReader(sidecar))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "FINDER_INFO") {
		t.Fatalf("Dump output missing FINDER_INFO: %q", out)
	}
}

func TestSidecarNaming(t *testing.T) {
	if got := Sidecar("folder/Readme"); got != "folder/._Readme" {
		t.Fatalf("Sidecar(folder/Readme) = %q, want folder/._Readme", got)
	}
}
