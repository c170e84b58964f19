// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package bootblock

import "testing"

func TestPatchNames(t *testing.T) {
	base := make([]byte, 1024)
	out := Patch(base, []byte("System"), []byte("Finder"), 0, nil)

	if out[0x0A] != 6 || string(out[0x0B:0x0B+6]) != "System" {
		t.Fatalf("system name not patched at 0x0A: %v", out[0x0A:0x1A])
	}
	if out[0x1A] != 6 || string(out[0x1B:0x1B+6]) != "Finder" {
		t.Fatalf("finder name not patched at 0x1A: %v", out[0x1A:0x2A])
	}
	if out[0x5A] != 0 {
		t.Fatalf("startup app name field at 0x5A should be untouched when cnid==0")
	}
}

func TestPatchStartupApp(t *testing.T) {
	base := make([]byte, 1024)
	out := Patch(base, []byte("System"), []byte("Finder"), 100, []byte("MyApp"))

	if out[0x5A] != 5 || string(out[0x5B:0x5B+5]) != "MyApp" {
		t.Fatalf("startup app name not patched at 0x5A: %v", out[0x5A:0x6A])
	}
	// The folder CNID goes only into the VIB's Finder info (FinderInfoSlots),
	// never into the boot block, so nothing past the 16-byte name field moves.
	if out[0x6A] != 0 {
		t.Fatalf("byte past the 0x5A:0x6A name field was touched: %v", out[0x6A])
	}
}

func TestFinderInfoSlots(t *testing.T) {
	slots := FinderInfoSlots(2, 100, []byte("MyApp"))
	if slots[0] != 2 {
		t.Fatalf("slot 1 = %d, want system folder CNID 2", slots[0])
	}
	if slots[1] != 100 {
		t.Fatalf("slot 2 = %d, want startup folder CNID 100", slots[1])
	}
}

func TestTypeChecks(t *testing.T) {
	if !IsSystemFileType([4]byte{'Z', 'S', 'Y', 'S'}) {
		t.Fatal("ZSYS should be recognised as the System file type")
	}
	if IsSystemFileType([4]byte{'A', 'P', 'P', 'L'}) {
		t.Fatal("APPL should not be recognised as the System file type")
	}
	if !IsFinderType([4]byte{'F', 'N', 'D', 'R'}) {
		t.Fatal("FNDR should be recognised as the Finder type")
	}
}
