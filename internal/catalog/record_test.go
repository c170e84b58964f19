// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package catalog

import "testing"

func TestFileRecordRoundTrip(t *testing.T) {
	want := FileRecord{
		Locked:          true,
		Type:            [4]byte{'A', 'P', 'P', 'L'},
		Creator:         [4]byte{'x', 'y', 'z', '!'},
		FinderFlags:     0x1234,
		X:               -5,
		Y:               17,
		CNID:            42,
		DataStartBlock:  3,
		DataLogicalLen:  1234,
		DataPhysicalLen: 4096,
		RsrcStartBlock:  9,
		RsrcLogicalLen:  56,
		RsrcPhysicalLen: 512,
		CrDate:          100,
		MdDate:          200,
		BkDate:          300,
		DataExtents:     ExtentRecord{{StartBlock: 3, BlockCount: 8}},
		RsrcExtents:     ExtentRecord{{StartBlock: 9, BlockCount: 1}},
	}

	b := want.Marshal()
	if len(b) != 102 {
		t.Fatalf("Marshal() length = %d, want 102", len(b))
	}

	got, err := UnmarshalFileRecord(b)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("round trip mismatch:\ngot  %+v\nwant %+v", got, want)
	}
}

func TestUnmarshalFileRecordRejectsWrongType(t *testing.T) {
	b := FolderRecord{CNID: 2}.Marshal()
	b = append(b, make([]byte, 102-len(b))...)
	if _, err := UnmarshalFileRecord(b); err == nil {
		t.Fatal("expected an error unmarshalling a folder record as a file record")
	}
}

func TestFolderRecordRoundTrip(t *testing.T) {
	want := FolderRecord{
		FinderFlags: 0x4000,
		X:           10,
		Y:           -20,
		Valence:     7,
		CNID:        16,
		CrDate:      1,
		MdDate:      2,
		BkDate:      3,
	}
	b := want.Marshal()
	if len(b) != 70 {
		t.Fatalf("Marshal() length = %d, want 70", len(b))
	}
	got, err := UnmarshalFolderRecord(b)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("round trip mismatch:\ngot  %+v\nwant %+v", got, want)
	}
}

func TestThreadRecordRoundTrip(t *testing.T) {
	want := ThreadRecord{IsFolder: true, ParentCNID: 2, Name: []byte("ALPHA")}
	b := want.Marshal()
	got, err := UnmarshalThreadRecord(b)
	if err != nil {
		t.Fatal(err)
	}
	if got.IsFolder != want.IsFolder || got.ParentCNID != want.ParentCNID || string(got.Name) != string(want.Name) {
		t.Fatalf("round trip mismatch:\ngot  %+v\nwant %+v", got, want)
	}
}

func TestKeyLayout(t *testing.T) {
	k := Key(2, []byte("ALPHA"))
	if len(k) != 5+5 {
		t.Fatalf("Key() length = %d, want 10", len(k))
	}
	if k[4] != 5 {
		t.Fatalf("Key() length byte = %d, want 5", k[4])
	}
	if string(k[5:]) != "ALPHA" {
		t.Fatalf("Key() name = %q, want ALPHA", k[5:])
	}
}

func TestThreadKeyHasZeroLengthName(t *testing.T) {
	k := ThreadKey(16)
	if len(k) != 5 {
		t.Fatalf("ThreadKey() length = %d, want 5", len(k))
	}
}

func TestExtentsKeyLayout(t *testing.T) {
	k := ExtentsKey(16, ForkRsrc, 3)
	if len(k) != ExtentsKeyLen {
		t.Fatalf("ExtentsKey() length = %d, want %d", len(k), ExtentsKeyLen)
	}
	if k[0] != ForkRsrc {
		t.Fatalf("fork selector = %#x, want %#x", k[0], ForkRsrc)
	}
}
