// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package layout

import (
	"bytes"
	"testing"

	"github.com/elliotnunn/machfs/internal/catalog"
)

func TestVIBRoundTrip(t *testing.T) {
	want := VIB{
		CreateDate:     1,
		ModifyDate:     2,
		Attributes:     1 << 8,
		RootFileCount:  3,
		BitmapStart:    3,
		TotalAllocBlks: 1200,
		AllocBlockSize: 512,
		ClumpSize:      512,
		AllocBlockZero: 6,
		NextCNID:       16,
		FreeBlocks:     900,
		VolumeName:     []byte("Macintosh HD"),
		LastBackup:     4,
		XTClumpSize:    512,
		CTClumpSize:    512,
		RootDirCount:   1,
		TotalFileCount: 5,
		TotalDirCount:  2,
		FinderInfo:     [8]uint32{1, 2, 3, 4, 5, 6, 7, 8},
		XTFileSize:     512,
		XTExtents:      catalog.ExtentRecord{{StartBlock: 0, BlockCount: 1}},
		CTFileSize:     1024,
		CTExtents:      catalog.ExtentRecord{{StartBlock: 1, BlockCount: 2}},
	}

	b := want.Marshal()
	if len(b) != VIBSize {
		t.Fatalf("Marshal() length = %d, want %d", len(b), VIBSize)
	}

	got, err := UnmarshalVIB(b)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got.VolumeName, want.VolumeName) {
		t.Fatalf("VolumeName = %q, want %q", got.VolumeName, want.VolumeName)
	}
	got.VolumeName = nil
	want.VolumeName = nil
	if got != want {
		t.Fatalf("round trip mismatch:\ngot  %+v\nwant %+v", got, want)
	}
}

func TestUnmarshalVIBRejectsBadSignature(t *testing.T) {
	b := make([]byte, VIBSize)
	copy(b, "XX")
	if _, err := UnmarshalVIB(b); err == nil {
		t.Fatal("expected an error for a bad signature")
	}
}

func TestUnmarshalVIBRejectsShortBuffer(t *testing.T) {
	if _, err := UnmarshalVIB(make([]byte, VIBSize-1)); err == nil {
		t.Fatal("expected an error for a short buffer")
	}
}
