package rzip

import (
	"bytes"
	"testing"
)

func TestFindEOCDMinimal(t *testing.T) {
	data := append([]byte{0x50, 0x4B, 0x05, 0x06}, make([]byte, 18)...)
	pos, err := findEOCD(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("findEOCD: %v", err)
	}
	if pos != 0 {
		t.Fatalf("expected EOCD at offset 0, got %d", pos)
	}
}

func TestFindEOCDWithPrefixGarbage(t *testing.T) {
	prefix := bytes.Repeat([]byte{0xFF}, 50000)
	eocd := append([]byte{0x50, 0x4B, 0x05, 0x06}, make([]byte, 18)...)
	data := append(prefix, eocd...)
	pos, err := findEOCD(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("findEOCD: %v", err)
	}
	if pos != int64(len(prefix)) {
		t.Fatalf("expected EOCD at offset %d, got %d", len(prefix), pos)
	}
}

func TestFindEOCDNotFound(t *testing.T) {
	data := bytes.Repeat([]byte{0x00}, 100)
	if _, err := findEOCD(bytes.NewReader(data)); err == nil {
		t.Fatal("expected an error when no EOCD signature is present")
	}
}

func TestFindEOCDTooShort(t *testing.T) {
	data := make([]byte, 10)
	if _, err := findEOCD(bytes.NewReader(data)); err == nil {
		t.Fatal("expected an error for a file shorter than the minimum EOCD size")
	}
}

func TestFindEOCDWithComment(t *testing.T) {
	comment := bytes.Repeat([]byte{'x'}, 65535)
	var hdr [eocdLen]byte
	b := writeBuf(hdr[:])
	b.uint32(eocdSignature)
	b.uint16(0)
	b.uint16(0)
	b.uint16(0)
	b.uint16(0)
	b.uint32(0)
	b.uint32(0)
	b.uint16(uint16(len(comment)))
	data := append(hdr[:], comment...)

	pos, err := findEOCD(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("findEOCD: %v", err)
	}
	if pos != 0 {
		t.Fatalf("expected EOCD at offset 0, got %d", pos)
	}

	rec, err := readEOCD(bytes.NewReader(data), pos)
	if err != nil {
		t.Fatalf("readEOCD: %v", err)
	}
	if rec.comment != string(comment) {
		t.Fatalf("comment length mismatch: got %d, want %d", len(rec.comment), len(comment))
	}
}

func TestEOCDRoundTrip(t *testing.T) {
	rec := &eocdRecord{
		diskNumber:        0,
		cdDiskNumber:      0,
		cdEntriesThisDisk: 3,
		cdEntriesTotal:    3,
		cdSize:            123,
		cdOffset:          456,
		comment:           "a comment",
	}
	var buf bytes.Buffer
	if err := writeEOCD(&buf, rec); err != nil {
		t.Fatalf("writeEOCD: %v", err)
	}
	got, err := readEOCD(bytes.NewReader(buf.Bytes()), 0)
	if err != nil {
		t.Fatalf("readEOCD: %v", err)
	}
	if *got != *rec {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, rec)
	}
}
