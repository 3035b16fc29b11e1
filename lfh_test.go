package rzip

import (
	"bytes"
	"testing"
)

func TestLFHRoundTripArchiveMode(t *testing.T) {
	e := &Entry{
		Name:              "hello.txt",
		CompressionMethod: Store,
		CRC32:             0x5C5752E4,
		CompressedSize:    3,
		UncompressedSize:  3,
		ModTime:           defaultModTime,
		ModDate:           defaultModDate,
		VersionNeededSpec: versionNeededFile,
		VersionNeededOS:   osMSDOS,
	}
	var buf bytes.Buffer
	if err := writeLocalFileHeader(&buf, e, ModeArchiveEmit); err != nil {
		t.Fatalf("writeLocalFileHeader: %v", err)
	}

	got, payloadPos, err := readLocalFileHeader(bytes.NewReader(buf.Bytes()), 0)
	if err != nil {
		t.Fatalf("readLocalFileHeader: %v", err)
	}
	if got.Name != e.Name || got.CRC32 != e.CRC32 || got.CompressedSize != e.CompressedSize {
		t.Fatalf("round trip mismatch: got %+v", got)
	}
	if payloadPos != int64(buf.Len()) {
		t.Fatalf("payload position: got %d, want %d", payloadPos, buf.Len())
	}
}

func TestLFHDirectoryZeroedOnArchiveEmit(t *testing.T) {
	e := &Entry{
		Name:             "d/",
		CRC32:            0xDEADBEEF,
		CompressedSize:   99,
		UncompressedSize: 99,
	}
	var buf bytes.Buffer
	if err := writeLocalFileHeader(&buf, e, ModeArchiveEmit); err != nil {
		t.Fatalf("writeLocalFileHeader: %v", err)
	}
	got, _, err := readLocalFileHeader(bytes.NewReader(buf.Bytes()), 0)
	if err != nil {
		t.Fatalf("readLocalFileHeader: %v", err)
	}
	if got.CRC32 != 0 || got.CompressedSize != 0 || got.UncompressedSize != 0 {
		t.Fatalf("expected zeroed directory fields, got %+v", got)
	}
}

func TestLFHEmptyUncompressedForcesStore(t *testing.T) {
	e := &Entry{Name: "empty.txt", CompressionMethod: Deflate, UncompressedSize: 0}
	var buf bytes.Buffer
	if err := writeLocalFileHeader(&buf, e, ModeArchiveEmit); err != nil {
		t.Fatalf("writeLocalFileHeader: %v", err)
	}
	got, _, err := readLocalFileHeader(bytes.NewReader(buf.Bytes()), 0)
	if err != nil {
		t.Fatalf("readLocalFileHeader: %v", err)
	}
	if got.CompressionMethod != Store {
		t.Fatalf("expected method forced to Store, got %d", got.CompressionMethod)
	}
}

func TestLFHSnapshotPreservesZeroLengthDeflateMethod(t *testing.T) {
	e := &Entry{Name: "empty.txt", CompressionMethod: Deflate, UncompressedSize: 0}
	var buf bytes.Buffer
	if err := writeLocalFileHeader(&buf, e, ModeSnapshot); err != nil {
		t.Fatalf("writeLocalFileHeader: %v", err)
	}
	got, _, err := readLocalFileHeader(bytes.NewReader(buf.Bytes()), 0)
	if err != nil {
		t.Fatalf("readLocalFileHeader: %v", err)
	}
	if got.CompressionMethod != Deflate {
		t.Fatalf("expected method preserved as Deflate in snapshot mode, got %d", got.CompressionMethod)
	}
}

func TestLFHSnapshotCarriesPayloadPosition(t *testing.T) {
	e := &Entry{Name: "a.bin", PayloadPosition: 12345}
	var buf bytes.Buffer
	if err := writeLocalFileHeader(&buf, e, ModeSnapshot); err != nil {
		t.Fatalf("writeLocalFileHeader: %v", err)
	}
	_, payloadPos, err := readLocalFileHeader(bytes.NewReader(buf.Bytes()), 0)
	if err != nil {
		t.Fatalf("readLocalFileHeader: %v", err)
	}
	// readLocalFileHeader stops right after extras; the trailing u64
	// written in snapshot mode is consumed separately by the CDE codec.
	if payloadPos != int64(buf.Len())-8 {
		t.Fatalf("payload position: got %d, want %d", payloadPos, buf.Len()-8)
	}
}

func TestLFHBadMagic(t *testing.T) {
	data := make([]byte, localFileHeaderLen)
	if _, _, err := readLocalFileHeader(bytes.NewReader(data), 0); err == nil {
		t.Fatal("expected an error for a missing local file header signature")
	}
}
