package rzip

import (
	"bytes"
	"crypto/sha1"
	"crypto/sha256"
	"io"
	"strings"
	"testing"

	"github.com/dounine/rzip/payload"
)

func newTestEntry(t *testing.T, content string, method uint16) *Entry {
	t.Helper()
	prov, err := payload.FromConfig(payload.Config{LimitSize: testLimitSize})
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	if _, err := prov.Write([]byte(content)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := prov.Seek(0, io.SeekStart); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	return &Entry{
		Name:              "x",
		CompressionMethod: method,
		UncompressedSize:  uint32(len(content)),
		Payload:           prov,
	}
}

func TestCompressDecompressRoundTrip(t *testing.T) {
	content := strings.Repeat("payload data ", 200)
	e := newTestEntry(t, content, Deflate)

	if err := e.Compress(payload.FromConfig, testLimitSize, 0, true); err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if !e.IsCompressed {
		t.Fatal("expected IsCompressed true after Compress")
	}
	compressedLen, err := payload.Len(e.Payload)
	if err != nil {
		t.Fatalf("Len: %v", err)
	}
	if compressedLen != int64(e.CompressedSize) {
		t.Fatalf("compressed size mismatch: field=%d actual=%d", e.CompressedSize, compressedLen)
	}

	if err := e.Decompress(payload.FromConfig, testLimitSize); err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if e.IsCompressed {
		t.Fatal("expected IsCompressed false after Decompress")
	}
	got, err := e.CopyData()
	if err != nil {
		t.Fatalf("CopyData: %v", err)
	}
	if string(got) != content {
		t.Fatal("round-tripped content does not match original")
	}
}

func TestCompressSkipsWhenNotDeflate(t *testing.T) {
	e := newTestEntry(t, "abc", Store)
	if err := e.Compress(payload.FromConfig, testLimitSize, 0, true); err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if e.IsCompressed {
		t.Fatal("expected Store entries to be left untouched by Compress")
	}
}

func TestCompressZeroesCRCWhenNotRequested(t *testing.T) {
	e := newTestEntry(t, "abc", Deflate)
	e.CRC32 = 0xDEADBEEF
	if err := e.Compress(payload.FromConfig, testLimitSize, 0, false); err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if e.CRC32 != 0 {
		t.Fatalf("expected CRC32 zeroed, got %#x", e.CRC32)
	}
}

func TestCompressEmptyPayload(t *testing.T) {
	e := newTestEntry(t, "", Deflate)
	if err := e.Compress(payload.FromConfig, testLimitSize, 0, true); err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if e.CompressedSize != 0 || e.UncompressedSize != 0 {
		t.Fatalf("expected zeroed sizes for empty payload, got csize=%d usize=%d", e.CompressedSize, e.UncompressedSize)
	}
	if !e.IsCompressed {
		t.Fatal("expected IsCompressed true even for an empty payload")
	}
}

func TestProgressCallbackReachesTotal(t *testing.T) {
	content := strings.Repeat("z", 100000)
	e := newTestEntry(t, content, Deflate)

	var lastSum int64
	var calls int
	cb := func(total, sum int64, percent string) {
		calls++
		lastSum = sum
		if percent == "" {
			t.Fatal("expected a non-empty percent string")
		}
	}
	if err := e.CompressWithCallback(payload.FromConfig, testLimitSize, 0, true, cb); err != nil {
		t.Fatalf("CompressWithCallback: %v", err)
	}
	if calls == 0 {
		t.Fatal("expected at least one progress callback invocation")
	}
	if lastSum != int64(len(content)) {
		t.Fatalf("expected final cumulative sum %d, got %d", len(content), lastSum)
	}
}

func TestSHAValueRestoresCursor(t *testing.T) {
	e := newTestEntry(t, "hello world", Store)
	if _, err := e.Payload.Seek(3, io.SeekStart); err != nil {
		t.Fatalf("Seek: %v", err)
	}

	sha1Sum, sha256Sum, err := e.SHAValue()
	if err != nil {
		t.Fatalf("SHAValue: %v", err)
	}
	wantSha1 := sha1.Sum([]byte("hello world"))
	wantSha256 := sha256.Sum256([]byte("hello world"))
	if !bytes.Equal(sha1Sum, wantSha1[:]) {
		t.Fatalf("sha1 mismatch: got %x, want %x", sha1Sum, wantSha1)
	}
	if !bytes.Equal(sha256Sum, wantSha256[:]) {
		t.Fatalf("sha256 mismatch: got %x, want %x", sha256Sum, wantSha256)
	}

	cur, err := e.Payload.Seek(0, io.SeekCurrent)
	if err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if cur != 3 {
		t.Fatalf("expected cursor restored to 3, got %d", cur)
	}
}

func TestCopyDataRestoresCursor(t *testing.T) {
	e := newTestEntry(t, "abcdefgh", Store)
	if _, err := e.Payload.Seek(4, io.SeekStart); err != nil {
		t.Fatalf("Seek: %v", err)
	}

	data, err := e.CopyData()
	if err != nil {
		t.Fatalf("CopyData: %v", err)
	}
	if string(data) != "efgh" {
		t.Fatalf("expected the payload from the cursor to the end, got %q", data)
	}

	cur, err := e.Payload.Seek(0, io.SeekCurrent)
	if err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if cur != 4 {
		t.Fatalf("expected cursor restored to 4, got %d", cur)
	}
}
