package rzip

import "testing"

func TestClassifyTextAllPrintable(t *testing.T) {
	if !classifyText([]byte("hello, world!\nsecond line\r\n")) {
		t.Fatal("expected printable text to classify as text")
	}
}

func TestClassifyTextBinary(t *testing.T) {
	binary := make([]byte, 256)
	for i := range binary {
		binary[i] = byte(i % 256)
	}
	if classifyText(binary) {
		t.Fatal("expected high-entropy bytes to classify as binary")
	}
}

func TestClassifyTextEmpty(t *testing.T) {
	if !classifyText(nil) {
		t.Fatal("expected empty prefix to classify as text")
	}
}

func TestClassifyTextThresholdBoundary(t *testing.T) {
	// 30 of 100 bytes non-printable sits exactly at the 0.3 threshold and
	// must still classify as text (ratio <= threshold).
	prefix := make([]byte, 100)
	for i := range prefix {
		prefix[i] = 'a'
	}
	for i := 0; i < 30; i++ {
		prefix[i] = 0x00
	}
	if !classifyText(prefix) {
		t.Fatal("expected exactly-threshold ratio to classify as text")
	}
	prefix[30] = 0x00
	if classifyText(prefix) {
		t.Fatal("expected just-over-threshold ratio to classify as binary")
	}
}
